package core

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/git-pkgs/binstar/client"
	"github.com/git-pkgs/binstar/objectstore"
)

// Resolve asks the server where a distribution's bytes live. The request
// never follows the redirect itself. When contentHash is set it is sent as
// the ETag header; a matching hash yields a Location with NotModified set.
// Any status other than 302 or 304, including 200, is an error.
func (a *API) Resolve(ctx context.Context, dist DistributionRef, contentHash string) (*Location, error) {
	if err := dist.Validate(); err != nil {
		return nil, err
	}

	url := a.urls.Download(dist.Login, dist.Name, dist.Version, dist.Basename)
	req, err := a.client.NewRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if contentHash != "" {
		req.Header.Set("ETag", contentHash)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := client.CheckResponse(resp, http.StatusFound, http.StatusNotModified); err != nil {
		return nil, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode == http.StatusNotModified {
		return &Location{Filename: dist.Filename(), NotModified: true}, nil
	}

	loc, err := resp.Location()
	if err != nil {
		if errors.Is(err, http.ErrNoLocation) {
			return nil, &client.MalformedResponseError{URL: url, Field: "Location"}
		}
		return nil, &client.MalformedResponseError{URL: url, Field: "Location", Err: err}
	}
	return &Location{URL: loc.String(), Filename: dist.Filename()}, nil
}

// Download streams a distribution. It returns nil, nil when contentHash
// matches the server's copy. Otherwise the returned artifact's Body streams
// the bytes from the redirect target, fetched without API credentials; the
// caller must close it.
func (a *API) Download(ctx context.Context, dist DistributionRef, contentHash string) (*objectstore.Artifact, error) {
	loc, err := a.Resolve(ctx, dist, contentHash)
	if err != nil {
		return nil, err
	}
	if loc.NotModified {
		return nil, nil
	}
	return a.fetcher.Fetch(ctx, loc.URL)
}
