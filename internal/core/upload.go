package core

import (
	"context"
	"encoding/json"
	"io"

	"github.com/git-pkgs/binstar/client"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type stageRequest struct {
	Description string `json:"description"`
	Attrs       Attrs  `json:"attrs"`
}

type stageResponse struct {
	S3URL      *string         `json:"s3_url"`
	S3FormData map[string]any  `json:"s3form_data"`
	DistID     json.RawMessage `json:"dist_id"`
}

type commitRequest struct {
	DistID json.RawMessage `json:"dist_id"`
}

// Upload adds a distribution to a release. It stages the distribution,
// posts content to the object store form the stage call returned, and
// commits the distribution, returning the committed record.
//
// The three steps run once each; a failure at any step is returned as is.
// If the commit fails after the object store accepted the file, the staged
// object is left on the server: no cleanup is attempted.
func (a *API) Upload(ctx context.Context, dist DistributionRef, content io.Reader, opts UploadOptions) (Object, error) {
	if err := dist.Validate(); err != nil {
		return nil, err
	}
	if content == nil {
		return nil, ErrNoContent
	}

	log := a.log.WithFields(logrus.Fields{
		"upload_id":    uuid.NewString(),
		"distribution": dist.String(),
	})

	staged, err := a.stage(ctx, dist, opts)
	if err != nil {
		return nil, err
	}
	log.WithField("dist_id", string(staged.DistID)).Debug("distribution staged")

	if err := a.poster.PostForm(ctx, staged.URL, staged.FormData, dist.Filename(), content); err != nil {
		return nil, err
	}
	log.Debug("object store accepted upload")

	obj, err := a.commit(ctx, dist, staged)
	if err != nil {
		log.WithError(err).Warn("commit failed after transfer; staged object left on server")
		return nil, err
	}
	log.Debug("distribution committed")
	return obj, nil
}

func (a *API) stage(ctx context.Context, dist DistributionRef, opts UploadOptions) (*StagedUpload, error) {
	attrs := opts.Attrs
	if attrs == nil {
		attrs = Attrs{}
	}

	url := a.urls.Stage(dist.Login, dist.Name, dist.Version, dist.Basename)
	var resp stageResponse
	err := a.client.PostJSON(ctx, url, stageRequest{Description: opts.Description, Attrs: attrs}, &resp)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.S3URL == nil || *resp.S3URL == "":
		return nil, &client.MalformedResponseError{URL: url, Field: "s3_url"}
	case resp.S3FormData == nil:
		return nil, &client.MalformedResponseError{URL: url, Field: "s3form_data"}
	case len(resp.DistID) == 0 || string(resp.DistID) == "null":
		return nil, &client.MalformedResponseError{URL: url, Field: "dist_id"}
	}

	return &StagedUpload{
		URL:      *resp.S3URL,
		FormData: resp.S3FormData,
		DistID:   resp.DistID,
	}, nil
}

func (a *API) commit(ctx context.Context, dist DistributionRef, staged *StagedUpload) (Object, error) {
	url := a.urls.Commit(dist.Login, dist.Name, dist.Version, dist.Basename)
	var obj Object
	if err := a.client.PostJSON(ctx, url, commitRequest{DistID: staged.DistID}, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}
