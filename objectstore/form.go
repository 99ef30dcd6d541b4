package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/git-pkgs/binstar/client"
)

// UploadFailedMessage is the APIError message for a rejected form upload.
const UploadFailedMessage = "Error uploading to s3"

// FileField is the form field carrying the distribution bytes.
const FileField = "file"

// Poster sends multipart form uploads to pre-signed object-store endpoints.
// Requests carry no API credentials; the form fields are the authorisation.
type Poster struct {
	client    *http.Client
	userAgent string
}

// NewPoster creates a Poster. A nil hc uses a DNS-caching transport with no
// timeout.
func NewPoster(hc *http.Client, userAgent string) *Poster {
	if hc == nil {
		hc = &http.Client{Transport: client.NewTransport()}
	}
	if userAgent == "" {
		userAgent = "binstar-go"
	}
	return &Poster{client: hc, userAgent: userAgent}
}

// PostForm uploads content as the "file" field named filename, preceded by
// fields in sorted key order. String values are sent as-is; other values are
// sent as their JSON encoding. Only a 201 response counts as success; any
// other status is returned as *client.APIError with UploadFailedMessage.
func (p *Poster) PostForm(ctx context.Context, url string, fields map[string]any, filename string, content io.Reader) error {
	prefix, suffix, contentType, err := formEnvelope(fields, filename)
	if err != nil {
		return err
	}

	body := io.MultiReader(bytes.NewReader(prefix), content, bytes.NewReader(suffix))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", p.userAgent)

	if size, ok := contentSize(content); ok {
		req.ContentLength = int64(len(prefix)) + size + int64(len(suffix))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return &client.TransportError{Op: http.MethodPost, URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode != http.StatusCreated {
		return &client.APIError{
			Message:    UploadFailedMessage,
			StatusCode: resp.StatusCode,
			URL:        url,
		}
	}
	return nil
}

// formEnvelope renders the multipart bytes that surround the file content.
func formEnvelope(fields map[string]any, filename string) (prefix, suffix []byte, contentType string, err error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		value, err := fieldValue(fields[k])
		if err != nil {
			return nil, nil, "", fmt.Errorf("form field %q: %w", k, err)
		}
		if err := mw.WriteField(k, value); err != nil {
			return nil, nil, "", err
		}
	}
	if _, err := mw.CreateFormFile(FileField, filename); err != nil {
		return nil, nil, "", err
	}
	prefix = append([]byte(nil), buf.Bytes()...)

	buf.Reset()
	if err := mw.Close(); err != nil {
		return nil, nil, "", err
	}
	suffix = append([]byte(nil), buf.Bytes()...)

	return prefix, suffix, mw.FormDataContentType(), nil
}

// fieldValue renders a form field. Strings go out verbatim and nil as an
// empty value. Everything else is sent as its JSON text, so booleans are
// "true" and "false" and numbers keep the digits the stage response held.
// Object stores compare policy conditions as strings; a server that signs a
// policy over another spelling of a non-string value will reject the post.
func fieldValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case nil:
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// contentSize reports the remaining bytes of r when that is knowable
// without reading it.
func contentSize(r io.Reader) (int64, bool) {
	switch t := r.(type) {
	case interface{ Len() int }:
		return int64(t.Len()), true
	case io.Seeker:
		cur, err := t.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, false
		}
		end, err := t.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, false
		}
		if _, err := t.Seek(cur, io.SeekStart); err != nil {
			return 0, false
		}
		return end - cur, true
	}
	return 0, false
}
