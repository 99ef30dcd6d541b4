// Package client holds the session used to talk to the package-hosting API:
// base URL, bearer token, HTTP transport, and the helpers every operation
// funnels through (payload encoding, response validation, JSON decoding).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultURL is the production API domain.
const DefaultURL = "https://api.binstar.org"

const defaultUserAgent = "binstar-go"

// Client is an API session. A token, once set, is attached to every request
// as "Authorization: token <t>". It is safe for concurrent use; SetToken is
// synchronised against in-flight requests, which read the token once when
// they are sent.
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	userAgent string
	log       logrus.FieldLogger

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API domain. Trailing slashes are removed.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithToken sets the initial bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the HTTP client timeout. Zero, the default, means no
// timeout; use a context deadline for per-call limits.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client. The client is copied, and the
// copy never follows redirects.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultURL,
		userAgent: defaultUserAgent,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var hc http.Client
	if c.http != nil {
		hc = *c.http
	} else {
		hc.Transport = NewTransport()
	}
	hc.CheckRedirect = noRedirect
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	c.http = &hc
	return c
}

// DefaultClient returns a client for the production API with no token and
// no timeout.
func DefaultClient() *Client {
	return NewClient()
}

// BaseURL returns the API domain.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URLs returns the endpoint builder for this client's domain.
func (c *Client) URLs() *Endpoints {
	return NewEndpoints(c.baseURL)
}

// Logger returns the client's logger.
func (c *Client) Logger() logrus.FieldLogger {
	return c.log
}

// Token returns the current bearer token, or "" for an anonymous session.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token used by subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// NewRequest builds a request against url. A non-nil payload is sent as a
// base64-encoded JSON body.
func (c *Client) NewRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := EncodePayload(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return req, nil
}

// Do sends req with the session headers. An Authorization header already
// present on req (e.g. basic auth) is left untouched. Network failures are
// returned as *TransportError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	if req.Header.Get("Authorization") == "" {
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "token "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: req.Method, URL: req.URL.String(), Err: err}
	}

	c.log.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
		"status": resp.StatusCode,
	}).Debug("api request")
	return resp, nil
}

// GetJSON performs a GET and decodes a 200 response into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.DoJSON(req, v)
}

// PostJSON posts payload as a base64-encoded JSON body and decodes a 200
// response into v.
func (c *Client) PostJSON(ctx context.Context, url string, payload, v any) error {
	req, err := c.NewRequest(ctx, http.MethodPost, url, payload)
	if err != nil {
		return err
	}
	return c.DoJSON(req, v)
}

// DoJSON sends req, validates that the status is 200 and decodes the body
// into v. A nil v discards the body.
func (c *Client) DoJSON(req *http.Request, v any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := CheckResponse(resp); err != nil {
		return err
	}
	return DecodeJSON(resp, v)
}

// DecodeJSON decodes resp.Body into v, reporting failures as
// *MalformedResponseError. Numbers landing in interface values are kept as
// json.Number so server ids survive unchanged. It does not close the body.
func DecodeJSON(resp *http.Response, v any) error {
	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	url := ""
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.String()
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		return &MalformedResponseError{URL: url, Err: err}
	}
	return nil
}
