package core

import (
	"github.com/git-pkgs/binstar/client"
	"github.com/git-pkgs/binstar/objectstore"
	"github.com/sirupsen/logrus"
)

// API exposes the server's endpoints over a client session.
type API struct {
	client  *client.Client
	urls    *client.Endpoints
	fetcher objectstore.Getter
	poster  *objectstore.Poster
	log     logrus.FieldLogger
}

// Option configures an API.
type Option func(*API)

// WithFetcher replaces the getter used to follow download redirects, e.g.
// with an objectstore.CircuitBreakerFetcher.
func WithFetcher(g objectstore.Getter) Option {
	return func(a *API) {
		a.fetcher = g
	}
}

// WithPoster replaces the object store form poster used by Upload.
func WithPoster(p *objectstore.Poster) Option {
	return func(a *API) {
		a.poster = p
	}
}

// New creates an API over c. If c is nil, client.DefaultClient() is used.
func New(c *client.Client, opts ...Option) *API {
	if c == nil {
		c = client.DefaultClient()
	}
	a := &API{
		client: c,
		urls:   c.URLs(),
		log:    c.Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fetcher == nil {
		a.fetcher = objectstore.NewFetcher()
	}
	if a.poster == nil {
		a.poster = objectstore.NewPoster(nil, "")
	}
	return a
}

// Client returns the underlying session.
func (a *API) Client() *client.Client {
	return a.client
}
