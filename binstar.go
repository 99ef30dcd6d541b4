// Package binstar is a client for a binstar package hosting server.
//
// It authenticates users, reads and writes package and release metadata,
// and moves distribution files through the object store the server
// delegates storage to.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/binstar"
//	)
//
//	api := binstar.New(binstar.NewClient(binstar.WithToken(token)))
//
//	pkg, err := api.Package(context.Background(), "alice", "numpy")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(pkg["summary"])
//
// Distributions are uploaded in three steps (stage, object store transfer,
// commit) and downloaded by following the server's redirect:
//
//	dist := binstar.DistributionRef{
//		ReleaseRef: binstar.ReleaseRef{
//			PackageRef: binstar.PackageRef{Login: "alice", Name: "numpy"},
//			Version:    "1.7",
//		},
//		Basename: "linux-64/numpy-1.7-py27_0.tar.bz2",
//	}
//	artifact, err := api.Download(ctx, dist, "")
package binstar

import (
	"fmt"

	"github.com/git-pkgs/binstar/client"
	"github.com/git-pkgs/binstar/internal/core"
	"github.com/git-pkgs/binstar/objectstore"
	"github.com/git-pkgs/purl"
)

// Re-export types from internal/core
type (
	// API exposes the server's endpoints over a client session.
	API = core.API

	// APIOption configures an API.
	APIOption = core.Option

	// Object is a JSON document returned by the server.
	Object = core.Object

	// Attrs are free-form package and distribution attributes.
	Attrs = core.Attrs

	PackageRef      = core.PackageRef
	ReleaseRef      = core.ReleaseRef
	DistributionRef = core.DistributionRef

	PackageOptions = core.PackageOptions
	ReleaseOptions = core.ReleaseOptions
	UploadOptions  = core.UploadOptions

	// Location is where a distribution's bytes can be fetched from.
	Location = core.Location

	// StagedUpload is the server's answer to a stage request.
	StagedUpload = core.StagedUpload

	// Distribution is one file listed in a package document.
	Distribution = core.Distribution

	// Dependency is a requirement declared by a distribution.
	Dependency = core.Dependency
)

// Re-export types from client
type (
	// Client is an HTTP session holding the server URL and token.
	Client = client.Client

	// Endpoints builds the server's resource URLs.
	Endpoints = client.Endpoints
)

// Re-export types from objectstore
type (
	// Artifact is a streamed download.
	Artifact = objectstore.Artifact

	// Getter fetches artifacts from the object store.
	Getter = objectstore.Getter
)

// DefaultURL is the public server used when no base URL is configured.
const DefaultURL = client.DefaultURL

// Re-export errors
var (
	ErrMalformedResponse = client.ErrMalformedResponse
	ErrInvalidRef        = core.ErrInvalidRef
	ErrNoContent         = core.ErrNoContent
)

// Error types
type (
	APIError               = client.APIError
	TransportError         = client.TransportError
	MalformedResponseError = client.MalformedResponseError
)

// New creates an API over c.
// If c is nil, DefaultClient() is used.
func New(c *Client, opts ...APIOption) *API {
	return core.New(c, opts...)
}

// DefaultClient returns an anonymous client for DefaultURL with no
// timeout.
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// Option configures a Client.
type Option = client.Option

// WithBaseURL sets the server URL.
var WithBaseURL = client.WithBaseURL

// WithToken sets the token sent with every request.
var WithToken = client.WithToken

// WithTimeout sets the per-request timeout. Zero means none.
var WithTimeout = client.WithTimeout

// WithHTTPClient replaces the underlying HTTP client.
var WithHTTPClient = client.WithHTTPClient

// WithUserAgent sets the User-Agent header.
var WithUserAgent = client.WithUserAgent

// WithLogger sets the logger used by the client and API.
var WithLogger = client.WithLogger

// WithFetcher replaces the getter used to follow download redirects.
var WithFetcher = core.WithFetcher

// WithPoster replaces the object store form poster used by uploads.
var WithPoster = core.WithPoster

// NewCircuitBreakerFetcher wraps a getter with one circuit breaker per
// object store host.
func NewCircuitBreakerFetcher(g Getter) *objectstore.CircuitBreakerFetcher {
	return objectstore.NewCircuitBreakerFetcher(g)
}

// BuildURLs returns the package, release and download URLs of a
// distribution.
func BuildURLs(urls *Endpoints, login, name, version, basename string) map[string]string {
	return client.BuildURLs(urls, login, name, version, basename)
}

// EncodePayload renders v the way the server expects request bodies:
// base64 of its JSON form.
func EncodePayload(v any) ([]byte, error) {
	return client.EncodePayload(v)
}

// DecodePayload reverses EncodePayload.
func DecodePayload(data []byte, v any) error {
	return client.DecodePayload(data, v)
}

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL string into its components.
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}

// ParseReleasePURL resolves a Package URL such as pkg:conda/alice/numpy@1.7
// to a release reference and its PURL type.
func ParseReleasePURL(purlStr string) (ReleaseRef, string, error) {
	p, err := purl.Parse(purlStr)
	if err != nil {
		return ReleaseRef{}, "", err
	}
	ref, err := core.ReleaseRefFromPURL(p.Namespace, p.Name, p.Version, p.Qualifiers.Map())
	if err != nil {
		return ReleaseRef{}, "", fmt.Errorf("%s: %w", purlStr, err)
	}
	return ref, p.Type, nil
}

// PackageFiles extracts the distributions listed in a package document.
func PackageFiles(pkg Object) ([]Distribution, error) {
	return core.PackageFiles(pkg)
}

// IsSPDXLicense reports whether license is a valid SPDX identifier or
// expression.
func IsSPDXLicense(license string) bool {
	return core.IsSPDXLicense(license)
}
