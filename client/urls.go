package client

import (
	"net/url"
	"strings"
)

// Endpoints constructs API URLs relative to a base domain. Segments are
// escaped piecewise: a "/" inside a segment is kept, since basenames such as
// "osx-64/foo-1.0-0.tar.bz2" address a platform subdirectory.
type Endpoints struct {
	base string
}

// NewEndpoints returns an endpoint builder for base.
func NewEndpoints(base string) *Endpoints {
	return &Endpoints{base: strings.TrimRight(base, "/")}
}

func (e *Endpoints) join(segments ...string) string {
	var b strings.Builder
	b.WriteString(e.base)
	for _, s := range segments {
		for _, piece := range strings.Split(s, "/") {
			b.WriteByte('/')
			b.WriteString(url.PathEscape(piece))
		}
	}
	return b.String()
}

// Authentications is the token exchange endpoint.
func (e *Endpoints) Authentications() string {
	return e.join("authentications")
}

// User addresses a user profile; an empty login means the caller.
func (e *Endpoints) User(login string) string {
	if login == "" {
		return e.join("user")
	}
	return e.join("user", login)
}

// Packages lists a user's packages; an empty login means the caller.
func (e *Endpoints) Packages(login string) string {
	if login == "" {
		return e.join("packages")
	}
	return e.join("packages", login)
}

func (e *Endpoints) Package(login, name string) string {
	return e.join("package", login, name)
}

// PackageListing always carries modified_after, empty when unfiltered.
func (e *Endpoints) PackageListing(modifiedAfter string) string {
	q := url.Values{}
	q.Set("modified_after", modifiedAfter)
	return e.join("package_listing") + "?" + q.Encode()
}

func (e *Endpoints) Release(login, name, version string) string {
	return e.join("release", login, name, version)
}

func (e *Endpoints) Download(login, name, version, basename string) string {
	return e.join("download", login, name, version, basename)
}

func (e *Endpoints) Stage(login, name, version, basename string) string {
	return e.join("stage", login, name, version, basename)
}

func (e *Endpoints) Commit(login, name, version, basename string) string {
	return e.join("commit", login, name, version, basename)
}

// BuildURLs returns a map of the non-empty API URLs for a package, release
// or distribution. Keys are "package", "release" and "download".
func BuildURLs(e *Endpoints, login, name, version, basename string) map[string]string {
	result := make(map[string]string)
	if login == "" || name == "" {
		return result
	}
	result["package"] = e.Package(login, name)
	if version == "" {
		return result
	}
	result["release"] = e.Release(login, name, version)
	if basename != "" {
		result["download"] = e.Download(login, name, version, basename)
	}
	return result
}
