// Package core provides the domain types and the API operations built on
// top of the client session.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
)

// ErrInvalidRef is returned when an identity is missing a required part.
var ErrInvalidRef = errors.New("invalid reference")

// ErrNoContent is returned by Upload when no content reader is given.
var ErrNoContent = errors.New("no content to upload")

// Object is a JSON document returned by the server, passed through unchanged.
type Object = map[string]any

// Attrs are free-form attributes attached to packages and distributions,
// e.g. {"build": 1, "pyversion": "2.7", "os": "osx"}.
type Attrs = map[string]any

// PackageRef identifies a package by owner login and package name.
type PackageRef struct {
	Login string
	Name  string
}

func (p PackageRef) String() string {
	return p.Login + "/" + p.Name
}

// Validate reports whether both parts are set.
func (p PackageRef) Validate() error {
	if p.Login == "" {
		return fmt.Errorf("%w: missing login", ErrInvalidRef)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: missing package name", ErrInvalidRef)
	}
	return nil
}

// ReleaseRef identifies one version of a package.
type ReleaseRef struct {
	PackageRef
	Version string
}

func (r ReleaseRef) String() string {
	return r.PackageRef.String() + "/" + r.Version
}

func (r ReleaseRef) Validate() error {
	if err := r.PackageRef.Validate(); err != nil {
		return err
	}
	if r.Version == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidRef)
	}
	return nil
}

// DistributionRef identifies one file of a release. Basename may carry a
// platform subdirectory, e.g. "linux-64/numpy-1.7-py27_0.tar.bz2".
type DistributionRef struct {
	ReleaseRef
	Basename string
}

func (d DistributionRef) String() string {
	return d.ReleaseRef.String() + "/" + d.Basename
}

func (d DistributionRef) Validate() error {
	if err := d.ReleaseRef.Validate(); err != nil {
		return err
	}
	if d.Basename == "" {
		return fmt.Errorf("%w: missing basename", ErrInvalidRef)
	}
	return nil
}

// Filename is the last path element of Basename.
func (d DistributionRef) Filename() string {
	return path.Base(d.Basename)
}

// StagedUpload is the server's answer to a stage request. It is valid only
// for the upload that requested it and is never reused.
type StagedUpload struct {
	URL      string          // pre-signed object store endpoint
	FormData map[string]any  // form fields, sent verbatim
	DistID   json.RawMessage // distribution record id, echoed on commit byte for byte
}

// PackageOptions describes a package to create. Empty strings are sent as
// JSON null.
type PackageOptions struct {
	PackageType  string // e.g. "conda", "pypi"
	Summary      string
	License      string
	LicenseURL   string
	Private      bool  // packages are public unless set
	HostPublicly *bool // nil leaves the server default
	Attrs        Attrs
}

// ReleaseOptions describes a release to create.
type ReleaseOptions struct {
	Requirements map[string]any
	Announce     string
	Description  string
}

// UploadOptions describes a distribution being uploaded.
type UploadOptions struct {
	Description string
	Attrs       Attrs
}

// Location is where a distribution's bytes can be fetched from.
type Location struct {
	URL         string
	Filename    string
	NotModified bool // the supplied content hash matches the server's copy
}
