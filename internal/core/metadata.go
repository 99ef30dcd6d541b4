package core

import (
	"context"

	"github.com/sirupsen/logrus"
)

// User returns a user's profile. An empty login returns the authenticated
// caller's profile.
func (a *API) User(ctx context.Context, login string) (Object, error) {
	var obj Object
	if err := a.client.GetJSON(ctx, a.urls.User(login), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// UserPackages lists a user's packages. An empty login lists the caller's.
func (a *API) UserPackages(ctx context.Context, login string) ([]Object, error) {
	var objs []Object
	if err := a.client.GetJSON(ctx, a.urls.Packages(login), &objs); err != nil {
		return nil, err
	}
	return objs, nil
}

// Package returns information about a package.
func (a *API) Package(ctx context.Context, login, name string) (Object, error) {
	ref := PackageRef{Login: login, Name: name}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	var obj Object
	if err := a.client.GetJSON(ctx, a.urls.Package(login, name), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// AllPackages lists every package, optionally only those modified after
// the given server timestamp. An empty modifiedAfter lists everything.
func (a *API) AllPackages(ctx context.Context, modifiedAfter string) ([]Object, error) {
	var objs []Object
	if err := a.client.GetJSON(ctx, a.urls.PackageListing(modifiedAfter), &objs); err != nil {
		return nil, err
	}
	return objs, nil
}

type licenseInfo struct {
	Name *string `json:"name"`
	URL  *string `json:"url"`
}

type addPackageRequest struct {
	PackageType  string `json:"package_type"`
	Public       bool   `json:"public"`
	PublicAttrs  Attrs  `json:"public_attrs"`
	HostPublicly *bool  `json:"host_publicly"`
}

// packagePayload builds the add-package body. The caller's attrs are copied,
// then "summary" and "license" are set on the copy.
func packagePayload(opts PackageOptions) addPackageRequest {
	attrs := make(Attrs, len(opts.Attrs)+2)
	for k, v := range opts.Attrs {
		attrs[k] = v
	}
	attrs["summary"] = nullable(opts.Summary)
	attrs["license"] = licenseInfo{
		Name: nullable(opts.License),
		URL:  nullable(opts.LicenseURL),
	}

	return addPackageRequest{
		PackageType:  opts.PackageType,
		Public:       !opts.Private,
		PublicAttrs:  attrs,
		HostPublicly: opts.HostPublicly,
	}
}

// AddPackage creates a package in a user's account and returns it. A
// license name that is not an SPDX identifier is sent unchanged but logged.
func (a *API) AddPackage(ctx context.Context, login, name string, opts PackageOptions) (Object, error) {
	ref := PackageRef{Login: login, Name: name}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	if opts.License != "" && !IsSPDXLicense(opts.License) {
		a.log.WithFields(logrus.Fields{
			"package": ref.String(),
			"license": opts.License,
		}).Warn("license is not a recognised SPDX expression")
	}

	var obj Object
	if err := a.client.PostJSON(ctx, a.urls.Package(login, name), packagePayload(opts), &obj); err != nil {
		return nil, err
	}

	a.log.WithField("purl", ref.PURL(opts.PackageType)).Debug("package created")
	return obj, nil
}

// Release returns information about one release of a package.
func (a *API) Release(ctx context.Context, login, name, version string) (Object, error) {
	ref := ReleaseRef{PackageRef: PackageRef{Login: login, Name: name}, Version: version}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	var obj Object
	if err := a.client.GetJSON(ctx, a.urls.Release(login, name, version), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

type addReleaseRequest struct {
	Requirements map[string]any `json:"requirements"`
	Announce     string         `json:"announce"`
	Description  string         `json:"description"`
}

// AddRelease creates a new release of a package and returns it.
func (a *API) AddRelease(ctx context.Context, login, name, version string, opts ReleaseOptions) (Object, error) {
	ref := ReleaseRef{PackageRef: PackageRef{Login: login, Name: name}, Version: version}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	payload := addReleaseRequest{
		Requirements: opts.Requirements,
		Announce:     opts.Announce,
		Description:  opts.Description,
	}

	var obj Object
	if err := a.client.PostJSON(ctx, a.urls.Release(login, name, version), payload, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
