package core

import (
	packageurl "github.com/package-url/packageurl-go"
)

// purlTypes maps server package types to PURL types where they differ.
var purlTypes = map[string]string{
	"r":   "cran",
	"":    "generic",
	"env": "generic",
}

// PURLType returns the PURL type for a server package type.
func PURLType(packageType string) string {
	if t, ok := purlTypes[packageType]; ok {
		return t
	}
	return packageType
}

// PURL renders the package as a Package URL, with the owner login as the
// namespace: pkg:conda/alice/numpy.
func (p PackageRef) PURL(packageType string) string {
	return packageurl.NewPackageURL(PURLType(packageType), p.Login, p.Name, "", nil, "").ToString()
}

// PURL renders the release as a Package URL: pkg:conda/alice/numpy@1.7.
func (r ReleaseRef) PURL(packageType string) string {
	return packageurl.NewPackageURL(PURLType(packageType), r.Login, r.Name, r.Version, nil, "").ToString()
}

// ReleaseRefFromPURL builds a release reference from the parts of a parsed
// Package URL. The namespace is the owner login; a "channel" qualifier is
// accepted in its place. Version may be empty.
func ReleaseRefFromPURL(namespace, name, version string, qualifiers map[string]string) (ReleaseRef, error) {
	login := namespace
	if login == "" {
		login = qualifiers["channel"]
	}
	ref := ReleaseRef{
		PackageRef: PackageRef{Login: login, Name: name},
		Version:    version,
	}
	if err := ref.PackageRef.Validate(); err != nil {
		return ReleaseRef{}, err
	}
	return ref, nil
}
