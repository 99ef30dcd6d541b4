package core

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/git-pkgs/binstar/client"
)

// Distribution is one file of a package as listed in the package document.
type Distribution struct {
	Version    string
	Basename   string
	MD5        string
	SHA256     string
	Size       int64
	Downloads  int64
	UploadedAt time.Time
	Attrs      Attrs
	Depends    []Dependency
}

// Dependency is a runtime requirement declared in a distribution's attrs.
type Dependency struct {
	Name         string
	Requirements string
}

// Integrity returns the strongest checksum as "sha256-<hex>" or "md5-<hex>".
func (d Distribution) Integrity() string {
	if d.SHA256 != "" {
		return "sha256-" + d.SHA256
	}
	if d.MD5 != "" {
		return "md5-" + d.MD5
	}
	return ""
}

type fileInfo struct {
	Version    string `json:"version"`
	Basename   string `json:"basename"`
	Attrs      Attrs  `json:"attrs"`
	UploadTime int64  `json:"upload_time"`
	MD5        string `json:"md5"`
	SHA256     string `json:"sha256"`
	Size       int64  `json:"size"`
	Ndownloads int64  `json:"ndownloads"`
}

// PackageFiles extracts the distributions listed under a package
// document's "files" key. A document without files yields none.
func PackageFiles(pkg Object) ([]Distribution, error) {
	raw, ok := pkg["files"]
	if !ok || raw == nil {
		return nil, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, &client.MalformedResponseError{Field: "files", Err: err}
	}
	var files []fileInfo
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, &client.MalformedResponseError{Field: "files", Err: err}
	}

	dists := make([]Distribution, 0, len(files))
	for _, f := range files {
		d := Distribution{
			Version:   f.Version,
			Basename:  f.Basename,
			MD5:       f.MD5,
			SHA256:    f.SHA256,
			Size:      f.Size,
			Downloads: f.Ndownloads,
			Attrs:     f.Attrs,
			Depends:   dependsOf(f.Attrs),
		}
		if f.UploadTime > 0 {
			d.UploadedAt = time.Unix(f.UploadTime, 0)
		}
		dists = append(dists, d)
	}
	return dists, nil
}

// Distributions lists the files of a package, or of one release when
// version is set, in the order the server lists them.
func (a *API) Distributions(ctx context.Context, login, name, version string) ([]Distribution, error) {
	pkg, err := a.Package(ctx, login, name)
	if err != nil {
		return nil, err
	}
	dists, err := PackageFiles(pkg)
	if err != nil {
		return nil, err
	}
	if version == "" {
		return dists, nil
	}

	var out []Distribution
	for _, d := range dists {
		if d.Version == version {
			out = append(out, d)
		}
	}
	return out, nil
}

func dependsOf(attrs Attrs) []Dependency {
	list, ok := attrs["depends"].([]any)
	if !ok {
		return nil
	}

	var deps []Dependency
	seen := make(map[string]bool)
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		dep := ParseDependency(s)
		if dep.Name == "" || seen[dep.Name] {
			continue
		}
		seen[dep.Name] = true
		deps = append(deps, dep)
	}
	return deps
}

// ParseDependency splits "name constraint", e.g. "numpy >=1.7,<2".
func ParseDependency(dep string) Dependency {
	dep = strings.TrimSpace(dep)
	name, req, _ := strings.Cut(dep, " ")
	return Dependency{Name: name, Requirements: strings.TrimSpace(req)}
}
