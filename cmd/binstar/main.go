package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/git-pkgs/binstar"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// readPassword is swapped out in tests.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

type cli struct {
	Domain  string        `help:"Server URL." env:"BINSTAR_DOMAIN" default:"https://api.binstar.org"`
	Token   string        `help:"API token." env:"BINSTAR_TOKEN"`
	Timeout time.Duration `help:"Per-request timeout, 0 for none." default:"0s"`
	Verbose bool          `short:"v" help:"Log requests."`

	Login      LoginCmd      `cmd help:"Exchange a username and password for a token."`
	Whoami     WhoamiCmd     `cmd help:"Show the authenticated user."`
	User       UserCmd       `cmd help:"Show a user's profile."`
	Packages   PackagesCmd   `cmd help:"List a user's packages."`
	Show       ShowCmd       `cmd help:"Show a package or release (login/name[/version] or a PURL)."`
	Files      FilesCmd      `cmd help:"List the files of a package or release."`
	Listing    ListingCmd    `cmd help:"List every package on the server."`
	AddPackage AddPackageCmd `cmd name:"add-package" help:"Create a package."`
	AddRelease AddReleaseCmd `cmd name:"add-release" help:"Create a release."`
	Upload     UploadCmd     `cmd help:"Upload a distribution file to a release."`
	Download   DownloadCmd   `cmd help:"Download a distribution file."`
}

// app carries what every command needs at run time.
type app struct {
	ctx context.Context
	api *binstar.API
	in  *bufio.Reader
	out io.Writer
}

func newApp(ctx context.Context, g *cli, in io.Reader, out, errOut io.Writer) *app {
	logger := log.New()
	logger.SetOutput(errOut)
	if g.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	c := binstar.NewClient(
		binstar.WithBaseURL(g.Domain),
		binstar.WithToken(g.Token),
		binstar.WithTimeout(g.Timeout),
		binstar.WithUserAgent("binstar-cli"),
		binstar.WithLogger(logger),
	)
	return &app{
		ctx: ctx,
		api: binstar.New(c),
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type LoginCmd struct {
	Username    string   `help:"Account name; prompted for when empty."`
	Application string   `help:"Name recorded with the token." default:"binstar-cli"`
	URL         string   `name:"url" help:"Application URL recorded with the token."`
	Scopes      []string `help:"Token scopes." default:"package"`
}

func (c *LoginCmd) Run(a *app) error {
	username := c.Username
	if username == "" {
		fmt.Fprint(a.out, "Username: ")
		line, err := a.in.ReadString('\n')
		if err != nil && line == "" {
			return err
		}
		username = strings.TrimSpace(line)
	}

	fmt.Fprint(a.out, "Password: ")
	password, err := readPassword()
	fmt.Fprintln(a.out)
	if err != nil {
		return err
	}

	token, err := a.api.Authenticate(a.ctx, username, string(password), c.Application, c.URL, c.Scopes...)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, token)
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(a *app) error {
	user, err := a.api.User(a.ctx, "")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, user["login"])
	return nil
}

type UserCmd struct {
	Login string `arg help:"User login."`
}

func (c *UserCmd) Run(a *app) error {
	user, err := a.api.User(a.ctx, c.Login)
	if err != nil {
		return err
	}
	return a.printJSON(user)
}

type PackagesCmd struct {
	Login string `arg optional help:"User login; defaults to the authenticated user."`
}

func (c *PackagesCmd) Run(a *app) error {
	pkgs, err := a.api.UserPackages(a.ctx, c.Login)
	if err != nil {
		return err
	}
	for _, p := range pkgs {
		fmt.Fprintln(a.out, p["name"])
	}
	return nil
}

type ShowCmd struct {
	Spec     string `arg help:"login/name, login/name/version or pkg:type/login/name@version."`
	URLs     bool   `name:"urls" help:"Print the API URLs of the package or release without fetching it."`
	Basename string `help:"Distribution basename; adds its download URL to --urls output."`
}

func (c *ShowCmd) Run(a *app) error {
	ref, err := parseShowSpec(c.Spec)
	if err != nil {
		return err
	}
	if c.URLs {
		return a.printJSON(binstar.BuildURLs(a.api.Client().URLs(), ref.Login, ref.Name, ref.Version, c.Basename))
	}

	var obj binstar.Object
	if ref.Version == "" {
		obj, err = a.api.Package(a.ctx, ref.Login, ref.Name)
	} else {
		obj, err = a.api.Release(a.ctx, ref.Login, ref.Name, ref.Version)
	}
	if err != nil {
		return err
	}
	return a.printJSON(obj)
}

func parseShowSpec(spec string) (binstar.ReleaseRef, error) {
	if strings.HasPrefix(spec, "pkg:") {
		ref, _, err := binstar.ParseReleasePURL(spec)
		return ref, err
	}

	parts := strings.Split(spec, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return binstar.ReleaseRef{}, fmt.Errorf("%w: %q, want login/name[/version]", binstar.ErrInvalidRef, spec)
	}
	ref := binstar.ReleaseRef{PackageRef: binstar.PackageRef{Login: parts[0], Name: parts[1]}}
	if len(parts) == 3 {
		ref.Version = parts[2]
	}
	return ref, ref.PackageRef.Validate()
}

type FilesCmd struct {
	Spec string `arg help:"login/name or login/name/version."`
}

func (c *FilesCmd) Run(a *app) error {
	ref, err := parseShowSpec(c.Spec)
	if err != nil {
		return err
	}
	dists, err := a.api.Distributions(a.ctx, ref.Login, ref.Name, ref.Version)
	if err != nil {
		return err
	}
	for _, d := range dists {
		fmt.Fprintf(a.out, "%s\t%s\t%d\t%s\n", d.Version, d.Basename, d.Size, d.Integrity())
	}
	return nil
}

type ListingCmd struct {
	ModifiedAfter string `name:"modified-after" help:"Only packages modified after this server timestamp."`
}

func (c *ListingCmd) Run(a *app) error {
	pkgs, err := a.api.AllPackages(a.ctx, c.ModifiedAfter)
	if err != nil {
		return err
	}
	return a.printJSON(pkgs)
}

type AddPackageCmd struct {
	Spec         string   `arg help:"login/name."`
	Type         string   `help:"Package type, e.g. conda or pypi." required`
	Summary      string   `help:"One line summary."`
	License      string   `help:"License name, ideally an SPDX identifier."`
	LicenseURL   string   `name:"license-url" help:"License URL."`
	Private      bool     `help:"Create the package as private."`
	HostPublicly string   `name:"host-publicly" default:"default" help:"Whether files are publicly hosted: default, yes or no."`
	Attr         []string `help:"Extra attribute as key=value (repeatable)."`
}

func (c *AddPackageCmd) Run(a *app) error {
	ref, err := splitRef(c.Spec, 2)
	if err != nil {
		return err
	}
	attrs, err := parseAttrs(c.Attr)
	if err != nil {
		return err
	}

	opts := binstar.PackageOptions{
		PackageType: c.Type,
		Summary:     c.Summary,
		License:     c.License,
		LicenseURL:  c.LicenseURL,
		Private:     c.Private,
		Attrs:       attrs,
	}
	switch c.HostPublicly {
	case "default":
	case "yes", "no":
		host := c.HostPublicly == "yes"
		opts.HostPublicly = &host
	default:
		return fmt.Errorf("--host-publicly must be default, yes or no, got %q", c.HostPublicly)
	}

	obj, err := a.api.AddPackage(a.ctx, ref[0], ref[1], opts)
	if err != nil {
		return err
	}
	return a.printJSON(obj)
}

type AddReleaseCmd struct {
	Spec        string   `arg help:"login/name/version."`
	Announce    string   `help:"Short announcement."`
	Description string   `help:"Release description."`
	Requirement []string `help:"Requirement as key=value (repeatable)."`
}

func (c *AddReleaseCmd) Run(a *app) error {
	ref, err := splitRef(c.Spec, 3)
	if err != nil {
		return err
	}
	reqs, err := parseAttrs(c.Requirement)
	if err != nil {
		return err
	}

	obj, err := a.api.AddRelease(a.ctx, ref[0], ref[1], ref[2], binstar.ReleaseOptions{
		Requirements: reqs,
		Announce:     c.Announce,
		Description:  c.Description,
	})
	if err != nil {
		return err
	}
	return a.printJSON(obj)
}

type UploadCmd struct {
	Spec        string   `arg help:"login/name/version."`
	File        string   `arg type:"path" help:"File to upload."`
	Basename    string   `help:"Name on the server, e.g. linux-64/pkg.tar.bz2; defaults to the file name."`
	Description string   `help:"Distribution description."`
	Attr        []string `help:"Distribution attribute as key=value (repeatable)."`
}

func (c *UploadCmd) Run(a *app) error {
	ref, err := splitRef(c.Spec, 3)
	if err != nil {
		return err
	}
	attrs, err := parseAttrs(c.Attr)
	if err != nil {
		return err
	}

	basename := c.Basename
	if basename == "" {
		basename = filepath.Base(c.File)
	}

	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	dist := distribution(ref, basename)
	obj, err := a.api.Upload(a.ctx, dist, f, binstar.UploadOptions{
		Description: c.Description,
		Attrs:       attrs,
	})
	if err != nil {
		return err
	}
	return a.printJSON(obj)
}

type DownloadCmd struct {
	Spec   string `arg help:"login/name/version/basename."`
	Output string `short:"o" type:"path" help:"Destination file; defaults to the basename's file name."`
	ETag   string `name:"etag" help:"Content hash of a local copy; nothing is fetched when it matches."`
}

func (c *DownloadCmd) Run(a *app) error {
	ref, err := splitRef(c.Spec, 4)
	if err != nil {
		return err
	}
	dist := distribution(ref[:3], ref[3])

	artifact, err := a.api.Download(a.ctx, dist, c.ETag)
	if err != nil {
		return err
	}
	if artifact == nil {
		fmt.Fprintln(a.out, "up to date")
		return nil
	}
	defer func() { _ = artifact.Body.Close() }()

	output := c.Output
	if output == "" {
		output = dist.Filename()
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, artifact.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%d bytes)\n", output, n)
	return nil
}

// splitRef splits a slash separated reference into n parts. The last part
// keeps any remaining slashes.
func splitRef(spec string, n int) ([]string, error) {
	parts := strings.SplitN(spec, "/", n)
	if len(parts) != n {
		return nil, fmt.Errorf("%w: %q has %d parts, want %d", binstar.ErrInvalidRef, spec, len(parts), n)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q has an empty part", binstar.ErrInvalidRef, spec)
		}
	}
	return parts, nil
}

func distribution(ref []string, basename string) binstar.DistributionRef {
	return binstar.DistributionRef{
		ReleaseRef: binstar.ReleaseRef{
			PackageRef: binstar.PackageRef{Login: ref[0], Name: ref[1]},
			Version:    ref[2],
		},
		Basename: basename,
	}
}

func parseAttrs(kvs []string) (binstar.Attrs, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	attrs := make(binstar.Attrs, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("attribute %q is not key=value", kv)
		}
		attrs[k] = v
	}
	return attrs, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var c cli
	parser, err := kong.New(&c,
		kong.Name("binstar"),
		kong.Description("Command line client for a binstar package server."),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "binstar: %v\n", err)
		return 1
	}

	a := newApp(ctx, &c, stdin, stdout, stderr)
	if err := kctx.Run(a); err != nil {
		fmt.Fprintf(stderr, "binstar: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
