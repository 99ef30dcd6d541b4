package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/git-pkgs/binstar/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	fs := newFakeServer(t)
	api := fs.api()

	token, err := api.Authenticate(context.Background(), "alice", "secret", "binstar-cli", "https://example.test/cli")
	require.NoError(t, err)
	assert.Equal(t, "T", token)
	assert.Equal(t, "T", api.Client().Token())

	payload := fs.payload("authentications")
	assert.Equal(t, []any{"package"}, payload["scopes"])
	assert.Equal(t, "binstar-cli", payload["note"])
	assert.Equal(t, "https://example.test/cli", payload["note_url"])

	_, err = api.User(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "token T", fs.header("user").Get("Authorization"))
}

func TestAuthenticate_Scopes(t *testing.T) {
	fs := newFakeServer(t)
	api := fs.api()

	_, err := api.Authenticate(context.Background(), "alice", "secret", "app", "", "package", "api")
	require.NoError(t, err)

	payload := fs.payload("authentications")
	assert.Equal(t, []any{"package", "api"}, payload["scopes"])
	assert.Contains(t, payload, "note_url")
	assert.Nil(t, payload["note_url"])
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	fs := newFakeServer(t)
	api := fs.api()

	_, err := api.Authenticate(context.Background(), "alice", "wrong", "app", "")

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid credentials", apiErr.Message)
	assert.Empty(t, api.Client().Token())
}

func TestAuthenticate_MissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user": "alice"}`))
	}))
	defer server.Close()

	api := New(client.NewClient(client.WithBaseURL(server.URL), client.WithToken("old")))
	_, err := api.Authenticate(context.Background(), "alice", "secret", "app", "")

	var malformed *client.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "token", malformed.Field)
	assert.Equal(t, "old", api.Client().Token())
}

func TestMetadataGets(t *testing.T) {
	fs := newFakeServer(t)
	api := fs.api(client.WithToken("tok"))
	ctx := context.Background()

	me, err := api.User(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, Object{"login": "me", "name": "Me"}, me)

	alice, err := api.User(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Object{"login": "alice"}, alice)

	mine, err := api.UserPackages(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []Object{{"name": "mine"}}, mine)

	pkgs, err := api.UserPackages(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, pkgs, 2)

	pkg, err := api.Package(ctx, "alice", "numpy")
	require.NoError(t, err)
	assert.Equal(t, Object{"name": "numpy", "owner": map[string]any{"login": "alice"}}, pkg)

	listing, err := api.AllPackages(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []Object{{"full_name": "alice/numpy"}}, listing)

	rel, err := api.Release(ctx, "alice", "numpy", "1.7")
	require.NoError(t, err)
	assert.Equal(t, Object{"version": "1.7"}, rel)

	assert.Equal(t, "token tok", fs.header("release").Get("Authorization"))
}

func TestUser_LargeIntegerKept(t *testing.T) {
	fs := newFakeServer(t)
	api := fs.api()

	user, err := api.User(context.Background(), "bigid")
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), user["id"])
}

func TestAllPackages_ModifiedAfter(t *testing.T) {
	var got string
	var present bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("modified_after")
		_, present = r.URL.Query()["modified_after"]
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	api := New(client.NewClient(client.WithBaseURL(server.URL)))

	_, err := api.AllPackages(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "", got)

	_, err = api.AllPackages(context.Background(), "2013-05-01T00:00:00")
	require.NoError(t, err)
	assert.Equal(t, "2013-05-01T00:00:00", got)
}

func TestMetadataErrors(t *testing.T) {
	fs := newFakeServer(t)
	api := fs.api()

	_, err := api.User(context.Background(), "ghost")

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "user ghost does not exist", apiErr.Message)
	assert.True(t, apiErr.IsNotFound())
}

func TestMetadataUndefinedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`Internal Server Error`))
	}))
	defer server.Close()

	api := New(client.NewClient(client.WithBaseURL(server.URL)))
	_, err := api.Package(context.Background(), "alice", "numpy")

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, client.UndefinedErrorMessage, apiErr.Message)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestMetadataInvalidRef(t *testing.T) {
	api := New(client.NewClient(client.WithBaseURL("http://127.0.0.1:1")))

	_, err := api.Package(context.Background(), "", "numpy")
	assert.True(t, errors.Is(err, ErrInvalidRef))

	_, err = api.Release(context.Background(), "alice", "numpy", "")
	assert.True(t, errors.Is(err, ErrInvalidRef))
}

func TestAddPackage(t *testing.T) {
	fs := newFakeServer(t)
	api := fs.api(client.WithToken("tok"))

	host := false
	attrs := Attrs{"x": 1}
	obj, err := api.AddPackage(context.Background(), "alice", "numpy", PackageOptions{
		PackageType:  "conda",
		Summary:      "s",
		License:      "L",
		LicenseURL:   "u",
		HostPublicly: &host,
		Attrs:        attrs,
	})
	require.NoError(t, err)
	assert.Equal(t, Object{"name": "numpy", "created": true}, obj)

	payload := fs.payload("add_package")
	assert.Equal(t, map[string]any{
		"package_type":  "conda",
		"public":        true,
		"host_publicly": false,
		"public_attrs": map[string]any{
			"x":       float64(1),
			"summary": "s",
			"license": map[string]any{"name": "L", "url": "u"},
		},
	}, payload)

	assert.Equal(t, Attrs{"x": 1}, attrs, "caller attrs must not be mutated")
}

func TestAddPackage_Defaults(t *testing.T) {
	fs := newFakeServer(t)
	api := fs.api()

	_, err := api.AddPackage(context.Background(), "alice", "numpy", PackageOptions{PackageType: "pypi", Private: true})
	require.NoError(t, err)

	payload := fs.payload("add_package")
	assert.Equal(t, false, payload["public"])
	assert.Nil(t, payload["host_publicly"])
	assert.Equal(t, map[string]any{
		"summary": nil,
		"license": map[string]any{"name": nil, "url": nil},
	}, payload["public_attrs"])
}

func TestAddRelease(t *testing.T) {
	fs := newFakeServer(t)
	api := fs.api(client.WithToken("tok"))

	obj, err := api.AddRelease(context.Background(), "alice", "numpy", "1.7", ReleaseOptions{
		Requirements: map[string]any{"python": "2.7"},
		Announce:     "numpy 1.7 is out",
		Description:  "long description",
	})
	require.NoError(t, err)
	assert.Equal(t, Object{"version": "1.7", "created": true}, obj)

	assert.Equal(t, map[string]any{
		"requirements": map[string]any{"python": "2.7"},
		"announce":     "numpy 1.7 is out",
		"description":  "long description",
	}, fs.payload("add_release"))
}
