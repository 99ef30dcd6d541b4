package core

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/git-pkgs/binstar/client"
	"github.com/go-chi/chi/v5"
)

// fakeServer emulates the package API and an object store on one listener.
type fakeServer struct {
	*httptest.Server
	t *testing.T

	mu        sync.Mutex
	calls     []string
	payloads  map[string]map[string]any
	rawBodies map[string]string
	headers   map[string]http.Header
	uploaded  map[string]string
	formData  map[string]string
	s3Status  int
	commitErr string
	stageBody string
	hash      string
	content   string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		t:         t,
		payloads:  make(map[string]map[string]any),
		rawBodies: make(map[string]string),
		headers:   make(map[string]http.Header),
		uploaded:  make(map[string]string),
		formData:  make(map[string]string),
		s3Status:  http.StatusCreated,
		hash:      "d41d8cd98f00b204e9800998ecf8427e",
		content:   "distribution bytes",
	}

	r := chi.NewRouter()
	r.Post("/authentications", fs.authenticate)
	r.Get("/user", fs.record("user", `{"login": "me", "name": "Me"}`))
	r.Get("/user/{login}", fs.user)
	r.Get("/packages", fs.record("packages", `[{"name": "mine"}]`))
	r.Get("/packages/{login}", fs.record("packages/login", `[{"name": "numpy"}, {"name": "scipy"}]`))
	r.Get("/package/{login}/{name}", fs.record("package", `{"name": "numpy", "owner": {"login": "alice"}}`))
	r.Post("/package/{login}/{name}", fs.record("add_package", `{"name": "numpy", "created": true}`))
	r.Get("/package_listing", fs.record("package_listing", `[{"full_name": "alice/numpy"}]`))
	r.Get("/release/{login}/{name}/{version}", fs.record("release", `{"version": "1.7"}`))
	r.Post("/release/{login}/{name}/{version}", fs.record("add_release", `{"version": "1.7", "created": true}`))
	r.Get("/download/{login}/{name}/{version}/*", fs.download)
	r.Post("/stage/{login}/{name}/{version}/*", fs.stage)
	r.Post("/commit/{login}/{name}/{version}/*", fs.commit)
	r.Post("/s3", fs.s3Upload)
	r.Get("/cdn/*", fs.cdn)

	fs.Server = httptest.NewServer(r)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) api(opts ...client.Option) *API {
	opts = append([]client.Option{client.WithBaseURL(fs.URL)}, opts...)
	return New(client.NewClient(opts...))
}

func (fs *fakeServer) called(name string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, c := range fs.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (fs *fakeServer) callOrder() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.calls...)
}

func (fs *fakeServer) payload(name string) map[string]any {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.payloads[name]
}

func (fs *fakeServer) header(name string) http.Header {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.headers[name]
}

// rawBody returns the decoded JSON text of the last request recorded as name.
func (fs *fakeServer) rawBody(name string) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.rawBodies[name]
}

func (fs *fakeServer) capture(name string, r *http.Request) {
	var payload map[string]any
	var raw []byte
	if r.Method == http.MethodPost && r.URL.Path != "/s3" {
		body, _ := io.ReadAll(r.Body)
		decoded, err := base64.StdEncoding.DecodeString(string(body))
		if err == nil {
			raw = decoded
		}
		if err := client.DecodePayload(body, &payload); err != nil {
			fs.t.Errorf("%s: body is not a base64 JSON payload: %v", name, err)
		}
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls = append(fs.calls, name)
	fs.headers[name] = r.Header.Clone()
	if payload != nil {
		fs.payloads[name] = payload
	}
	if raw != nil {
		fs.rawBodies[name] = string(raw)
	}
}

func (fs *fakeServer) record(name, response string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fs.capture(name, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}
}

func (fs *fakeServer) authenticate(w http.ResponseWriter, r *http.Request) {
	fs.capture("authentications", r)
	user, pass, ok := r.BasicAuth()
	if !ok || user != "alice" || pass != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid credentials"}`))
		return
	}
	_, _ = w.Write([]byte(`{"token": "T"}`))
}

func (fs *fakeServer) user(w http.ResponseWriter, r *http.Request) {
	fs.capture("user/login", r)
	switch chi.URLParam(r, "login") {
	case "ghost":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "user ghost does not exist"}`))
		return
	case "bigid":
		_, _ = w.Write([]byte(`{"login": "bigid", "id": 9007199254740993}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"login": chi.URLParam(r, "login")})
}

func (fs *fakeServer) download(w http.ResponseWriter, r *http.Request) {
	fs.capture("download", r)
	if r.Header.Get("ETag") == fs.hash {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Location", fs.URL+"/cdn/"+chi.URLParam(r, "*"))
	w.WriteHeader(http.StatusFound)
}

func (fs *fakeServer) cdn(w http.ResponseWriter, r *http.Request) {
	fs.capture("cdn", r)
	_, _ = w.Write([]byte(fs.content))
}

func (fs *fakeServer) stage(w http.ResponseWriter, r *http.Request) {
	fs.capture("stage", r)
	if fs.stageBody != "" {
		_, _ = w.Write([]byte(fs.stageBody))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"s3_url": fs.URL + "/s3",
		"s3form_data": map[string]any{
			"key":                   "alice/numpy/1.7/" + chi.URLParam(r, "*"),
			"AWSAccessKeyId":        "AKIA",
			"policy":                "cG9saWN5",
			"signature":             "c2ln",
			"success_action_status": "201",
		},
		"dist_id": "517e1ba5",
	})
}

func (fs *fakeServer) commit(w http.ResponseWriter, r *http.Request) {
	fs.capture("commit", r)
	w.Header().Set("Content-Type", "application/json")
	if fs.commitErr != "" {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": fs.commitErr})
		return
	}
	_, _ = w.Write([]byte(`{"basename": "numpy-1.7.tar.bz2", "md5": "abc"}`))
}

func (fs *fakeServer) s3Upload(w http.ResponseWriter, r *http.Request) {
	fs.capture("s3", r)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		fs.t.Errorf("s3: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	fs.mu.Lock()
	for k, v := range r.MultipartForm.Value {
		fs.formData[k] = v[0]
	}
	for k, files := range r.MultipartForm.File {
		f, _ := files[0].Open()
		data, _ := io.ReadAll(f)
		_ = f.Close()
		fs.uploaded[k+":"+files[0].Filename] = string(data)
	}
	status := fs.s3Status
	fs.mu.Unlock()

	w.WriteHeader(status)
}
