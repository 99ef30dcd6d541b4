package core

import (
	"context"
	"net/http"

	"github.com/git-pkgs/binstar/client"
)

// DefaultScopes are requested when Authenticate is given none.
var DefaultScopes = []string{"package"}

type authenticationRequest struct {
	Scopes  []string `json:"scopes"`
	Note    string   `json:"note"`
	NoteURL *string  `json:"note_url"`
}

// Authenticate exchanges a username and password for a token using HTTP
// basic auth. The token is stored in the session, so every later request
// made through the same client carries it, and is also returned.
// application names the caller; applicationURL may be empty.
func (a *API) Authenticate(ctx context.Context, username, password, application, applicationURL string, scopes ...string) (string, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	payload := authenticationRequest{
		Scopes: scopes,
		Note:   application,
	}
	if applicationURL != "" {
		payload.NoteURL = &applicationURL
	}

	url := a.urls.Authentications()
	req, err := a.client.NewRequest(ctx, http.MethodPost, url, payload)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(username, password)

	var resp struct {
		Token *string `json:"token"`
	}
	if err := a.client.DoJSON(req, &resp); err != nil {
		return "", err
	}
	if resp.Token == nil || *resp.Token == "" {
		return "", &client.MalformedResponseError{URL: url, Field: "token"}
	}

	a.client.SetToken(*resp.Token)
	a.log.WithField("user", username).Debug("authenticated")
	return *resp.Token, nil
}
