package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gaborage/go-bricks-authclient/credentials"
	"github.com/gaborage/go-bricks-authclient/refresh"
)

const formContentType = "application/x-www-form-urlencoded"

// TokenEndpoint fetches access tokens with the OAuth2 client_credentials
// grant. Its Refresh method is a refresh.RefreshFunc.
type TokenEndpoint struct {
	// Client sends the token request. It should not carry a refresh
	// function of its own.
	Client       Client
	URL          string
	ClientID     string
	ClientSecret string
	Scope        string
}

// TokenResponse is the token endpoint's JSON body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Lifetime reports the advertised token lifetime, zero when absent.
func (t TokenResponse) Lifetime() time.Duration {
	return time.Duration(t.ExpiresIn) * time.Second
}

var _ refresh.RefreshFunc = (*TokenEndpoint)(nil).Refresh

// Refresh requests a new token and returns the Authorization header to merge.
func (e *TokenEndpoint) Refresh(ctx context.Context) (map[string]string, error) {
	if e.Client == nil || e.URL == "" {
		return nil, NewValidationError("token endpoint requires a client and URL", "url")
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	if e.Scope != "" {
		form.Set("scope", e.Scope)
	}

	req := &Request{
		URL:     e.URL,
		Body:    []byte(form.Encode()),
		Headers: map[string]string{headerContentType: formContentType, "Accept": contentTypeJSON},
	}
	if e.ClientID != "" {
		req.Auth = &BasicAuth{Username: e.ClientID, Password: e.ClientSecret}
	}

	resp, err := e.Client.Post(ctx, req)
	if resp != nil && errors.Is(err, refresh.ErrNoRefreshFunc) {
		// a rejected token request has nothing to refresh with
		err = statusError(resp)
	}
	tok, err := DecodeJSON[TokenResponse](resp, err)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, NewDecodeError(nethttp.StatusOK, "http.TokenResponse", errors.New("access_token missing"))
	}

	tokenType := tok.TokenType
	if tokenType == "" || strings.EqualFold(tokenType, "bearer") {
		tokenType = "Bearer"
	}
	return map[string]string{credentials.HeaderAuthorization: tokenType + " " + tok.AccessToken}, nil
}
