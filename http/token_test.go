package http

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-bricks-authclient/logger"
)

func tokenHandler(t *testing.T, issued *atomic.Int64, body func(n int64) any) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "svc" || pass != "s3cret" {
			w.WriteHeader(nethttp.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(nethttp.StatusBadRequest)
			return
		}
		n := issued.Add(1)
		w.Header().Set(testContentTypeHdr, testJSONType)
		assert.NoError(t, json.NewEncoder(w).Encode(body(n)))
	}
}

func TestTokenEndpointRefresh(t *testing.T) {
	var issued atomic.Int64
	var scope atomic.Value
	srv := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_ = r.ParseForm()
		scope.Store(r.PostForm.Get("scope"))
		tokenHandler(t, &issued, func(int64) any {
			return map[string]any{"access_token": "abc", "token_type": "bearer", "expires_in": 300}
		})(w, r)
	}))
	defer srv.Close()

	ep := &TokenEndpoint{Client: NewClient(logger.Nop()), URL: srv.URL + "/token", ClientID: "svc", ClientSecret: "s3cret", Scope: "orders:read"}
	headers, err := ep.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{testAuthHeader: "Bearer abc"}, headers)
	assert.Equal(t, "orders:read", scope.Load())
	assert.Equal(t, int64(1), issued.Load())
}

func TestTokenEndpointErrors(t *testing.T) {
	t.Run("misconfigured", func(t *testing.T) {
		_, err := (&TokenEndpoint{}).Refresh(context.Background())
		assert.True(t, IsErrorType(err, ValidationError))
	})

	t.Run("rejected credentials", func(t *testing.T) {
		var issued atomic.Int64
		srv := newIPv4TestServer(t, tokenHandler(t, &issued, func(int64) any { return nil }))
		defer srv.Close()

		ep := &TokenEndpoint{Client: NewClient(logger.Nop()), URL: srv.URL, ClientID: "svc", ClientSecret: "wrong"}
		_, err := ep.Refresh(context.Background())
		assert.True(t, IsErrorType(err, HTTPError))
	})

	t.Run("missing access token", func(t *testing.T) {
		var issued atomic.Int64
		srv := newIPv4TestServer(t, tokenHandler(t, &issued, func(int64) any {
			return map[string]any{"token_type": "Bearer"}
		}))
		defer srv.Close()

		ep := &TokenEndpoint{Client: NewClient(logger.Nop()), URL: srv.URL, ClientID: "svc", ClientSecret: "s3cret"}
		_, err := ep.Refresh(context.Background())
		assert.True(t, IsErrorType(err, DecodeError))
	})
}

func TestTokenEndpointAsRefreshFunc(t *testing.T) {
	var issued atomic.Int64
	tokens := newIPv4TestServer(t, tokenHandler(t, &issued, func(n int64) any {
		return TokenResponse{AccessToken: "T" + string(rune('0'+n)), ExpiresIn: 60}
	}))
	defer tokens.Close()

	api := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Header.Get(testAuthHeader) != "Bearer T1" {
			w.WriteHeader(nethttp.StatusUnauthorized)
			return
		}
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer api.Close()

	ep := &TokenEndpoint{Client: NewClient(logger.Nop()), URL: tokens.URL, ClientID: "svc", ClientSecret: "s3cret"}
	c := NewBuilder(logger.Nop()).
		WithBaseURL(api.URL).
		WithBearerToken("stale").
		WithRefreshFunc(ep.Refresh).
		Build()

	resp, err := c.Get(context.Background(), &Request{Path: "/orders"})
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, resp.Stats.Attempts)
	assert.Equal(t, int64(1), issued.Load())

	token, ok := c.Credentials().BearerToken()
	require.True(t, ok)
	assert.Equal(t, "T1", token)
}
