package http

import (
	"bytes"
	"context"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/gaborage/go-bricks-authclient/credentials"
)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// snapshot is the frozen form of one logical request. Both the first attempt
// and the retry after a refresh are built from it, so later changes to the
// caller's *Request cannot leak into a retry.
type snapshot struct {
	method    string
	url       string
	requestID string
	headers   nethttp.Header
	body      []byte
	basicAuth *BasicAuth
}

// newSnapshot resolves the URL and the header set of the first attempt.
// Header precedence, lowest first: client defaults, credential store,
// per-call headers.
func (c *client) newSnapshot(ctx context.Context, method string, req *Request, requestID string) (*snapshot, error) {
	target, err := c.resolveURL(req)
	if err != nil {
		return nil, err
	}

	headers := make(nethttp.Header)
	for key, value := range c.config.DefaultHeaders {
		headers.Set(key, value)
	}
	c.credentials.ApplyTo(headers)
	for key, value := range req.Headers {
		headers.Set(key, value)
	}
	if headers.Get(headerContentType) == "" && req.Body != nil {
		headers.Set(headerContentType, contentTypeJSON)
	}
	headers.Set(c.config.TraceIDHeader, requestID)
	if c.config.EnableW3CTrace {
		injectTraceContext(ctx, headers)
	}

	auth := req.Auth
	if auth == nil {
		auth = c.config.BasicAuth
	}

	return &snapshot{
		method:    method,
		url:       target,
		requestID: requestID,
		headers:   headers,
		body:      bytes.Clone(req.Body),
		basicAuth: auth,
	}, nil
}

func (c *client) resolveURL(req *Request) (string, error) {
	raw := req.URL
	if raw == "" {
		raw = joinURL(c.config.BaseURL, req.Path)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", NewValidationError("invalid URL: "+err.Error(), "url")
	}
	if !u.IsAbs() {
		return "", NewValidationError("URL must be absolute or resolvable against the base URL", "url")
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// withCredentials returns the snapshot headers with every stored credential
// written over them. Names are canonical on both sides, so "authorization"
// and "Authorization" collide as expected and the store wins. Headers the
// refresh cleared with an empty value are removed from the retry as well.
func (s *snapshot) withCredentials(store *credentials.Store, refreshed map[string]string) nethttp.Header {
	merged := s.headers.Clone()
	for name, value := range refreshed {
		if value == "" {
			merged.Del(name)
		}
	}
	store.ApplyTo(merged)
	return merged
}

// build creates a fresh *http.Request for one attempt.
func (s *snapshot) build(ctx context.Context, headers nethttp.Header) (*nethttp.Request, error) {
	var body io.Reader
	if s.body != nil {
		body = bytes.NewReader(s.body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, s.method, s.url, body)
	if err != nil {
		return nil, NewNetworkError("failed to create HTTP request", err)
	}
	httpReq.Header = headers.Clone()

	// bearer credentials take precedence over basic auth
	if s.basicAuth != nil && httpReq.Header.Get(credentials.HeaderAuthorization) == "" {
		httpReq.SetBasicAuth(s.basicAuth.Username, s.basicAuth.Password)
	}
	return httpReq, nil
}
