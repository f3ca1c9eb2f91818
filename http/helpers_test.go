package http

import (
	"context"
	"io"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gaborage/go-bricks-authclient/internal/testutil"
)

const (
	testBaseURL        = "https://api.example.test"
	testContentTypeHdr = "Content-Type"
	testJSONType       = "application/json"
	testAuthHeader     = "Authorization"
)

func newIPv4TestServer(t *testing.T, handler nethttp.Handler) *httptest.Server {
	t.Helper()
	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to bind IPv4 listener: %v", err)
		return &httptest.Server{}
	}

	server := &httptest.Server{
		Listener: listener,
		Config:   &nethttp.Server{Handler: handler},
	}
	server.Start()
	return server
}

type roundTripperFunc func(*nethttp.Request) (*nethttp.Response, error)

func (f roundTripperFunc) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	return f(req)
}

func newResponse(req *nethttp.Request, status int, body string) *nethttp.Response {
	return &nethttp.Response{
		StatusCode: status,
		Status:     nethttp.StatusText(status),
		Header:     nethttp.Header{testContentTypeHdr: []string{testJSONType}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

// seenRequest is what fakeAPI recorded for one attempt
type seenRequest struct {
	Method    string
	URL       string
	Header    nethttp.Header
	Body      string
	RequestID string
}

// fakeAPI accepts requests whose Authorization equals valid and rejects the
// rest with rejectStatus. When hold is set, rejected attempts block until
// hold is closed.
type fakeAPI struct {
	mu           sync.Mutex
	valid        string
	rejectStatus int
	requests     []seenRequest
	hold         chan struct{}
	rejected     atomic.Int64
}

func newFakeAPI(valid string) *fakeAPI {
	return &fakeAPI{valid: valid, rejectStatus: nethttp.StatusUnauthorized}
}

func (f *fakeAPI) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}

	f.mu.Lock()
	f.requests = append(f.requests, seenRequest{
		Method:    req.Method,
		URL:       req.URL.String(),
		Header:    req.Header.Clone(),
		Body:      body,
		RequestID: req.Header.Get(HeaderXRequestID),
	})
	f.mu.Unlock()

	if req.Header.Get(testAuthHeader) != f.valid {
		f.rejected.Add(1)
		if f.hold != nil {
			<-f.hold
		}
		return newResponse(req, f.rejectStatus, `{"error":"token expired"}`), nil
	}
	return newResponse(req, nethttp.StatusOK, `{"ok":true}`), nil
}

func (f *fakeAPI) seen() []seenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]seenRequest(nil), f.requests...)
}

func (f *fakeAPI) byRequestID(id string) []seenRequest {
	var out []seenRequest
	for _, r := range f.seen() {
		if r.RequestID == id {
			out = append(out, r)
		}
	}
	return out
}

// countingRefresh returns headers after an optional gate and counts calls
type countingRefresh struct {
	calls   atomic.Int64
	headers map[string]string
	err     error
	gate    chan struct{}
}

func (r *countingRefresh) fn(ctx context.Context) (map[string]string, error) {
	r.calls.Add(1)
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.headers, nil
}

func newTestClient(api nethttp.RoundTripper, refreshFn func(context.Context) (map[string]string, error)) (*client, *testutil.RecordingLogger) {
	log := testutil.NewRecordingLogger()
	c := NewBuilder(log).
		WithBaseURL(testBaseURL).
		WithTransport(api).
		WithBearerToken("OLD").
		WithRefreshFunc(refreshFn).
		Build()
	return c.(*client), log
}
