package http

import (
	"context"
	nethttp "net/http"
	"net/url"
	"time"

	"github.com/gaborage/go-bricks-authclient/credentials"
	"github.com/gaborage/go-bricks-authclient/refresh"
)

// Client defines the REST client interface for making HTTP requests
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	PostMultipart(ctx context.Context, req *Request, form *MultipartForm) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)

	// Credentials returns the header store shared by every request of this client
	Credentials() *credentials.Store
	// Coordinator returns the refresh coordinator of this client
	Coordinator() *refresh.Coordinator
}

// Request represents an HTTP request with all necessary data.
// Path is resolved against the client's base URL; URL, when set, is used as is.
type Request struct {
	Path    string
	URL     string
	Query   url.Values
	Headers map[string]string
	Body    []byte
	Auth    *BasicAuth
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
	// Attempts is 2 when the request was resent after a token refresh
	Attempts int
	// RefreshCycle is the refresh cycle the retry waited on, zero if none
	RefreshCycle uint64
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the REST client configuration
type Config struct {
	// BaseURL is prefixed to Request.Path
	BaseURL              string
	Timeout              time.Duration
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	BasicAuth            *BasicAuth
	DefaultHeaders       map[string]string
	// ExpiryStatus is the response status meaning "access token expired" (default: 401)
	ExpiryStatus int
	// RefreshSkew enables refreshing before sending when the stored bearer JWT expires within it
	RefreshSkew time.Duration
	// RateLimit caps outgoing attempts per second; zero disables the limiter
	RateLimit float64
	// RateBurst is the limiter burst size (default: 1)
	RateBurst int
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for request ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// NewTraceID generates a new request ID when none is present (default: uuid)
	NewTraceID func() string
	// EnableW3CTrace injects the W3C traceparent/tracestate of the active span
	EnableW3CTrace bool
}
