package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gaborage/go-bricks-authclient/credentials"
	"github.com/gaborage/go-bricks-authclient/logger"
	"github.com/gaborage/go-bricks-authclient/refresh"
)

const (
	// DefaultTimeout is the default request timeout duration
	DefaultTimeout = 30 * time.Second

	// DefaultExpiryStatus is the response status that triggers a token refresh
	DefaultExpiryStatus = nethttp.StatusUnauthorized

	// DefaultMaxPayloadLogBytes caps logged bodies when payload logging is on
	DefaultMaxPayloadLogBytes = 4096

	tracerName = "github.com/gaborage/go-bricks-authclient/http"
)

// client implements the Client interface
type client struct {
	httpClient           *nethttp.Client
	logger               logger.Logger
	config               *Config
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	credentials          *credentials.Store
	coordinator          *refresh.Coordinator
	limiter              *rate.Limiter
	tracer               trace.Tracer
	now                  func() time.Time
	callCount            int64
}

// NewClient creates a new REST client with default configuration and no refresh function
func NewClient(log logger.Logger) Client {
	return NewBuilder(log).Build()
}

// Builder provides a fluent interface for configuring the REST client
type Builder struct {
	config         *Config
	logger         logger.Logger
	httpClient     *nethttp.Client
	transport      nethttp.RoundTripper
	store          *credentials.Store
	refreshFn      refresh.RefreshFunc
	observers      []refresh.Observer
	tracerProvider trace.TracerProvider
	now            func() time.Time
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			Timeout:              DefaultTimeout,
			ExpiryStatus:         DefaultExpiryStatus,
			RequestInterceptors:  []RequestInterceptor{},
			ResponseInterceptors: []ResponseInterceptor{},
			DefaultHeaders:       make(map[string]string),
			MaxPayloadLogBytes:   DefaultMaxPayloadLogBytes,
			TraceIDHeader:        HeaderXRequestID,
			RateBurst:            1,
		},
		logger: log,
	}
}

// WithBaseURL sets the URL that request paths are resolved against
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the request timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithExpiryStatus sets the status code that means "access token expired"
func (b *Builder) WithExpiryStatus(status int) *Builder {
	if status > 0 {
		b.config.ExpiryStatus = status
	}
	return b
}

// WithRefreshFunc sets the function producing new credential headers
func (b *Builder) WithRefreshFunc(fn refresh.RefreshFunc) *Builder {
	b.refreshFn = fn
	return b
}

// WithRefreshObserver adds an observer for refresh lifecycle events
func (b *Builder) WithRefreshObserver(o refresh.Observer) *Builder {
	b.observers = append(b.observers, o)
	return b
}

// WithRefreshSkew refreshes ahead of sending when the bearer JWT expires within skew
func (b *Builder) WithRefreshSkew(skew time.Duration) *Builder {
	b.config.RefreshSkew = skew
	return b
}

// WithCredentials uses an existing credential store
func (b *Builder) WithCredentials(store *credentials.Store) *Builder {
	b.store = store
	return b
}

// WithBearerToken seeds the credential store with an access token
func (b *Builder) WithBearerToken(token string) *Builder {
	if b.store == nil {
		b.store = credentials.NewStore(nil)
	}
	b.store.SetBearer(token)
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{
		Username: username,
		Password: password,
	}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithHTTPClient uses a preconfigured *http.Client; its Timeout wins when set
func (b *Builder) WithHTTPClient(hc *nethttp.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithTransport sets the round tripper used by the default *http.Client
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// WithTraceIDHeader sets the request ID header name; empty keeps the default
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	if header != "" {
		b.config.TraceIDHeader = header
	}
	return b
}

// WithTraceIDGenerator sets the request ID generator
func (b *Builder) WithTraceIDGenerator(gen func() string) *Builder {
	b.config.NewTraceID = gen
	return b
}

// WithW3CTrace enables traceparent/tracestate propagation
func (b *Builder) WithW3CTrace(enabled bool) *Builder {
	b.config.EnableW3CTrace = enabled
	return b
}

// WithTracerProvider sets the OpenTelemetry tracer provider (default: global)
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithLogPayloads enables debug logging of headers and bodies capped at maxBytes
func (b *Builder) WithLogPayloads(maxBytes int) *Builder {
	b.config.LogPayloads = true
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithRateLimit throttles outgoing attempts to perSecond with the given burst
func (b *Builder) WithRateLimit(perSecond float64, burst int) *Builder {
	b.config.RateLimit = perSecond
	if burst > 0 {
		b.config.RateBurst = burst
	}
	return b
}

// Build creates the REST client with the configured options
func (b *Builder) Build() Client {
	log := b.logger
	if log == nil {
		log = logger.Nop()
	}

	hc := &nethttp.Client{}
	if b.httpClient != nil {
		shared := *b.httpClient
		hc = &shared
	}
	if hc.Transport == nil && b.transport != nil {
		hc.Transport = b.transport
	}
	if hc.Timeout == 0 {
		hc.Timeout = b.config.Timeout
	}

	store := b.store
	if store == nil {
		store = credentials.NewStore(nil)
	}

	observers := append([]refresh.Observer{refresh.NewLogObserver(log)}, b.observers...)
	now := b.now
	if now == nil {
		now = time.Now
	}

	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	var limiter *rate.Limiter
	if b.config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(b.config.RateLimit), b.config.RateBurst)
	}

	return &client{
		httpClient:           hc,
		logger:               log,
		config:               b.config,
		requestInterceptors:  b.config.RequestInterceptors,
		responseInterceptors: b.config.ResponseInterceptors,
		credentials:          store,
		coordinator: refresh.New(b.refreshFn, store,
			refresh.WithObserver(refresh.Observers(observers...)),
			refresh.WithClock(now),
		),
		limiter: limiter,
		tracer:  tp.Tracer(tracerName),
		now:     now,
	}
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// Credentials returns the client's credential store
func (c *client) Credentials() *credentials.Store {
	return c.credentials
}

// Coordinator returns the client's refresh coordinator
func (c *client) Coordinator() *refresh.Coordinator {
	return c.coordinator
}

// Do performs an HTTP request with the specified method. A response with the
// expiry status triggers one token refresh (shared with concurrent callers)
// and exactly one resend with the refreshed credentials.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.request.method", method))

	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)
	requestID := c.requestID(ctx, req)

	c.refreshAhead(ctx, method, req, requestID)

	snap, err := c.newSnapshot(ctx, method, req, requestID)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(attribute.String("url.full", snap.url))

	resp, err := c.execute(ctx, snap, snap.headers, start, callCount, 1)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode != c.config.ExpiryStatus {
		return resp, recordSpanError(span, statusError(resp))
	}

	span.AddEvent("token.refresh")
	outcome, err := c.coordinator.EnsureFresh(ctx, refresh.Signal{
		RequestID:  requestID,
		Method:     method,
		URL:        snap.url,
		StatusCode: resp.StatusCode,
	})
	resp.Stats.RefreshCycle = outcome.Cycle
	if err != nil {
		var werr *refresh.WaitError
		if errors.As(err, &werr) {
			return resp, recordSpanError(span, NewWaitError(resp.StatusCode, err))
		}
		return resp, recordSpanError(span, NewRefreshError(resp.StatusCode, err))
	}

	span.SetAttributes(attribute.Bool("authclient.retried", true))
	retryResp, err := c.execute(ctx, snap, snap.withCredentials(c.credentials, outcome.Headers), start, callCount, 2)
	if err != nil {
		return nil, recordSpanError(span, NewRetryError(0, err))
	}
	retryResp.Stats.RefreshCycle = outcome.Cycle
	span.SetAttributes(attribute.Int("http.response.status_code", retryResp.StatusCode))

	if err := statusError(retryResp); err != nil {
		return retryResp, recordSpanError(span, NewRetryError(retryResp.StatusCode, err))
	}
	return retryResp, nil
}

// refreshAhead refreshes before the first attempt when the stored bearer JWT
// is about to expire. Failures are logged and the request goes out with the
// current credentials.
func (c *client) refreshAhead(ctx context.Context, method string, req *Request, requestID string) {
	if c.config.RefreshSkew <= 0 || !c.credentials.ExpiresWithin(c.now(), c.config.RefreshSkew) {
		return
	}
	target := req.URL
	if target == "" {
		target = joinURL(c.config.BaseURL, req.Path)
	}
	_, err := c.coordinator.EnsureFresh(ctx, refresh.Signal{
		RequestID: requestID,
		Method:    method,
		URL:       target,
	})
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("request_id", requestID).
			Msg("proactive token refresh failed")
	}
}

// execute performs one attempt of a snapshot with the given header set
func (c *client) execute(ctx context.Context, snap *snapshot, headers nethttp.Header, start time.Time, callCount int64, attempt int) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewNetworkError("rate limiter wait failed", err)
		}
	}

	httpReq, err := snap.build(ctx, headers)
	if err != nil {
		return nil, err
	}

	if err := c.runRequestInterceptors(ctx, httpReq); err != nil {
		return nil, NewInterceptorError("request interceptor failed", "request", err)
	}

	c.logRequest(httpReq, snap.body, snap.requestID, attempt)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if c.isTimeout(err) {
			return nil, &timeoutError{message: "request timeout", timeout: c.httpClient.Timeout, wrapped: err}
		}
		return nil, NewNetworkError("request execution failed", err)
	}

	resp, err := c.buildResponse(ctx, start, callCount, httpReq, httpResp)
	if err != nil {
		return nil, err
	}
	resp.Stats.Attempts = attempt

	c.logResponse(resp, snap.requestID, attempt)
	return resp, nil
}

// statusError maps a non-2xx response to an HTTP error
func statusError(resp *Response) error {
	if IsSuccessStatus(resp.StatusCode) {
		return nil
	}
	return NewHTTPError(
		fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode),
		resp.StatusCode,
		resp.Body,
	)
}

func recordSpanError(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// validateRequest validates the request before sending
func (c *client) validateRequest(req *Request) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request")
	}
	if req.URL == "" && req.Path == "" && c.config.BaseURL == "" {
		return NewValidationError("URL cannot be empty", "url")
	}
	return nil
}

// buildResponse runs response interceptors, reads body, and builds a Response.
func (c *client) buildResponse(ctx context.Context, start time.Time, callCount int64, httpReq *nethttp.Request, httpResp *nethttp.Response) (*Response, error) {
	defer httpResp.Body.Close()

	if err := c.runResponseInterceptors(ctx, httpReq, httpResp); err != nil {
		return nil, NewInterceptorError("response interceptor failed", "response", err)
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
		Stats: Stats{
			ElapsedTime: time.Since(start),
			CallCount:   callCount,
		},
	}, nil
}

func (c *client) isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// runRequestInterceptors executes all request interceptors
func (c *client) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func (c *client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}
