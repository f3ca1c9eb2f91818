// Package server implements the sandbox: a small OAuth2-style token issuer and
// protected resource used to exercise the client against real HTTP. Tokens are
// HS256 JWTs; bumping the generation revokes every token issued before it.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-bricks-authclient/config"
	"github.com/gaborage/go-bricks-authclient/logger"
)

const (
	serviceName = "authclient-sandbox"

	PathHealth   = "/health"
	PathToken    = "/token"
	PathResource = "/resource"
	PathExpire   = "/expire"
	PathStats    = "/stats"
)

// Server is the sandbox HTTP server.
type Server struct {
	echo   *echo.Echo
	cfg    config.SandboxConfig
	logger logger.Logger
	issuer *TokenIssuer

	rejected atomic.Int64
	served   atomic.Int64
}

// Option customizes New.
type Option func(*options)

type options struct {
	now            func() time.Time
	tracerProvider trace.TracerProvider
}

// WithClock overrides the time source used to issue and verify tokens.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTracerProvider traces incoming requests with tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// New creates a sandbox server with its routes registered.
func New(cfg config.SandboxConfig, log logger.Logger, opts ...Option) *Server {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Validator = NewValidator()

	var otelOpts []otelecho.Option
	if o.tracerProvider != nil {
		otelOpts = append(otelOpts, otelecho.WithTracerProvider(o.tracerProvider))
	}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(otelecho.Middleware(serviceName, otelOpts...))
	e.Use(RequestLogger(log, PathHealth))

	s := &Server{
		echo:   e,
		cfg:    cfg,
		logger: log,
		issuer: NewTokenIssuer([]byte(cfg.Secret), cfg.TokenTTL, o.now),
	}

	e.GET(PathHealth, s.health)
	e.POST(PathToken, s.issueToken)
	e.GET(PathResource, s.resource, s.requireToken)
	e.POST(PathExpire, s.expire)
	e.GET(PathStats, s.stats)

	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Issuer returns the token issuer.
func (s *Server) Issuer() *TokenIssuer {
	return s.issuer
}

// Start serves on the configured address and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.cfg.Addr).
		Dur("token_ttl", s.cfg.TokenTTL).
		Msg("Starting sandbox server...")

	s.echo.Server.ReadHeaderTimeout = 5 * time.Second
	err := s.echo.Start(s.cfg.Addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
