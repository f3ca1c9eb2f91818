// Package app wires configuration, logging, observability and the
// authenticating HTTP client into one unit shared by the CLI commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gaborage/go-bricks-authclient/config"
	authhttp "github.com/gaborage/go-bricks-authclient/http"
	"github.com/gaborage/go-bricks-authclient/logger"
	"github.com/gaborage/go-bricks-authclient/observability"
	"github.com/gaborage/go-bricks-authclient/server"
)

// App owns the long-lived components built from a Config.
type App struct {
	cfg      *config.Config
	logger   logger.Logger
	provider observability.Provider
	metrics  *observability.RefreshMetrics
	client   authhttp.Client
	tokens   *authhttp.TokenEndpoint
}

// New builds the client described by cfg. The refresh function is the
// configured token endpoint; without refresh.token_url expired responses
// fail with a refresh error.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := &Options{ProviderFactory: observability.NewProvider}
	for _, opt := range opts {
		opt(o)
	}

	log := o.Logger
	if log == nil {
		log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
	}

	provider, err := o.ProviderFactory(&cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	metrics, err := observability.NewRefreshMetrics(provider.MeterProvider())
	if err != nil {
		_ = observability.Shutdown(provider, time.Second)
		return nil, fmt.Errorf("failed to create refresh metrics: %w", err)
	}

	a := &App{
		cfg:      cfg,
		logger:   log,
		provider: provider,
		metrics:  metrics,
	}

	b := a.builder(o).
		WithBaseURL(cfg.Client.BaseURL).
		WithExpiryStatus(cfg.Client.ExpiryStatus).
		WithRefreshObserver(metrics).
		WithRefreshSkew(cfg.Refresh.Skew)
	if cfg.Client.RateLimit > 0 {
		b.WithRateLimit(cfg.Client.RateLimit, cfg.Client.RateBurst)
	}
	if cfg.Client.LogPayloads {
		b.WithLogPayloads(cfg.Client.MaxPayloadLogBytes)
	}
	for k, v := range cfg.Client.DefaultHeaders {
		b.WithDefaultHeader(k, v)
	}

	if cfg.Refresh.TokenURL != "" {
		a.tokens = &authhttp.TokenEndpoint{
			Client:       a.builder(o).WithTimeout(cfg.Refresh.Timeout).Build(),
			URL:          cfg.Refresh.TokenURL,
			ClientID:     cfg.Refresh.ClientID,
			ClientSecret: cfg.Refresh.ClientSecret,
			Scope:        cfg.Refresh.Scope,
		}
		b.WithRefreshFunc(a.tokens.Refresh)
	} else {
		log.Warn().
			Str("env", config.EnvVar("refresh.token_url")).
			Msg("No token endpoint configured, expired tokens cannot be refreshed")
	}

	a.client = b.Build()

	log.Debug().
		Str("base_url", cfg.Client.BaseURL).
		Int("expiry_status", cfg.Client.ExpiryStatus).
		Bool("observability", cfg.Observability.Enabled).
		Msg("Client initialized")

	return a, nil
}

// builder applies the settings shared by the API and token clients.
func (a *App) builder(o *Options) *authhttp.Builder {
	b := authhttp.NewBuilder(a.logger).
		WithTimeout(a.cfg.Client.Timeout).
		WithTraceIDHeader(a.cfg.Client.TraceIDHeader).
		WithW3CTrace(a.cfg.Client.W3CTrace).
		WithTracerProvider(a.provider.TracerProvider())
	if o.Transport != nil {
		b.WithTransport(o.Transport)
	}
	return b
}

func (a *App) Client() authhttp.Client {
	return a.client
}

func (a *App) Logger() logger.Logger {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.cfg
}

// Login fetches an initial token so the first request does not need to be
// rejected before credentials exist.
func (a *App) Login(ctx context.Context) error {
	if a.tokens == nil {
		return config.NewNotConfiguredError("refresh.token_url")
	}
	headers, err := a.tokens.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("initial token request failed: %w", err)
	}
	a.client.Credentials().Merge(headers)
	return nil
}

// NewSandbox creates a sandbox server traced by the app's provider.
func (a *App) NewSandbox() *server.Server {
	return server.New(a.cfg.Sandbox, a.logger, server.WithTracerProvider(a.provider.TracerProvider()))
}

// RunSandbox serves until ctx is done, then shuts the server down.
func (a *App) RunSandbox(ctx context.Context) error {
	srv := a.NewSandbox()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info().Msg("Shutting down sandbox")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("sandbox shutdown failed: %w", err)
	}
	return <-errCh
}

// Shutdown flushes telemetry.
func (a *App) Shutdown() error {
	return observability.Shutdown(a.provider, observability.DefaultShutdownTimeout)
}
