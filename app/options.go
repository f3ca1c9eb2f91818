package app

import (
	nethttp "net/http"

	"github.com/gaborage/go-bricks-authclient/logger"
	"github.com/gaborage/go-bricks-authclient/observability"
)

// Options contains optional dependencies for creating an App instance.
type Options struct {
	Logger logger.Logger
	// ProviderFactory replaces observability.NewProvider
	ProviderFactory func(*observability.Config) (observability.Provider, error)
	// Transport is used by both the API client and the token client
	Transport nethttp.RoundTripper
}

// Option mutates Options.
type Option func(*Options)

func WithLogger(log logger.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

func WithProviderFactory(f func(*observability.Config) (observability.Provider, error)) Option {
	return func(o *Options) { o.ProviderFactory = f }
}

func WithTransport(rt nethttp.RoundTripper) Option {
	return func(o *Options) { o.Transport = rt }
}
