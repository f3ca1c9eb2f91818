// Package config loads authclient configuration from defaults, an optional
// YAML file and AUTHCLIENT_ environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultEnvPrefix prefixes every environment override. A double
	// underscore separates nesting levels: AUTHCLIENT_CLIENT__BASE_URL.
	DefaultEnvPrefix = "AUTHCLIENT_"
	// DefaultFile is read when present and no file was given explicitly.
	DefaultFile = "authclient.yaml"

	envNestingSeparator = "__"
)

type loadOptions struct {
	file      string
	explicit  bool
	envPrefix string
	environ   func() []string
}

// Option customizes Load.
type Option func(*loadOptions)

// WithFile loads path instead of DefaultFile. The file must exist.
func WithFile(path string) Option {
	return func(o *loadOptions) {
		o.file = path
		o.explicit = path != ""
	}
}

// WithEnvPrefix overrides DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *loadOptions) {
		o.envPrefix = prefix
	}
}

// WithEnviron replaces os.Environ as the source of environment variables.
func WithEnviron(environ func() []string) Option {
	return func(o *loadOptions) {
		o.environ = environ
	}
}

// Load loads configuration with priority:
// 1. Environment variables (highest priority)
// 2. YAML configuration file
// 3. Default values (lowest priority)
func Load(opts ...Option) (*Config, error) {
	o := loadOptions{file: DefaultFile, envPrefix: DefaultEnvPrefix, environ: os.Environ}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(file.Provider(o.file), yaml.Parser()); err != nil {
		// only an explicitly requested file is mandatory
		if o.explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", o.file, err)
		}
	}

	if err := k.Load(envProvider(o.envPrefix, o.environ), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return finish(k)
}

// LoadFromBytes merges a YAML document over the defaults. Environment
// variables are not consulted.
func LoadFromBytes(data []byte) (*Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k
	cfg.Observability.ApplyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func envProvider(prefix string, environ func() []string) *env.Env {
	return env.Provider(".", env.Opt{
		Prefix: prefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, prefix))
			return strings.ReplaceAll(key, envNestingSeparator, "."), value
		},
		EnvironFunc: environ,
	})
}

// EnvVar returns the environment variable that overrides a dotted key.
func EnvVar(key string) string {
	return DefaultEnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", envNestingSeparator))
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.timeout":               "30s",
		"client.expiry_status":         401,
		"client.rate_limit":            0,
		"client.rate_burst":            1,
		"client.trace_id_header":       "X-Request-ID",
		"client.w3c_trace":             true,
		"client.log_payloads":          false,
		"client.max_payload_log_bytes": 4096,

		"refresh.skew":    "0s",
		"refresh.timeout": "10s",

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled":      false,
		"observability.service.name": "authclient",

		"sandbox.addr":          "127.0.0.1:8089",
		"sandbox.token_ttl":     "5m",
		"sandbox.secret":        "authclient-sandbox-signing-key",
		"sandbox.client_id":     "authclient",
		"sandbox.client_secret": "authclient-secret",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
