package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/gaborage/go-bricks-authclient/observability"
)

// Config is the root configuration of the authclient binary.
type Config struct {
	Client        ClientConfig         `koanf:"client"`
	Refresh       RefreshConfig        `koanf:"refresh"`
	Log           LogConfig            `koanf:"log"`
	Observability observability.Config `koanf:"observability"`
	Sandbox       SandboxConfig        `koanf:"sandbox"`

	// k keeps the merged koanf tree for ad-hoc lookups.
	k *koanf.Koanf
}

// ClientConfig configures the request pipeline.
type ClientConfig struct {
	BaseURL            string            `koanf:"base_url" validate:"omitempty,url"`
	Timeout            time.Duration     `koanf:"timeout" validate:"gt=0"`
	ExpiryStatus       int               `koanf:"expiry_status" validate:"expirystatus"`
	RateLimit          float64           `koanf:"rate_limit" validate:"gte=0"`
	RateBurst          int               `koanf:"rate_burst" validate:"gte=1"`
	TraceIDHeader      string            `koanf:"trace_id_header" validate:"required"`
	W3CTrace           bool              `koanf:"w3c_trace"`
	LogPayloads        bool              `koanf:"log_payloads"`
	MaxPayloadLogBytes int               `koanf:"max_payload_log_bytes" validate:"gte=0"`
	DefaultHeaders     map[string]string `koanf:"default_headers"`
}

// RefreshConfig configures the client-credentials token endpoint used as the
// refresh function, plus proactive refresh.
type RefreshConfig struct {
	TokenURL     string        `koanf:"token_url" validate:"omitempty,url"`
	ClientID     string        `koanf:"client_id" validate:"required_with=TokenURL"`
	ClientSecret string        `koanf:"client_secret" validate:"required_with=TokenURL"`
	Scope        string        `koanf:"scope"`
	Skew         time.Duration `koanf:"skew" validate:"gte=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `koanf:"pretty"`
}

// SandboxConfig configures the local token-issuing test server.
type SandboxConfig struct {
	Addr         string        `koanf:"addr" validate:"required,hostname_port"`
	TokenTTL     time.Duration `koanf:"token_ttl" validate:"gt=0"`
	Secret       string        `koanf:"secret" validate:"required,min=16"`
	ClientID     string        `koanf:"client_id" validate:"required"`
	ClientSecret string        `koanf:"client_secret" validate:"required"`
}
