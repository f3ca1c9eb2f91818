package config

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories reported by ConfigError.
const (
	CategoryMissing       = "missing"
	CategoryInvalid       = "invalid"
	CategoryNotConfigured = "not_configured"
)

// ConfigError describes one bad or absent config key and how to set it.
//
//nolint:revive // exported as config.ConfigError on purpose
type ConfigError struct {
	Category string // one of the Category constants
	Field    string // dotted key, e.g. "refresh.token_url"
	Message  string
	Action   string
}

func (e *ConfigError) Error() string {
	parts := []string{"config_" + e.Category + ":", e.Field}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Action != "" {
		parts = append(parts, e.Action)
	}
	return strings.Join(parts, " ")
}

// howToSet names both ways of providing key.
func howToSet(key string) string {
	return fmt.Sprintf("set %s env var or add %s to %s", EnvVar(key), key, DefaultFile)
}

// NewMissingFieldError reports a key that must be set, such as the client
// credentials once refresh.token_url is configured.
func NewMissingFieldError(key string) *ConfigError {
	return &ConfigError{Category: CategoryMissing, Field: key, Message: "required", Action: howToSet(key)}
}

// NewInvalidFieldError reports a value outside what the key accepts.
func NewInvalidFieldError(key, message string, validOptions []string) *ConfigError {
	err := &ConfigError{Category: CategoryInvalid, Field: key, Message: message}
	if len(validOptions) > 0 {
		err.Action = "must be one of: " + strings.Join(validOptions, ", ")
	}
	return err
}

// NewValidationError reports a failed constraint that has no fixed option list.
func NewValidationError(key, message string) *ConfigError {
	return &ConfigError{Category: CategoryInvalid, Field: key, Message: message}
}

// NewNotConfiguredError marks an optional feature, like the token endpoint,
// that was left unset and is now being used.
func NewNotConfiguredError(key string) *ConfigError {
	return &ConfigError{Category: CategoryNotConfigured, Field: key, Message: "(optional)", Action: "to enable: " + howToSet(key)}
}

// IsNotConfigured reports whether err carries a not_configured ConfigError.
func IsNotConfigured(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr) && cfgErr.Category == CategoryNotConfigured
}
