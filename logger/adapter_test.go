package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestLogger creates a logger that outputs to a buffer for testing
func createTestLogger() (*ZeroLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	return &ZeroLogger{zlog: &zl, filter: NewSensitiveDataFilter(nil)}, &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	return logEntry
}

func TestLogEventAdapterMsg(t *testing.T) {
	logger, buf := createTestLogger()

	logger.Info().Msg("test message")

	logEntry := decodeEntry(t, buf)
	assert.Equal(t, "test message", logEntry["message"])
	assert.Equal(t, "info", logEntry["level"])
}

func TestLogEventAdapterMsgf(t *testing.T) {
	logger, buf := createTestLogger()

	logger.Warn().Msgf("refresh cycle %d took %s", 3, "50ms")

	logEntry := decodeEntry(t, buf)
	assert.Equal(t, "refresh cycle 3 took 50ms", logEntry["message"])
	assert.Equal(t, "warn", logEntry["level"])
}

func TestLogEventAdapterErr(t *testing.T) {
	logger, buf := createTestLogger()

	logger.Error().Err(errors.New("refresh failed")).Msg("error occurred")

	logEntry := decodeEntry(t, buf)
	assert.Equal(t, "refresh failed", logEntry["error"])
	assert.Equal(t, "error", logEntry["level"])
}

func TestLogEventAdapterFields(t *testing.T) {
	logger, buf := createTestLogger()

	logger.Info().
		Str("method", "GET").
		Int("status", 401).
		Int64("call_count", 7).
		Uint64("cycle", 2).
		Bool("retried", true).
		Dur("elapsed", 50*time.Millisecond).
		Bytes("body", []byte("ok")).
		Msg("REST client response")

	logEntry := decodeEntry(t, buf)
	assert.Equal(t, "GET", logEntry["method"])
	assert.InDelta(t, 401, logEntry["status"], 0)
	assert.InDelta(t, 7, logEntry["call_count"], 0)
	assert.InDelta(t, 2, logEntry["cycle"], 0)
	assert.Equal(t, true, logEntry["retried"])
	assert.InDelta(t, 50, logEntry["elapsed"], 0)
	assert.Equal(t, "ok", logEntry["body"])
}

func TestLogEventAdapterMasksSensitiveStr(t *testing.T) {
	logger, buf := createTestLogger()

	logger.Info().Str("authorization", "Bearer abc").Msg("masked")

	logEntry := decodeEntry(t, buf)
	assert.Equal(t, DefaultMaskValue, logEntry["authorization"])
}

func TestLogEventAdapterMasksHeaderMap(t *testing.T) {
	logger, buf := createTestLogger()

	logger.Info().Interface("headers", map[string]string{
		"Authorization": "Bearer abc",
		"Accept":        "application/json",
	}).Msg("masked headers")

	logEntry := decodeEntry(t, buf)
	headers, ok := logEntry["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, DefaultMaskValue, headers["Authorization"])
	assert.Equal(t, "application/json", headers["Accept"])
}

func TestDisabledLevelIsSafe(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf).Level(zerolog.ErrorLevel)
	logger := &ZeroLogger{zlog: &zl, filter: NewSensitiveDataFilter(nil)}

	logger.Debug().Str("k", "v").Int("n", 1).Msg("dropped")

	assert.Empty(t, buf.String())
}
