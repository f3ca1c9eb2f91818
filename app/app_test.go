package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-bricks-authclient/config"
	authhttp "github.com/gaborage/go-bricks-authclient/http"
	"github.com/gaborage/go-bricks-authclient/internal/testutil"
	"github.com/gaborage/go-bricks-authclient/observability"
	"github.com/gaborage/go-bricks-authclient/server"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromBytes([]byte(`
sandbox:
  client_id: svc
  client_secret: s3cret
`))
	require.NoError(t, err)
	return cfg
}

// withSandbox points cfg at a fresh sandbox and returns it.
func withSandbox(t *testing.T, cfg *config.Config) *server.Server {
	t.Helper()
	srv := server.New(cfg.Sandbox, testutil.NewRecordingLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg.Client.BaseURL = ts.URL
	cfg.Refresh.TokenURL = ts.URL + server.PathToken
	cfg.Refresh.ClientID = cfg.Sandbox.ClientID
	cfg.Refresh.ClientSecret = cfg.Sandbox.ClientSecret
	return srv
}

func newApp(t *testing.T, cfg *config.Config) (*App, *testutil.RecordingLogger) {
	t.Helper()
	log := testutil.NewRecordingLogger()
	a, err := New(cfg, WithLogger(log))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })
	return a, log
}

func TestNewWithoutTokenEndpoint(t *testing.T) {
	a, log := newApp(t, loadConfig(t))

	warnings := log.EventsByMessage("No token endpoint configured, expired tokens cannot be refreshed")
	require.Len(t, warnings, 1)
	assert.Equal(t, "AUTHCLIENT_REFRESH__TOKEN_URL", warnings[0].Fields["env"])

	err := a.Login(context.Background())
	assert.True(t, config.IsNotConfigured(err))
	assert.NotNil(t, a.Client())
	assert.Same(t, log, a.Logger())
}

func TestNewProviderFailure(t *testing.T) {
	boom := errors.New("exporter unavailable")
	_, err := New(loadConfig(t),
		WithLogger(testutil.NewRecordingLogger()),
		WithProviderFactory(func(*observability.Config) (observability.Provider, error) { return nil, boom }),
	)
	assert.ErrorIs(t, err, boom)
}

func TestLoginAndRequest(t *testing.T) {
	cfg := loadConfig(t)
	srv := withSandbox(t, cfg)
	a, _ := newApp(t, cfg)

	require.NoError(t, a.Login(context.Background()))
	token, ok := a.Client().Credentials().BearerToken()
	require.True(t, ok)
	assert.NotEmpty(t, token)

	resp, err := a.Client().Get(context.Background(), &authhttp.Request{Path: server.PathResource})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), srv.Stats().Issued)
}

func TestBurstAfterRevocation(t *testing.T) {
	cfg := loadConfig(t)
	srv := withSandbox(t, cfg)
	a, log := newApp(t, cfg)

	require.NoError(t, a.Login(context.Background()))
	srv.Issuer().Revoke()

	const n = 12
	report, err := a.Burst(context.Background(), BurstOptions{N: n, Path: server.PathResource})
	require.NoError(t, err)

	assert.Equal(t, n, report.Requests)
	assert.Equal(t, n, report.Succeeded)
	assert.Zero(t, report.Failed())
	assert.Equal(t, n, report.Retried)
	require.NotEmpty(t, report.Cycles)
	assert.Equal(t, int64(1+len(report.Cycles)), srv.Stats().Issued)
	assert.Len(t, log.EventsByMessage("Burst completed"), 1)
}

func TestBurstCountsFailures(t *testing.T) {
	cfg := loadConfig(t)
	withSandbox(t, cfg)
	cfg.Refresh.ClientSecret = "wrong"
	a, _ := newApp(t, cfg)

	// no token yet, so every request is rejected and every refresh fails
	report, err := a.Burst(context.Background(), BurstOptions{N: 4, Path: server.PathResource, Concurrency: 2})
	require.NoError(t, err)
	assert.Zero(t, report.Succeeded)
	assert.Equal(t, 4, report.Failed())
	assert.Equal(t, 4, report.Errors[authhttp.RefreshError])
	assert.Zero(t, report.Retried)
}

func TestBurstRejectsEmptyBurst(t *testing.T) {
	a, _ := newApp(t, loadConfig(t))
	_, err := a.Burst(context.Background(), BurstOptions{})
	assert.Error(t, err)
}

func TestRunSandboxStopsOnCancel(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Sandbox.Addr = "127.0.0.1:0"
	a, _ := newApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunSandbox(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
