package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/gaborage/go-bricks-authclient/config"
	authhttp "github.com/gaborage/go-bricks-authclient/http"
	"github.com/gaborage/go-bricks-authclient/internal/testutil"
	"github.com/gaborage/go-bricks-authclient/logger"
	"github.com/gaborage/go-bricks-authclient/observability"
	obstest "github.com/gaborage/go-bricks-authclient/observability/testing"
)

type sandboxClient struct {
	srv     *Server
	url     string
	client  authhttp.Client
	tokens  *authhttp.TokenEndpoint
	meters  *obstest.TestMeterProvider
	metrics *observability.RefreshMetrics
}

func newSandboxClient(t *testing.T, cfg config.SandboxConfig, build func(*authhttp.Builder)) *sandboxClient {
	t.Helper()
	s := New(cfg, testutil.NewRecordingLogger())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	mp := obstest.NewTestMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observability.NewRefreshMetrics(mp)
	require.NoError(t, err)

	tokens := &authhttp.TokenEndpoint{
		Client:       authhttp.NewClient(logger.Nop()),
		URL:          ts.URL + PathToken,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	}
	b := authhttp.NewBuilder(logger.Nop()).
		WithBaseURL(ts.URL).
		WithRefreshFunc(tokens.Refresh).
		WithRefreshObserver(metrics)
	if build != nil {
		build(b)
	}

	return &sandboxClient{srv: s, url: ts.URL, client: b.Build(), tokens: tokens, meters: mp, metrics: metrics}
}

func (sc *sandboxClient) login(t *testing.T) {
	t.Helper()
	headers, err := sc.tokens.Refresh(context.Background())
	require.NoError(t, err)
	sc.client.Credentials().Merge(headers)
}

func (sc *sandboxClient) revoke(t *testing.T) {
	t.Helper()
	resp, err := sc.tokens.Client.Post(context.Background(), &authhttp.Request{URL: sc.url + PathExpire})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (sc *sandboxClient) cycles() int64 {
	v, err := obstest.GetMetricSumValue(collect(sc.meters), observability.MetricRefreshCycles)
	if err != nil {
		return 0
	}
	return v
}

func collect(mp *obstest.TestMeterProvider) metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	_ = mp.Reader.Collect(context.Background(), &rm)
	return rm
}

func TestSandboxRevokedTokenIsRefreshedOnce(t *testing.T) {
	sc := newSandboxClient(t, testConfig(), nil)
	sc.login(t)

	resp, err := sc.client.Get(context.Background(), &authhttp.Request{Path: PathResource})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Stats.Attempts)

	sc.revoke(t)

	resp, err = sc.client.Get(context.Background(), &authhttp.Request{Path: PathResource})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, resp.Stats.Attempts)
	assert.Equal(t, uint64(1), resp.Stats.RefreshCycle)
	assert.Equal(t, int64(2), sc.srv.Stats().Issued)

	require.Eventually(t, func() bool { return sc.cycles() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSandboxConcurrentRequestsShareRefresh(t *testing.T) {
	sc := newSandboxClient(t, testConfig(), nil)
	sc.login(t)
	sc.revoke(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := sc.client.Get(context.Background(), &authhttp.Request{Path: PathResource})
			if err == nil && resp.StatusCode != http.StatusOK {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// every cycle issues exactly one token; late arrivals holding the
	// revoked token may start a cycle of their own
	issued := sc.srv.Stats().Issued
	assert.GreaterOrEqual(t, issued, int64(2))
	assert.LessOrEqual(t, issued, int64(1+n))
	require.Eventually(t, func() bool { return sc.cycles() == issued-1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(n), sc.srv.Stats().Served)
}

func TestSandboxProactiveRefresh(t *testing.T) {
	cfg := testConfig()
	cfg.TokenTTL = time.Minute
	sc := newSandboxClient(t, cfg, func(b *authhttp.Builder) {
		b.WithRefreshSkew(2 * time.Minute)
	})
	sc.login(t)

	resp, err := sc.client.Get(context.Background(), &authhttp.Request{Path: PathResource})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Stats.Attempts)
	assert.Equal(t, int64(2), sc.srv.Stats().Issued)
	assert.Zero(t, sc.srv.Stats().Rejected)
}

func TestSandboxBadClientSecretFailsRefresh(t *testing.T) {
	sc := newSandboxClient(t, testConfig(), nil)
	sc.login(t)
	sc.revoke(t)
	sc.tokens.ClientSecret = "wrong"

	resp, err := sc.client.Get(context.Background(), &authhttp.Request{Path: PathResource})
	require.Error(t, err)
	assert.True(t, authhttp.IsErrorType(err, authhttp.RefreshError))
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int64(1), sc.srv.Stats().Issued)
}
