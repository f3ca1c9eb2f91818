package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/gaborage/go-bricks-authclient/refresh"
)

const (
	meterName = "github.com/gaborage/go-bricks-authclient/refresh"

	MetricRefreshCycles    = "authclient.refresh.cycles"
	MetricRefreshWaiters   = "authclient.refresh.waiters"
	MetricRefreshDuration  = "authclient.refresh.duration"
	MetricRefreshAbandoned = "authclient.refresh.abandoned"
	MetricRefreshInFlight  = "authclient.refresh.in_flight"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// RefreshMetrics records refresh cycle metrics. It implements refresh.Observer
// and is attached with http.Builder.WithRefreshObserver.
type RefreshMetrics struct {
	cycles    metric.Int64Counter
	waiters   metric.Int64Counter
	abandoned metric.Int64Counter
	inFlight  metric.Int64UpDownCounter
	duration  metric.Float64Histogram
}

var _ refresh.Observer = (*RefreshMetrics)(nil)

// NewRefreshMetrics registers the refresh instruments on mp.
func NewRefreshMetrics(mp metric.MeterProvider) (*RefreshMetrics, error) {
	meter := mp.Meter(meterName)
	m := &RefreshMetrics{}

	var err, e error
	m.cycles, e = CreateCounter(meter, MetricRefreshCycles, "Completed token refresh cycles by outcome")
	err = errors.Join(err, e)
	m.waiters, e = CreateCounter(meter, MetricRefreshWaiters, "Requests that waited on a token refresh cycle")
	err = errors.Join(err, e)
	m.abandoned, e = CreateCounter(meter, MetricRefreshAbandoned, "Callers that stopped waiting for a token refresh")
	err = errors.Join(err, e)
	m.inFlight, e = CreateUpDownCounter(meter, MetricRefreshInFlight, "Token refresh cycles currently running")
	err = errors.Join(err, e)
	m.duration, e = CreateHistogram(meter, MetricRefreshDuration, "Token refresh duration", metric.WithUnit("ms"))
	err = errors.Join(err, e)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *RefreshMetrics) CycleStarted(uint64, refresh.Signal) {
	m.inFlight.Add(context.Background(), 1)
}

func (m *RefreshMetrics) FollowerJoined(uint64, refresh.Signal) {}

func (m *RefreshMetrics) CycleCompleted(outcome refresh.Outcome) {
	ctx := context.Background()
	result := outcomeSuccess
	if outcome.Err != nil {
		result = outcomeFailure
	}
	attrs := metric.WithAttributes(attribute.String("outcome", result))

	m.inFlight.Add(ctx, -1)
	m.cycles.Add(ctx, 1, attrs)
	m.waiters.Add(ctx, int64(outcome.Waiters), attrs)
	m.duration.Record(ctx, float64(outcome.Duration.Microseconds())/1000, attrs)
}

func (m *RefreshMetrics) WaitAbandoned(uint64, error) {
	m.abandoned.Add(context.Background(), 1)
}
