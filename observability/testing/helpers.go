// Package testing provides in-memory OpenTelemetry providers and assertion
// helpers for unit tests.
//
// Usage:
//
//	tp := NewTestTraceProvider()
//	defer tp.Shutdown(context.Background())
//
//	client := http.NewBuilder(log).WithTracerProvider(tp).Build()
//	// ... perform requests ...
//
//	spans := NewSpanCollector(t, tp.Exporter).WithName("HTTP GET")
//	spans.AssertCount(1)
package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	metricNotFoundErrMsg = "metric %s not found"
	noDataPointsErrMsg   = "no data points for metric %s"
)

// TestTraceProvider wraps the SDK TracerProvider and an in-memory exporter.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider creates a TracerProvider that exports synchronously
// into memory.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	return &TestTraceProvider{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)),
		Exporter:       exporter,
	}
}

// TestMeterProvider wraps the SDK MeterProvider and a manual reader.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider whose metrics are collected on demand.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	return &TestMeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Collect reads all metrics recorded so far.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tmp.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// SpanCollector filters captured spans with a fluent API.
type SpanCollector struct {
	t     *testing.T
	spans tracetest.SpanStubs
}

// NewSpanCollector snapshots the spans currently held by exporter.
func NewSpanCollector(t *testing.T, exporter *tracetest.InMemoryExporter) *SpanCollector {
	t.Helper()
	return &SpanCollector{t: t, spans: exporter.GetSpans()}
}

func (sc *SpanCollector) Len() int {
	return len(sc.spans)
}

// First returns the first span, failing the test when there is none.
func (sc *SpanCollector) First() tracetest.SpanStub {
	sc.t.Helper()
	require.NotEmpty(sc.t, sc.spans, "no spans collected")
	return sc.spans[0]
}

// WithName keeps spans with the given name.
func (sc *SpanCollector) WithName(name string) *SpanCollector {
	var out tracetest.SpanStubs
	for _, s := range sc.spans {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return &SpanCollector{t: sc.t, spans: out}
}

// WithAttribute keeps spans carrying key with a value equal to expected.
func (sc *SpanCollector) WithAttribute(key string, expected any) *SpanCollector {
	var out tracetest.SpanStubs
	for _, s := range sc.spans {
		for _, kv := range s.Attributes {
			if string(kv.Key) == key && matchesValue(kv.Value, expected) {
				out = append(out, s)
				break
			}
		}
	}
	return &SpanCollector{t: sc.t, spans: out}
}

func (sc *SpanCollector) AssertCount(expected int) *SpanCollector {
	sc.t.Helper()
	assert.Len(sc.t, sc.spans, expected, "unexpected span count")
	return sc
}

func matchesValue(v attribute.Value, expected any) bool {
	switch want := expected.(type) {
	case string:
		return v.Type() == attribute.STRING && v.AsString() == want
	case int:
		return v.Type() == attribute.INT64 && v.AsInt64() == int64(want)
	case int64:
		return v.Type() == attribute.INT64 && v.AsInt64() == want
	case bool:
		return v.Type() == attribute.BOOL && v.AsBool() == want
	case float64:
		return v.Type() == attribute.FLOAT64 && v.AsFloat64() == want
	default:
		return false
	}
}

// AssertSpanAttribute asserts that span carries key with the expected value.
func AssertSpanAttribute(t *testing.T, span *tracetest.SpanStub, key string, expected any) {
	t.Helper()
	for _, kv := range span.Attributes {
		if string(kv.Key) == key {
			assert.True(t, matchesValue(kv.Value, expected), "attribute %s value mismatch: got %v", key, kv.Value.AsInterface())
			return
		}
	}
	assert.Failf(t, "attribute not found", "span %s has no attribute %s", span.Name, key)
}

// AssertSpanStatus asserts the span status code.
func AssertSpanStatus(t *testing.T, span *tracetest.SpanStub, expected codes.Code) {
	t.Helper()
	assert.Equal(t, expected, span.Status.Code, "span %s status mismatch", span.Name)
}

// AssertSpanEvent asserts that span recorded an event with the given name.
func AssertSpanEvent(t *testing.T, span *tracetest.SpanStub, name string) {
	t.Helper()
	for _, e := range span.Events {
		if e.Name == name {
			return
		}
	}
	assert.Failf(t, "event not found", "span %s has no event %s", span.Name, name)
}

// FindMetric finds a metric by name, or returns nil.
func FindMetric(rm metricdata.ResourceMetrics, metricName string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == metricName {
				return &m
			}
		}
	}
	return nil
}

// GetMetricSumValue sums every data point of an Int64 Sum metric whose
// attributes include all of attrs.
func GetMetricSumValue(rm metricdata.ResourceMetrics, metricName string, attrs ...attribute.KeyValue) (int64, error) {
	m := FindMetric(rm, metricName)
	if m == nil {
		return 0, fmt.Errorf(metricNotFoundErrMsg, metricName)
	}
	data, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0, fmt.Errorf("metric %s is not an int64 Sum", metricName)
	}
	if len(data.DataPoints) == 0 {
		return 0, fmt.Errorf(noDataPointsErrMsg, metricName)
	}

	var total int64
	for _, dp := range data.DataPoints {
		if hasAttributes(dp.Attributes, attrs) {
			total += dp.Value
		}
	}
	return total, nil
}

// GetMetricHistogramCount returns the total count of a Float64 Histogram metric.
func GetMetricHistogramCount(rm metricdata.ResourceMetrics, metricName string) (uint64, error) {
	m := FindMetric(rm, metricName)
	if m == nil {
		return 0, fmt.Errorf(metricNotFoundErrMsg, metricName)
	}
	data, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		return 0, fmt.Errorf("metric %s is not a float64 Histogram", metricName)
	}
	if len(data.DataPoints) == 0 {
		return 0, fmt.Errorf(noDataPointsErrMsg, metricName)
	}

	var count uint64
	for _, dp := range data.DataPoints {
		count += dp.Count
	}
	return count, nil
}

// AssertCounterValue asserts the summed value of an Int64 Sum metric.
func AssertCounterValue(t *testing.T, rm metricdata.ResourceMetrics, metricName string, expected int64, attrs ...attribute.KeyValue) {
	t.Helper()
	got, err := GetMetricSumValue(rm, metricName, attrs...)
	require.NoError(t, err)
	assert.Equal(t, expected, got, "metric %s value mismatch", metricName)
}

func hasAttributes(set attribute.Set, want []attribute.KeyValue) bool {
	for _, kv := range want {
		v, ok := set.Value(kv.Key)
		if !ok || v != kv.Value {
			return false
		}
	}
	return true
}
