package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("chatty"))
}

func TestSampleRatio_FallsBackOnInvalidValues(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Setenv("OTEL_TRACES_SAMPLE_RATIO", "0.25")
	assert.Equal(t, 0.25, sampleRatio(logger))
	t.Setenv("OTEL_TRACES_SAMPLE_RATIO", "2")
	assert.Equal(t, 1.0, sampleRatio(logger))
	t.Setenv("OTEL_TRACES_SAMPLE_RATIO", "most")
	assert.Equal(t, 1.0, sampleRatio(logger))
}

func TestNilInstruments_ReturnUsableProviders(t *testing.T) {
	var instruments *Instruments
	assert.NotNil(t, instruments.Tracer("test"))

	counter, err := instruments.Meter("test").Int64Counter("adoption.test")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
}

func TestInit_CollectsCounters(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	instruments, shutdown, err := Init(context.Background(), "adoption-test")
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	counter, err := instruments.Meter("test").Int64Counter("adoption.requests.submitted")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, instruments.MetricReader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}
