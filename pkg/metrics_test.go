package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type countingMetrics struct {
	mu        sync.Mutex
	events    map[string]int
	masked    map[int]int
	allocated map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{events: map[string]int{}, masked: map[int]int{}, allocated: map[string]int{}}
}

func (m *countingMetrics) RecordEvent(_ context.Context, mode string, _ int, _ int, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[mode]++
}

func (m *countingMetrics) RecordMaskedHits(_ context.Context, plane int, _ bool, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.masked[plane] += n
}

func (m *countingMetrics) RecordAllocations(_ context.Context, kind string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocated[kind] += n
}

func TestMetricsRecorderCalls(t *testing.T) {
	path := memPath(t)
	rec := newCountingMetrics()
	writeEvents(t, path, 2, 3, WithMetrics(rec))
	assert.Equal(t, 3, rec.events["write"])
	assert.Equal(t, map[string]int{"hit": 8, "cluster": 6, "track": 2}, rec.allocated)

	s, err := OpenForRead(path, SectionAll, nil, WithMetrics(rec))
	require.NoError(t, err)
	defer s.Close()
	mask := NewNoiseMask(8, 20)
	// populate puts the first hit of plane 1 at (1, seed%13)
	require.NoError(t, mask.Set(1, 0, true))
	require.NoError(t, s.SetNoiseMask(1, mask))
	_, err = s.ReadEvent(0)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.events["read"])
	assert.Equal(t, 1, rec.masked[1])
	assert.Zero(t, rec.masked[0])
}

func TestOtelMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := newOtelMetrics(provider)
	require.NoError(t, err)

	writeEvents(t, memPath(t), 2, 4, WithMetrics(m))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Aggregation{}
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		byName[metric.Name] = metric.Data
	}

	events, ok := byName["storage.events"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, events.DataPoints, 1)
	assert.Equal(t, int64(4), events.DataPoints[0].Value)
	mode, _ := events.DataPoints[0].Attributes.Value(attribute.Key("mode"))
	assert.Equal(t, "write", mode.AsString())

	objects, ok := byName["storage.event.objects"].(metricdata.Histogram[int64])
	require.True(t, ok)
	for _, dp := range objects.DataPoints {
		kind, _ := dp.Attributes.Value(attribute.Key("kind"))
		assert.Equal(t, uint64(4), dp.Count, kind.AsString())
	}

	allocated, ok := byName["storage.pool.allocated"].(metricdata.Sum[int64])
	require.True(t, ok)
	got := map[string]int64{}
	for _, dp := range allocated.DataPoints {
		kind, _ := dp.Attributes.Value(attribute.Key("kind"))
		got[kind.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"hit": 8, "cluster": 6, "track": 2}, got)
}

type capturingLogger struct {
	infos  []string
	errors []string
}

func (l *capturingLogger) Info(message string, _ string) { l.infos = append(l.infos, message) }
func (l *capturingLogger) Error(message string)          { l.errors = append(l.errors, message) }

func TestMetricsSummary(t *testing.T) {
	summary, rec, err := NewMetricsSummary()
	require.NoError(t, err)

	writeEvents(t, memPath(t), 1, 2, WithMetrics(rec))

	var log capturingLogger
	require.NoError(t, summary.Report(context.Background(), &log))
	assert.Contains(t, log.infos, "storage.events{mode=write}: 2")
	assert.Contains(t, log.infos, "storage.pool.allocated{kind=hit}: 4")
	assert.Contains(t, log.infos, "storage.event.objects{kind=track}: count 2, mean 2.00")
	assert.Empty(t, log.errors)
}
