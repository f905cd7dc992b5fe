package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// MetricsRecorder records storage activity.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	RecordEvent(ctx context.Context, mode string, hits int, clusters int, tracks int)
	RecordMaskedHits(ctx context.Context, plane int, removed bool, n int)
	RecordAllocations(ctx context.Context, kind string, n int)
}

type NoopMetrics struct{}

func (NoopMetrics) RecordEvent(context.Context, string, int, int, int) {}
func (NoopMetrics) RecordMaskedHits(context.Context, int, bool, int) {}
func (NoopMetrics) RecordAllocations(context.Context, string, int) {}

type otelMetrics struct {
	events        metric.Int64Counter
	objects       metric.Int64Histogram
	maskedHits    metric.Int64Counter
	poolAllocated metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func newOtelMetrics(provider metric.MeterProvider) (*otelMetrics, error) {
	meter := provider.Meter("storage")

	events, err := meter.Int64Counter("storage.events",
		metric.WithDescription("Number of events read or written"),
	)
	if err != nil {
		return nil, err
	}

	objects, err := meter.Int64Histogram("storage.event.objects",
		metric.WithDescription("Objects per event by kind"),
	)
	if err != nil {
		return nil, err
	}

	maskedHits, err := meter.Int64Counter("storage.hits.masked",
		metric.WithDescription("Hits matching a noise mask"),
	)
	if err != nil {
		return nil, err
	}

	poolAllocated, err := meter.Int64Counter("storage.pool.allocated",
		metric.WithDescription("Objects allocated by the storage pools"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		events:        events,
		objects:       objects,
		maskedHits:    maskedHits,
		poolAllocated: poolAllocated,
	}, nil
}

// NewMetricsRecorder returns a recorder on the global OTel meter
// provider, or a no-op recorder if the instruments cannot be created.
func NewMetricsRecorder() MetricsRecorder {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.GetMeterProvider())
	})
	if defaultMetricsErr != nil {
		logger.Error("metrics initialization failed, using no-op recorder: " + defaultMetricsErr.Error())
		return NoopMetrics{}
	}
	return defaultMetrics
}

func (m *otelMetrics) RecordEvent(ctx context.Context, mode string, hits int, clusters int, tracks int) {
	m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	m.objects.Record(ctx, int64(hits), metric.WithAttributes(attribute.String("kind", "hit")))
	m.objects.Record(ctx, int64(clusters), metric.WithAttributes(attribute.String("kind", "cluster")))
	m.objects.Record(ctx, int64(tracks), metric.WithAttributes(attribute.String("kind", "track")))
}

func (m *otelMetrics) RecordMaskedHits(ctx context.Context, plane int, removed bool, n int) {
	if n == 0 {
		return
	}
	m.maskedHits.Add(ctx, int64(n), metric.WithAttributes(
		attribute.Int("plane", plane),
		attribute.Bool("removed", removed),
	))
}

func (m *otelMetrics) RecordAllocations(ctx context.Context, kind string, n int) {
	if n == 0 {
		return
	}
	m.poolAllocated.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}

// MetricsSummary keeps the storage metrics of one process in memory and
// logs them when the run ends.
type MetricsSummary struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewMetricsSummary returns the summary and a recorder feeding it.
func NewMetricsSummary() (*MetricsSummary, MetricsRecorder, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := newOtelMetrics(provider)
	if err != nil {
		return nil, nil, errors.Join(err, provider.Shutdown(context.Background()))
	}
	return &MetricsSummary{reader: reader, provider: provider}, m, nil
}

// Report logs one line per data point and shuts the provider down.
func (m *MetricsSummary) Report(ctx context.Context, logger Logger) error {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return errors.Join(fmt.Errorf("error collecting metrics: %w", err), m.provider.Shutdown(ctx))
	}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					logger.Info(fmt.Sprintf("%s{%s}: %d", md.Name, encodeAttributes(dp.Attributes), dp.Value), "metrics")
				}
			case metricdata.Histogram[int64]:
				for _, dp := range data.DataPoints {
					mean := 0.0
					if dp.Count > 0 {
						mean = float64(dp.Sum) / float64(dp.Count)
					}
					logger.Info(fmt.Sprintf("%s{%s}: count %d, mean %.2f", md.Name,
						encodeAttributes(dp.Attributes), dp.Count, mean), "metrics")
				}
			}
		}
	}
	return m.provider.Shutdown(ctx)
}

func encodeAttributes(set attribute.Set) string {
	return set.Encoded(attribute.DefaultEncoder())
}
