package oteladapters_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/eventlite-io/eventlite/store/oteladapters"
)

func Test_NewMetricsCollector_ReturnsACollector(t *testing.T) {
	collector, _ := newCollectorWithReader()
	assert.NotNil(t, collector)
}

func Test_MetricsCollector_RecordDuration_RecordsSecondsIntoAHistogram(t *testing.T) {
	// setup
	collector, reader := newCollectorWithReader()
	labels := map[string]string{"operation": "query", "status": "success"}

	// act
	collector.RecordDuration("eventstore_query_duration_seconds", 150*time.Millisecond, labels)

	// assert
	resourceMetrics := collectMetrics(t, reader)
	histogram := findHistogramMetric(t, resourceMetrics, "eventstore_query_duration_seconds")
	require.Len(t, histogram.DataPoints, 1)

	dataPoint := histogram.DataPoints[0]
	assert.Equal(t, uint64(1), dataPoint.Count)
	assert.InDelta(t, 0.15, dataPoint.Sum, 0.001, "durations should be recorded in seconds")

	expectedAttrs := attribute.NewSet(
		attribute.String("operation", "query"),
		attribute.String("status", "success"),
	)
	assert.True(t, dataPoint.Attributes.Equals(&expectedAttrs), "labels should become attributes")
}

func Test_MetricsCollector_IncrementCounter_AccumulatesCounts(t *testing.T) {
	// setup
	collector, reader := newCollectorWithReader()
	labels := map[string]string{"operation": "commit", "conflict_type": "concurrency"}

	// act
	collector.IncrementCounter("eventstore_concurrency_conflicts_total", labels)
	collector.IncrementCounter("eventstore_concurrency_conflicts_total", labels)
	collector.IncrementCounter("eventstore_concurrency_conflicts_total", labels)

	// assert
	resourceMetrics := collectMetrics(t, reader)
	counter := findCounterMetric(t, resourceMetrics, "eventstore_concurrency_conflicts_total")
	require.Len(t, counter.DataPoints, 1)

	dataPoint := counter.DataPoints[0]
	assert.Equal(t, int64(3), dataPoint.Value)

	expectedAttrs := attribute.NewSet(
		attribute.String("operation", "commit"),
		attribute.String("conflict_type", "concurrency"),
	)
	assert.True(t, dataPoint.Attributes.Equals(&expectedAttrs), "labels should become attributes")
}

func Test_MetricsCollector_RecordValue_RecordsTheLatestGaugeValue(t *testing.T) {
	// setup
	collector, reader := newCollectorWithReader()
	labels := map[string]string{"operation": "query", "status": "success"}

	// act
	collector.RecordValue("eventstore_events_queried_total", 42.5, labels)

	// assert
	resourceMetrics := collectMetrics(t, reader)
	gauge := findGaugeMetric(t, resourceMetrics, "eventstore_events_queried_total")
	require.Len(t, gauge.DataPoints, 1)

	dataPoint := gauge.DataPoints[0]
	assert.Equal(t, 42.5, dataPoint.Value)

	expectedAttrs := attribute.NewSet(
		attribute.String("operation", "query"),
		attribute.String("status", "success"),
	)
	assert.True(t, dataPoint.Attributes.Equals(&expectedAttrs), "labels should become attributes")
}

func Test_MetricsCollector_ContextMethods_RecordAllInstrumentKinds(t *testing.T) {
	// setup
	collector, reader := newCollectorWithReader()
	ctx := context.Background()
	labels := map[string]string{"check": "contextual"}

	// act
	collector.RecordDurationContext(ctx, "ctx_duration_seconds", 100*time.Millisecond, labels)
	collector.IncrementCounterContext(ctx, "ctx_counter_total", labels)
	collector.RecordValueContext(ctx, "ctx_gauge", 123.45, labels)

	// assert
	resourceMetrics := collectMetrics(t, reader)

	histogram := findHistogramMetric(t, resourceMetrics, "ctx_duration_seconds")
	assert.Equal(t, uint64(1), histogram.DataPoints[0].Count)

	counter := findCounterMetric(t, resourceMetrics, "ctx_counter_total")
	assert.Equal(t, int64(1), counter.DataPoints[0].Value)

	gauge := findGaugeMetric(t, resourceMetrics, "ctx_gauge")
	assert.Equal(t, 123.45, gauge.DataPoints[0].Value)
}

func Test_MetricsCollector_WithEmptyAndNilLabels_StillRecords(t *testing.T) {
	// setup
	collector, reader := newCollectorWithReader()

	// act
	collector.RecordDuration("empty_label_duration_seconds", 50*time.Millisecond, map[string]string{})
	collector.RecordDuration("nil_label_duration_seconds", 50*time.Millisecond, nil)

	// assert
	resourceMetrics := collectMetrics(t, reader)

	emptyLabeled := findHistogramMetric(t, resourceMetrics, "empty_label_duration_seconds")
	assert.Equal(t, uint64(1), emptyLabeled.DataPoints[0].Count)

	nilLabeled := findHistogramMetric(t, resourceMetrics, "nil_label_duration_seconds")
	assert.Equal(t, uint64(1), nilLabeled.DataPoints[0].Count)
}

func Test_MetricsCollector_ReusesInstrumentsPerMetricName(t *testing.T) {
	// setup
	collector, reader := newCollectorWithReader()

	// act
	collector.RecordDuration("reused_duration_seconds", 100*time.Millisecond, nil)
	collector.RecordDuration("reused_duration_seconds", 200*time.Millisecond, nil)

	collector.IncrementCounter("reused_counter_total", nil)
	collector.IncrementCounter("reused_counter_total", nil)
	collector.IncrementCounter("reused_counter_total", nil)

	collector.RecordValue("reused_gauge", 10.0, nil)
	collector.RecordValue("reused_gauge", 20.0, nil)

	// assert
	resourceMetrics := collectMetrics(t, reader)

	histogram := findHistogramMetric(t, resourceMetrics, "reused_duration_seconds")
	assert.Equal(t, uint64(2), histogram.DataPoints[0].Count, "both durations should land in one histogram")

	counter := findCounterMetric(t, resourceMetrics, "reused_counter_total")
	assert.Equal(t, int64(3), counter.DataPoints[0].Value, "all increments should land in one counter")

	gauge := findGaugeMetric(t, resourceMetrics, "reused_gauge")
	assert.Equal(t, 20.0, gauge.DataPoints[0].Value, "the gauge should keep the last recorded value")
}

func Test_MetricsCollector_IsSafeForConcurrentUse(t *testing.T) {
	// setup
	collector, reader := newCollectorWithReader()

	const workers = 8
	const opsPerWorker = 50

	// act
	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()

			for j := 0; j < opsPerWorker; j++ {
				collector.RecordDuration("shared_duration_seconds", time.Millisecond, nil)
				collector.IncrementCounter("shared_counter_total", nil)
				collector.RecordValue("shared_gauge", float64(j), nil)
			}
		}()
	}

	wg.Wait()

	// assert
	resourceMetrics := collectMetrics(t, reader)

	histogram := findHistogramMetric(t, resourceMetrics, "shared_duration_seconds")
	assert.Equal(t, uint64(workers*opsPerWorker), histogram.DataPoints[0].Count)

	counter := findCounterMetric(t, resourceMetrics, "shared_counter_total")
	assert.Equal(t, int64(workers*opsPerWorker), counter.DataPoints[0].Value)
}

// A nil meter fails on first use, not at construction.
func Test_MetricsCollector_WithANilMeter_PanicsOnFirstUse(t *testing.T) {
	collector := oteladapters.NewMetricsCollector(nil)
	assert.NotNil(t, collector)

	assert.Panics(t, func() {
		collector.RecordDuration("unused_duration_seconds", 100*time.Millisecond, nil)
	})

	assert.Panics(t, func() {
		collector.IncrementCounter("unused_counter_total", nil)
	})

	assert.Panics(t, func() {
		collector.RecordValue("unused_gauge", 42.0, nil)
	})
}

func Test_MetricsCollector_WhenInstrumentCreationFails_DropsTheMeasurement(t *testing.T) {
	// setup
	reader := sdkmetric.NewManualReader()
	baseMeter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("failing-test")
	collector := oteladapters.NewMetricsCollector(&failingInstrumentMeter{Meter: baseMeter})
	ctx := context.Background()

	// act + assert
	assert.NotPanics(t, func() {
		collector.RecordDuration("failing_duration_seconds", 100*time.Millisecond, nil)
		collector.IncrementCounter("failing_counter_total", nil)
		collector.RecordValue("failing_gauge", 42.0, nil)
		collector.RecordDurationContext(ctx, "failing_ctx_duration_seconds", 100*time.Millisecond, nil)
		collector.IncrementCounterContext(ctx, "failing_ctx_counter_total", nil)
		collector.RecordValueContext(ctx, "failing_ctx_gauge", 42.0, nil)
	})

	resourceMetrics := collectMetrics(t, reader)
	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, foundMetric := range scopeMetrics.Metrics {
			assert.False(t, strings.HasPrefix(foundMetric.Name, "failing_"),
				"no measurement should be recorded when instrument creation fails, found %s", foundMetric.Name)
		}
	}
}

// failingInstrumentMeter fails instrument creation for names with a "failing_" prefix.
type failingInstrumentMeter struct {
	metric.Meter
}

func (m *failingInstrumentMeter) Float64Histogram(
	name string, options ...metric.Float64HistogramOption,
) (metric.Float64Histogram, error) {
	if strings.HasPrefix(name, "failing_") {
		return nil, errors.New("histogram creation failed")
	}

	return m.Meter.Float64Histogram(name, options...)
}

func (m *failingInstrumentMeter) Int64Counter(
	name string, options ...metric.Int64CounterOption,
) (metric.Int64Counter, error) {
	if strings.HasPrefix(name, "failing_") {
		return nil, errors.New("counter creation failed")
	}

	return m.Meter.Int64Counter(name, options...)
}

func (m *failingInstrumentMeter) Float64Gauge(
	name string, options ...metric.Float64GaugeOption,
) (metric.Float64Gauge, error) {
	if strings.HasPrefix(name, "failing_") {
		return nil, errors.New("gauge creation failed")
	}

	return m.Meter.Float64Gauge(name, options...)
}

func newCollectorWithReader() (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("metrics-test")

	return oteladapters.NewMetricsCollector(meter), reader
}

func collectMetrics(t testing.TB, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics), "collecting metrics should not fail")

	return resourceMetrics
}

func findHistogramMetric(t testing.TB, resourceMetrics metricdata.ResourceMetrics, name string) *metricdata.Histogram[float64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, foundMetric := range scopeMetrics.Metrics {
			if foundMetric.Name == name {
				if histogram, ok := foundMetric.Data.(metricdata.Histogram[float64]); ok {
					return &histogram
				}
			}
		}
	}

	t.Fatalf("histogram metric %s not found", name)

	return nil
}

func findCounterMetric(t testing.TB, resourceMetrics metricdata.ResourceMetrics, name string) *metricdata.Sum[int64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, foundMetric := range scopeMetrics.Metrics {
			if foundMetric.Name == name {
				if counter, ok := foundMetric.Data.(metricdata.Sum[int64]); ok {
					return &counter
				}
			}
		}
	}

	t.Fatalf("counter metric %s not found", name)

	return nil
}

func findGaugeMetric(t testing.TB, resourceMetrics metricdata.ResourceMetrics, name string) *metricdata.Gauge[float64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, foundMetric := range scopeMetrics.Metrics {
			if foundMetric.Name == name {
				if gauge, ok := foundMetric.Data.(metricdata.Gauge[float64]); ok {
					return &gauge
				}
			}
		}
	}

	t.Fatalf("gauge metric %s not found", name)

	return nil
}
