package helper

import (
	"context"
	"time"

	"github.com/eventlite-io/eventlite/store"
)

// ContextualMetricsCollectorSpy is a ContextualMetricsCollector implementation for testing
// the context-aware metric recording paths. Records are captured by the embedded
// MetricsCollectorSpy, so the same fluent matchers work for both spies.
type ContextualMetricsCollectorSpy struct {
	*MetricsCollectorSpy
}

// NewContextualMetricsCollectorSpy creates a new ContextualMetricsCollectorSpy instance.
// Set recordCalls to true to capture all metrics calls for inspection in tests.
func NewContextualMetricsCollectorSpy(recordCalls bool) *ContextualMetricsCollectorSpy {
	return &ContextualMetricsCollectorSpy{
		MetricsCollectorSpy: NewMetricsCollectorSpy(recordCalls),
	}
}

// RecordDurationContext implements the ContextualMetricsCollector interface for testing.
func (s *ContextualMetricsCollectorSpy) RecordDurationContext(_ context.Context, metric string, duration time.Duration, labels map[string]string) {
	s.RecordDuration(metric, duration, labels)
}

// IncrementCounterContext implements the ContextualMetricsCollector interface for testing.
func (s *ContextualMetricsCollectorSpy) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	s.IncrementCounter(metric, labels)
}

// RecordValueContext implements the ContextualMetricsCollector interface for testing.
func (s *ContextualMetricsCollectorSpy) RecordValueContext(_ context.Context, metric string, value float64, labels map[string]string) {
	s.RecordValue(metric, value, labels)
}

// SupportsContextual reports whether this spy implements the ContextualMetricsCollector interface.
func (s *ContextualMetricsCollectorSpy) SupportsContextual() bool {
	return true
}

// Compile-time check to ensure ContextualMetricsCollectorSpy implements ContextualMetricsCollector interface.
var _ store.ContextualMetricsCollector = (*ContextualMetricsCollectorSpy)(nil)
