package sqliteengine

import (
	"github.com/eventlite-io/eventlite/store"
)

// The observability ports are aliases of the store package's interfaces, so
// one implementation serves every engine. They are re-exported here to keep
// the engine's option surface self-contained.
type (
	// Logger interface for SQL query logging, operational metrics, warnings, and error reporting.
	Logger = store.Logger

	// MetricsCollector interface for collecting Store performance and operational metrics.
	MetricsCollector = store.MetricsCollector

	// SpanContext represents an active tracing span that can be finished and updated with attributes.
	SpanContext = store.SpanContext

	// TracingCollector interface for collecting distributed tracing information from Store operations.
	TracingCollector = store.TracingCollector

	// ContextualLogger interface for context-aware logging with automatic trace correlation.
	ContextualLogger = store.ContextualLogger
)

// Option defines a functional option for configuring a Store.
type Option func(*Store) error

// WithTableName sets the journal table name for the Store.
func WithTableName(tableName string) Option {
	return func(cs *Store) error {
		if tableName == "" {
			return store.ErrEmptyEventsTableName
		}

		cs.eventTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Event counts, mutation counts, durations, concurrency conflicts (production-safe)
// Warn level: Non-critical issues like cleanup failures or dropped subscription updates
// Error level: Critical failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(cs *Store) error {
		cs.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// The metrics collector will receive performance and operational metrics including
// query/commit durations, event counts, concurrency conflicts, and database errors.
func WithMetrics(collector MetricsCollector) Option {
	return func(cs *Store) error {
		cs.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store.
// The tracing collector will receive distributed tracing information including
// span creation for query/commit operations, context propagation, and error tracking.
func WithTracing(collector TracingCollector) Option {
	return func(cs *Store) error {
		cs.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// The contextual logger will receive log messages with context information including
// automatic trace/span correlation when tracing is enabled, enabling unified observability.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(cs *Store) error {
		cs.contextualLogger = logger
		return nil
	}
}

// rowCondition is one equality condition on a snapshot query.
type rowCondition struct {
	column string
	value  any
}

// rowQueryConfig collects the optional shaping of a subscription snapshot.
type rowQueryConfig struct {
	conditions []rowCondition
	orderBy    string
	limit      uint
}

// RowQueryOption shapes the snapshot a subscription receives on open.
// Live updates after a commit are not affected and always carry the whole table.
type RowQueryOption func(*rowQueryConfig)

// WithWhereEq restricts the snapshot to rows where column equals value.
// Multiple conditions combine with AND.
func WithWhereEq(column string, value any) RowQueryOption {
	return func(cfg *rowQueryConfig) {
		cfg.conditions = append(cfg.conditions, rowCondition{column: column, value: value})
	}
}

// WithOrderBy orders the snapshot by the given column ascending, overriding
// the default primary key ordering.
func WithOrderBy(column string) RowQueryOption {
	return func(cfg *rowQueryConfig) {
		cfg.orderBy = column
	}
}

// WithLimit caps the number of rows in the snapshot.
func WithLimit(limit uint) RowQueryOption {
	return func(cfg *rowQueryConfig) {
		cfg.limit = limit
	}
}
