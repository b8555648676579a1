package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/eventlite-io/eventlite/store"
)

// Metric and span names match the SQLite engine, dashboards and alerts stay
// engine-agnostic.
const (
	metricQueryDuration        = "eventstore_query_duration_seconds"
	metricCommitDuration       = "eventstore_commit_duration_seconds"
	metricEventsQueried        = "eventstore_events_queried_total"
	metricEventsCommitted      = "eventstore_events_committed_total"
	metricDatabaseErrors       = "eventstore_database_errors_total"
	metricConcurrencyConflicts = "eventstore_concurrency_conflicts_total"

	spanNameQuery  = "eventstore.query"
	spanNameCommit = "eventstore.commit"

	operationQuery  = "query"
	operationCommit = "commit"

	statusSuccess = "success"
	statusError   = "error"

	spanAttrOperation    = "operation"
	spanAttrErrorType    = "error_type"
	spanAttrEventCount   = "event_count"
	spanAttrEventType    = "event_type"
	spanAttrMaxSequence  = "max_sequence"
	spanAttrRowsAffected = "rows_affected"
	spanAttrDurationMS   = "duration_ms"

	errorTypeBuildQuery          = "build_query"
	errorTypeQueryDB             = "database_query"
	errorTypeScanRows            = "scan_rows"
	errorTypeExecDB              = "database_exec"
	errorTypeRowsAffected        = "rows_affected"
	errorTypeConcurrencyConflict = "concurrency_conflict"
	errorTypeTransaction         = "transaction"
	errorTypeMaterializer        = "materializer"
	errorTypeMutation            = "mutation"
	errorTypeOther               = "other"
)

// errorTypeFor maps commit errors to low-cardinality error type labels.
func errorTypeFor(err error) string {
	switch {
	case errors.Is(err, store.ErrConcurrencyConflict):
		return errorTypeConcurrencyConflict
	case errors.Is(err, store.ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	case errors.Is(err, store.ErrQueryingEventsFailed):
		return errorTypeQueryDB
	case errors.Is(err, store.ErrScanningDBRowFailed):
		return errorTypeScanRows
	case errors.Is(err, store.ErrAppendingEventFailed):
		return errorTypeExecDB
	case errors.Is(err, store.ErrGettingRowsAffectedFailed):
		return errorTypeRowsAffected
	case errors.Is(err, store.ErrOpeningTransactionFailed), errors.Is(err, store.ErrCommittingTransactionFailed):
		return errorTypeTransaction
	case errors.Is(err, store.ErrApplyingMaterializerFailed):
		return errorTypeMaterializer
	case errors.Is(err, store.ErrExecutingMutationFailed), errors.Is(err, store.ErrTableNotRegistered):
		return errorTypeMutation
	default:
		return errorTypeOther
	}
}

// logQueryWithDuration logs SQL queries with execution time at debug level if a logger is configured.
func (cs *Store) logQueryWithDuration(
	ctx context.Context,
	sqlQuery string,
	action string,
	duration queryDuration,
) {
	if cs.logger != nil {
		cs.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, cs.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}

	if cs.contextualLogger != nil {
		cs.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, cs.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (cs *Store) logOperation(ctx context.Context, action string, args ...any) {
	if cs.logger != nil {
		cs.logger.Info(logMsgOperation+action, args...)
	}

	if cs.contextualLogger != nil {
		cs.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical issues at warn level if a logger is configured.
func (cs *Store) logWarn(ctx context.Context, message string, args ...any) {
	if cs.logger != nil {
		cs.logger.Warn(message, args...)
	}

	if cs.contextualLogger != nil {
		cs.contextualLogger.WarnContext(ctx, message, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (cs *Store) logError(
	ctx context.Context,
	message string,
	err error,
	args ...any,
) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if cs.logger != nil {
		cs.logger.Error(message, allArgs...)
	}

	if cs.contextualLogger != nil {
		cs.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (cs *Store) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordErrorMetricsContext records error metrics with context if the collector supports it.
func (cs *Store) recordErrorMetricsContext(ctx context.Context, operation, errorType string) {
	if cs.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"status":          statusError,
			spanAttrErrorType: errorType,
		}

		// Use context-aware method if available
		if contextualCollector, ok := cs.metricsCollector.(store.ContextualMetricsCollector); ok {
			contextualCollector.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
		} else {
			cs.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
		}
	}
}

// recordDurationMetricsContext records duration metrics with context if the collector supports it.
func (cs *Store) recordDurationMetricsContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	operation, status string,
) {
	if cs.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"status":          status,
		}

		// Use context-aware method if available
		if contextualCollector, ok := cs.metricsCollector.(store.ContextualMetricsCollector); ok {
			contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
		} else {
			cs.metricsCollector.RecordDuration(metricName, duration, labels)
		}
	}
}

// recordValueMetricsContext records value metrics with context if the collector supports it.
func (cs *Store) recordValueMetricsContext(
	ctx context.Context,
	metricName string,
	value float64,
	operation,
	status string,
) {
	if cs.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"status":          status,
		}

		// Use context-aware method if available
		if contextualCollector, ok := cs.metricsCollector.(store.ContextualMetricsCollector); ok {
			contextualCollector.RecordValueContext(ctx, metricName, value, labels)
		} else {
			cs.metricsCollector.RecordValue(metricName, value, labels)
		}
	}
}

// recordConcurrencyConflictMetrics records concurrency conflict metrics if the metrics collector is configured.
func (cs *Store) recordConcurrencyConflictMetrics(operation string) {
	if cs.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"conflict_type":   "concurrency",
		}
		cs.metricsCollector.IncrementCounter(metricConcurrencyConflicts, labels)
	}
}

// startTraceSpan starts a tracing span if the tracing collector is configured.
func (cs *Store) startTraceSpan(
	ctx context.Context,
	operation string,
	attrs map[string]string,
) (context.Context, SpanContext) {
	if cs.tracingCollector != nil {
		return cs.tracingCollector.StartSpan(ctx, operation, attrs)
	}

	return ctx, nil
}

// finishTraceSpan finishes a tracing span if the tracing collector is configured.
func (cs *Store) finishTraceSpan(
	spanCtx SpanContext,
	status string,
	attrs map[string]string,
) {
	if cs.tracingCollector != nil && spanCtx != nil {
		cs.tracingCollector.FinishSpan(spanCtx, status, attrs)
	}
}

// === Tracing Observer Pattern ===
// These observers simplify tracing span management by encapsulating lifecycle complexity.

// queryTracingObserver encapsulates tracing span lifecycle management for query operations.
type queryTracingObserver struct {
	cs   *Store
	span SpanContext
}

// commitTracingObserver encapsulates tracing span lifecycle management for commit operations.
type commitTracingObserver struct {
	cs   *Store
	span SpanContext
}

// startQueryTracing creates a new tracing observer for query operations.
func (cs *Store) startQueryTracing(ctx context.Context) (*queryTracingObserver, context.Context) {
	spanAttrs := map[string]string{
		spanAttrOperation: operationQuery,
	}

	newCtx, span := cs.startTraceSpan(ctx, spanNameQuery, spanAttrs)

	return &queryTracingObserver{
		cs:   cs,
		span: span,
	}, newCtx
}

// startCommitTracing creates a new tracing observer for commit operations.
func (cs *Store) startCommitTracing(
	ctx context.Context,
	allEvents store.StorableEvents,
) (*commitTracingObserver, context.Context) {

	spanAttrs := map[string]string{
		spanAttrOperation:  operationCommit,
		spanAttrEventCount: fmt.Sprintf("%d", len(allEvents)),
	}

	if len(allEvents) > 0 {
		spanAttrs[spanAttrEventType] = allEvents[0].EventType
	}

	newCtx, span := cs.startTraceSpan(ctx, spanNameCommit, spanAttrs)

	return &commitTracingObserver{
		cs:   cs,
		span: span,
	}, newCtx
}

// finishError completes the query tracing span with error details.
func (qto *queryTracingObserver) finishError(errorType string, duration time.Duration) {
	if qto.span == nil {
		return
	}

	qto.span.SetStatus(statusError)
	qto.span.AddAttribute(spanAttrErrorType, errorType)

	if duration > 0 {
		qto.span.AddAttribute(spanAttrDurationMS, qto.cs.formatDuration(duration))
	}

	qto.cs.finishTraceSpan(qto.span, statusError, map[string]string{spanAttrErrorType: errorType})
}

// finishSuccess completes the query tracing span for successful operations.
func (qto *queryTracingObserver) finishSuccess(
	eventCount int,
	maxSequenceNumber store.MaxSequenceNumberUint,
	duration time.Duration,
) {
	if qto.span == nil {
		return
	}

	qto.span.SetStatus(statusSuccess)
	qto.span.AddAttribute(spanAttrEventCount, fmt.Sprintf("%d", eventCount))
	qto.span.AddAttribute(spanAttrMaxSequence, fmt.Sprintf("%d", maxSequenceNumber))
	qto.span.AddAttribute(spanAttrDurationMS, qto.cs.formatDuration(duration))

	qto.cs.finishTraceSpan(qto.span, statusSuccess, map[string]string{
		spanAttrEventCount:  fmt.Sprintf("%d", eventCount),
		spanAttrMaxSequence: fmt.Sprintf("%d", maxSequenceNumber),
	})
}

// finishError completes the commit operation's tracing span with error details.
func (cto *commitTracingObserver) finishError(errorType string, duration time.Duration) {
	if cto.span == nil {
		return
	}

	cto.span.SetStatus(statusError)
	cto.span.AddAttribute(spanAttrErrorType, errorType)

	if duration > 0 {
		cto.span.AddAttribute(spanAttrDurationMS, cto.cs.formatDuration(duration))
	}

	cto.cs.finishTraceSpan(cto.span, statusError, map[string]string{spanAttrErrorType: errorType})
}

// finishSuccess completes the commit operation's tracing span for successful operations.
func (cto *commitTracingObserver) finishSuccess(eventCount int, duration time.Duration) {
	if cto.span == nil {
		return
	}

	cto.span.SetStatus(statusSuccess)
	cto.span.AddAttribute(spanAttrRowsAffected, fmt.Sprintf("%d", eventCount))
	cto.span.AddAttribute(spanAttrDurationMS, cto.cs.formatDuration(duration))

	cto.cs.finishTraceSpan(cto.span, statusSuccess, map[string]string{
		spanAttrRowsAffected: fmt.Sprintf("%d", eventCount),
	})
}

// formatDuration formats duration for span attributes.
func (cs *Store) formatDuration(duration time.Duration) string {
	return fmt.Sprintf("%.2f", cs.toMilliseconds(duration))
}

// === Metrics Observer Pattern ===
// These observers simplify the metrics collection by encapsulating recording complexity.

// queryMetricsObserver encapsulates the metrics collection for query operations.
type queryMetricsObserver struct {
	cs  *Store
	ctx context.Context
}

// commitMetricsObserver encapsulates the metrics collection for commit operations.
type commitMetricsObserver struct {
	cs  *Store
	ctx context.Context
}

// startQueryMetrics creates a new metrics observer for query operations.
func (cs *Store) startQueryMetrics(ctx context.Context) *queryMetricsObserver {
	return &queryMetricsObserver{
		cs:  cs,
		ctx: ctx,
	}
}

// startCommitMetrics creates a new metrics observer for commit operations.
func (cs *Store) startCommitMetrics(ctx context.Context) *commitMetricsObserver {
	return &commitMetricsObserver{
		cs:  cs,
		ctx: ctx,
	}
}

// recordSuccess records all metrics for a successful query operation.
func (qmo *queryMetricsObserver) recordSuccess(eventCount int, duration time.Duration) {
	qmo.cs.recordDurationMetricsContext(qmo.ctx, metricQueryDuration, duration, operationQuery, statusSuccess)
	qmo.cs.recordValueMetricsContext(qmo.ctx, metricEventsQueried, float64(eventCount), operationQuery, statusSuccess)
}

// recordError records all metrics for a failed query operation.
func (qmo *queryMetricsObserver) recordError(errorType string, duration time.Duration) {
	qmo.cs.recordDurationMetricsContext(qmo.ctx, metricQueryDuration, duration, operationQuery, statusError)
	qmo.cs.recordErrorMetricsContext(qmo.ctx, operationQuery, errorType)
}

// recordSuccess records all metrics for a successful commit operation.
func (cmo *commitMetricsObserver) recordSuccess(eventCount int, duration time.Duration) {
	cmo.cs.recordDurationMetricsContext(cmo.ctx, metricCommitDuration, duration, operationCommit, statusSuccess)
	cmo.cs.recordValueMetricsContext(cmo.ctx, metricEventsCommitted, float64(eventCount), operationCommit, statusSuccess)
}

// recordError records all metrics for a failed commit operation.
func (cmo *commitMetricsObserver) recordError(errorType string, duration time.Duration) {
	cmo.cs.recordDurationMetricsContext(cmo.ctx, metricCommitDuration, duration, operationCommit, statusError)
	cmo.cs.recordErrorMetricsContext(cmo.ctx, operationCommit, errorType)
}

// recordConcurrencyConflict records metrics for concurrency conflicts during commit operations.
func (cmo *commitMetricsObserver) recordConcurrencyConflict() {
	cmo.cs.recordConcurrencyConflictMetrics(operationCommit)
}
