package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/eventlite-io/eventlite/store"
	"github.com/eventlite-io/eventlite/store/oteladapters"
	"github.com/eventlite-io/eventlite/store/sqliteengine"
	. "github.com/eventlite-io/eventlite/testutil/helper"              //nolint:revive
	. "github.com/eventlite-io/eventlite/testutil/sqliteengine/helper" //nolint:revive
)

func Test_Adapters_CaptureTelemetryFromARealStore(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	spanExporter := tracetest.NewInMemoryExporter()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spanExporter)).Tracer("eventlite")

	metricReader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader)).Meter("eventlite")

	var logBuf bytes.Buffer
	logHandler := slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	st := CreateStoreWithTestConfig(t,
		sqliteengine.WithTracing(oteladapters.NewTracingCollector(tracer)),
		sqliteengine.WithMetrics(oteladapters.NewMetricsCollector(meter)),
		sqliteengine.WithContextualLogger(oteladapters.NewSlogBridgeLoggerWithHandler(logHandler)),
	)
	defer func() { _ = st.Close() }()

	fakeClock := time.Unix(0, 0).UTC()

	// act
	noteID := GivenUniqueID(t)
	GivenNoteCreatedWasCommitted(t, ctxWithTimeout, st, noteID, GivenUniqueID(t), fakeClock)

	events, maxSequenceNumber, queryErr := st.Query(ctxWithTimeout, FilterAllEventTypesForOneNote(noteID))
	require.NoError(t, queryErr)
	require.Len(t, events, 1)
	require.Equal(t, store.MaxSequenceNumberUint(1), maxSequenceNumber)

	// assert: one span per operation, nested attributes included
	spans := spanExporter.GetSpans()
	require.Len(t, spans, 2, "expected one commit span and one query span")

	commitSpan := spanByName(t, spans, "eventstore.commit")
	assert.Equal(t, codes.Ok, commitSpan.Status.Code)
	assertSpanHasAttribute(t, commitSpan, "operation", "commit")
	assertSpanHasAttribute(t, commitSpan, "event_count", "1")
	assertSpanHasAttribute(t, commitSpan, "rows_affected", "1")

	querySpan := spanByName(t, spans, "eventstore.query")
	assert.Equal(t, codes.Ok, querySpan.Status.Code)
	assertSpanHasAttribute(t, querySpan, "operation", "query")
	assertSpanHasAttribute(t, querySpan, "event_count", "1")
	assertSpanHasAttribute(t, querySpan, "max_sequence", "1")

	// assert: durations and event counts reached the meter
	resourceMetrics := collectMetrics(t, metricReader)
	successLabels := func(operation string) attribute.Set {
		return attribute.NewSet(
			attribute.String("operation", operation),
			attribute.String("status", "success"),
		)
	}

	commitDuration := findHistogramMetric(t, resourceMetrics, "eventstore_commit_duration_seconds")
	require.Len(t, commitDuration.DataPoints, 1)
	assert.Equal(t, uint64(1), commitDuration.DataPoints[0].Count)
	expectedCommitAttrs := successLabels("commit")
	assert.True(t, commitDuration.DataPoints[0].Attributes.Equals(&expectedCommitAttrs))

	queryDuration := findHistogramMetric(t, resourceMetrics, "eventstore_query_duration_seconds")
	require.Len(t, queryDuration.DataPoints, 1)
	assert.Equal(t, uint64(1), queryDuration.DataPoints[0].Count)
	expectedQueryAttrs := successLabels("query")
	assert.True(t, queryDuration.DataPoints[0].Attributes.Equals(&expectedQueryAttrs))

	eventsCommitted := findGaugeMetric(t, resourceMetrics, "eventstore_events_committed_total")
	assert.Equal(t, 1.0, eventsCommitted.DataPoints[0].Value)

	eventsQueried := findGaugeMetric(t, resourceMetrics, "eventstore_events_queried_total")
	assert.Equal(t, 1.0, eventsQueried.DataPoints[0].Value)

	// assert: the contextual logger saw both operations
	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "executed sql for: commit")
	assert.Contains(t, logOutput, "executed sql for: query")
	assert.Contains(t, logOutput, "store operation: events committed")
	assert.Contains(t, logOutput, "store operation: query completed")
}

func spanByName(t testing.TB, spans tracetest.SpanStubs, name string) tracetest.SpanStub {
	t.Helper()

	for _, span := range spans {
		if span.Name == name {
			return span
		}
	}

	t.Fatalf("span %s not found", name)

	return tracetest.SpanStub{}
}
