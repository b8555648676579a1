package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventlite-io/eventlite/schema"
	"github.com/eventlite-io/eventlite/store"
)

func Test_Repro_RendersTheDiagnosisReport(t *testing.T) {
	// setup
	cfg := Config{
		DBPath:    filepath.Join(t.TempDir(), "repro.db"),
		Timeout:   10 * time.Second,
		OpenStore: true,
	}

	r := newRepro(cfg, io.Discard, log.New(io.Discard, "", 0))

	// act
	err := r.execute(context.Background())

	// assert
	require.NoError(t, err)

	assert.Empty(t, r.report.AsReported.TableNames, "the hand-assembled state should register no tables")
	assert.False(t, r.report.AsReported.Subscribe.OK, "subscribing without a registered table should fail")
	assert.Equal(t, []string{tableNotes}, r.report.Corrected.TableNames)
	assert.True(t, r.report.Corrected.Subscribe.OK)

	g := goldie.New(t)
	g.Assert(t, "diagnosis_report", []byte(r.report.Render()))
}

func Test_Repro_WithStoreDisabled_SkipsTheStoreChecks(t *testing.T) {
	// setup
	cfg := Config{
		Timeout:   10 * time.Second,
		OpenStore: false,
	}

	r := newRepro(cfg, io.Discard, log.New(io.Discard, "", 0))

	// act
	err := r.execute(context.Background())

	// assert
	require.NoError(t, err)

	assert.True(t, r.report.AsReported.Subscribe.Skipped)
	assert.True(t, r.report.AsReported.Commit.Skipped)
	assert.True(t, r.report.Corrected.Subscribe.Skipped)
	assert.True(t, r.report.Corrected.Commit.Skipped)

	g := goldie.New(t)
	g.Assert(t, "diagnosis_report_no_store", []byte(r.report.Render()))
}

func Test_Repro_WhenTheTimeoutFires_AbandonsTheStoreOpening(t *testing.T) {
	// setup
	// An in-memory path keeps the abandoned open goroutine from touching
	// files after the test finishes.
	cfg := Config{
		DBPath:    ":memory:",
		Timeout:   time.Nanosecond,
		OpenStore: true,
	}

	r := newRepro(cfg, io.Discard, log.New(io.Discard, "", 0))

	// act
	err := r.execute(context.Background())

	// assert
	require.Error(t, err)
	assert.ErrorContains(t, err, "did not settle within")
}

func Test_BuildNoteDefinitions_DescribesTheObjectGraph(t *testing.T) {
	// act
	defs, err := buildNoteDefinitions()

	// assert
	require.NoError(t, err)

	assert.Equal(t, eventNameNoteCreated, defs.Event.Name)
	assert.Equal(t, tableNotes, defs.Table.Name)
	require.Len(t, defs.Table.Columns, 2)
	assert.True(t, defs.Table.Columns[0].PrimaryKey)
	assert.Equal(t, eventNameNoteCreated, defs.Materializer.EventName)
}

func Test_MaterializeNoteCreated_InsertsThePayload(t *testing.T) {
	// setup
	applied := schema.AppliedEvent{
		Name:           eventNameNoteCreated,
		SequenceNumber: 1,
		Payload:        map[string]any{columnID: "note-1", columnText: "hello"},
	}

	// act
	mutations, err := materializeNoteCreated(applied)

	// assert
	require.NoError(t, err)
	require.Len(t, mutations, 1)

	assert.Equal(t, tableNotes, mutations[0].Table)
	assert.Equal(t, schema.MutationInsert, mutations[0].Op)
	assert.Equal(t, map[string]any{columnID: "note-1", columnText: "hello"}, mutations[0].Values)
}

func Test_NoteCreatedEvent_SatisfiesThePayloadSchema(t *testing.T) {
	// setup
	defs, defsErr := buildNoteDefinitions()
	require.NoError(t, defsErr, "error in arranging test data")

	// act
	event, err := noteCreatedEvent("note-9", "hello")

	// assert
	require.NoError(t, err)

	assert.Equal(t, eventNameNoteCreated, event.EventType)
	assert.NoError(t, schema.ValidatePayload(defs.Event, event.PayloadJSON))
}

func Test_VerboseLogger_WritesLeveledFields(t *testing.T) {
	// setup
	var buf bytes.Buffer
	logger := newVerboseLogger(&buf, true)

	// act
	logger.Debug("executed sql for: query", "duration_ms", 12, "event_count", 1)
	logger.Error("commit failed", "error", "boom")

	// assert
	output := buf.String()
	assert.Contains(t, output, "executed sql for: query")
	assert.Contains(t, output, "duration_ms=12")
	assert.Contains(t, output, "event_count=1")
	assert.Contains(t, output, "error=boom")
}

func Test_RenderUpdate_OrdersRowsAndColumnsDeterministically(t *testing.T) {
	// setup
	update := store.TableUpdate{
		Table:          tableNotes,
		Rows:           []map[string]any{{"text": "hello", "id": "note-1"}},
		SequenceNumber: 7,
	}

	// act
	rendered := renderUpdate(update)

	// assert
	assert.Equal(t, "1 row(s) at sequence 7: id=note-1, text=hello", rendered)
}
