package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eventlite-io/eventlite/schema"
	"github.com/eventlite-io/eventlite/sqlitestate"
)

const (
	NotesTableName   = "notes"
	AuthorsTableName = "authors"
)

// NoteEventDefs builds the event definitions of the notes domain.
func NoteEventDefs(t testing.TB) []schema.EventDef {
	noteCreated, err := schema.BuildEventDef(NoteCreatedEventType, NoteCreatedPayloadSchema)
	assert.NoError(t, err, "error in arranging test data")

	noteUpdated, err := schema.BuildEventDef(NoteUpdatedEventType, NoteUpdatedPayloadSchema)
	assert.NoError(t, err, "error in arranging test data")

	noteArchived, err := schema.BuildEventDef(NoteArchivedEventType, NoteArchivedPayloadSchema)
	assert.NoError(t, err, "error in arranging test data")

	noteDeleted, err := schema.BuildEventDef(NoteDeletedEventType, NoteDeletedPayloadSchema)
	assert.NoError(t, err, "error in arranging test data")

	authorRegistered, err := schema.BuildEventDef(AuthorRegisteredEventType, AuthorRegisteredPayloadSchema)
	assert.NoError(t, err, "error in arranging test data")

	return []schema.EventDef{noteCreated, noteUpdated, noteArchived, noteDeleted, authorRegistered}
}

// NotesTables builds the table definitions of the notes domain.
func NotesTables(t testing.TB) []schema.TableDef {
	noteID, err := schema.BuildColumnDef("id", schema.ColumnTypeText, schema.WithPrimaryKey())
	assert.NoError(t, err, "error in arranging test data")

	noteAuthorID, err := schema.BuildColumnDef("author_id", schema.ColumnTypeText)
	assert.NoError(t, err, "error in arranging test data")

	noteText, err := schema.BuildColumnDef("text", schema.ColumnTypeText)
	assert.NoError(t, err, "error in arranging test data")

	noteArchived, err := schema.BuildColumnDef("archived", schema.ColumnTypeBoolean, schema.WithDefaultValue(false))
	assert.NoError(t, err, "error in arranging test data")

	notes, err := schema.BuildTableDef(NotesTableName, []schema.ColumnDef{noteID, noteAuthorID, noteText, noteArchived})
	assert.NoError(t, err, "error in arranging test data")

	authorID, err := schema.BuildColumnDef("id", schema.ColumnTypeText, schema.WithPrimaryKey())
	assert.NoError(t, err, "error in arranging test data")

	authorName, err := schema.BuildColumnDef("name", schema.ColumnTypeText)
	assert.NoError(t, err, "error in arranging test data")

	authors, err := schema.BuildTableDef(AuthorsTableName, []schema.ColumnDef{authorID, authorName})
	assert.NoError(t, err, "error in arranging test data")

	return []schema.TableDef{notes, authors}
}

// NotesMaterializers builds the materializers of the notes domain.
func NotesMaterializers(t testing.TB) []schema.Materializer {
	noteCreated, err := schema.BuildMaterializer(NoteCreatedEventType, materializeNoteCreated)
	assert.NoError(t, err, "error in arranging test data")

	noteUpdated, err := schema.BuildMaterializer(NoteUpdatedEventType, materializeNoteUpdated)
	assert.NoError(t, err, "error in arranging test data")

	noteArchived, err := schema.BuildMaterializer(NoteArchivedEventType, materializeNoteArchived)
	assert.NoError(t, err, "error in arranging test data")

	noteDeleted, err := schema.BuildMaterializer(NoteDeletedEventType, materializeNoteDeleted)
	assert.NoError(t, err, "error in arranging test data")

	authorRegistered, err := schema.BuildMaterializer(AuthorRegisteredEventType, materializeAuthorRegistered)
	assert.NoError(t, err, "error in arranging test data")

	return []schema.Materializer{noteCreated, noteUpdated, noteArchived, noteDeleted, authorRegistered}
}

// NotesState compiles the notes tables and materializers into a State.
func NotesState(t testing.TB) sqlitestate.State {
	state, err := sqlitestate.MakeState(sqlitestate.Input{
		Tables:        NotesTables(t),
		Materializers: NotesMaterializers(t),
	})
	assert.NoError(t, err, "error in arranging test data")

	return state
}

// NotesSchema compiles the full notes domain schema.
func NotesSchema(t testing.TB) schema.Schema {
	built, err := schema.Build(schema.Definition{
		Events: NoteEventDefs(t),
		State:  NotesState(t),
	})
	assert.NoError(t, err, "error in arranging test data")

	return built
}

func materializeNoteCreated(event schema.AppliedEvent) ([]schema.Mutation, error) {
	return []schema.Mutation{
		schema.InsertInto(NotesTableName, map[string]any{
			"id":        event.Payload["id"],
			"author_id": event.Payload["authorId"],
			"text":      event.Payload["text"],
			"archived":  false,
		}),
	}, nil
}

func materializeNoteUpdated(event schema.AppliedEvent) ([]schema.Mutation, error) {
	return []schema.Mutation{
		schema.UpdateOf(
			NotesTableName,
			map[string]any{"text": event.Payload["text"]},
			map[string]any{"id": event.Payload["id"]},
		),
	}, nil
}

func materializeNoteArchived(event schema.AppliedEvent) ([]schema.Mutation, error) {
	return []schema.Mutation{
		schema.UpdateOf(
			NotesTableName,
			map[string]any{"archived": true},
			map[string]any{"id": event.Payload["id"]},
		),
	}, nil
}

func materializeNoteDeleted(event schema.AppliedEvent) ([]schema.Mutation, error) {
	return []schema.Mutation{
		schema.DeleteFrom(NotesTableName, map[string]any{"id": event.Payload["id"]}),
	}, nil
}

func materializeAuthorRegistered(event schema.AppliedEvent) ([]schema.Mutation, error) {
	return []schema.Mutation{
		schema.InsertInto(AuthorsTableName, map[string]any{
			"id":   event.Payload["id"],
			"name": event.Payload["name"],
		}),
	}, nil
}
