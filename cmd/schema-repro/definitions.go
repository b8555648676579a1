package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/eventlite-io/eventlite/schema"
	"github.com/eventlite-io/eventlite/store"
)

const (
	eventNameNoteCreated = "v1.NoteCreated"
	tableNotes           = "notes"
	columnID             = "id"
	columnText           = "text"

	noteIDAsReported   = "note-1"
	noteIDCorrected    = "note-2"
	noteTextAsReported = "written against the hand-assembled state"
	noteTextCorrected  = "written against the factory-made state"
)

// noteCreatedPayloadSchema constrains the event payload to one string
// identifier and one string text field.
const noteCreatedPayloadSchema = `{ id: string, text: string }`

// noteDefinitions is the object graph under diagnosis: one event, one table,
// and one materializer inserting the event payload into the table.
type noteDefinitions struct {
	Event        schema.EventDef
	Table        schema.TableDef
	Materializer schema.Materializer
}

// buildNoteDefinitions describes the note event, the notes table and the
// materializer connecting them.
func buildNoteDefinitions() (noteDefinitions, error) {
	eventDef, eventErr := schema.BuildEventDef(eventNameNoteCreated, noteCreatedPayloadSchema)
	if eventErr != nil {
		return noteDefinitions{}, eventErr
	}

	idColumn, idErr := schema.BuildColumnDef(columnID, schema.ColumnTypeText, schema.WithPrimaryKey())
	if idErr != nil {
		return noteDefinitions{}, idErr
	}

	textColumn, textErr := schema.BuildColumnDef(columnText, schema.ColumnTypeText)
	if textErr != nil {
		return noteDefinitions{}, textErr
	}

	tableDef, tableErr := schema.BuildTableDef(tableNotes, []schema.ColumnDef{idColumn, textColumn})
	if tableErr != nil {
		return noteDefinitions{}, tableErr
	}

	materializer, materializerErr := schema.BuildMaterializer(eventNameNoteCreated, materializeNoteCreated)
	if materializerErr != nil {
		return noteDefinitions{}, materializerErr
	}

	return noteDefinitions{
		Event:        eventDef,
		Table:        tableDef,
		Materializer: materializer,
	}, nil
}

// materializeNoteCreated inserts a note row straight from the event payload.
func materializeNoteCreated(event schema.AppliedEvent) ([]schema.Mutation, error) {
	return []schema.Mutation{
		schema.InsertInto(tableNotes, map[string]any{
			columnID:   event.Payload[columnID],
			columnText: event.Payload[columnText],
		}),
	}, nil
}

// notePayload is the JSON payload of a v1.NoteCreated event.
type notePayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// noteCreatedEvent builds the storable note event the repro commits.
func noteCreatedEvent(id string, text string) (store.StorableEvent, error) {
	payloadJSON, marshalErr := json.Marshal(notePayload{ID: id, Text: text})
	if marshalErr != nil {
		return store.StorableEvent{}, fmt.Errorf("marshaling the note payload failed: %w", marshalErr)
	}

	return store.BuildStorableEventWithEmptyMetadata(eventNameNoteCreated, time.Now(), payloadJSON)
}
