package fixtures

import (
	"time"

	"github.com/google/uuid"
)

// NoteUpdatedEventType is the event type identifier.
const NoteUpdatedEventType = "v1.NoteUpdated"

// NoteUpdatedPayloadSchema constrains the payload of NoteUpdated events.
const NoteUpdatedPayloadSchema = `{
	id:   string
	text: string
}`

// NoteUpdated represents the text of a note being replaced.
type NoteUpdated struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"-"`
}

// BuildNoteUpdated creates a new NoteUpdated event.
func BuildNoteUpdated(noteID uuid.UUID, text string, occurredAt time.Time) NoteUpdated {
	return NoteUpdated{
		ID:         noteID.String(),
		Text:       text,
		OccurredAt: occurredAt,
	}
}

// IsEventType returns the event type identifier.
func (e NoteUpdated) IsEventType() string {
	return NoteUpdatedEventType
}

// HasOccurredAt returns when this event occurred.
func (e NoteUpdated) HasOccurredAt() time.Time {
	return e.OccurredAt
}
