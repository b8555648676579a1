package fixtures

import (
	"time"

	"github.com/google/uuid"
)

// NoteCreatedEventType is the event type identifier.
const NoteCreatedEventType = "v1.NoteCreated"

// NoteCreatedPayloadSchema constrains the payload of NoteCreated events.
const NoteCreatedPayloadSchema = `{
	id:       string
	authorId: string
	text:     string
}`

// NoteCreated represents a note being created by an author.
type NoteCreated struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"-"`
}

// BuildNoteCreated creates a new NoteCreated event.
func BuildNoteCreated(noteID uuid.UUID, authorID uuid.UUID, text string, occurredAt time.Time) NoteCreated {
	return NoteCreated{
		ID:         noteID.String(),
		AuthorID:   authorID.String(),
		Text:       text,
		OccurredAt: occurredAt,
	}
}

// IsEventType returns the event type identifier.
func (e NoteCreated) IsEventType() string {
	return NoteCreatedEventType
}

// HasOccurredAt returns when this event occurred.
func (e NoteCreated) HasOccurredAt() time.Time {
	return e.OccurredAt
}
