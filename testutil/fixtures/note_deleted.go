package fixtures

import (
	"time"

	"github.com/google/uuid"
)

// NoteDeletedEventType is the event type identifier.
const NoteDeletedEventType = "v1.NoteDeleted"

// NoteDeletedPayloadSchema constrains the payload of NoteDeleted events.
const NoteDeletedPayloadSchema = `{
	id: string
}`

// NoteDeleted represents a note being removed for good.
type NoteDeleted struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"-"`
}

// BuildNoteDeleted creates a new NoteDeleted event.
func BuildNoteDeleted(noteID uuid.UUID, occurredAt time.Time) NoteDeleted {
	return NoteDeleted{
		ID:         noteID.String(),
		OccurredAt: occurredAt,
	}
}

// IsEventType returns the event type identifier.
func (e NoteDeleted) IsEventType() string {
	return NoteDeletedEventType
}

// HasOccurredAt returns when this event occurred.
func (e NoteDeleted) HasOccurredAt() time.Time {
	return e.OccurredAt
}
