package fixtures

import (
	"time"

	"github.com/google/uuid"
)

// NoteArchivedEventType is the event type identifier.
const NoteArchivedEventType = "v1.NoteArchived"

// NoteArchivedPayloadSchema constrains the payload of NoteArchived events.
const NoteArchivedPayloadSchema = `{
	id: string
}`

// NoteArchived represents a note being moved to the archive.
type NoteArchived struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"-"`
}

// BuildNoteArchived creates a new NoteArchived event.
func BuildNoteArchived(noteID uuid.UUID, occurredAt time.Time) NoteArchived {
	return NoteArchived{
		ID:         noteID.String(),
		OccurredAt: occurredAt,
	}
}

// IsEventType returns the event type identifier.
func (e NoteArchived) IsEventType() string {
	return NoteArchivedEventType
}

// HasOccurredAt returns when this event occurred.
func (e NoteArchived) HasOccurredAt() time.Time {
	return e.OccurredAt
}
