package fixtures

import (
	"time"

	"github.com/google/uuid"
)

// AuthorRegisteredEventType is the event type identifier.
const AuthorRegisteredEventType = "v1.AuthorRegistered"

// AuthorRegisteredPayloadSchema constrains the payload of AuthorRegistered events.
const AuthorRegisteredPayloadSchema = `{
	id:   string
	name: string
}`

// AuthorRegistered represents an author joining the notebook.
type AuthorRegistered struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"-"`
}

// BuildAuthorRegistered creates a new AuthorRegistered event.
func BuildAuthorRegistered(authorID uuid.UUID, name string, occurredAt time.Time) AuthorRegistered {
	return AuthorRegistered{
		ID:         authorID.String(),
		Name:       name,
		OccurredAt: occurredAt,
	}
}

// IsEventType returns the event type identifier.
func (e AuthorRegistered) IsEventType() string {
	return AuthorRegisteredEventType
}

// HasOccurredAt returns when this event occurred.
func (e AuthorRegistered) HasOccurredAt() time.Time {
	return e.OccurredAt
}
