package fixtures

import (
	"time"
)

// DomainEvent represents a business event that has occurred in the domain.
type DomainEvent interface {
	// IsEventType returns the string identifier for this event type.
	IsEventType() string

	// HasOccurredAt returns when this event occurred.
	HasOccurredAt() time.Time
}

// DomainEvents is a slice of DomainEvent instances.
type DomainEvents = []DomainEvent
