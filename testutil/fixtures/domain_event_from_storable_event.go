package fixtures

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/eventlite-io/eventlite/store"
)

var (
	// ErrMappingToDomainEventFailed is returned when domain event conversion fails.
	ErrMappingToDomainEventFailed = errors.New("mapping to domain event failed")

	// ErrMappingToDomainEventUnknownEventType is returned for unrecognized event types.
	ErrMappingToDomainEventUnknownEventType = errors.New("unknown event type")
)

// DomainEventsFrom converts queried CommittedEvents back to DomainEvents.
func DomainEventsFrom(committedEvents store.CommittedEvents) (DomainEvents, error) {
	domainEvents := make(DomainEvents, 0)

	for _, committedEvent := range committedEvents {
		domainEvent, err := DomainEventFrom(committedEvent.StorableEvent)
		if err != nil {
			return nil, err
		}

		domainEvents = append(domainEvents, domainEvent)
	}

	return domainEvents, nil
}

// DomainEventFrom converts a StorableEvent to its corresponding DomainEvent.
// The occurred-at timestamp lives in its own journal column, not in the
// payload, so it is restored from the storable event.
func DomainEventFrom(storableEvent store.StorableEvent) (DomainEvent, error) {
	switch storableEvent.EventType {
	case NoteCreatedEventType:
		return unmarshalNoteCreated(storableEvent)

	case NoteUpdatedEventType:
		return unmarshalNoteUpdated(storableEvent)

	case NoteArchivedEventType:
		return unmarshalNoteArchived(storableEvent)

	case NoteDeletedEventType:
		return unmarshalNoteDeleted(storableEvent)

	case AuthorRegisteredEventType:
		return unmarshalAuthorRegistered(storableEvent)

	default:
		return nil, errors.Join(ErrMappingToDomainEventFailed, ErrMappingToDomainEventUnknownEventType)
	}
}

func unmarshalNoteCreated(storableEvent store.StorableEvent) (DomainEvent, error) {
	payload := new(NoteCreated)

	err := jsoniter.ConfigFastest.Unmarshal(storableEvent.PayloadJSON, &payload)
	if err != nil {
		return NoteCreated{}, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return NoteCreated{
		ID:         payload.ID,
		AuthorID:   payload.AuthorID,
		Text:       payload.Text,
		OccurredAt: storableEvent.OccurredAt,
	}, nil
}

func unmarshalNoteUpdated(storableEvent store.StorableEvent) (DomainEvent, error) {
	payload := new(NoteUpdated)

	err := jsoniter.ConfigFastest.Unmarshal(storableEvent.PayloadJSON, &payload)
	if err != nil {
		return NoteUpdated{}, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return NoteUpdated{
		ID:         payload.ID,
		Text:       payload.Text,
		OccurredAt: storableEvent.OccurredAt,
	}, nil
}

func unmarshalNoteArchived(storableEvent store.StorableEvent) (DomainEvent, error) {
	payload := new(NoteArchived)

	err := jsoniter.ConfigFastest.Unmarshal(storableEvent.PayloadJSON, &payload)
	if err != nil {
		return NoteArchived{}, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return NoteArchived{
		ID:         payload.ID,
		OccurredAt: storableEvent.OccurredAt,
	}, nil
}

func unmarshalNoteDeleted(storableEvent store.StorableEvent) (DomainEvent, error) {
	payload := new(NoteDeleted)

	err := jsoniter.ConfigFastest.Unmarshal(storableEvent.PayloadJSON, &payload)
	if err != nil {
		return NoteDeleted{}, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return NoteDeleted{
		ID:         payload.ID,
		OccurredAt: storableEvent.OccurredAt,
	}, nil
}

func unmarshalAuthorRegistered(storableEvent store.StorableEvent) (DomainEvent, error) {
	payload := new(AuthorRegistered)

	err := jsoniter.ConfigFastest.Unmarshal(storableEvent.PayloadJSON, &payload)
	if err != nil {
		return AuthorRegistered{}, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return AuthorRegistered{
		ID:         payload.ID,
		Name:       payload.Name,
		OccurredAt: storableEvent.OccurredAt,
	}, nil
}
