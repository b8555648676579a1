package helper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	. "github.com/eventlite-io/eventlite/store"
	. "github.com/eventlite-io/eventlite/testutil/fixtures"
)

func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return id
}

func FixtureNoteCreated(noteID uuid.UUID, authorID uuid.UUID, fakeClock time.Time) DomainEvent {
	return BuildNoteCreated(
		noteID,
		authorID,
		"lorem ipsum dolor sit amet",
		fakeClock,
	)
}

func FixtureNoteUpdated(noteID uuid.UUID, fakeClock time.Time) DomainEvent {
	return BuildNoteUpdated(noteID, "sed diam nonumy eirmod tempor", fakeClock)
}

func FixtureNoteArchived(noteID uuid.UUID, fakeClock time.Time) DomainEvent {
	return BuildNoteArchived(noteID, fakeClock)
}

func FixtureNoteDeleted(noteID uuid.UUID, fakeClock time.Time) DomainEvent {
	return BuildNoteDeleted(noteID, fakeClock)
}

func FixtureAuthorRegistered(authorID uuid.UUID, fakeClock time.Time) DomainEvent {
	return BuildAuthorRegistered(authorID, "Jane Austen", fakeClock)
}

func ToStorable(t testing.TB, domainEvent DomainEvent) StorableEvent {
	storableEvent, err := StorableEventWithEmptyMetadataFrom(domainEvent)
	assert.NoError(t, err, "error in arranging test data")

	return storableEvent
}

func ToStorableWithMetadata(t testing.TB, domainEvent DomainEvent, eventMetadata EventMetadata) StorableEvent {
	storableEvent, err := StorableEventFrom(domainEvent, eventMetadata)
	assert.NoError(t, err, "error in arranging test data")

	return storableEvent
}

// ReceiveUpdate waits for the next update on the subscription, failing the
// test when none arrives within the timeout.
func ReceiveUpdate(t testing.TB, subscription *Subscription, timeout time.Duration) TableUpdate {
	select {
	case update, ok := <-subscription.Updates():
		assert.True(t, ok, "subscription was closed while waiting for an update")
		return update

	case <-time.After(timeout):
		assert.Fail(t, "timed out waiting for a table update", "table: %s", subscription.Table())
		return TableUpdate{}
	}
}

// ExpectNoUpdate asserts that no update arrives on the subscription within
// the given window.
func ExpectNoUpdate(t testing.TB, subscription *Subscription, window time.Duration) {
	select {
	case update := <-subscription.Updates():
		assert.Fail(t, "received an unexpected table update", "table: %s, sequence: %d", update.Table, update.SequenceNumber)

	case <-time.After(window):
	}
}
