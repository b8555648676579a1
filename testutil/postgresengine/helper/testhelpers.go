package helper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/eventlite-io/eventlite/store"
	"github.com/eventlite-io/eventlite/store/postgresengine"

	. "github.com/eventlite-io/eventlite/testutil/fixtures"
	. "github.com/eventlite-io/eventlite/testutil/helper"
)

// QueryMaxSequenceNumber queries the journal's max sequence number for a filter.
func QueryMaxSequenceNumber(
	t testing.TB,
	ctx context.Context, //nolint:revive
	st *postgresengine.Store,
	filter store.Filter,
) store.MaxSequenceNumberUint {

	_, maxSequenceNumber, err := st.Query(ctx, filter)
	assert.NoError(t, err, "error in arranging test data")

	return maxSequenceNumber
}

// FilterAllEventTypesForOneNote creates a filter for all note event types for a specific note.
func FilterAllEventTypesForOneNote(noteID uuid.UUID) store.Filter {
	filter := store.BuildEventFilter().
		Matching().
		AnyEventTypeOf(
			NoteCreatedEventType,
			NoteUpdatedEventType,
			NoteArchivedEventType,
			NoteDeletedEventType).
		AndAnyPredicateOf(store.P("id", noteID.String())).
		Finalize()

	return filter
}

// FilterAllEventTypesForOneAuthor creates a filter matching an author's
// registration and every note created by them.
func FilterAllEventTypesForOneAuthor(authorID uuid.UUID) store.Filter {
	filter := store.BuildEventFilter().
		Matching().
		AnyEventTypeOf(NoteCreatedEventType).
		AndAnyPredicateOf(store.P("authorId", authorID.String())).
		OrMatching().
		AnyEventTypeOf(AuthorRegisteredEventType).
		AndAnyPredicateOf(store.P("id", authorID.String())).
		Finalize()

	return filter
}

// GivenNoteCreatedWasCommitted commits a note creation event for testing.
func GivenNoteCreatedWasCommitted(
	t testing.TB,
	ctx context.Context, //nolint:revive
	st *postgresengine.Store,
	noteID uuid.UUID,
	authorID uuid.UUID,
	fakeClock time.Time,
) DomainEvent {

	event := FixtureNoteCreated(noteID, authorID, fakeClock)
	_, err := st.Commit(ctx, ToStorable(t, event))
	assert.NoError(t, err, "error in arranging test data")

	return event
}

// GivenNoteUpdatedWasCommitted commits a note update event for testing.
func GivenNoteUpdatedWasCommitted(
	t testing.TB,
	ctx context.Context, //nolint:revive
	st *postgresengine.Store,
	noteID uuid.UUID,
	fakeClock time.Time,
) DomainEvent {

	event := FixtureNoteUpdated(noteID, fakeClock)
	_, err := st.Commit(ctx, ToStorable(t, event))
	assert.NoError(t, err, "error in arranging test data")

	return event
}

// GivenNoteArchivedWasCommitted commits a note archival event for testing.
func GivenNoteArchivedWasCommitted(
	t testing.TB,
	ctx context.Context, //nolint:revive
	st *postgresengine.Store,
	noteID uuid.UUID,
	fakeClock time.Time,
) DomainEvent {

	event := FixtureNoteArchived(noteID, fakeClock)
	_, err := st.Commit(ctx, ToStorable(t, event))
	assert.NoError(t, err, "error in arranging test data")

	return event
}

// GivenNoteDeletedWasCommitted commits a note deletion event for testing.
func GivenNoteDeletedWasCommitted(
	t testing.TB,
	ctx context.Context, //nolint:revive
	st *postgresengine.Store,
	noteID uuid.UUID,
	fakeClock time.Time,
) DomainEvent {

	event := FixtureNoteDeleted(noteID, fakeClock)
	_, err := st.Commit(ctx, ToStorable(t, event))
	assert.NoError(t, err, "error in arranging test data")

	return event
}

// GivenAuthorRegisteredWasCommitted commits an author registration event for testing.
func GivenAuthorRegisteredWasCommitted(
	t testing.TB,
	ctx context.Context, //nolint:revive
	st *postgresengine.Store,
	authorID uuid.UUID,
	fakeClock time.Time,
) DomainEvent {

	event := FixtureAuthorRegistered(authorID, fakeClock)
	_, err := st.Commit(ctx, ToStorable(t, event))
	assert.NoError(t, err, "error in arranging test data")

	return event
}

// GivenSomeOtherNotesWereCommitted pads the journal with creation events for
// unrelated notes, advancing the fake clock by one second per event.
func GivenSomeOtherNotesWereCommitted(
	t testing.TB,
	ctx context.Context, //nolint:revive
	st *postgresengine.Store,
	numEvents int,
	fakeClock time.Time,
) time.Time {

	for i := 0; i < numEvents; i++ {
		fakeClock = fakeClock.Add(time.Second)
		GivenNoteCreatedWasCommitted(t, ctx, st, GivenUniqueID(t), GivenUniqueID(t), fakeClock)
	}

	return fakeClock
}
