package postgresengine_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/eventlite-io/eventlite/schema"
	"github.com/eventlite-io/eventlite/store"
	"github.com/eventlite-io/eventlite/store/postgresengine"
	. "github.com/eventlite-io/eventlite/testutil/fixtures"                              //nolint:revive
	. "github.com/eventlite-io/eventlite/testutil/helper"                                //nolint:revive
	. "github.com/eventlite-io/eventlite/testutil/postgresengine/helper"                 //nolint:revive
	. "github.com/eventlite-io/eventlite/testutil/postgresengine/helper/postgreswrapper" //nolint:revive
)

func Test_Commit_When_TheJournal_IsEmpty(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)

	// act
	fakeClock = fakeClock.Add(time.Second)
	result, err := st.Commit(
		ctxWithTimeout,
		ToStorable(t, FixtureNoteCreated(noteID, authorID, fakeClock)),
	)

	// assert
	assert.NoError(t, err, "error in committing the event")
	assert.Equal(t, uint(1), result.SequenceNumber, "the first event should get sequence number 1")
	assert.Equal(t, 1, result.MutationsApplied, "the note created materializer should insert one row")
}

func Test_Commit_When_OtherEvents_AreInTheJournal(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	numOtherEvents := rand.IntN(5) + 1
	fakeClock = GivenSomeOtherNotesWereCommitted(t, ctxWithTimeout, st, numOtherEvents, fakeClock)
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)

	// act
	fakeClock = fakeClock.Add(time.Second)
	result, err := st.Commit(
		ctxWithTimeout,
		ToStorable(t, FixtureNoteCreated(noteID, authorID, fakeClock)),
	)

	// assert
	assert.NoError(t, err, "error in committing the event")
	assert.Equal(t, uint(numOtherEvents+1), result.SequenceNumber, "sequence numbers should be gapless")
}

func Test_CommitMultiple(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	fakeClock = GivenSomeOtherNotesWereCommitted(t, ctxWithTimeout, st, rand.IntN(5)+1, fakeClock)
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)
	fakeClock = fakeClock.Add(time.Second)
	GivenNoteCreatedWasCommitted(t, ctxWithTimeout, st, noteID, authorID, fakeClock)

	// act
	fakeClock = fakeClock.Add(time.Second)
	result, commitErr := st.Commit(
		ctxWithTimeout,
		ToStorable(t, FixtureNoteUpdated(noteID, fakeClock)),
		ToStorable(t, FixtureNoteArchived(noteID, fakeClock)),
	)

	// assert
	assert.NoError(t, commitErr, "error in committing the events")
	assert.Equal(t, 2, result.MutationsApplied, "both materializers should update the note row")

	filter := FilterAllEventTypesForOneNote(noteID)
	actualEvents, maxSeq, queryErr := st.Query(ctxWithTimeout, filter)
	assert.NoError(t, queryErr, "error in querying the committed events back")
	assert.Len(t, actualEvents, 3, "there should be exactly 3 events") // 1 in arrange and 2 in act
	assert.Equal(t, result.SequenceNumber, maxSeq, "the commit result should report the journal's max sequence number")
}

func Test_Commit_When_TheEventType_IsNotRegistered(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	unknownEvent, buildErr := store.BuildStorableEventWithEmptyMetadata(
		"v1.NoteRenamed",
		fakeClock.Add(time.Second),
		[]byte(`{"id": "irrelevant"}`),
	)
	assert.NoError(t, buildErr, "error in arranging test data")

	// act
	_, err := st.Commit(ctxWithTimeout, unknownEvent)

	// assert
	assert.Error(t, err)
	assert.ErrorContains(t, err, store.ErrEventNotRegistered.Error())
	assert.Equal(t, 0, CountJournalRows(t, wrapper), "a rejected event should not reach the journal")
}

func Test_Commit_When_ThePayload_ViolatesTheEventSchema(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange - the payload schema requires id to be a string
	invalidEvent, buildErr := store.BuildStorableEventWithEmptyMetadata(
		NoteCreatedEventType,
		fakeClock.Add(time.Second),
		[]byte(`{"id": 42, "authorId": "someone", "text": "broken"}`),
	)
	assert.NoError(t, buildErr, "error in arranging test data")

	// act
	_, err := st.Commit(ctxWithTimeout, invalidEvent)

	// assert
	assert.Error(t, err)
	assert.ErrorContains(t, err, schema.ErrPayloadSchemaViolation.Error())
	assert.Equal(t, 0, CountJournalRows(t, wrapper), "a rejected event should not reach the journal")
}

func Test_Commit_EventWithMetadata(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)
	noteCreated := FixtureNoteCreated(noteID, authorID, fakeClock.Add(time.Second))

	messageID := GivenUniqueID(t)
	causationID := GivenUniqueID(t)
	correlationID := GivenUniqueID(t)
	eventMetadata := store.BuildEventMetadata(messageID, causationID, correlationID)

	// act (commit)
	_, commitErr := st.Commit(ctxWithTimeout, ToStorableWithMetadata(t, noteCreated, eventMetadata))

	// assert (commit)
	assert.NoError(t, commitErr, "error in committing the event")

	// act (query)
	actualEvents, _, queryErr := st.Query(ctxWithTimeout, FilterAllEventTypesForOneNote(noteID))

	// assert (query) - jsonb does not preserve key order, so compare the mapped
	// domain event and metadata instead of the raw payload bytes
	assert.NoError(t, queryErr, "error in querying the events")
	assert.Len(t, actualEvents, 1, "there should be exactly 1 event")
	actualDomainEvent, mappingErr := DomainEventFrom(actualEvents[0].StorableEvent)
	assert.NoError(t, mappingErr, "error in mapping the storable event to a domain event")
	assert.Equal(t, noteCreated, actualDomainEvent, "the queried domain event should be equal to the committed event")
	actualMetadata, metadataErr := store.EventMetadataFrom(actualEvents[0].StorableEvent)
	assert.NoError(t, metadataErr, "error in mapping the event metadata")
	assert.Equal(t, eventMetadata, actualMetadata, "the queried event metadata should be equal to the committed metadata")
}

func Test_QueryingWithFilter_WorksAsExpected(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	numOtherEvents := 10
	fakeClock = GivenSomeOtherNotesWereCommitted(t, ctxWithTimeout, st, numOtherEvents, fakeClock)

	noteID1 := GivenUniqueID(t)
	noteID2 := GivenUniqueID(t)
	authorID1 := GivenUniqueID(t)
	authorID2 := GivenUniqueID(t)

	fakeClock = fakeClock.Add(time.Second)
	note1Created := GivenNoteCreatedWasCommitted(t, ctxWithTimeout, st, noteID1, authorID1, fakeClock)
	fakeClock = fakeClock.Add(time.Second)
	note1Updated := GivenNoteUpdatedWasCommitted(t, ctxWithTimeout, st, noteID1, fakeClock)
	fakeClock = fakeClock.Add(time.Second)
	note1Archived := GivenNoteArchivedWasCommitted(t, ctxWithTimeout, st, noteID1, fakeClock)
	fakeClock = fakeClock.Add(time.Second)
	note1Deleted := GivenNoteDeletedWasCommitted(t, ctxWithTimeout, st, noteID1, fakeClock)

	fakeClock = fakeClock.Add(time.Second)
	author2Registered := GivenAuthorRegisteredWasCommitted(t, ctxWithTimeout, st, authorID2, fakeClock)
	fakeClock = fakeClock.Add(time.Second)
	note2Created := GivenNoteCreatedWasCommitted(t, ctxWithTimeout, st, noteID2, authorID2, fakeClock)
	fakeClock = fakeClock.Add(time.Second)
	note2Updated := GivenNoteUpdatedWasCommitted(t, ctxWithTimeout, st, noteID2, fakeClock)

	/******************************/

	testCases := []struct {
		description       string
		filter            store.Filter
		expectedNumEvents int
		expectedEvents    DomainEvents
	}{
		{
			description:       "empty filter",
			filter:            store.BuildEventFilter().MatchingAnyEvent(),
			expectedNumEvents: numOtherEvents + 7,
			expectedEvents:    DomainEvents{}, // we don't want to assert the concrete events here
		},
		{
			description: "only (occurredFrom)",
			filter: store.BuildEventFilter().
				OccurredFrom(author2Registered.HasOccurredAt()).
				Finalize(),
			expectedNumEvents: 3,
			expectedEvents:    DomainEvents{}, // we don't want to assert the concrete events here
		},
		{
			description: "only (occurredUntil)",
			filter: store.BuildEventFilter().
				OccurredUntil(note1Created.HasOccurredAt()).
				Finalize(),
			expectedNumEvents: numOtherEvents + 1,
			expectedEvents:    DomainEvents{}, // we don't want to assert the concrete events here
		},
		{
			description: "only (occurredFrom to occurredUntil)",
			filter: store.BuildEventFilter().
				OccurredFrom(note1Updated.HasOccurredAt()).
				AndOccurredUntil(note2Created.HasOccurredAt()).
				Finalize(),
			expectedNumEvents: 5,
			expectedEvents:    DomainEvents{}, // we don't want to assert the concrete events here
		},
		{
			description: "(EventType)",
			filter: store.BuildEventFilter().
				Matching().
				AnyEventTypeOf(NoteUpdatedEventType).
				Finalize(),
			expectedNumEvents: 2,
			expectedEvents: DomainEvents{
				note1Updated,
				note2Updated},
		},
		{
			description: "(EventType OR EventType...)",
			filter: store.BuildEventFilter().
				Matching().
				AnyEventTypeOf(
					NoteArchivedEventType,
					NoteDeletedEventType).
				Finalize(),
			expectedNumEvents: 2,
			expectedEvents: DomainEvents{
				note1Archived,
				note1Deleted},
		},
		{
			description: "(Predicate)",
			filter: store.BuildEventFilter().
				Matching().
				AnyPredicateOf(store.P("id", noteID1.String())).
				Finalize(),
			expectedNumEvents: 4,
			expectedEvents: DomainEvents{
				note1Created,
				note1Updated,
				note1Archived,
				note1Deleted},
		},
		{
			description: "(Predicate OR Predicate...)",
			filter: store.BuildEventFilter().
				Matching().
				AnyPredicateOf(
					store.P("id", noteID1.String()),
					store.P("id", noteID2.String())).
				Finalize(),
			expectedNumEvents: 6,
			expectedEvents: DomainEvents{
				note1Created,
				note1Updated,
				note1Archived,
				note1Deleted,
				note2Created,
				note2Updated},
		},
		{
			description: "(Predicate AND Predicate...)",
			filter: store.BuildEventFilter().
				Matching().
				AllPredicatesOf(
					store.P("id", noteID1.String()),
					store.P("authorId", authorID1.String())).
				Finalize(),
			expectedNumEvents: 1,
			expectedEvents:    DomainEvents{note1Created},
		},
		{
			description: "(EventType AND Predicate)",
			filter: store.BuildEventFilter().
				Matching().
				AnyEventTypeOf(NoteCreatedEventType).
				AndAnyPredicateOf(store.P("authorId", authorID2.String())).
				Finalize(),
			expectedNumEvents: 1,
			expectedEvents:    DomainEvents{note2Created},
		},
		{
			description: "(EventType AND (Predicate OR Predicate...))",
			filter: store.BuildEventFilter().
				Matching().
				AnyEventTypeOf(NoteUpdatedEventType).
				AndAnyPredicateOf(
					store.P("id", noteID1.String()),
					store.P("id", noteID2.String())).
				Finalize(),
			expectedNumEvents: 2,
			expectedEvents: DomainEvents{
				note1Updated,
				note2Updated},
		},
		{
			description: "(EventType AND (Predicate AND Predicate...))",
			filter: store.BuildEventFilter().
				Matching().
				AnyEventTypeOf(NoteCreatedEventType).
				AndAllPredicatesOf(
					store.P("id", noteID2.String()),
					store.P("authorId", authorID2.String())).
				Finalize(),
			expectedNumEvents: 1,
			expectedEvents:    DomainEvents{note2Created},
		},
		{
			description: "((EventType OR EventType...) AND Predicate...)",
			filter: store.BuildEventFilter().
				Matching().
				AnyEventTypeOf(
					NoteCreatedEventType,
					NoteUpdatedEventType).
				AndAnyPredicateOf(store.P("id", noteID1.String())).
				Finalize(),
			expectedNumEvents: 2,
			expectedEvents: DomainEvents{
				note1Created,
				note1Updated},
		},
		{
			description: "((EventType AND Predicate) OR (EventType AND Predicate)...)",
			filter: store.BuildEventFilter().
				Matching().
				AnyPredicateOf(store.P("id", noteID1.String())).
				AndAnyEventTypeOf(NoteArchivedEventType).
				OrMatching().
				AnyPredicateOf(store.P("id", noteID2.String())).
				AndAnyEventTypeOf(NoteUpdatedEventType).
				Finalize(),
			expectedNumEvents: 2,
			expectedEvents: DomainEvents{
				note1Archived,
				note2Updated},
		},
		{
			description: "... (occurredFrom)",
			filter: store.BuildEventFilter().
				Matching().
				AnyPredicateOf(store.P("id", noteID1.String())).
				AndAnyEventTypeOf(NoteArchivedEventType).
				OrMatching().
				AnyPredicateOf(store.P("id", noteID2.String())).
				AndAnyEventTypeOf(NoteUpdatedEventType).
				OccurredFrom(note1Deleted.HasOccurredAt()).
				Finalize(),
			expectedNumEvents: 1,
			expectedEvents:    DomainEvents{note2Updated},
		},
		{
			description: "... (sequenceNumberHigherThan)",
			filter: store.BuildEventFilter().
				Matching().
				AnyPredicateOf(store.P("id", noteID1.String())).
				WithSequenceNumberHigherThan(uint(numOtherEvents) + 2).
				Finalize(),
			expectedNumEvents: 2,
			expectedEvents: DomainEvents{
				note1Archived,
				note1Deleted},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// act
			actualEvents, _, queryErr := st.Query(ctxWithTimeout, tc.filter)

			// assert
			assert.NoError(t, queryErr, "error in querying the events")
			assert.Len(t, actualEvents, tc.expectedNumEvents, fmt.Sprintf("there should be exactly %d events", tc.expectedNumEvents))

			actualDomainEvents, mappingErr := DomainEventsFrom(actualEvents)
			assert.NoError(t, mappingErr, "error in mapping the storable events to domain events")

			for i := 0; i < len(tc.expectedEvents); i++ {
				assert.Equal(t, tc.expectedEvents[i], actualDomainEvents[i], "the queried event should be equal to the committed event")
			}
		})
	}
}

func Test_Commit_Concurrent(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	successCount := atomic.Int32{}
	conflictCount := atomic.Int32{}
	eventCount := atomic.Int32{}

	numGoroutines := 4
	operationsPerGoroutine := 25
	var wg sync.WaitGroup

	// act
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < operationsPerGoroutine; j++ {
				noteID := GivenUniqueID(t)
				authorID := GivenUniqueID(t)

				// Randomly choose between committing single and multiple event(s)
				if rand.IntN(2)%2 == 0 {
					// Single event
					_, err := st.Commit(
						ctxWithTimeout,
						ToStorable(t, FixtureNoteCreated(noteID, authorID, fakeClock)),
					)
					switch {
					case err == nil:
						successCount.Add(1)
						eventCount.Add(1)
					case errors.Is(err, store.ErrConcurrencyConflict):
						conflictCount.Add(1) // retries were exhausted under contention
					default:
						t.Errorf("unexpected error: %v", err)
					}
				} else {
					// Multiple events
					event1 := ToStorable(t, FixtureNoteCreated(noteID, authorID, fakeClock))
					event2 := ToStorable(t, FixtureNoteUpdated(noteID, fakeClock))
					_, err := st.Commit(ctxWithTimeout, event1, event2)
					switch {
					case err == nil:
						successCount.Add(1)
						eventCount.Add(2) // Count both events
					case errors.Is(err, store.ErrConcurrencyConflict):
						conflictCount.Add(1)
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}
			}
		}()
	}

	wg.Wait()

	// assert
	assert.Greater(t, successCount.Load(), int32(0))

	events, _, err := st.Query(ctxWithTimeout, store.BuildEventFilter().MatchingAnyEvent())
	assert.NoError(t, err)
	assert.Equal(t, int(eventCount.Load()), len(events), "every successfully committed event should be in the journal")
	assert.Equal(t, int(eventCount.Load()), CountJournalRows(t, wrapper), "failed commits should not leave sequence gaps")
}

func Test_Commit_AfterARivalWriter_ContinuesTheSequence(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange - a second writer shares the journal and bypasses this store
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)
	fakeClock = fakeClock.Add(time.Second)
	GivenNoteCreatedWasCommitted(t, ctxWithTimeout, st, noteID, authorID, fakeClock)

	rivalNoteID := GivenUniqueID(t)
	InsertRivalEvent(t, wrapper, NoteCreatedEventType,
		fmt.Sprintf(`{"id": %q, "authorId": %q, "text": "journaled by a rival process"}`,
			rivalNoteID.String(), authorID.String()),
		`{}`)

	maxSeq := QueryMaxSequenceNumber(t, ctxWithTimeout, st, store.BuildEventFilter().MatchingAnyEvent())
	assert.Equal(t, uint(2), maxSeq, "the rival event should advance the journal")

	// act
	fakeClock = fakeClock.Add(time.Second)
	result, commitErr := st.Commit(
		ctxWithTimeout,
		ToStorable(t, FixtureNoteUpdated(noteID, fakeClock)),
	)

	// assert
	assert.NoError(t, commitErr, "error in committing after the rival write")
	assert.Equal(t, uint(3), result.SequenceNumber, "the commit should append after the rival event")
	assert.Equal(t, 3, CountJournalRows(t, wrapper))
}

func Test_Query_WithEventualConsistency_When_NoReplica_IsConfigured(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)
	GivenNoteCreatedWasCommitted(t, ctxWithTimeout, st, noteID, authorID, fakeClock.Add(time.Second))

	// act - without a replica the primary serves eventual reads as well
	eventualCtx := store.WithEventualConsistency(ctxWithTimeout)
	events, maxSeq, err := st.Query(eventualCtx, FilterAllEventTypesForOneNote(noteID))

	// assert
	assert.NoError(t, err, "error in querying the events")
	assert.Len(t, events, 1)
	assert.Equal(t, uint(1), maxSeq)
}

func Test_Query_WithReplica_HonorsTheConsistencyMarkers(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	wrapper := CreateReplicaWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)
	GivenNoteCreatedWasCommitted(t, ctxWithTimeout, st, noteID, authorID, fakeClock.Add(time.Second))
	filter := FilterAllEventTypesForOneNote(noteID)

	// act + assert (strong) - strong reads go to the primary and see the commit immediately
	strongEvents, strongMaxSeq, strongErr := st.Query(ctxWithTimeout, filter)
	assert.NoError(t, strongErr, "error in querying the events")
	assert.Len(t, strongEvents, 1)
	assert.Equal(t, uint(1), strongMaxSeq)

	// act + assert (eventual) - eventual reads go to the replica, which lags behind
	eventualCtx := store.WithEventualConsistency(ctxWithTimeout)
	assert.Eventually(t, func() bool {
		replicaEvents, _, queryErr := st.Query(eventualCtx, filter)

		return queryErr == nil && len(replicaEvents) == 1
	}, 10*time.Second, 100*time.Millisecond, "the replica should catch up with the primary")
}

func Test_Subscribe_DeliversASnapshotOnOpen(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)
	fakeClock = fakeClock.Add(time.Second)
	GivenNoteCreatedWasCommitted(t, ctxWithTimeout, st, noteID, authorID, fakeClock)

	// act
	subscription, err := st.Subscribe(ctxWithTimeout, NotesTableName)

	// assert
	assert.NoError(t, err, "error in opening the subscription")
	defer subscription.Close()

	update := ReceiveUpdate(t, subscription, time.Second)
	assert.Equal(t, NotesTableName, update.Table)
	assert.Equal(t, uint(1), update.SequenceNumber)
	assert.Len(t, update.Rows, 1, "the snapshot should contain the materialized note")
	assert.Equal(t, noteID.String(), update.Rows[0]["id"])
	assert.Equal(t, authorID.String(), update.Rows[0]["author_id"])
	assert.Equal(t, false, update.Rows[0]["archived"])
}

func Test_Subscribe_ReceivesAnUpdateAfterEveryCommit(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)

	subscription, subscribeErr := st.Subscribe(ctxWithTimeout, NotesTableName)
	assert.NoError(t, subscribeErr, "error in opening the subscription")
	defer subscription.Close()

	snapshot := ReceiveUpdate(t, subscription, time.Second)
	assert.Empty(t, snapshot.Rows, "the snapshot of an empty table should have no rows")
	assert.Equal(t, uint(0), snapshot.SequenceNumber)

	// act + assert (created)
	fakeClock = fakeClock.Add(time.Second)
	GivenNoteCreatedWasCommitted(t, ctxWithTimeout, st, noteID, authorID, fakeClock)
	update := ReceiveUpdate(t, subscription, time.Second)
	assert.Len(t, update.Rows, 1)
	assert.Equal(t, uint(1), update.SequenceNumber)

	// act + assert (updated)
	fakeClock = fakeClock.Add(time.Second)
	noteUpdated := GivenNoteUpdatedWasCommitted(t, ctxWithTimeout, st, noteID, fakeClock)
	update = ReceiveUpdate(t, subscription, time.Second)
	assert.Len(t, update.Rows, 1)
	updatedNote, isNoteUpdated := noteUpdated.(NoteUpdated)
	assert.True(t, isNoteUpdated, "fixture should be a NoteUpdated event")
	assert.Equal(t, updatedNote.Text, update.Rows[0]["text"], "the update should carry the new text")

	// act + assert (archived)
	fakeClock = fakeClock.Add(time.Second)
	GivenNoteArchivedWasCommitted(t, ctxWithTimeout, st, noteID, fakeClock)
	update = ReceiveUpdate(t, subscription, time.Second)
	assert.Len(t, update.Rows, 1)
	assert.Equal(t, true, update.Rows[0]["archived"])

	// act + assert (deleted)
	fakeClock = fakeClock.Add(time.Second)
	GivenNoteDeletedWasCommitted(t, ctxWithTimeout, st, noteID, fakeClock)
	update = ReceiveUpdate(t, subscription, time.Second)
	assert.Empty(t, update.Rows, "the deleted note should be gone from the table")
	assert.Equal(t, uint(4), update.SequenceNumber)
}

func Test_Subscribe_SnapshotShaping_WithRowQueryOptions(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange - three notes with texts that do not sort in commit order
	authorID := GivenUniqueID(t)
	noteID1 := GivenUniqueID(t)
	noteID2 := GivenUniqueID(t)
	noteID3 := GivenUniqueID(t)

	notes := []struct {
		noteID uuid.UUID
		text   string
	}{
		{noteID1, "gamma"},
		{noteID2, "alpha"},
		{noteID3, "beta"},
	}

	for _, note := range notes {
		fakeClock = fakeClock.Add(time.Second)
		_, commitErr := st.Commit(
			ctxWithTimeout,
			ToStorable(t, BuildNoteCreated(note.noteID, authorID, note.text, fakeClock)),
		)
		assert.NoError(t, commitErr, "error in arranging test data")
	}

	// act + assert (where)
	whereSubscription, whereErr := st.Subscribe(ctxWithTimeout, NotesTableName,
		postgresengine.WithWhereEq("id", noteID2.String()))
	assert.NoError(t, whereErr, "error in opening the subscription")
	whereSnapshot := ReceiveUpdate(t, whereSubscription, time.Second)
	assert.Len(t, whereSnapshot.Rows, 1)
	assert.Equal(t, noteID2.String(), whereSnapshot.Rows[0]["id"])
	whereSubscription.Close()

	// act + assert (order by)
	orderSubscription, orderErr := st.Subscribe(ctxWithTimeout, NotesTableName,
		postgresengine.WithOrderBy("text"))
	assert.NoError(t, orderErr, "error in opening the subscription")
	orderSnapshot := ReceiveUpdate(t, orderSubscription, time.Second)
	assert.Len(t, orderSnapshot.Rows, 3)
	assert.Equal(t, "alpha", orderSnapshot.Rows[0]["text"])
	assert.Equal(t, "beta", orderSnapshot.Rows[1]["text"])
	assert.Equal(t, "gamma", orderSnapshot.Rows[2]["text"])
	orderSubscription.Close()

	// act + assert (limit, and live updates ignore the shaping)
	limitSubscription, limitErr := st.Subscribe(ctxWithTimeout, NotesTableName,
		postgresengine.WithLimit(2))
	assert.NoError(t, limitErr, "error in opening the subscription")
	defer limitSubscription.Close()
	limitSnapshot := ReceiveUpdate(t, limitSubscription, time.Second)
	assert.Len(t, limitSnapshot.Rows, 2)

	fakeClock = fakeClock.Add(time.Second)
	GivenNoteCreatedWasCommitted(t, ctxWithTimeout, st, GivenUniqueID(t), authorID, fakeClock)
	liveUpdate := ReceiveUpdate(t, limitSubscription, time.Second)
	assert.Len(t, liveUpdate.Rows, 4, "live updates should always carry the whole table")
}

func Test_Subscribe_When_TheTable_IsNotRegistered(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()

	// act
	_, err := st.Subscribe(ctxWithTimeout, "ledger")

	// assert
	assert.Error(t, err)
	assert.ErrorContains(t, err, store.ErrTableNotRegistered.Error())
}

func Test_Close_MakesFurtherOperationsFail(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)
	GivenNoteCreatedWasCommitted(t, ctxWithTimeout, st, noteID, authorID, fakeClock.Add(time.Second))

	// act
	closeErr := st.Close()

	// assert
	assert.NoError(t, closeErr, "the first close should succeed")

	_, _, queryErr := st.Query(ctxWithTimeout, store.BuildEventFilter().MatchingAnyEvent())
	assert.ErrorContains(t, queryErr, store.ErrStoreClosed.Error())

	_, commitErr := st.Commit(
		ctxWithTimeout,
		ToStorable(t, FixtureNoteUpdated(noteID, fakeClock.Add(2*time.Second))),
	)
	assert.ErrorContains(t, commitErr, store.ErrStoreClosed.Error())

	_, subscribeErr := st.Subscribe(ctxWithTimeout, NotesTableName)
	assert.ErrorContains(t, subscribeErr, store.ErrStoreClosed.Error())

	secondCloseErr := st.Close()
	assert.ErrorContains(t, secondCloseErr, store.ErrStoreClosed.Error())
}

func Test_Store_ReconnectsToAnExistingJournal(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t)
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)
	fakeClock = fakeClock.Add(time.Second)
	GivenNoteCreatedWasCommitted(t, ctxWithTimeout, st, noteID, authorID, fakeClock)
	fakeClock = fakeClock.Add(time.Second)
	noteUpdated := GivenNoteUpdatedWasCommitted(t, ctxWithTimeout, st, noteID, fakeClock)

	wrapper.Close()

	// act
	reopenedWrapper := CreateWrapperWithTestConfig(t)
	defer reopenedWrapper.Close()
	reopened := reopenedWrapper.GetStore()

	// assert
	actualEvents, maxSeq, queryErr := reopened.Query(ctxWithTimeout, FilterAllEventTypesForOneNote(noteID))
	assert.NoError(t, queryErr, "error in querying the events after reconnecting")
	assert.Len(t, actualEvents, 2, "the journal should survive a reconnect")
	assert.Equal(t, uint(2), maxSeq)

	subscription, subscribeErr := reopened.Subscribe(ctxWithTimeout, NotesTableName)
	assert.NoError(t, subscribeErr, "error in opening the subscription after reconnecting")
	defer subscription.Close()
	snapshot := ReceiveUpdate(t, subscription, time.Second)
	assert.Len(t, snapshot.Rows, 1, "the materialized table should survive a reconnect")
	updatedNote, isNoteUpdated := noteUpdated.(NoteUpdated)
	assert.True(t, isNoteUpdated, "fixture should be a NoteUpdated event")
	assert.Equal(t, updatedNote.Text, snapshot.Rows[0]["text"])

	fakeClock = fakeClock.Add(time.Second)
	result, commitErr := reopened.Commit(
		ctxWithTimeout,
		ToStorable(t, FixtureNoteArchived(noteID, fakeClock)),
	)
	assert.NoError(t, commitErr, "error in committing after reconnecting")
	assert.Equal(t, uint(3), result.SequenceNumber, "sequence numbers should continue after a reconnect")
}

func Test_Commit_When_Context_Is_Cancelled(t *testing.T) {
	// setup
	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)

	ctxWithCancel, cancel := context.WithCancel(context.Background())

	// act
	cancel()
	fakeClock = fakeClock.Add(time.Second)
	_, err := st.Commit(
		ctxWithCancel,
		ToStorable(t, FixtureNoteCreated(noteID, authorID, fakeClock)),
	)

	// assert
	assert.Error(t, err, "expected error due to cancelled context")
	assert.Contains(t, err.Error(), "context canceled")
	assert.Equal(t, 0, CountJournalRows(t, wrapper), "no events should have been committed when context was cancelled")
}

func Test_Query_When_Context_Is_Cancelled(t *testing.T) {
	// setup
	wrapper := CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	st := wrapper.GetStore()
	CleanUp(t, wrapper)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)
	GivenNoteCreatedWasCommitted(t, context.Background(), st, noteID, authorID, fakeClock.Add(time.Second))

	filter := FilterAllEventTypesForOneNote(noteID)

	ctxWithCancel, cancel := context.WithCancel(context.Background())

	// act
	cancel()
	events, maxSeq, err := st.Query(ctxWithCancel, filter)

	// assert
	assert.Error(t, err, "expected error due to cancelled context")
	assert.Contains(t, err.Error(), "context canceled")
	assert.Empty(t, events, "no events should be returned when context is cancelled")
	assert.Equal(t, store.MaxSequenceNumberUint(0), maxSeq, "max sequence should be 0 when context is cancelled")
}
