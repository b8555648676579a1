package sqliteengine

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eventlite-io/eventlite/store"
	"github.com/eventlite-io/eventlite/store/sqliteengine/internal/adapters"
	"github.com/eventlite-io/eventlite/testutil/sqliteengine/config"
	. "github.com/eventlite-io/eventlite/testutil/fixtures" //nolint:revive
	. "github.com/eventlite-io/eventlite/testutil/helper"   //nolint:revive
)

// racingDBAdapter journals a rival event through the raw connection right
// before the first transaction begins, after the expected sequence number
// was already read. The next commit attempt then loses the optimistic
// concurrency check exactly once.
type racingDBAdapter struct {
	adapters.DBAdapter
	rawDB     *sql.DB
	rival     store.StorableEvent
	once      sync.Once
	insertErr error
}

func (r *racingDBAdapter) Begin(ctx context.Context) (adapters.DBTx, error) {
	r.once.Do(func() {
		_, r.insertErr = r.rawDB.ExecContext(ctx,
			"INSERT INTO events (event_type, occurred_at, payload, metadata) VALUES (?, ?, ?, ?)",
			r.rival.EventType,
			r.rival.OccurredAt.Format(sqliteTimeFormat),
			string(r.rival.PayloadJSON),
			string(r.rival.MetadataJSON),
		)
	})

	if r.insertErr != nil {
		return nil, r.insertErr
	}

	return r.DBAdapter.Begin(ctx)
}

func Test_Commit_When_ARivalCommitWinsTheRace(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	testHandler := NewLogHandlerSpy(false)
	metricsCollector := NewMetricsCollectorSpy(true)

	db := config.SQLiteSQLDBTestConfig(config.SQLiteInMemoryDSN())
	defer func() { _ = db.Close() }()

	st, createErr := NewStoreFromSQLDB(db, NotesSchema(t),
		WithLogger(slog.New(testHandler)),
		WithMetrics(metricsCollector),
	)
	assert.NoError(t, createErr, "error creating store")
	defer func() { _ = st.Close() }()

	fakeClock := time.Unix(0, 0).UTC()

	// arrange - a rival event slips into the journal between the expected
	// sequence read and the conditional insert of the first commit attempt
	rivalAuthorID := GivenUniqueID(t)
	rival := ToStorable(t, FixtureAuthorRegistered(rivalAuthorID, fakeClock))
	st.db = &racingDBAdapter{DBAdapter: st.db, rawDB: db, rival: rival}

	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)

	// act
	result, err := st.Commit(
		ctxWithTimeout,
		ToStorable(t, FixtureNoteCreated(noteID, authorID, fakeClock.Add(time.Second))),
	)

	// assert
	assert.NoError(t, err, "the lost race should be retried internally")
	assert.Equal(t, uint(2), result.SequenceNumber, "the retried commit should append after the rival event")
	assert.Equal(t, 1, result.MutationsApplied)

	events, maxSequenceNumber, queryErr := st.Query(ctxWithTimeout, store.BuildEventFilter().MatchingAnyEvent())
	assert.NoError(t, queryErr)
	assert.Len(t, events, 2)
	assert.Equal(t, store.MaxSequenceNumberUint(2), maxSequenceNumber)
	assert.Equal(t, AuthorRegisteredEventType, events[0].EventType, "the rival event should hold the lower sequence number")
	assert.Equal(t, NoteCreatedEventType, events[1].EventType)

	assert.True(t,
		testHandler.HasInfoLogWithMessage("store operation: concurrency conflict detected").
			WithExpectedEvents().
			WithRowsAffected().
			WithExpectedSequence().
			Assert(), "should log the lost race with its diagnostic attributes",
	)
	assert.True(t, metricsCollector.HasCounterRecordForMetric("eventstore_concurrency_conflicts_total").
		WithOperation("commit").
		WithConflictType("concurrency").
		Assert(), "should count the concurrency conflict")
	assert.True(t, metricsCollector.HasCounterRecordForMetric(store.RetriesMetric).
		WithLabel("operation_type", "commit").
		WithLabel("error_type", "concurrency_conflict").
		Assert(), "should count the retry attempt")
	assert.True(t, metricsCollector.HasDurationRecordForMetric(store.RetryDelayMetric).
		WithLabel("operation_type", "commit").
		Assert(), "should record the backoff delay before the retry")
	assert.True(t, metricsCollector.HasDurationRecordForMetric("eventstore_commit_duration_seconds").
		WithOperation("commit").
		WithStatus("success").
		Assert(), "should record the overall commit as a success")
}

func Test_BuildCommitQuery_When_TheExpectedSequenceIsStale_AffectsNoRows(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := config.SQLiteSQLDBTestConfig(config.SQLiteInMemoryDSN())
	defer func() { _ = db.Close() }()

	st, createErr := NewStoreFromSQLDB(db, NotesSchema(t))
	assert.NoError(t, createErr, "error creating store")
	defer func() { _ = st.Close() }()

	fakeClock := time.Unix(0, 0).UTC()
	noteID := GivenUniqueID(t)
	authorID := GivenUniqueID(t)

	// arrange - the journal holds one event, so MAX(sequence_number) is 1
	_, commitErr := st.Commit(ctxWithTimeout, ToStorable(t, FixtureNoteCreated(noteID, authorID, fakeClock)))
	assert.NoError(t, commitErr)

	staleEvent := ToStorable(t, FixtureNoteUpdated(noteID, fakeClock.Add(time.Second)))

	// act - execute the conditional insert built against a stale expected sequence
	sqlQuery, buildErr := st.buildCommitQuery(store.StorableEvents{staleEvent}, 0)
	assert.NoError(t, buildErr)

	execResult, execErr := st.db.Exec(ctxWithTimeout, sqlQuery)

	// assert
	assert.NoError(t, execErr, "losing the concurrency check is not a database error")
	rowsAffected, rowsErr := execResult.RowsAffected()
	assert.NoError(t, rowsErr)
	assert.Equal(t, int64(0), rowsAffected, "a stale expected sequence must not append")

	events, _, queryErr := st.Query(ctxWithTimeout, store.BuildEventFilter().MatchingAnyEvent())
	assert.NoError(t, queryErr)
	assert.Len(t, events, 1, "the journal should be unchanged")

	// act - the same insert built against the current sequence appends
	freshQuery, freshBuildErr := st.buildCommitQuery(store.StorableEvents{staleEvent}, 1)
	assert.NoError(t, freshBuildErr)

	freshResult, freshExecErr := st.db.Exec(ctxWithTimeout, freshQuery)

	// assert
	assert.NoError(t, freshExecErr)
	freshRowsAffected, freshRowsErr := freshResult.RowsAffected()
	assert.NoError(t, freshRowsErr)
	assert.Equal(t, int64(1), freshRowsAffected, "the current expected sequence should append exactly one row")
}
