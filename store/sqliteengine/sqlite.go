package sqliteengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite" // driver import

	"github.com/eventlite-io/eventlite/schema"
	"github.com/eventlite-io/eventlite/store"
	"github.com/eventlite-io/eventlite/store/sqliteengine/internal/adapters"
)

const (
	defaultEventTableName          = "events"
	logMsgBuildSelectQueryFailed   = "failed to build select query"
	logMsgDBQueryFailed            = "database query execution failed"
	logMsgCloseRowsFailed          = "failed to close database rows"
	logMsgScanRowFailed            = "failed to scan database row"
	logMsgBuildStorableEventFailed = "failed to build storable event from database row"
	logMsgBuildInsertQueryFailed   = "failed to build insert query"
	logMsgDBExecFailed             = "database execution failed during event append"
	logMsgRowsAffectedFailed       = "failed to get rows affected count"
	logMsgBeginTxFailed            = "failed to begin transaction"
	logMsgCommitTxFailed           = "failed to commit transaction"
	logMsgRollbackFailed           = "failed to roll back transaction"
	logMsgEventNotRegistered       = "event type is not registered in the schema"
	logMsgPayloadInvalid           = "event payload does not match its schema"
	logMsgMaterializerFailed       = "failed to apply materializer"
	logMsgMutationFailed           = "failed to execute table mutation"
	logMsgPublishRowsFailed        = "failed to load table rows for subscription update"
	logMsgQueryCompleted           = "query completed"
	logMsgEventsCommitted          = "events committed"
	logMsgSubscriptionOpened       = "subscription opened"
	logMsgConcurrencyConflict      = "concurrency conflict detected"
	logMsgSQLExecuted              = "executed sql for: "
	logMsgOperation                = "store operation: "
	logAttrError                   = "error"
	logAttrQuery                   = "query"
	logAttrEventType               = "event_type"
	logAttrEventCount              = "event_count"
	logAttrMutationCount           = "mutation_count"
	logAttrTable                   = "table"
	logAttrDurationMS              = "duration_ms"
	logAttrExpectedEvents          = "expected_events"
	logAttrRowsAffected            = "rows_affected"
	logAttrExpectedSequence        = "expected_sequence"
	logActionQuery                 = "query"
	logActionCommit                = "commit"
	colEventType                   = "event_type"
	colOccurredAt                  = "occurred_at"
	colPayload                     = "payload"
	colMetadata                    = "metadata"
	colSequenceNumber              = "sequence_number"
	cteContext                     = "context"
	cteVals                        = "vals"
	dialectSQLite                  = "sqlite3"
	driverNameSQLite               = "sqlite"
	aliasMaxSeq                    = "max_seq"
)

// sqliteTimeFormat is fixed width so stored timestamps compare correctly as
// TEXT. StorableEvent already truncates occurred-at values to microseconds.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000Z"

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
	queryDuration     = time.Duration
)

type queryResultRow struct {
	eventType      string
	occurredAt     string
	payload        []byte
	metadata       []byte
	sequenceNumber uint
}

// Store is the embedded SQLite implementation of the eventlite store.
// It owns the event journal, the schema's materialized tables, and the
// in-process subscription hub.
type Store struct {
	db               adapters.DBAdapter
	ownedDB          *sql.DB
	schema           schema.Schema
	hub              *store.Hub
	eventTableName   string
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
	closed           atomic.Bool
}

// Open creates a Store on the SQLite database at path, creating the file when
// necessary. The connection uses WAL journaling, NORMAL synchronous mode, a
// 5s busy timeout, enforced foreign keys, and a single connection. The journal
// and the schema's table definitions are migrated before the Store is returned.
//
// The special path ":memory:" opens an in-memory database.
func Open(path string, s schema.Schema, options ...Option) (*Store, error) {
	db, openErr := sql.Open(driverNameSQLite, buildDSN(path))
	if openErr != nil {
		return nil, errors.Join(store.ErrOpeningDatabaseFailed, openErr)
	}

	// The journal append's optimistic concurrency check assumes writes are
	// serialized; a single connection also keeps in-memory databases alive.
	db.SetMaxOpenConns(1)

	st, newErr := NewStoreFromSQLDB(db, s, options...)
	if newErr != nil {
		_ = db.Close()
		return nil, newErr
	}

	st.ownedDB = db

	return st, nil
}

// NewStoreFromSQLDB creates a Store using a sql.DB with optional configuration.
// The caller keeps ownership of the connection; Close will not close it.
func NewStoreFromSQLDB(db *sql.DB, s schema.Schema, options ...Option) (*Store, error) {
	if db == nil {
		return nil, store.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), s, options...)
}

// NewStoreFromSQLX creates a Store using a sqlx.DB with optional configuration.
// The caller keeps ownership of the connection; Close will not close it.
func NewStoreFromSQLX(db *sqlx.DB, s schema.Schema, options ...Option) (*Store, error) {
	if db == nil {
		return nil, store.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), s, options...)
}

func newStore(db adapters.DBAdapter, s schema.Schema, options ...Option) (*Store, error) {
	if len(s.EventNames()) == 0 {
		return nil, store.ErrNilSchema
	}

	st := &Store{
		db:             db,
		schema:         s,
		hub:            store.NewHub(),
		eventTableName: defaultEventTableName,
	}

	for _, option := range options {
		if err := option(st); err != nil {
			return nil, err
		}
	}

	if migrateErr := st.migrate(context.Background()); migrateErr != nil {
		return nil, migrateErr
	}

	return st, nil
}

func buildDSN(path string) string {
	pragmas := "_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(ON)"

	return fmt.Sprintf("file:%s?%s", path, pragmas)
}

// Query retrieves events from the journal based on the provided store.Filter
// criteria and returns them as store.CommittedEvents as well as the
// MaxSequenceNumberUint for this "dynamic event stream" at the time of the query.
func (cs *Store) Query(ctx context.Context, filter store.Filter) (
	store.CommittedEvents,
	store.MaxSequenceNumberUint,
	error,
) {

	var empty store.CommittedEvents

	if cs.closed.Load() {
		return empty, 0, store.ErrStoreClosed
	}

	tracing, ctx := cs.startQueryTracing(ctx)
	metrics := cs.startQueryMetrics(ctx)

	sqlQuery, buildQueryErr := cs.buildSelectQuery(filter)
	if buildQueryErr != nil {
		cs.logError(ctx, logMsgBuildSelectQueryFailed, buildQueryErr)
		tracing.finishError(errorTypeBuildQuery, 0)
		metrics.recordError(errorTypeBuildQuery, 0)

		return empty, 0, buildQueryErr
	}

	start := time.Now()
	rows, queryErr := cs.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	cs.logQueryWithDuration(ctx, sqlQuery, logActionQuery, duration)

	if queryErr != nil {
		cs.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		tracing.finishError(errorTypeQueryDB, duration)
		metrics.recordError(errorTypeQueryDB, duration)

		return empty, 0, errors.Join(store.ErrQueryingEventsFailed, queryErr)
	}
	defer cs.closeRows(ctx, rows)

	eventStream, maxSequenceNumber, scanErr := cs.processQueryResults(ctx, rows)
	if scanErr != nil {
		tracing.finishError(errorTypeScanRows, duration)
		metrics.recordError(errorTypeScanRows, duration)

		return empty, 0, scanErr
	}

	cs.logOperation(ctx, logMsgQueryCompleted,
		logAttrEventCount, len(eventStream),
		logAttrDurationMS, cs.toMilliseconds(duration))

	tracing.finishSuccess(len(eventStream), maxSequenceNumber, duration)
	metrics.recordSuccess(len(eventStream), duration)

	return eventStream, maxSequenceNumber, nil
}

// closeRows safely closes database rows and logs any errors.
func (cs *Store) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		cs.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

// processQueryResults converts journal rows into committed events.
func (cs *Store) processQueryResults(ctx context.Context, rows adapters.DBRows) (
	store.CommittedEvents,
	store.MaxSequenceNumberUint,
	error,
) {

	var empty store.CommittedEvents
	result := queryResultRow{}
	eventStream := make(store.CommittedEvents, 0)
	maxSequenceNumber := store.MaxSequenceNumberUint(0)

	for rows.Next() {
		rowScanErr := rows.Scan(&result.eventType, &result.occurredAt, &result.payload, &result.metadata, &result.sequenceNumber)
		if rowScanErr != nil {
			cs.logError(ctx, logMsgScanRowFailed, rowScanErr)

			return empty, 0, errors.Join(store.ErrScanningDBRowFailed, rowScanErr)
		}

		occurredAt, parseErr := time.Parse(sqliteTimeFormat, result.occurredAt)
		if parseErr != nil {
			cs.logError(ctx, logMsgScanRowFailed, parseErr, logAttrEventType, result.eventType)

			return empty, 0, errors.Join(store.ErrScanningDBRowFailed, parseErr)
		}

		event, buildStorableErr := store.BuildStorableEvent(result.eventType, occurredAt, result.payload, result.metadata)
		if buildStorableErr != nil {
			cs.logError(ctx, logMsgBuildStorableEventFailed, buildStorableErr, logAttrEventType, result.eventType)

			return empty, 0, errors.Join(store.ErrBuildingStorableEventFailed, buildStorableErr)
		}

		eventStream = append(eventStream, store.CommittedEvent{
			StorableEvent:  event,
			SequenceNumber: result.sequenceNumber,
		})
		maxSequenceNumber = result.sequenceNumber
	}

	return eventStream, maxSequenceNumber, nil
}

// Commit validates, appends, and materializes one or multiple store.StorableEvent(s)
// atomically, respecting the journal's optimistic concurrency constraint.
//
// Each event must be registered in the schema and its payload must satisfy the
// event definition's payload schema. The append and all materializer mutations
// run in one transaction; a lost concurrency race is retried internally with
// exponential backoff before surfacing store.ErrConcurrencyConflict.
//
// Events without a registered materializer are journaled with zero mutations,
// which is a valid outcome, not an error.
//
// In event-sourced applications, one command should typically only produce one
// event. Only supply multiple events if you need them committed atomically!
func (cs *Store) Commit(
	ctx context.Context,
	event store.StorableEvent,
	additionalEvents ...store.StorableEvent,
) (store.CommitResult, error) {

	var empty store.CommitResult

	if cs.closed.Load() {
		return empty, store.ErrStoreClosed
	}

	allEvents := store.StorableEvents{event}
	allEvents = append(allEvents, additionalEvents...)

	if validateErr := cs.validateEvents(ctx, allEvents); validateErr != nil {
		return empty, validateErr
	}

	tracing, ctx := cs.startCommitTracing(ctx, allEvents)
	metrics := cs.startCommitMetrics(ctx)

	var retryOptions []store.RetryOption
	if cs.metricsCollector != nil {
		retryOptions = append(retryOptions, store.WithRetryMetrics(cs.metricsCollector, operationCommit))
	}

	start := time.Now()

	var result store.CommitResult
	var touchedTables []string

	_, commitErr := store.RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		var onceErr error
		result, touchedTables, onceErr = cs.commitOnce(ctx, allEvents)

		if errors.Is(onceErr, store.ErrConcurrencyConflict) {
			metrics.recordConcurrencyConflict()
		}

		return onceErr
	}, retryOptions...)

	duration := time.Since(start)

	if commitErr != nil {
		tracing.finishError(errorTypeFor(commitErr), duration)
		metrics.recordError(errorTypeFor(commitErr), duration)

		return empty, commitErr
	}

	cs.publishTableUpdates(ctx, touchedTables, result.SequenceNumber)

	cs.logOperation(ctx, logMsgEventsCommitted,
		logAttrEventCount, len(allEvents),
		logAttrMutationCount, result.MutationsApplied,
		logAttrDurationMS, cs.toMilliseconds(duration))

	tracing.finishSuccess(len(allEvents), duration)
	metrics.recordSuccess(len(allEvents), duration)

	return result, nil
}

// validateEvents checks registration and payload schema for every event.
func (cs *Store) validateEvents(ctx context.Context, allEvents store.StorableEvents) error {
	for _, event := range allEvents {
		eventDef, registered := cs.schema.EventDefOf(event.EventType)
		if !registered {
			err := errors.Join(store.ErrEventNotRegistered, fmt.Errorf("event type: %s", event.EventType))
			cs.logError(ctx, logMsgEventNotRegistered, err, logAttrEventType, event.EventType)

			return err
		}

		if validateErr := schema.ValidatePayload(eventDef, event.PayloadJSON); validateErr != nil {
			cs.logError(ctx, logMsgPayloadInvalid, validateErr, logAttrEventType, event.EventType)

			return validateErr
		}
	}

	return nil
}

// commitOnce runs one append attempt: transaction, conditional insert,
// materializer mutations, commit. Callers retry on ErrConcurrencyConflict.
func (cs *Store) commitOnce(ctx context.Context, allEvents store.StorableEvents) (
	store.CommitResult,
	[]string,
	error,
) {

	var empty store.CommitResult

	// The expected sequence number is read outside the transaction on purpose.
	// The transaction's first statement must be the conditional insert, so it
	// takes the write lock before establishing a read snapshot; a concurrent
	// commit then surfaces as zero rows affected instead of a busy error.
	expectedMaxSequenceNumber, seqErr := cs.maxSequenceNumber(ctx, cs.db)
	if seqErr != nil {
		return empty, nil, seqErr
	}

	sqlQuery, buildQueryErr := cs.buildCommitQuery(allEvents, expectedMaxSequenceNumber)
	if buildQueryErr != nil {
		cs.logError(ctx, logMsgBuildInsertQueryFailed, buildQueryErr, logAttrEventCount, len(allEvents))

		return empty, nil, buildQueryErr
	}

	tx, beginErr := cs.db.Begin(ctx)
	if beginErr != nil {
		cs.logError(ctx, logMsgBeginTxFailed, beginErr)

		return empty, nil, errors.Join(store.ErrOpeningTransactionFailed, beginErr)
	}

	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			cs.logWarn(ctx, logMsgRollbackFailed, logAttrError, rollbackErr.Error())
		}
	}()

	execStart := time.Now()
	execResult, execErr := tx.Exec(ctx, sqlQuery)
	cs.logQueryWithDuration(ctx, sqlQuery, logActionCommit, time.Since(execStart))

	if execErr != nil {
		cs.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)

		return empty, nil, errors.Join(store.ErrAppendingEventFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := execResult.RowsAffected()
	if rowsAffectedErr != nil {
		cs.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)

		return empty, nil, errors.Join(store.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	if rowsAffected < rowsAffectedInt64(len(allEvents)) {
		cs.logOperation(ctx, logMsgConcurrencyConflict,
			logAttrExpectedEvents, len(allEvents),
			logAttrRowsAffected, rowsAffected,
			logAttrExpectedSequence, expectedMaxSequenceNumber)

		return empty, nil, store.ErrConcurrencyConflict
	}

	mutationsApplied, touchedTables, materializeErr := cs.applyMaterializers(ctx, tx, allEvents, expectedMaxSequenceNumber)
	if materializeErr != nil {
		return empty, nil, materializeErr
	}

	if commitTxErr := tx.Commit(); commitTxErr != nil {
		cs.logError(ctx, logMsgCommitTxFailed, commitTxErr)

		return empty, nil, errors.Join(store.ErrCommittingTransactionFailed, commitTxErr)
	}

	return store.CommitResult{
		SequenceNumber:   expectedMaxSequenceNumber + uint(len(allEvents)),
		MutationsApplied: mutationsApplied,
	}, touchedTables, nil
}

// applyMaterializers runs the registered materializer for each event inside
// the commit transaction and executes the produced mutations.
func (cs *Store) applyMaterializers(
	ctx context.Context,
	tx adapters.DBTx,
	allEvents store.StorableEvents,
	baseSequenceNumber uint,
) (int, []string, error) {

	mutationsApplied := 0
	touched := make(map[string]struct{})

	for i, event := range allEvents {
		apply, registered := cs.schema.MaterializerFor(event.EventType)
		if !registered {
			continue
		}

		payload := make(map[string]any)
		if unmarshalErr := jsoniter.ConfigFastest.Unmarshal(event.PayloadJSON, &payload); unmarshalErr != nil {
			cs.logError(ctx, logMsgMaterializerFailed, unmarshalErr, logAttrEventType, event.EventType)

			return 0, nil, errors.Join(store.ErrApplyingMaterializerFailed, unmarshalErr)
		}

		mutations, applyErr := apply(schema.AppliedEvent{
			Name:           event.EventType,
			SequenceNumber: baseSequenceNumber + uint(i) + 1,
			OccurredAt:     event.OccurredAt,
			Payload:        payload,
		})
		if applyErr != nil {
			cs.logError(ctx, logMsgMaterializerFailed, applyErr, logAttrEventType, event.EventType)

			return 0, nil, errors.Join(store.ErrApplyingMaterializerFailed, applyErr)
		}

		for _, mutation := range mutations {
			if !cs.schema.HasTable(mutation.Table) {
				err := errors.Join(store.ErrTableNotRegistered, fmt.Errorf("table: %s", mutation.Table))
				cs.logError(ctx, logMsgMutationFailed, err, logAttrTable, mutation.Table)

				return 0, nil, err
			}

			mutationSQL, buildErr := buildMutationQuery(mutation)
			if buildErr != nil {
				cs.logError(ctx, logMsgMutationFailed, buildErr, logAttrTable, mutation.Table)

				return 0, nil, buildErr
			}

			if _, mutateErr := tx.Exec(ctx, mutationSQL); mutateErr != nil {
				cs.logError(ctx, logMsgMutationFailed, mutateErr, logAttrTable, mutation.Table, logAttrQuery, mutationSQL)

				return 0, nil, errors.Join(store.ErrExecutingMutationFailed, mutateErr)
			}

			mutationsApplied++
			touched[mutation.Table] = struct{}{}
		}
	}

	touchedTables := make([]string, 0, len(touched))
	for table := range touched {
		touchedTables = append(touchedTables, table)
	}
	sort.Strings(touchedTables)

	return mutationsApplied, touchedTables, nil
}

// publishTableUpdates loads the fresh rows of every touched table and pushes
// them to the hub. Failures only cost subscribers an update, never the commit.
func (cs *Store) publishTableUpdates(ctx context.Context, touchedTables []string, sequenceNumber uint) {
	for _, table := range touchedTables {
		rows, rowsErr := cs.queryTableRows(ctx, table)
		if rowsErr != nil {
			cs.logWarn(ctx, logMsgPublishRowsFailed, logAttrError, rowsErr.Error(), logAttrTable, table)
			continue
		}

		cs.hub.Publish(store.TableUpdate{
			Table:          table,
			Rows:           rows,
			SequenceNumber: sequenceNumber,
		})
	}
}

// Subscribe opens a live subscription on a materialized table. The
// subscription immediately receives a snapshot of the table's current rows,
// followed by an update after every commit that touches the table.
//
// The row query options shape the snapshot only; live updates always carry
// the whole table in deterministic order.
//
// Returns store.ErrTableNotRegistered when the schema registers no such
// table, which happens for every table when the schema was compiled from a
// state that was not built with the state factory.
func (cs *Store) Subscribe(ctx context.Context, table string, options ...RowQueryOption) (*store.Subscription, error) {
	if cs.closed.Load() {
		return nil, store.ErrStoreClosed
	}

	if !cs.schema.HasTable(table) {
		return nil, errors.Join(store.ErrTableNotRegistered, fmt.Errorf("table: %s", table))
	}

	subscription, subscribeErr := cs.hub.Subscribe(table)
	if subscribeErr != nil {
		return nil, subscribeErr
	}

	rows, rowsErr := cs.queryTableRows(ctx, table, options...)
	if rowsErr != nil {
		subscription.Close()

		return nil, rowsErr
	}

	currentMaxSequenceNumber, seqErr := cs.maxSequenceNumber(ctx, cs.db)
	if seqErr != nil {
		subscription.Close()

		return nil, seqErr
	}

	cs.hub.Deliver(subscription, store.TableUpdate{
		Table:          table,
		Rows:           rows,
		SequenceNumber: currentMaxSequenceNumber,
	})

	cs.logOperation(ctx, logMsgSubscriptionOpened, logAttrTable, table)

	return subscription, nil
}

// Close closes the subscription hub and, for stores created with Open, the
// underlying database. Later calls return store.ErrStoreClosed.
func (cs *Store) Close() error {
	if !cs.closed.CompareAndSwap(false, true) {
		return store.ErrStoreClosed
	}

	cs.hub.Close()

	if cs.ownedDB != nil {
		if closeErr := cs.ownedDB.Close(); closeErr != nil {
			return closeErr
		}
	}

	return nil
}

// rowQuerier covers both the adapter and an open transaction.
type rowQuerier interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
}

// maxSequenceNumber reads the journal's current maximum sequence number.
func (cs *Store) maxSequenceNumber(ctx context.Context, q rowQuerier) (uint, error) {
	selectStmt := goqu.Dialect(dialectSQLite).
		From(cs.eventTableName).
		Select(goqu.COALESCE(goqu.MAX(colSequenceNumber), 0).As(aliasMaxSeq))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return 0, errors.Join(store.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := q.Query(ctx, sqlQuery)
	if queryErr != nil {
		cs.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)

		return 0, errors.Join(store.ErrQueryingEventsFailed, queryErr)
	}
	defer cs.closeRows(ctx, rows)

	maxSequenceNumber := uint(0)
	if rows.Next() {
		if scanErr := rows.Scan(&maxSequenceNumber); scanErr != nil {
			return 0, errors.Join(store.ErrScanningDBRowFailed, scanErr)
		}
	}

	return maxSequenceNumber, nil
}

// queryTableRows loads the rows of a materialized table as generic maps,
// ordered by the table's primary key (or first column) unless overridden.
func (cs *Store) queryTableRows(ctx context.Context, table string, options ...RowQueryOption) ([]map[string]any, error) {
	cfg := rowQueryConfig{}
	for _, option := range options {
		option(&cfg)
	}

	selectStmt := goqu.Dialect(dialectSQLite).From(table).Select(goqu.Star())

	for _, condition := range cfg.conditions {
		selectStmt = selectStmt.Where(goqu.Ex{condition.column: condition.value})
	}

	orderColumn := cfg.orderBy
	if orderColumn == "" {
		orderColumn = cs.defaultOrderColumn(table)
	}
	if orderColumn != "" {
		selectStmt = selectStmt.Order(goqu.I(orderColumn).Asc())
	}

	if cfg.limit > 0 {
		selectStmt = selectStmt.Limit(cfg.limit)
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(store.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := cs.db.Query(ctx, sqlQuery)
	if queryErr != nil {
		cs.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)

		return nil, errors.Join(store.ErrQueryingEventsFailed, queryErr)
	}
	defer cs.closeRows(ctx, rows)

	return scanRowsToMaps(rows)
}

// defaultOrderColumn picks the table's primary key column, falling back to
// the first column, so snapshots and updates are deterministically ordered.
func (cs *Store) defaultOrderColumn(table string) string {
	tableDef, registered := cs.schema.TableDefOf(table)
	if !registered || len(tableDef.Columns) == 0 {
		return ""
	}

	for _, column := range tableDef.Columns {
		if column.PrimaryKey {
			return column.Name
		}
	}

	return tableDef.Columns[0].Name
}

// scanRowsToMaps scans all rows into column-keyed maps, converting []byte
// values to strings for readability.
func scanRowsToMaps(rows adapters.DBRows) ([]map[string]any, error) {
	columns, columnsErr := rows.Columns()
	if columnsErr != nil {
		return nil, errors.Join(store.ErrScanningDBRowFailed, columnsErr)
	}

	result := make([]map[string]any, 0)

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if scanErr := rows.Scan(pointers...); scanErr != nil {
			return nil, errors.Join(store.ErrScanningDBRowFailed, scanErr)
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			if b, isBytes := values[i].([]byte); isBytes {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}

		result = append(result, row)
	}

	return result, nil
}

func (cs *Store) buildSelectQuery(filter store.Filter) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectSQLite).
		From(cs.eventTableName).
		Select(colEventType, colOccurredAt, colPayload, colMetadata, colSequenceNumber).
		Order(goqu.I(colSequenceNumber).Asc())

	selectStmt = cs.addWhereClause(filter, selectStmt)

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(store.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// buildCommitQuery builds the appropriate conditional insert for single or
// multiple events. The insert only affects rows while the journal's maximum
// sequence number still equals the expected one.
func (cs *Store) buildCommitQuery(
	allEvents store.StorableEvents,
	expectedMaxSequenceNumber uint,
) (sqlQueryString, error) {

	if len(allEvents) == 1 {
		return cs.buildInsertQueryForSingleEvent(allEvents[0], expectedMaxSequenceNumber)
	}

	return cs.buildInsertQueryForMultipleEvents(allEvents, expectedMaxSequenceNumber)
}

func (cs *Store) buildInsertQueryForSingleEvent(
	event store.StorableEvent,
	expectedMaxSequenceNumber uint,
) (sqlQueryString, error) {

	builder := goqu.Dialect(dialectSQLite)

	// Define the subquery for the CTE
	cteStmt := builder.
		From(cs.eventTableName).
		Select(goqu.MAX(colSequenceNumber).As(aliasMaxSeq))

	// Define the SELECT for the INSERT
	selectStmt := builder.
		From(cteContext).
		Select(
			goqu.V(event.EventType),
			goqu.V(event.OccurredAt.Format(sqliteTimeFormat)),
			goqu.V(string(event.PayloadJSON)),
			goqu.V(string(event.MetadataJSON))).
		Where(goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expectedMaxSequenceNumber)))

	// Finalize the full INSERT query
	insertStmt := builder.
		Insert(cs.eventTableName).
		Cols(colEventType, colOccurredAt, colPayload, colMetadata).
		FromQuery(selectStmt).
		With(cteContext, cteStmt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(store.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (cs *Store) buildInsertQueryForMultipleEvents(
	allEvents store.StorableEvents,
	expectedMaxSequenceNumber uint,
) (sqlQueryString, error) {

	builder := goqu.Dialect(dialectSQLite)

	// Define the subquery for the CTE
	cteStmt := builder.
		From(cs.eventTableName).
		Select(goqu.MAX(colSequenceNumber).As(aliasMaxSeq))

	// Create individual SELECT statements for each event
	unionStatements := make([]*goqu.SelectDataset, len(allEvents))
	for i, event := range allEvents {
		unionStatements[i] = builder.
			Select(
				goqu.V(event.EventType).As(colEventType),
				goqu.V(event.OccurredAt.Format(sqliteTimeFormat)).As(colOccurredAt),
				goqu.V(string(event.PayloadJSON)).As(colPayload),
				goqu.V(string(event.MetadataJSON)).As(colMetadata),
			)
	}

	// Combine all SELECT statements with UNION ALL
	valuesStmt := unionStatements[0]
	for i := 1; i < len(unionStatements); i++ {
		valuesStmt = valuesStmt.UnionAll(unionStatements[i])
	}

	// Finalize the full INSERT query
	valsEventType := fmt.Sprintf("%s.%s", cteVals, colEventType)
	valsOccurredAt := fmt.Sprintf("%s.%s", cteVals, colOccurredAt)
	valsPayload := fmt.Sprintf("%s.%s", cteVals, colPayload)
	valsMetadata := fmt.Sprintf("%s.%s", cteVals, colMetadata)

	insertStmt := builder.
		Insert(cs.eventTableName).
		Cols(colEventType, colOccurredAt, colPayload, colMetadata).
		With(cteContext, cteStmt).
		With(cteVals, valuesStmt).
		FromQuery(
			builder.From(cteContext, cteVals).
				Select(valsEventType, valsOccurredAt, valsPayload, valsMetadata).
				Where(goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expectedMaxSequenceNumber))),
		)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(store.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// buildMutationQuery renders a materializer mutation into SQL.
func buildMutationQuery(mutation schema.Mutation) (sqlQueryString, error) {
	builder := goqu.Dialect(dialectSQLite)

	var sqlQuery string
	var toSQLErr error

	switch mutation.Op {
	case schema.MutationInsert:
		sqlQuery, _, toSQLErr = builder.
			Insert(mutation.Table).
			Rows(goqu.Record(mutation.Values)).
			ToSQL()

	case schema.MutationUpdate:
		updateStmt := builder.Update(mutation.Table).Set(goqu.Record(mutation.Values))
		if len(mutation.Where) > 0 {
			updateStmt = updateStmt.Where(goqu.Ex(mutation.Where))
		}
		sqlQuery, _, toSQLErr = updateStmt.ToSQL()

	case schema.MutationDelete:
		deleteStmt := builder.Delete(mutation.Table)
		if len(mutation.Where) > 0 {
			deleteStmt = deleteStmt.Where(goqu.Ex(mutation.Where))
		}
		sqlQuery, _, toSQLErr = deleteStmt.ToSQL()

	default:
		return "", errors.Join(store.ErrBuildingQueryFailed, fmt.Errorf("unknown mutation op: %d", mutation.Op))
	}

	if toSQLErr != nil {
		return "", errors.Join(store.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (cs *Store) addWhereClause(filter store.Filter, selectStmt *goqu.SelectDataset) *goqu.SelectDataset {
	itemsExpressions := make([]goqu.Expression, 0)

	for _, item := range filter.Items() {
		eventTypeExpressions := make([]goqu.Expression, 0)
		predicateExpressions := make([]goqu.Expression, 0)

		for _, eventType := range item.EventTypes() {
			eventTypeExpressions = append(
				eventTypeExpressions,
				goqu.Ex{colEventType: eventType},
			)
		}

		// eventTypes must always be filtered with OR ;-)
		eventTypesExpressionList := goqu.Or(eventTypeExpressions...)

		for _, predicate := range item.Predicates() {
			predicateExpressions = append(
				predicateExpressions,
				goqu.L(
					fmt.Sprintf("json_extract(%s, ?)", colPayload),
					"$."+predicate.Key(),
				).Eq(predicate.Val()),
			)
		}

		var predicatesExpressionList exp.ExpressionList

		if item.AllPredicatesMustMatch() {
			predicatesExpressionList = goqu.And(predicateExpressions...)
		} else {
			predicatesExpressionList = goqu.Or(predicateExpressions...)
		}

		itemsExpressions = append(
			itemsExpressions,
			goqu.And(eventTypesExpressionList, predicatesExpressionList),
		)
	}

	boundaryExpressions := make([]goqu.Expression, 0)

	if !filter.OccurredFrom().IsZero() {
		boundaryExpressions = append(
			boundaryExpressions,
			goqu.C(colOccurredAt).Gte(filter.OccurredFrom().UTC().Format(sqliteTimeFormat)),
		)
	}

	if !filter.OccurredUntil().IsZero() {
		boundaryExpressions = append(
			boundaryExpressions,
			goqu.C(colOccurredAt).Lte(filter.OccurredUntil().UTC().Format(sqliteTimeFormat)),
		)
	}

	if filter.SequenceNumberHigherThan() > 0 {
		boundaryExpressions = append(
			boundaryExpressions,
			goqu.C(colSequenceNumber).Gt(filter.SequenceNumberHigherThan()),
		)
	}

	selectStmt = selectStmt.Where(
		goqu.And(
			goqu.Or(itemsExpressions...),
			goqu.And(boundaryExpressions...),
		),
	)

	return selectStmt
}
