package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/eventlite-io/eventlite/store/postgresengine"
	"github.com/eventlite-io/eventlite/testutil/fixtures"
	"github.com/eventlite-io/eventlite/testutil/postgresengine/config"
)

// Adapter type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// SkipWithoutPostgres skips the test when no test database is configured.
func SkipWithoutPostgres(t testing.TB) {
	if config.PostgresDSN() == "" {
		t.Skip("set EVENTLITE_POSTGRES_DSN to run PostgreSQL store tests")
	}
}

// SkipWithoutPostgresReplica skips the test when no replica database is configured.
func SkipWithoutPostgresReplica(t testing.TB) {
	SkipWithoutPostgres(t)

	if config.PostgresReplicaDSN() == "" {
		t.Skip("set EVENTLITE_POSTGRES_REPLICA_DSN to run PostgreSQL replica tests")
	}
}

// Wrapper interface to abstract over different adapter types
type Wrapper interface {
	GetStore() *postgresengine.Store
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool        *pgxpool.Pool
	replicaPool *pgxpool.Pool
	st          *postgresengine.Store
}

func (e *PGXPoolWrapper) GetStore() *postgresengine.Store {
	return e.st
}

func (e *PGXPoolWrapper) Close() {
	_ = e.st.Close() // ignore error
	e.pool.Close()

	if e.replicaPool != nil {
		e.replicaPool.Close()
	}
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db *sql.DB
	st *postgresengine.Store
}

func (e *SQLDBWrapper) GetStore() *postgresengine.Store {
	return e.st
}

func (e *SQLDBWrapper) Close() {
	_ = e.st.Close() // ignore error
	_ = e.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db *sqlx.DB
	st *postgresengine.Store
}

func (e *SQLXWrapper) GetStore() *postgresengine.Store {
	return e.st
}

func (e *SQLXWrapper) Close() {
	_ = e.st.Close() // ignore error
	_ = e.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the appropriate wrapper on the test
// database with the notes fixture schema, based on the ADAPTER_TYPE
// environment variable. Skips the test when no test database is configured.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	SkipWithoutPostgres(t)

	adapterTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch adapterTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
		assert.NoError(t, err, "error connecting to DB pool in test setup")

		st, err := postgresengine.NewStoreFromPGXPool(connPool, fixtures.NotesSchema(t), options...)
		assert.NoError(t, err, "error creating store")

		return &PGXPoolWrapper{pool: connPool, st: st}

	case typeSQLDB:
		db := config.PostgresSQLDBTestConfig()

		st, err := postgresengine.NewStoreFromSQLDB(db, fixtures.NotesSchema(t), options...)
		assert.NoError(t, err, "error creating store")

		return &SQLDBWrapper{db: db, st: st}

	case typeSQLXDB:
		db := config.PostgresSQLXTestConfig()

		st, err := postgresengine.NewStoreFromSQLX(db, fixtures.NotesSchema(t), options...)
		assert.NoError(t, err, "error creating store")

		return &SQLXWrapper{db: db, st: st}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterTypeFromEnv))
	}
}

// CreateReplicaWrapperWithTestConfig creates a pgx pool wrapper with both a
// primary and a replica pool, regardless of ADAPTER_TYPE. Skips the test
// when no replica database is configured.
func CreateReplicaWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	SkipWithoutPostgresReplica(t)

	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	assert.NoError(t, err, "error connecting to DB pool in test setup")

	replicaPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolReplicaTestConfig())
	assert.NoError(t, err, "error connecting to replica DB pool in test setup")

	st, err := postgresengine.NewStoreFromPGXPoolAndReplica(connPool, replicaPool, fixtures.NotesSchema(t), options...)
	assert.NoError(t, err, "error creating store")

	return &PGXPoolWrapper{pool: connPool, replicaPool: replicaPool, st: st}
}

// CleanUp clears the journal and all materialized tables for the given wrapper.
func CleanUp(t testing.TB, wrapper Wrapper) {
	statements := []string{
		"TRUNCATE TABLE events RESTART IDENTITY",
		"TRUNCATE TABLE notes",
		"TRUNCATE TABLE authors",
	}

	for _, statement := range statements {
		switch e := wrapper.(type) {
		case *PGXPoolWrapper:
			_, err := e.pool.Exec(context.Background(), statement)
			assert.NoError(t, err, "error cleaning up the test database")

		case *SQLDBWrapper:
			_, err := e.db.Exec(statement)
			assert.NoError(t, err, "error cleaning up the test database")

		case *SQLXWrapper:
			_, err := e.db.Exec(statement)
			assert.NoError(t, err, "error cleaning up the test database")

		default:
			panic(fmt.Sprintf("unsupported wrapper type: %T", e))
		}
	}
}

// CountJournalRows returns the number of rows in the events journal for the given wrapper.
func CountJournalRows(t testing.TB, wrapper Wrapper) int {
	var cnt int
	var err error

	switch e := wrapper.(type) {
	case *PGXPoolWrapper:
		row := e.pool.QueryRow(context.Background(), `SELECT count(*) FROM events`)
		err = row.Scan(&cnt)

	case *SQLDBWrapper:
		row := e.db.QueryRow(`SELECT count(*) FROM events`)
		err = row.Scan(&cnt)

	case *SQLXWrapper:
		row := e.db.QueryRow(`SELECT count(*) FROM events`)
		err = row.Scan(&cnt)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", e))
	}

	assert.NoError(t, err, "error in arranging test data")
	return cnt
}

// InsertRivalEvent journals one event through the raw connection, bypassing
// the store, the way a rival writer sharing the journal would.
func InsertRivalEvent(t testing.TB, wrapper Wrapper, eventType string, payloadJSON, metadataJSON string) {
	const statement = `INSERT INTO events (event_type, occurred_at, payload, metadata) VALUES ($1, now(), $2, $3)`

	var err error

	switch e := wrapper.(type) {
	case *PGXPoolWrapper:
		_, err = e.pool.Exec(context.Background(), statement, eventType, payloadJSON, metadataJSON)

	case *SQLDBWrapper:
		_, err = e.db.Exec(statement, eventType, payloadJSON, metadataJSON)

	case *SQLXWrapper:
		_, err = e.db.Exec(statement, eventType, payloadJSON, metadataJSON)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", e))
	}

	assert.NoError(t, err, "error in arranging test data")
}
