package sqlitewrapper

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/eventlite-io/eventlite/store/sqliteengine"
	"github.com/eventlite-io/eventlite/testutil/fixtures"
	"github.com/eventlite-io/eventlite/testutil/sqliteengine/config"
)

// Adapter type constants
const (
	typeSQLDB  = "sql.db"
	typeSQLXDB = "sqlx.db"
)

// Wrapper interface to abstract over different adapter types
type Wrapper interface {
	GetStore() *sqliteengine.Store
	Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db *sql.DB
	st *sqliteengine.Store
}

func (e *SQLDBWrapper) GetStore() *sqliteengine.Store {
	return e.st
}

func (e *SQLDBWrapper) Close() {
	_ = e.st.Close() // ignore error
	_ = e.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db *sqlx.DB
	st *sqliteengine.Store
}

func (e *SQLXWrapper) GetStore() *sqliteengine.Store {
	return e.st
}

func (e *SQLXWrapper) Close() {
	_ = e.st.Close() // ignore error
	_ = e.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the appropriate wrapper on a private
// in-memory database, based on the ADAPTER_TYPE environment variable.
func CreateWrapperWithTestConfig(t testing.TB, options ...sqliteengine.Option) Wrapper {
	return createWrapper(t, config.SQLiteInMemoryDSN(), options...)
}

// CreateFileWrapperWithTestConfig creates the appropriate wrapper on a database
// file at the given path, based on the ADAPTER_TYPE environment variable.
func CreateFileWrapperWithTestConfig(t testing.TB, path string, options ...sqliteengine.Option) Wrapper {
	return createWrapper(t, config.SQLiteFileDSN(path), options...)
}

func createWrapper(t testing.TB, dsn string, options ...sqliteengine.Option) Wrapper {
	adapterTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch adapterTypeFromEnv {
	case typeSQLDB, "":
		db := config.SQLiteSQLDBTestConfig(dsn)

		st, err := sqliteengine.NewStoreFromSQLDB(db, fixtures.NotesSchema(t), options...)
		assert.NoError(t, err, "error creating store")

		return &SQLDBWrapper{db: db, st: st}

	case typeSQLXDB:
		db := config.SQLiteSQLXTestConfig(dsn)

		st, err := sqliteengine.NewStoreFromSQLX(db, fixtures.NotesSchema(t), options...)
		assert.NoError(t, err, "error creating store")

		return &SQLXWrapper{db: db, st: st}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterTypeFromEnv))
	}
}

// CleanUp clears the journal and all materialized tables for the given wrapper.
func CleanUp(t testing.TB, wrapper Wrapper) {
	statements := []string{
		"DELETE FROM events",
		"DELETE FROM notes",
		"DELETE FROM authors",
		"DELETE FROM sqlite_sequence WHERE name = 'events'",
	}

	for _, statement := range statements {
		switch e := wrapper.(type) {
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
