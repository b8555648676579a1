// Package postgreswrapper provides adapter-agnostic wrappers for PostgreSQL
// store testing.
//
// The ADAPTER_TYPE environment variable selects which database adapter the
// wrapper builds the store with (pgx.pool, sql.db, sqlx.db), so the same test
// suite exercises every supported adapter. Tests skip when no test database
// is configured through EVENTLITE_POSTGRES_DSN.
package postgreswrapper
