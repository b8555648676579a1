// Package config provides PostgreSQL database configuration for store testing.
//
// This package contains factory functions for creating database connections
// using the store's supported PostgreSQL adapters (pgx.Pool, sql.DB, sqlx.DB).
// The test database is addressed through the EVENTLITE_POSTGRES_DSN
// environment variable; tests that need a live database skip when it is
// unset. An optional read replica is addressed through
// EVENTLITE_POSTGRES_REPLICA_DSN.
package config
