// Package config provides SQLite database configuration for store testing.
//
// This package contains factory functions for creating database connections
// using the store's supported SQLite adapters (sql.DB, sqlx.DB) with
// pre-configured test DSNs. The DSNs carry the same pragma settings the
// engine's own Open uses, so stores built from raw connections behave
// identically in tests.
package config
