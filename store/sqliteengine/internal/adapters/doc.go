// Package adapters provides database adapter implementations for the SQLite store engine.
//
// This package implements the adapter pattern to support multiple SQLite database
// libraries: sql.DB and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, allowing the store engine to work seamlessly with any
// supported database connection type.
//
// The adapters handle the specifics of each database library while presenting a
// unified interface for query execution, transactions, and result handling.
package adapters
