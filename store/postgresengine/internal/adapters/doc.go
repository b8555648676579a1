// Package adapters provides database adapter implementations for the
// PostgreSQL store engine.
//
// This package implements the adapter pattern to support multiple PostgreSQL
// database libraries: pgx.Pool, sql.DB, and sqlx.DB. All adapters provide
// equivalent functionality through a common DBAdapter interface, allowing the
// store engine to work seamlessly with any supported database connection type.
//
// The pgx adapter additionally supports an optional read replica pool. Reads
// are routed to the replica only when the caller's context carries the
// eventual consistency marker; everything else goes to the primary.
package adapters
