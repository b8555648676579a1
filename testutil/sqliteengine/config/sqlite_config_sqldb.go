package config

import (
	"context"
	"database/sql"
	"log"

	_ "modernc.org/sqlite" // sqlite driver
)

// SQLiteSQLDBTestConfig creates a configured *sql.DB for the given test DSN.
func SQLiteSQLDBTestConfig(dsn string) *sql.DB {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatal("Failed to open database connection, error: ", err)
	}

	// A single connection serializes writes for the optimistic concurrency
	// check and keeps in-memory databases alive between statements.
	db.SetMaxOpenConns(1)

	// Test the connection
	if pingErr := db.PingContext(context.Background()); pingErr != nil {
		log.Fatal("Failed to ping database, error: ", pingErr)
	}

	return db
}
