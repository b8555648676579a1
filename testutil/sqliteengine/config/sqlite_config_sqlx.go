package config

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

// SQLiteSQLXTestConfig creates a configured *sqlx.DB for the given test DSN.
func SQLiteSQLXTestConfig(dsn string) *sqlx.DB {
	db, err := sqlx.Open("sqlite", dsn)
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
