package config

import "os"

// PostgresDSN returns the DSN of the test database from the
// EVENTLITE_POSTGRES_DSN environment variable, or an empty string when no
// test database is configured.
func PostgresDSN() string {
	return os.Getenv("EVENTLITE_POSTGRES_DSN")
}

// PostgresReplicaDSN returns the DSN of an optional read replica from the
// EVENTLITE_POSTGRES_REPLICA_DSN environment variable, or an empty string
// when no replica is configured.
func PostgresReplicaDSN() string {
	return os.Getenv("EVENTLITE_POSTGRES_REPLICA_DSN")
}
