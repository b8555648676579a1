package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

const defaultTimeout = 10 * time.Second

// Config holds the command line configuration of the repro script.
type Config struct {
	DBPath    string
	Timeout   time.Duration
	OpenStore bool
	Verbose   bool
	NoColor   bool
}

// parseFlags parses command line flags and returns the configuration.
func parseFlags() Config {
	var (
		dbPath    = flag.String("db", "", "SQLite database path (default: a fresh temporary file)")
		timeout   = flag.Duration("timeout", defaultTimeout, "How long the raced store opening may take")
		openStore = flag.Bool("store", true, "Open a store and run the subscribe/commit checks")
		verbose   = flag.Bool("verbose", false, "Log the store's SQL and operations via zerolog")
		noColor   = flag.Bool("no-color", false, "Disable colored output")
	)

	flag.Parse()

	return Config{
		DBPath:    *dbPath,
		Timeout:   *timeout,
		OpenStore: *openStore,
		Verbose:   *verbose,
		NoColor:   *noColor,
	}
}

// tempDatabasePath creates a fresh temporary file to host the default database.
func tempDatabasePath() (string, error) {
	file, createErr := os.CreateTemp("", "schema-repro-*.db")
	if createErr != nil {
		return "", fmt.Errorf("creating a temporary database file failed: %w", createErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return "", fmt.Errorf("closing the temporary database file failed: %w", closeErr)
	}

	return file.Name(), nil
}
