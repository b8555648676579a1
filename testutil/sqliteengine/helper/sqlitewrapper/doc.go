// Package sqlitewrapper provides test utilities for abstracting over different SQLite database adapters.
//
// This package enables testing of the store implementation across multiple database drivers
// (sql.DB, sqlx.DB) using a common Wrapper interface. The specific adapter type is determined
// by the ADAPTER_TYPE environment variable, allowing the same test suite to run against
// different database implementations.
//
// Every wrapper owns a private database (in-memory by default), so tests get
// isolation by creating a fresh wrapper instead of truncating shared tables.
//
// Usage:
//
//	// Create wrapper for testing
//	wrapper := CreateWrapperWithTestConfig(t)
//	defer wrapper.Close()
//
//	// Use the store
//	store := wrapper.GetStore()
package sqlitewrapper
