// Package main reproduces a reported defect against the eventlite schema
// and store API, then retracts it.
//
// The script describes one event, one table and one materializer, compiles
// them into a schema twice (first from a state literal assembled by hand,
// exactly as reported, then from a state made with sqlitestate.MakeState),
// opens a SQLite store for each build with a timeout guard, and runs the
// same subscribe/commit checks on both. The final report documents the root
// cause: the hand-assembled state carries no compiled registries, so the
// misbehavior is incorrect API usage, not a store bug.
//
// Flags:
//
//	-db        SQLite database path (default: a fresh temporary file)
//	-timeout   how long the raced store opening may take (default 10s)
//	-store     open a store and run the subscribe/commit checks (default true)
//	-verbose   log the store's SQL and operations via zerolog
//	-no-color  disable colored output
package main
