// Package sqliteengine provides the embedded SQLite implementation of the
// eventlite store.
//
// This package persists the event journal and the schema's materialized
// tables in a single SQLite database, supporting multiple database adapters
// (sql.DB, sqlx.DB) with atomic operations and concurrency control.
//
// Key features:
//   - Convenience Open factory using modernc.org/sqlite (pure Go, no cgo)
//   - Atomic event commits with concurrency conflict detection and retry
//   - Payload validation against the schema's event definitions on commit
//   - Materializer mutations applied in the commit transaction
//   - Live table subscriptions with snapshot-then-updates delivery
//   - Dynamic event stream filtering with json_extract predicate support
//
// Usage examples:
//
//	// Open a store on a database file
//	st, _ := sqliteengine.Open("notes.db", compiledSchema)
//	defer st.Close()
//
//	// Subscribe to a materialized table
//	sub, _ := st.Subscribe(ctx, "notes")
//	defer sub.Close()
//
//	// Commit an event; materializers run in the same transaction
//	event, _ := store.BuildStorableEventWithEmptyMetadata(
//		"v1.NoteCreated", time.Now(), []byte(`{"id": "n-1", "text": "hello"}`))
//	result, _ := st.Commit(ctx, event)
//
//	// Query the journal
//	events, maxSeq, _ := st.Query(ctx, store.BuildEventFilter().MatchingAnyEvent())
package sqliteengine
