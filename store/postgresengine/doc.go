// Package postgresengine provides the PostgreSQL implementation of the
// eventlite store.
//
// This package persists the event journal and the schema's materialized
// tables in a PostgreSQL database, supporting multiple database adapters
// (pgx.Pool, sql.DB, sqlx.DB) with atomic operations and concurrency control.
//
// Key features:
//   - Factories for pgx pools (with optional read replica), sql.DB, and sqlx.DB
//   - Atomic event commits with concurrency conflict detection and retry
//   - Payload validation against the schema's event definitions on commit
//   - Materializer mutations applied in the commit transaction
//   - Live table subscriptions with snapshot-then-updates delivery
//   - Dynamic event stream filtering with jsonb containment predicates
//   - Replica read routing controlled by the context's consistency marker
//
// Usage examples:
//
//	// Create a store from a pgx pool
//	st, _ := postgresengine.NewStoreFromPGXPool(pool, compiledSchema)
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
//	// Query the journal from a replica when staleness is acceptable
//	ctx = store.WithEventualConsistency(ctx)
//	events, maxSeq, _ := st.Query(ctx, store.BuildEventFilter().MatchingAnyEvent())
package postgresengine
