// Package store provides the core abstractions and types shared by the
// eventlite store engines: storable and committed events, the event filter
// builder, event metadata, subscriptions, observability ports, and the
// retry helper for optimistic concurrency conflicts.
//
// Engines live in subpackages (sqliteengine, postgresengine) and consume a
// compiled schema (see the schema package). This package stays agnostic of
// any particular database.
//
// Key types:
//   - StorableEvent: an event that can be committed to a store
//   - CommittedEvent: an event read back from the journal with its position
//   - Filter: criteria for querying the event journal
//   - Subscription / TableUpdate: live table query results
//
// Common usage pattern:
//
//	filter := store.BuildEventFilter().
//		Matching().
//		AnyEventTypeOf("v1.NoteCreated").
//		AndAnyPredicateOf(store.P("id", noteID)).
//		Finalize()
//
//	events, maxSeq, err := st.Query(ctx, filter)
//	if err != nil {
//		// handle error
//	}
package store
