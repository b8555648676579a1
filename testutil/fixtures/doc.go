// Package fixtures contains a minimal note-taking domain for store testing.
//
// This package provides a small set of domain events (NoteCreated, NoteUpdated,
// NoteArchived, NoteDeleted, AuthorRegistered) together with the matching
// schema building blocks: CUE payload schemas, table definitions for the
// notes and authors tables, and the materializers that map committed events
// to table mutations.
//
// The events implement the DomainEvent interface and include serialization
// utilities (StorableEventFrom, StorableEventWithEmptyMetadataFrom) needed
// for store testing.
//
// This is testing infrastructure - not production domain code.
package fixtures
