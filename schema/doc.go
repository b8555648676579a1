// Package schema provides the definition types and the compilation step for
// an eventlite store: event definitions, table definitions, materializers,
// and the Schema factory that ties them together.
//
// A Schema is built from a Definition holding event definitions and a state
// value produced by a state factory (see the sqlitestate package). Event
// payloads are constrained by CUE schemas which are compiled once at
// definition time and enforced on every commit.
//
// Key types:
//   - EventDef: a named, schema-validated fact that can be committed
//   - TableDef / ColumnDef: the shape of a materialized table
//   - Materializer: maps a committed event to table mutations
//   - Schema: the compiled aggregate consumed when opening a store
//
// Common usage pattern:
//
//	noteCreated, err := schema.BuildEventDef("v1.NoteCreated", `{id: string, text: string}`)
//	if err != nil {
//		// handle error
//	}
//
//	id, _ := schema.BuildColumnDef("id", schema.ColumnTypeText, schema.WithPrimaryKey())
//	text, _ := schema.BuildColumnDef("text", schema.ColumnTypeText)
//	notes, _ := schema.BuildTableDef("notes", []schema.ColumnDef{id, text})
//
//	onNoteCreated, _ := schema.BuildMaterializer("v1.NoteCreated", func(e schema.AppliedEvent) ([]schema.Mutation, error) {
//		return []schema.Mutation{schema.InsertInto("notes", e.Payload)}, nil
//	})
//
//	state, err := sqlitestate.MakeState(sqlitestate.Input{
//		Tables:        []schema.TableDef{notes},
//		Materializers: []schema.Materializer{onNoteCreated},
//	})
//
//	compiled, err := schema.Build(schema.Definition{
//		Events: []schema.EventDef{noteCreated},
//		State:  state,
//	})
package schema
