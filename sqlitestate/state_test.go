package sqlitestate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventlite-io/eventlite/schema"
	"github.com/eventlite-io/eventlite/sqlitestate"
)

func Test_MakeState(t *testing.T) {
	notes := mustTable(t, "notes")
	authors := mustTable(t, "authors")
	materializer := mustMaterializer(t, "v1.NoteCreated")

	state, err := sqlitestate.MakeState(sqlitestate.Input{
		Tables:        []schema.TableDef{notes, authors},
		Materializers: []schema.Materializer{materializer},
	})

	require.NoError(t, err)
	assert.True(t, state.Compiled())

	tables := state.StateTables()
	require.Len(t, tables, 2)
	assert.Equal(t, "notes", tables[0].Name, "tables should keep their input order")
	assert.Equal(t, "authors", tables[1].Name)

	_, found := state.MaterializerFor("v1.NoteCreated")
	assert.True(t, found)
	_, found = state.MaterializerFor("v1.NoteDeleted")
	assert.False(t, found)
}

func Test_MakeState_WithoutTables(t *testing.T) {
	_, err := sqlitestate.MakeState(sqlitestate.Input{})
	assert.ErrorIs(t, err, sqlitestate.ErrStateWithoutTables)
}

func Test_MakeState_WithDuplicateTable(t *testing.T) {
	first := mustTable(t, "notes")
	second := mustTable(t, "notes")

	_, err := sqlitestate.MakeState(sqlitestate.Input{Tables: []schema.TableDef{first, second}})
	assert.ErrorIs(t, err, sqlitestate.ErrDuplicateTable)
	assert.ErrorContains(t, err, "notes")
}

func Test_MakeState_WithDuplicateMaterializer(t *testing.T) {
	notes := mustTable(t, "notes")
	first := mustMaterializer(t, "v1.NoteCreated")
	second := mustMaterializer(t, "v1.NoteCreated")

	_, err := sqlitestate.MakeState(sqlitestate.Input{
		Tables:        []schema.TableDef{notes},
		Materializers: []schema.Materializer{first, second},
	})
	assert.ErrorIs(t, err, sqlitestate.ErrDuplicateMaterializer)
	assert.ErrorContains(t, err, "v1.NoteCreated")
}

func Test_State_BuiltByHand_CarriesNoRegistries(t *testing.T) {
	notes := mustTable(t, "notes")
	materializer := mustMaterializer(t, "v1.NoteCreated")

	// A literal looks complete but skips the factory's compilation.
	state := sqlitestate.State{
		Tables:        []schema.TableDef{notes},
		Materializers: []schema.Materializer{materializer},
	}

	assert.False(t, state.Compiled())
	assert.Nil(t, state.StateTables())
	assert.Nil(t, state.CreatePlans())

	_, found := state.MaterializerFor("v1.NoteCreated")
	assert.False(t, found)
}

func Test_State_CreatePlans(t *testing.T) {
	id, err := schema.BuildColumnDef("id", schema.ColumnTypeText, schema.WithPrimaryKey())
	require.NoError(t, err)
	text, err := schema.BuildColumnDef("text", schema.ColumnTypeText)
	require.NoError(t, err)
	archived, err := schema.BuildColumnDef("archived", schema.ColumnTypeBoolean,
		schema.WithNullable(), schema.WithDefaultValue(false))
	require.NoError(t, err)

	notes, err := schema.BuildTableDef("notes", []schema.ColumnDef{id, text, archived})
	require.NoError(t, err)

	state, err := sqlitestate.MakeState(sqlitestate.Input{Tables: []schema.TableDef{notes}})
	require.NoError(t, err)

	plans := state.CreatePlans()
	require.Len(t, plans, 1)
	assert.Equal(t, "notes", plans[0].Name)
	require.Len(t, plans[0].Columns, 3)

	assert.Equal(t, "id", plans[0].Columns[0].Name)
	assert.True(t, plans[0].Columns[0].PrimaryKey)
	assert.False(t, plans[0].Columns[0].NotNull, "the primary key column does not need an explicit NOT NULL")

	assert.Equal(t, "text", plans[0].Columns[1].Name)
	assert.True(t, plans[0].Columns[1].NotNull)

	assert.Equal(t, "archived", plans[0].Columns[2].Name)
	assert.False(t, plans[0].Columns[2].NotNull)
	assert.Equal(t, false, plans[0].Columns[2].Default)
}

func Test_State_CompilesIntoASchema(t *testing.T) {
	noteCreated, err := schema.BuildEventDef("v1.NoteCreated", `{id: string}`)
	require.NoError(t, err)

	notes := mustTable(t, "notes")
	materializer := mustMaterializer(t, "v1.NoteCreated")

	state, err := sqlitestate.MakeState(sqlitestate.Input{
		Tables:        []schema.TableDef{notes},
		Materializers: []schema.Materializer{materializer},
	})
	require.NoError(t, err)

	compiled, buildErr := schema.Build(schema.Definition{
		Events: []schema.EventDef{noteCreated},
		State:  state,
	})

	require.NoError(t, buildErr)
	assert.Empty(t, compiled.Warnings())
	assert.Equal(t, []string{"notes"}, compiled.TableNames())

	_, found := compiled.MaterializerFor("v1.NoteCreated")
	assert.True(t, found)
}

func mustTable(t *testing.T, name string) schema.TableDef {
	t.Helper()

	id, err := schema.BuildColumnDef("id", schema.ColumnTypeText, schema.WithPrimaryKey())
	require.NoError(t, err)

	table, err := schema.BuildTableDef(name, []schema.ColumnDef{id})
	require.NoError(t, err)

	return table
}

func mustMaterializer(t *testing.T, eventName string) schema.Materializer {
	t.Helper()

	materializer, err := schema.BuildMaterializer(eventName, func(_ schema.AppliedEvent) ([]schema.Mutation, error) {
		return nil, nil
	})
	require.NoError(t, err)

	return materializer
}
