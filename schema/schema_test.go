package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventlite-io/eventlite/schema"
)

// stubState implements schema.StateProvider with controllable registries.
type stubState struct {
	tables        []schema.TableDef
	materializers map[string]schema.ApplyFunc
	compiled      bool
}

func (s stubState) StateTables() []schema.TableDef { return s.tables }

func (s stubState) MaterializerFor(eventName string) (schema.ApplyFunc, bool) {
	apply, ok := s.materializers[eventName]
	return apply, ok
}

func (s stubState) Compiled() bool { return s.compiled }

func Test_BuildEventDef(t *testing.T) {
	def, err := schema.BuildEventDef("v1.NoteCreated", `{id: string}`)

	require.NoError(t, err)
	assert.Equal(t, "v1.NoteCreated", def.Name)
	assert.Equal(t, `{id: string}`, def.PayloadSchema)
	assert.True(t, def.Synced, "events should be synced by default")
}

func Test_BuildEventDef_WithEmptyName(t *testing.T) {
	_, err := schema.BuildEventDef("", `{id: string}`)
	assert.ErrorIs(t, err, schema.ErrEmptyEventDefName)
}

func Test_BuildEventDef_WithInvalidPayloadSchema(t *testing.T) {
	_, err := schema.BuildEventDef("v1.NoteCreated", `{`)
	assert.ErrorIs(t, err, schema.ErrInvalidPayloadSchema)
}

func Test_BuildEventDef_AsClientOnly(t *testing.T) {
	def, err := schema.BuildEventDef("v1.UIStateChanged", `{panel: string}`, schema.AsClientOnly())

	require.NoError(t, err)
	assert.False(t, def.Synced)
}

func Test_ValidatePayload(t *testing.T) {
	def, err := schema.BuildEventDef("v1.NoteCreated", `{
	id:   string
	text: string
}`)
	require.NoError(t, err)

	assert.NoError(t, schema.ValidatePayload(def, []byte(`{"id": "note-1", "text": "lorem"}`)))
}

func Test_ValidatePayload_WithTypeConflict(t *testing.T) {
	def, err := schema.BuildEventDef("v1.NoteCreated", `{
	id:   string
	text: string
}`)
	require.NoError(t, err)

	validateErr := schema.ValidatePayload(def, []byte(`{"id": 42, "text": "lorem"}`))
	assert.ErrorIs(t, validateErr, schema.ErrPayloadSchemaViolation)
}

func Test_ValidatePayload_WithUnknownField(t *testing.T) {
	def, err := schema.BuildEventDef("v1.NoteCreated", `{id: string}`)
	require.NoError(t, err)

	// Open structs accept unknown fields.
	assert.NoError(t, schema.ValidatePayload(def, []byte(`{"id": "note-1", "color": "red"}`)))
}

func Test_ValidatePayload_WithClosedSchema(t *testing.T) {
	def, err := schema.BuildEventDef("v1.NoteCreated", `close({id: string})`)
	require.NoError(t, err)

	assert.NoError(t, schema.ValidatePayload(def, []byte(`{"id": "note-1"}`)))

	validateErr := schema.ValidatePayload(def, []byte(`{"id": "note-1", "color": "red"}`))
	assert.ErrorIs(t, validateErr, schema.ErrPayloadSchemaViolation)
}

func Test_BuildColumnDef(t *testing.T) {
	column, err := schema.BuildColumnDef("id", schema.ColumnTypeText, schema.WithPrimaryKey())

	require.NoError(t, err)
	assert.Equal(t, "id", column.Name)
	assert.Equal(t, schema.ColumnTypeText, column.Type)
	assert.True(t, column.PrimaryKey)
	assert.False(t, column.Nullable)
	assert.Nil(t, column.Default)
}

func Test_BuildColumnDef_WithOptions(t *testing.T) {
	column, err := schema.BuildColumnDef("archived", schema.ColumnTypeBoolean,
		schema.WithNullable(), schema.WithDefaultValue(false))

	require.NoError(t, err)
	assert.True(t, column.Nullable)
	assert.Equal(t, false, column.Default)
}

func Test_BuildColumnDef_WithEmptyName(t *testing.T) {
	_, err := schema.BuildColumnDef("", schema.ColumnTypeText)
	assert.ErrorIs(t, err, schema.ErrEmptyColumnDefName)
}

func Test_BuildColumnDef_WithUnknownType(t *testing.T) {
	_, err := schema.BuildColumnDef("id", schema.ColumnType(99))
	assert.ErrorIs(t, err, schema.ErrUnknownColumnType)
}

func Test_BuildTableDef(t *testing.T) {
	id := mustColumn(t, "id", schema.ColumnTypeText, schema.WithPrimaryKey())
	text := mustColumn(t, "text", schema.ColumnTypeText)

	table, err := schema.BuildTableDef("notes", []schema.ColumnDef{id, text})

	require.NoError(t, err)
	assert.Equal(t, "notes", table.Name)
	assert.Equal(t, []string{"id", "text"}, table.ColumnNames())
}

func Test_BuildTableDef_WithEmptyName(t *testing.T) {
	id := mustColumn(t, "id", schema.ColumnTypeText)

	_, err := schema.BuildTableDef("", []schema.ColumnDef{id})
	assert.ErrorIs(t, err, schema.ErrEmptyTableDefName)
}

func Test_BuildTableDef_WithoutColumns(t *testing.T) {
	_, err := schema.BuildTableDef("notes", nil)
	assert.ErrorIs(t, err, schema.ErrTableWithoutColumns)
}

func Test_BuildTableDef_WithDuplicateColumn(t *testing.T) {
	first := mustColumn(t, "id", schema.ColumnTypeText)
	second := mustColumn(t, "id", schema.ColumnTypeInteger)

	_, err := schema.BuildTableDef("notes", []schema.ColumnDef{first, second})
	assert.ErrorIs(t, err, schema.ErrDuplicateColumn)
}

func Test_BuildTableDef_WithMultiplePrimaryKeys(t *testing.T) {
	first := mustColumn(t, "id", schema.ColumnTypeText, schema.WithPrimaryKey())
	second := mustColumn(t, "other_id", schema.ColumnTypeText, schema.WithPrimaryKey())

	_, err := schema.BuildTableDef("notes", []schema.ColumnDef{first, second})
	assert.ErrorIs(t, err, schema.ErrMultiplePrimaryKeys)
}

func Test_BuildMaterializer(t *testing.T) {
	apply := func(_ schema.AppliedEvent) ([]schema.Mutation, error) { return nil, nil }

	materializer, err := schema.BuildMaterializer("v1.NoteCreated", apply)

	require.NoError(t, err)
	assert.Equal(t, "v1.NoteCreated", materializer.EventName)
	assert.NotNil(t, materializer.Apply)
}

func Test_BuildMaterializer_WithEmptyEventName(t *testing.T) {
	apply := func(_ schema.AppliedEvent) ([]schema.Mutation, error) { return nil, nil }

	_, err := schema.BuildMaterializer("", apply)
	assert.ErrorIs(t, err, schema.ErrEmptyMaterializerEventName)
}

func Test_BuildMaterializer_WithNilApplyFunc(t *testing.T) {
	_, err := schema.BuildMaterializer("v1.NoteCreated", nil)
	assert.ErrorIs(t, err, schema.ErrNilMaterializerFunc)
}

func Test_MutationFactories(t *testing.T) {
	insert := schema.InsertInto("notes", map[string]any{"id": "note-1"})
	assert.Equal(t, schema.MutationInsert, insert.Op)
	assert.Equal(t, "notes", insert.Table)
	assert.Equal(t, map[string]any{"id": "note-1"}, insert.Values)
	assert.Nil(t, insert.Where)

	update := schema.UpdateOf("notes", map[string]any{"text": "new"}, map[string]any{"id": "note-1"})
	assert.Equal(t, schema.MutationUpdate, update.Op)
	assert.Equal(t, map[string]any{"text": "new"}, update.Values)
	assert.Equal(t, map[string]any{"id": "note-1"}, update.Where)

	remove := schema.DeleteFrom("notes", map[string]any{"id": "note-1"})
	assert.Equal(t, schema.MutationDelete, remove.Op)
	assert.Nil(t, remove.Values)
	assert.Equal(t, map[string]any{"id": "note-1"}, remove.Where)
}

func Test_Build_WithoutEvents(t *testing.T) {
	_, err := schema.Build(schema.Definition{})
	assert.ErrorIs(t, err, schema.ErrSchemaWithoutEvents)
}

func Test_Build_WithEmptyEventName(t *testing.T) {
	_, err := schema.Build(schema.Definition{Events: []schema.EventDef{{}}})
	assert.ErrorIs(t, err, schema.ErrEmptyEventDefName)
}

func Test_Build_WithDuplicateEventDef(t *testing.T) {
	def, err := schema.BuildEventDef("v1.NoteCreated", `{id: string}`)
	require.NoError(t, err)

	_, buildErr := schema.Build(schema.Definition{Events: []schema.EventDef{def, def}})
	assert.ErrorIs(t, buildErr, schema.ErrDuplicateEventDef)
	assert.ErrorContains(t, buildErr, "v1.NoteCreated")
}

func Test_Build_WithoutState_WarnsAndRegistersNoTables(t *testing.T) {
	def, err := schema.BuildEventDef("v1.NoteCreated", `{id: string}`)
	require.NoError(t, err)

	compiled, buildErr := schema.Build(schema.Definition{Events: []schema.EventDef{def}})

	require.NoError(t, buildErr)
	require.Len(t, compiled.Warnings(), 1)
	assert.Contains(t, compiled.Warnings()[0], "built without a state")
	assert.Empty(t, compiled.TableNames())

	_, found := compiled.MaterializerFor("v1.NoteCreated")
	assert.False(t, found)
}

func Test_Build_WithUncompiledState_WarnsAndIgnoresIt(t *testing.T) {
	def, err := schema.BuildEventDef("v1.NoteCreated", `{id: string}`)
	require.NoError(t, err)

	table, tableErr := schema.BuildTableDef("notes", []schema.ColumnDef{mustColumn(t, "id", schema.ColumnTypeText)})
	require.NoError(t, tableErr)

	uncompiled := stubState{tables: []schema.TableDef{table}, compiled: false}

	compiled, buildErr := schema.Build(schema.Definition{
		Events: []schema.EventDef{def},
		State:  uncompiled,
	})

	require.NoError(t, buildErr)
	require.Len(t, compiled.Warnings(), 1)
	assert.Contains(t, compiled.Warnings()[0], "state was not constructed with a state factory")
	assert.Empty(t, compiled.TableNames(), "tables of an uncompiled state must be ignored")
	assert.False(t, compiled.HasTable("notes"))
}

func Test_Build_WithCompiledState(t *testing.T) {
	noteCreated, err := schema.BuildEventDef("v1.NoteCreated", `{id: string}`)
	require.NoError(t, err)
	authorRegistered, err := schema.BuildEventDef("v1.AuthorRegistered", `{id: string}`)
	require.NoError(t, err)

	notes, err := schema.BuildTableDef("notes", []schema.ColumnDef{mustColumn(t, "id", schema.ColumnTypeText)})
	require.NoError(t, err)
	authors, err := schema.BuildTableDef("authors", []schema.ColumnDef{mustColumn(t, "id", schema.ColumnTypeText)})
	require.NoError(t, err)

	apply := func(_ schema.AppliedEvent) ([]schema.Mutation, error) { return nil, nil }

	state := stubState{
		tables:        []schema.TableDef{notes, authors},
		materializers: map[string]schema.ApplyFunc{"v1.NoteCreated": apply},
		compiled:      true,
	}

	compiled, buildErr := schema.Build(schema.Definition{
		Events: []schema.EventDef{noteCreated, authorRegistered},
		State:  state,
	})

	require.NoError(t, buildErr)
	assert.Empty(t, compiled.Warnings())
	assert.Equal(t, []string{"v1.AuthorRegistered", "v1.NoteCreated"}, compiled.EventNames())
	assert.Equal(t, []string{"authors", "notes"}, compiled.TableNames())
	assert.True(t, compiled.HasTable("notes"))
	assert.False(t, compiled.HasTable("ledger"))

	eventDef, found := compiled.EventDefOf("v1.NoteCreated")
	assert.True(t, found)
	assert.Equal(t, "v1.NoteCreated", eventDef.Name)

	tableDef, found := compiled.TableDefOf("authors")
	assert.True(t, found)
	assert.Equal(t, "authors", tableDef.Name)

	tables := compiled.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "authors", tables[0].Name)
	assert.Equal(t, "notes", tables[1].Name)

	_, found = compiled.MaterializerFor("v1.NoteCreated")
	assert.True(t, found)
	_, found = compiled.MaterializerFor("v1.AuthorRegistered")
	assert.False(t, found)
}

func mustColumn(t *testing.T, name string, columnType schema.ColumnType, options ...schema.ColumnDefOption) schema.ColumnDef {
	t.Helper()

	column, err := schema.BuildColumnDef(name, columnType, options...)
	require.NoError(t, err)

	return column
}
