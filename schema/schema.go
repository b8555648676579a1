package schema

import (
	"errors"
	"fmt"
	"slices"
)

var ErrSchemaWithoutEvents = errors.New("schema definition must have at least one event definition")
var ErrDuplicateEventDef = errors.New("duplicate event definition name in schema definition")

const (
	warnNoState = "schema was built without a state; no tables or materializers are registered"
	warnStateNotCompiledFmt = "state was not constructed with a state factory (found %T); " +
		"its tables and materializers are ignored"
)

// StateProvider is what schema compilation needs from a state value.
// It is implemented by the state factories, e.g. sqlitestate.MakeState.
//
// StateTables and MaterializerFor must reflect the factory-compiled
// registries only; Compiled reports whether such registries exist.
type StateProvider interface {
	StateTables() []TableDef
	MaterializerFor(eventName string) (ApplyFunc, bool)
	Compiled() bool
}

// Definition is the input to Build: the event definitions and the state
// produced by a state factory.
type Definition struct {
	Events []EventDef
	State  StateProvider
}

// Schema is the compiled aggregate of event and table definitions, consumed
// when opening a store. It is immutable after Build and safe for concurrent
// reads.
type Schema struct {
	eventDefs  map[string]EventDef
	eventNames []string
	tableDefs  map[string]TableDef
	tableNames []string
	state      StateProvider
	warnings   []string
}

// Build compiles a Definition into a Schema.
//
// Event definitions are validated strictly: at least one is required and
// names must be unique. The state is treated leniently: a missing state or
// a state value that was not produced by a state factory does not fail the
// build; the schema compiles with an empty table registry and a warning.
// Inspect Warnings() after building to catch such wiring mistakes.
func Build(def Definition) (Schema, error) {
	if len(def.Events) == 0 {
		return Schema{}, ErrSchemaWithoutEvents
	}

	eventDefs := make(map[string]EventDef, len(def.Events))
	eventNames := make([]string, 0, len(def.Events))

	for _, eventDef := range def.Events {
		if eventDef.Name == "" {
			return Schema{}, ErrEmptyEventDefName
		}

		if _, duplicate := eventDefs[eventDef.Name]; duplicate {
			return Schema{}, errors.Join(ErrDuplicateEventDef, fmt.Errorf("event: %s", eventDef.Name))
		}

		eventDefs[eventDef.Name] = eventDef
		eventNames = append(eventNames, eventDef.Name)
	}

	slices.Sort(eventNames)

	compiled := Schema{
		eventDefs:  eventDefs,
		eventNames: eventNames,
		tableDefs:  make(map[string]TableDef),
		tableNames: make([]string, 0),
	}

	switch {
	case def.State == nil:
		compiled.warnings = append(compiled.warnings, warnNoState)

	case !def.State.Compiled():
		compiled.warnings = append(compiled.warnings, fmt.Sprintf(warnStateNotCompiledFmt, def.State))

	default:
		compiled.state = def.State
		for _, tableDef := range def.State.StateTables() {
			compiled.tableDefs[tableDef.Name] = tableDef
			compiled.tableNames = append(compiled.tableNames, tableDef.Name)
		}
		slices.Sort(compiled.tableNames)
	}

	return compiled, nil
}

// EventNames returns the registered event names in sorted order.
func (s Schema) EventNames() []string {
	return slices.Clone(s.eventNames)
}

// TableNames returns the registered table names in sorted order.
// It is empty when the schema was built without a factory-made state.
func (s Schema) TableNames() []string {
	return slices.Clone(s.tableNames)
}

// EventDefOf returns the event definition registered under the given name.
func (s Schema) EventDefOf(name string) (EventDef, bool) {
	def, ok := s.eventDefs[name]
	return def, ok
}

// HasTable reports whether a table with the given name is registered.
func (s Schema) HasTable(name string) bool {
	_, ok := s.tableDefs[name]
	return ok
}

// TableDefOf returns the table definition registered under the given name.
func (s Schema) TableDefOf(name string) (TableDef, bool) {
	def, ok := s.tableDefs[name]
	return def, ok
}

// Tables returns all registered table definitions, sorted by name.
func (s Schema) Tables() []TableDef {
	tables := make([]TableDef, 0, len(s.tableNames))
	for _, name := range s.tableNames {
		tables = append(tables, s.tableDefs[name])
	}

	return tables
}

// MaterializerFor returns the materializer function registered for the given
// event name, if any. It always reports false when the schema was built
// without a factory-made state.
func (s Schema) MaterializerFor(eventName string) (ApplyFunc, bool) {
	if s.state == nil {
		return nil, false
	}

	return s.state.MaterializerFor(eventName)
}

// Warnings returns the non-fatal findings collected during Build, in
// deterministic order. An empty result means the definition was fully wired.
func (s Schema) Warnings() []string {
	return slices.Clone(s.warnings)
}
