package sqlitestate

import (
	"errors"
	"fmt"

	"github.com/eventlite-io/eventlite/schema"
)

var ErrStateWithoutTables = errors.New("state must have at least one table definition")
var ErrDuplicateTable = errors.New("duplicate table name in state")
var ErrDuplicateMaterializer = errors.New("duplicate materializer for event name in state")

// Input holds the table definitions and materializers to compile into a State.
type Input struct {
	Tables        []schema.TableDef
	Materializers []schema.Materializer
}

// State is the compiled SQLite-modelled state of a schema.
//
// Tables and Materializers echo the factory input for inspection. The
// registries that schema compilation and the engines consume live in an
// unexported compiled part that only MakeState populates. A State must
// therefore be constructed with MakeState; a hand-assembled literal carries
// no registries and registers nothing when passed to schema.Build.
type State struct {
	Tables        []schema.TableDef
	Materializers []schema.Materializer

	compiled *compiledState
}

// compiledState holds the registries derived from the factory input.
type compiledState struct {
	tableIndex        map[string]schema.TableDef
	materializerIndex map[string]schema.ApplyFunc
	plans             []TablePlan
}

// MakeState is the factory method for State.
//
// It validates the input (at least one table, unique table names, at most
// one materializer per event name) and builds the registries: a table
// index, dialect-neutral DDL plans, and a materializer index keyed by
// event name.
func MakeState(in Input) (State, error) {
	if len(in.Tables) == 0 {
		return State{}, ErrStateWithoutTables
	}

	tableIndex := make(map[string]schema.TableDef, len(in.Tables))
	plans := make([]TablePlan, 0, len(in.Tables))

	for _, tableDef := range in.Tables {
		if _, duplicate := tableIndex[tableDef.Name]; duplicate {
			return State{}, errors.Join(ErrDuplicateTable, fmt.Errorf("table: %s", tableDef.Name))
		}

		tableIndex[tableDef.Name] = tableDef
		plans = append(plans, buildTablePlan(tableDef))
	}

	materializerIndex := make(map[string]schema.ApplyFunc, len(in.Materializers))

	for _, materializer := range in.Materializers {
		if _, duplicate := materializerIndex[materializer.EventName]; duplicate {
			return State{}, errors.Join(ErrDuplicateMaterializer, fmt.Errorf("event: %s", materializer.EventName))
		}

		materializerIndex[materializer.EventName] = materializer.Apply
	}

	return State{
		Tables:        in.Tables,
		Materializers: in.Materializers,
		compiled: &compiledState{
			tableIndex:        tableIndex,
			materializerIndex: materializerIndex,
			plans:             plans,
		},
	}, nil
}

// StateTables returns the table definitions from the compiled registry.
// It is empty for a State that was not constructed with MakeState.
func (s State) StateTables() []schema.TableDef {
	if s.compiled == nil {
		return nil
	}

	tables := make([]schema.TableDef, 0, len(s.compiled.plans))
	for _, plan := range s.compiled.plans {
		tables = append(tables, s.compiled.tableIndex[plan.Name])
	}

	return tables
}

// MaterializerFor returns the materializer function registered for the given
// event name. It always reports false for a State that was not constructed
// with MakeState.
func (s State) MaterializerFor(eventName string) (schema.ApplyFunc, bool) {
	if s.compiled == nil {
		return nil, false
	}

	apply, ok := s.compiled.materializerIndex[eventName]

	return apply, ok
}

// Compiled reports whether this State was constructed with MakeState.
func (s State) Compiled() bool {
	return s.compiled != nil
}

// CreatePlans returns the dialect-neutral DDL plans for all tables, in the
// order the tables were supplied to MakeState. It is empty for a State that
// was not constructed with MakeState.
func (s State) CreatePlans() []TablePlan {
	if s.compiled == nil {
		return nil
	}

	plans := make([]TablePlan, len(s.compiled.plans))
	copy(plans, s.compiled.plans)

	return plans
}

// Ensure State implements schema.StateProvider.
var _ schema.StateProvider = State{}
