package schema

import (
	"errors"
	"time"
)

var ErrEmptyMaterializerEventName = errors.New("materializer event name must not be empty")
var ErrNilMaterializerFunc = errors.New("materializer apply function must not be nil")

// MutationOp enumerates the table mutations a materializer can produce.
type MutationOp int

const (
	MutationInsert MutationOp = iota
	MutationUpdate
	MutationDelete
)

// String provides a string representation of MutationOp for diagnostics.
func (op MutationOp) String() string {
	switch op {
	case MutationInsert:
		return "insert"
	case MutationUpdate:
		return "update"
	case MutationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Mutation describes one table mutation produced by a materializer.
// Engines translate mutations into their own SQL statements.
//
// While its properties are exported, a Mutation should only be constructed
// with the supplied factory methods InsertInto, UpdateOf and DeleteFrom.
type Mutation struct {
	Table  string
	Op     MutationOp
	Values map[string]any
	Where  map[string]any
}

// InsertInto builds an insert Mutation for the given table and values.
func InsertInto(table string, values map[string]any) Mutation {
	return Mutation{Table: table, Op: MutationInsert, Values: values}
}

// UpdateOf builds an update Mutation setting values on rows matching where.
func UpdateOf(table string, values map[string]any, where map[string]any) Mutation {
	return Mutation{Table: table, Op: MutationUpdate, Values: values, Where: where}
}

// DeleteFrom builds a delete Mutation removing rows matching where.
func DeleteFrom(table string, where map[string]any) Mutation {
	return Mutation{Table: table, Op: MutationDelete, Where: where}
}

// AppliedEvent is what a materializer receives for each committed event:
// the event name, its position in the journal, and the decoded payload.
type AppliedEvent struct {
	Name           string
	SequenceNumber uint
	OccurredAt     time.Time
	Payload        map[string]any
}

// ApplyFunc maps a committed event to zero or more table mutations.
type ApplyFunc func(event AppliedEvent) ([]Mutation, error)

// Materializer binds an event name to the function materializing it.
//
// While its properties are exported, a Materializer should only be
// constructed with the supplied factory method BuildMaterializer.
type Materializer struct {
	EventName string
	Apply     ApplyFunc
}

// BuildMaterializer is a factory method for Materializer.
//
// Returns an error if the event name is empty or the apply function is nil.
func BuildMaterializer(eventName string, apply ApplyFunc) (Materializer, error) {
	if eventName == "" {
		return Materializer{}, ErrEmptyMaterializerEventName
	}

	if apply == nil {
		return Materializer{}, ErrNilMaterializerFunc
	}

	return Materializer{
		EventName: eventName,
		Apply:     apply,
	}, nil
}
