package schema

import (
	"errors"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

var ErrEmptyEventDefName = errors.New("event definition name must not be empty")
var ErrInvalidPayloadSchema = errors.New("payload schema is not valid CUE")
var ErrPayloadSchemaViolation = errors.New("payload does not satisfy the event's payload schema")

// EventDefs is an alias type for a slice of EventDef.
type EventDefs = []EventDef

// EventDef describes a named, schema-validated fact that can be committed to a store.
//
// The payload schema is CUE source constraining the JSON payload of every
// committed event of this type. It is compiled once at definition time;
// engines enforce it on commit via ValidatePayload.
//
// While its properties are exported, an EventDef should only be constructed
// with the supplied factory method BuildEventDef.
type EventDef struct {
	Name          string
	PayloadSchema string
	Synced        bool

	compiled cue.Value
}

// EventDefOption defines a functional option for configuring an EventDef.
type EventDefOption func(*EventDef) error

// AsClientOnly marks the event as local to the defining client, excluding it
// from synchronization.
func AsClientOnly() EventDefOption {
	return func(def *EventDef) error {
		def.Synced = false
		return nil
	}
}

// BuildEventDef is a factory method for EventDef.
//
// The payloadSchema is compiled as CUE; open structs follow CUE semantics,
// so unknown payload fields are accepted unless the schema uses close().
// Returns an error if the name is empty or the schema does not compile.
func BuildEventDef(name string, payloadSchema string, options ...EventDefOption) (EventDef, error) {
	if name == "" {
		return EventDef{}, ErrEmptyEventDefName
	}

	compiled := cuecontext.New().CompileString(payloadSchema)
	if compileErr := compiled.Err(); compileErr != nil {
		return EventDef{}, errors.Join(ErrInvalidPayloadSchema, compileErr)
	}

	def := EventDef{
		Name:          name,
		PayloadSchema: payloadSchema,
		Synced:        true,
		compiled:      compiled,
	}

	for _, option := range options {
		if err := option(&def); err != nil {
			return EventDef{}, err
		}
	}

	return def, nil
}

// ValidatePayload checks the given JSON payload against the event's compiled
// payload schema. Returns ErrPayloadSchemaViolation joined with the CUE
// detail when the payload does not satisfy the schema.
func ValidatePayload(def EventDef, payloadJSON []byte) error {
	if validateErr := cuejson.Validate(payloadJSON, def.compiled); validateErr != nil {
		return errors.Join(ErrPayloadSchemaViolation, validateErr)
	}

	return nil
}
