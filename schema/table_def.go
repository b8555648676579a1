package schema

import (
	"errors"
)

var ErrEmptyTableDefName = errors.New("table definition name must not be empty")
var ErrEmptyColumnDefName = errors.New("column definition name must not be empty")
var ErrUnknownColumnType = errors.New("unknown column type")
var ErrTableWithoutColumns = errors.New("table definition must have at least one column")
var ErrDuplicateColumn = errors.New("duplicate column name in table definition")
var ErrMultiplePrimaryKeys = errors.New("table definition must not have more than one primary key column")

// ColumnType enumerates the storage types a column can have.
// Engines map them to their own SQL types.
type ColumnType int

const (
	ColumnTypeText ColumnType = iota
	ColumnTypeInteger
	ColumnTypeReal
	ColumnTypeBlob
	ColumnTypeBoolean
	ColumnTypeJSON
)

// String provides a string representation of ColumnType for diagnostics.
func (ct ColumnType) String() string {
	switch ct {
	case ColumnTypeText:
		return "text"
	case ColumnTypeInteger:
		return "integer"
	case ColumnTypeReal:
		return "real"
	case ColumnTypeBlob:
		return "blob"
	case ColumnTypeBoolean:
		return "boolean"
	case ColumnTypeJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ColumnDef describes a single column of a materialized table.
//
// While its properties are exported, a ColumnDef should only be constructed
// with the supplied factory method BuildColumnDef.
type ColumnDef struct {
	Name       string
	Type       ColumnType
	PrimaryKey bool
	Nullable   bool
	Default    any
}

// ColumnDefOption defines a functional option for configuring a ColumnDef.
type ColumnDefOption func(*ColumnDef) error

// WithPrimaryKey marks the column as the table's primary key.
func WithPrimaryKey() ColumnDefOption {
	return func(def *ColumnDef) error {
		def.PrimaryKey = true
		return nil
	}
}

// WithNullable allows NULL values in the column.
func WithNullable() ColumnDefOption {
	return func(def *ColumnDef) error {
		def.Nullable = true
		return nil
	}
}

// WithDefaultValue sets the column's default value.
func WithDefaultValue(value any) ColumnDefOption {
	return func(def *ColumnDef) error {
		def.Default = value
		return nil
	}
}

// BuildColumnDef is a factory method for ColumnDef.
//
// Returns an error if the name is empty or the column type is unknown.
func BuildColumnDef(name string, columnType ColumnType, options ...ColumnDefOption) (ColumnDef, error) {
	if name == "" {
		return ColumnDef{}, ErrEmptyColumnDefName
	}

	if columnType < ColumnTypeText || columnType > ColumnTypeJSON {
		return ColumnDef{}, ErrUnknownColumnType
	}

	def := ColumnDef{
		Name: name,
		Type: columnType,
	}

	for _, option := range options {
		if err := option(&def); err != nil {
			return ColumnDef{}, err
		}
	}

	return def, nil
}

// TableDef describes the shape of a materialized table.
//
// While its properties are exported, a TableDef should only be constructed
// with the supplied factory method BuildTableDef.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// BuildTableDef is a factory method for TableDef.
//
// Returns an error if the name is empty, no columns are given, column names
// collide, or more than one column is marked as primary key.
func BuildTableDef(name string, columns []ColumnDef) (TableDef, error) {
	if name == "" {
		return TableDef{}, ErrEmptyTableDefName
	}

	if len(columns) == 0 {
		return TableDef{}, ErrTableWithoutColumns
	}

	seen := make(map[string]struct{}, len(columns))
	primaryKeys := 0

	for _, column := range columns {
		if _, duplicate := seen[column.Name]; duplicate {
			return TableDef{}, ErrDuplicateColumn
		}
		seen[column.Name] = struct{}{}

		if column.PrimaryKey {
			primaryKeys++
		}
	}

	if primaryKeys > 1 {
		return TableDef{}, ErrMultiplePrimaryKeys
	}

	return TableDef{
		Name:    name,
		Columns: columns,
	}, nil
}

// ColumnNames returns the names of all columns in definition order.
func (td TableDef) ColumnNames() []string {
	names := make([]string, 0, len(td.Columns))
	for _, column := range td.Columns {
		names = append(names, column.Name)
	}

	return names
}
