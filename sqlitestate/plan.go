package sqlitestate

import (
	"github.com/eventlite-io/eventlite/schema"
)

// TablePlan is the dialect-neutral DDL plan for one table. Engines render
// plans into their own CREATE TABLE statements.
type TablePlan struct {
	Name    string
	Columns []ColumnPlan
}

// ColumnPlan is the dialect-neutral DDL plan for one column.
type ColumnPlan struct {
	Name       string
	Type       schema.ColumnType
	PrimaryKey bool
	NotNull    bool
	Default    any
}

func buildTablePlan(tableDef schema.TableDef) TablePlan {
	columns := make([]ColumnPlan, 0, len(tableDef.Columns))

	for _, columnDef := range tableDef.Columns {
		columns = append(columns, ColumnPlan{
			Name:       columnDef.Name,
			Type:       columnDef.Type,
			PrimaryKey: columnDef.PrimaryKey,
			NotNull:    !columnDef.Nullable && !columnDef.PrimaryKey,
			Default:    columnDef.Default,
		})
	}

	return TablePlan{
		Name:    tableDef.Name,
		Columns: columns,
	}
}
