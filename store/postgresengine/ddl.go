package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eventlite-io/eventlite/schema"
	"github.com/eventlite-io/eventlite/store"
)

// migrate brings the journal and all registered tables up to date. It runs
// on every store construction; all statements are idempotent.
func (cs *Store) migrate(ctx context.Context) error {
	for _, ddl := range cs.journalDDL() {
		if _, execErr := cs.db.Exec(ctx, ddl); execErr != nil {
			return errors.Join(store.ErrMigratingDatabaseFailed, execErr)
		}
	}

	for _, tableDef := range cs.schema.Tables() {
		if _, execErr := cs.db.Exec(ctx, renderCreateTable(tableDef)); execErr != nil {
			return errors.Join(store.ErrMigratingDatabaseFailed, execErr)
		}
	}

	return nil
}

// journalDDL returns the statements creating the journal table and its
// indexes. BIGSERIAL hands out strictly increasing sequence numbers, the
// journal's ordering guarantee depends on it. The GIN index serves the
// payload containment predicates of filtered queries.
func (cs *Store) journalDDL() []string {
	table := quoteIdent(cs.eventTableName)

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s BIGSERIAL PRIMARY KEY,
	%s TEXT NOT NULL,
	%s TIMESTAMPTZ NOT NULL,
	%s JSONB NOT NULL,
	%s JSONB NOT NULL
)`, table, colSequenceNumber, colEventType, colOccurredAt, colPayload, colMetadata),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent(cs.eventTableName+"_event_type_idx"), table, colEventType),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent(cs.eventTableName+"_occurred_at_idx"), table, colOccurredAt),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (%s jsonb_path_ops)",
			quoteIdent(cs.eventTableName+"_payload_idx"), table, colPayload),
	}
}

// renderCreateTable renders a CREATE TABLE IF NOT EXISTS statement for a
// registered table definition.
func renderCreateTable(def schema.TableDef) string {
	columns := make([]string, 0, len(def.Columns))

	for _, column := range def.Columns {
		parts := []string{quoteIdent(column.Name), postgresColumnType(column.Type)}

		if column.PrimaryKey {
			parts = append(parts, "PRIMARY KEY")
		}

		if !column.Nullable {
			parts = append(parts, "NOT NULL")
		}

		if column.Default != nil {
			parts = append(parts, "DEFAULT "+renderDefault(column.Default))
		}

		columns = append(columns, strings.Join(parts, " "))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(def.Name), strings.Join(columns, ", "))
}

// postgresColumnType maps schema column types to PostgreSQL storage types.
func postgresColumnType(columnType schema.ColumnType) string {
	switch columnType {
	case schema.ColumnTypeInteger:
		return "BIGINT"
	case schema.ColumnTypeReal:
		return "DOUBLE PRECISION"
	case schema.ColumnTypeBlob:
		return "BYTEA"
	case schema.ColumnTypeBoolean:
		return "BOOLEAN"
	case schema.ColumnTypeJSON:
		return "JSONB"
	case schema.ColumnTypeText:
		return "TEXT"
	default:
		return "TEXT"
	}
}

// renderDefault renders a column default as a SQL literal.
func renderDefault(value any) string {
	switch v := value.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// quoteIdent quotes an identifier for PostgreSQL.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
