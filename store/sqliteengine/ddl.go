package sqliteengine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eventlite-io/eventlite/schema"
	"github.com/eventlite-io/eventlite/store"
)

const journalSchemaVersion = 1

// migrate brings the journal and all registered tables up to date. It runs
// on every store construction and is idempotent.
func (cs *Store) migrate(ctx context.Context) error {
	version, versionErr := cs.userVersion(ctx)
	if versionErr != nil {
		return errors.Join(store.ErrMigratingDatabaseFailed, versionErr)
	}

	if version < journalSchemaVersion {
		for _, ddl := range cs.journalDDL() {
			if _, execErr := cs.db.Exec(ctx, ddl); execErr != nil {
				return errors.Join(store.ErrMigratingDatabaseFailed, execErr)
			}
		}

		if _, execErr := cs.db.Exec(ctx, fmt.Sprintf("PRAGMA user_version = %d", journalSchemaVersion)); execErr != nil {
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

// userVersion reads SQLite's user_version pragma.
func (cs *Store) userVersion(ctx context.Context) (int, error) {
	rows, queryErr := cs.db.Query(ctx, "PRAGMA user_version")
	if queryErr != nil {
		return 0, queryErr
	}
	defer cs.closeRows(ctx, rows)

	version := 0
	if rows.Next() {
		if scanErr := rows.Scan(&version); scanErr != nil {
			return 0, scanErr
		}
	}

	return version, nil
}

// journalDDL returns the statements creating the journal table and its indexes.
// AUTOINCREMENT prevents sequence number reuse after deletes, the journal's
// ordering guarantee depends on it.
func (cs *Store) journalDDL() []string {
	table := quoteIdent(cs.eventTableName)

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s INTEGER PRIMARY KEY AUTOINCREMENT,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL
)`, table, colSequenceNumber, colEventType, colOccurredAt, colPayload, colMetadata),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent(cs.eventTableName+"_event_type_idx"), table, colEventType),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent(cs.eventTableName+"_occurred_at_idx"), table, colOccurredAt),
	}
}

// renderCreateTable renders a CREATE TABLE IF NOT EXISTS statement for a
// registered table definition.
func renderCreateTable(def schema.TableDef) string {
	columns := make([]string, 0, len(def.Columns))

	for _, column := range def.Columns {
		parts := []string{quoteIdent(column.Name), sqliteColumnType(column.Type)}

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

// sqliteColumnType maps schema column types to SQLite storage types.
// SQLite has no boolean type, booleans land in INTEGER columns and JSON in TEXT.
func sqliteColumnType(columnType schema.ColumnType) string {
	switch columnType {
	case schema.ColumnTypeInteger, schema.ColumnTypeBoolean:
		return "INTEGER"
	case schema.ColumnTypeReal:
		return "REAL"
	case schema.ColumnTypeBlob:
		return "BLOB"
	case schema.ColumnTypeText, schema.ColumnTypeJSON:
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
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// quoteIdent quotes an identifier for SQLite.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
