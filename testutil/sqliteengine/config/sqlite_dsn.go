package config

import "fmt"

// sqlitePragmas matches the connection settings the engine's Open uses, so
// stores built from raw connections behave the same in tests.
const sqlitePragmas = "_pragma=journal_mode(WAL)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=foreign_keys(ON)"

// SQLiteInMemoryDSN returns the DSN for a private in-memory test database.
func SQLiteInMemoryDSN() string {
	return SQLiteFileDSN(":memory:")
}

// SQLiteFileDSN returns the DSN for a test database at the given path.
func SQLiteFileDSN(path string) string {
	return fmt.Sprintf("file:%s?%s", path, sqlitePragmas)
}
