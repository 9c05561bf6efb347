package store

import (
	"database/sql"
	"fmt"
)

// SQLiteVerifier checks that a candidate file is a structurally valid
// SQLite database: it must open read-only, pass PRAGMA quick_check, and
// answer a minimal read query.
type SQLiteVerifier struct{}

// NewSQLiteVerifier creates a verifier.
func NewSQLiteVerifier() *SQLiteVerifier { return &SQLiteVerifier{} }

// Verify implements the backup verifier contract.
func (SQLiteVerifier) Verify(path string) error {
	// Read-only, no-create: a missing or non-database file must fail
	// here rather than be silently created.
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("opening candidate database: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("structural check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("structural check reported: %s", result)
	}

	var n int
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		return fmt.Errorf("minimal read query: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("database has no schema objects")
	}
	return nil
}
