package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"motomaster/internal/config"
	"motomaster/internal/infrastructure/database"
)

// SetupTestDB opens a migrated SQLite database in a per-test temp directory.
// The connection is closed when the test finishes.
func SetupTestDB(t *testing.T) (*sql.DB, database.Dialect) {
	t.Helper()

	db, dialect, err := database.NewConnection(config.DatabaseConfig{
		Driver: database.DialectSQLite,
		Path:   filepath.Join(t.TempDir(), "orders.db"),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(context.Background(), db, dialect); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db, dialect
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

// SetupConcurrentTestDB is SetupTestDB with WAL journaling and up to conns
// open connections, so concurrent transactions really race for the writer.
func SetupConcurrentTestDB(t *testing.T, conns int) (*sql.DB, database.Dialect) {
	t.Helper()

	db, dialect := SetupTestDB(t)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatalf("failed to enable WAL: %v", err)
	}
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)

	return db, dialect
}
