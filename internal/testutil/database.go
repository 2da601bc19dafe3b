package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/database"
)

// SetupTestDB creates a migrated SQLite database in a temporary directory.
// A file is used rather than ":memory:" so every pooled connection sees the same data.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	if _, err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// CleanDatabase deletes all rows from every table.
// Useful for reusing the same database across multiple tests.
//
// Example usage:
//
//	func TestMultipleThings(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//
//	    t.Run("First test", func(t *testing.T) {
//	        // Create data
//	        testutil.CleanDatabase(t, db)  // Clean after
//	    })
//	}
func CleanDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	for _, table := range []string{`"transaction"`, "broker_connection"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("Failed to clean table %s: %v", table, err)
		}
	}
}

// CountRows returns the number of rows in a table, including soft-deleted ones.
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}
	return count
}

// AssertRowCount fails the test when table does not hold expected rows.
func AssertRowCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()

	if got := CountRows(t, db, table); got != expected {
		t.Errorf("Expected %d rows in %s, got %d", expected, table, got)
	}
}
