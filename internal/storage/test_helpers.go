package storage

import (
	"path/filepath"
	"testing"
)

// OpenTestDB opens a migrated database in a temporary directory that is
// closed when the test ends.
func OpenTestDB(t testing.TB) *DB {
	t.Helper()

	config := DefaultConfig(filepath.Join(t.TempDir(), "test.db"))
	config.AutoMigrate = true
	db, err := Open(config)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
