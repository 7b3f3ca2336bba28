package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("test.db")

	if config.Path != "test.db" {
		t.Errorf("expected path 'test.db', got '%s'", config.Path)
	}
	if config.MaxOpenConns != 8 {
		t.Errorf("expected MaxOpenConns 8, got %d", config.MaxOpenConns)
	}
	if config.BusyTimeout != 5*time.Second {
		t.Errorf("expected BusyTimeout 5s, got %v", config.BusyTimeout)
	}
	if config.JournalMode != "WAL" {
		t.Errorf("expected JournalMode 'WAL', got '%s'", config.JournalMode)
	}
	if config.AutoMigrate {
		t.Error("expected AutoMigrate off by default")
	}
}

func TestOpen(t *testing.T) {
	db, err := Open(DefaultConfig(":memory:"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Errorf("failed to ping database: %v", err)
	}
	if db.Conn() == nil {
		t.Error("expected non-nil connection")
	}
}

func TestOpenWithNilConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestOpen_AutoMigrateRequiresFile(t *testing.T) {
	config := DefaultConfig(":memory:")
	config.AutoMigrate = true
	if _, err := Open(config); err == nil {
		t.Error("expected error for auto-migrating an in-memory database")
	}
}

func TestOpen_AutoMigrate(t *testing.T) {
	config := DefaultConfig(filepath.Join(t.TempDir(), "nested", "engine.db"))
	config.AutoMigrate = true
	db, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"cards", "card_legality", "collection", "meta_archetypes", "meta_key_cards", "reference_decks"} {
		var name string
		err := db.Conn().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}
