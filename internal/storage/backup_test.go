package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deck-engine/internal/cards/cardstest"
)

func TestBackupManager_BackupAndList(t *testing.T) {
	svc := setupTestService(t)
	dir := t.TempDir()
	m := NewBackupManager(svc.DB(), "unused.db", dir)
	ctx := context.Background()

	path, err := m.Backup(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "first.db"), path)
	require.NoError(t, VerifyBackup(ctx, path))

	_, err = m.Backup(ctx, "first")
	assert.Error(t, err, "existing backup must not be overwritten")

	_, err = m.Backup(ctx, "second.db")
	require.NoError(t, err)

	backups, err := m.List()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	for _, b := range backups {
		assert.Len(t, b.Checksum, 64)
		assert.Positive(t, b.Size)
	}
}

func TestBackupManager_DefaultDirAndName(t *testing.T) {
	svc := setupTestService(t)
	dbPath := filepath.Join(t.TempDir(), "engine.db")
	m := NewBackupManager(svc.DB(), dbPath, "")
	m.now = func() time.Time { return time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC) }

	assert.Equal(t, filepath.Join(filepath.Dir(dbPath), "backups"), m.Dir())
	path, err := m.Backup(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "deck-engine_20240601_123000.db", filepath.Base(path))
}

func TestBackupManager_ListMissingDir(t *testing.T) {
	m := NewBackupManager(nil, "x.db", filepath.Join(t.TempDir(), "none"))
	backups, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestBackupManager_Prune(t *testing.T) {
	svc := setupTestService(t)
	dir := t.TempDir()
	m := NewBackupManager(svc.DB(), "unused.db", dir)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"a", "b", "c"} {
		path, err := m.Backup(ctx, name)
		require.NoError(t, err)
		stamp := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}

	removed, err := m.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.db")}, removed)

	removed, err = m.Prune(0)
	require.NoError(t, err)
	assert.Empty(t, removed)

	backups, err := m.List()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "c.db", backups[0].Name)
}

func TestVerifyBackup_Rejects(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	assert.Error(t, VerifyBackup(ctx, filepath.Join(dir, "missing.db")))

	garbage := filepath.Join(dir, "garbage.db")
	require.NoError(t, os.WriteFile(garbage, []byte("not a database at all, just text"), 0o644))
	assert.Error(t, VerifyBackup(ctx, garbage))

	empty := filepath.Join(dir, "empty.db")
	db, err := Open(DefaultConfig(empty))
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.Error(t, VerifyBackup(ctx, empty), "database without the engine schema")
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "engine.db")

	config := DefaultConfig(dbPath)
	config.AutoMigrate = true
	db, err := Open(config)
	require.NoError(t, err)
	svc := NewService(db, "standard")
	_, err = svc.ImportCards(ctx, cardstest.Cards())
	require.NoError(t, err)

	backup, err := NewBackupManager(db, dbPath, "").Backup(ctx, "full")
	require.NoError(t, err)

	_, err = db.Conn().ExecContext(ctx, "DELETE FROM cards")
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	require.NoError(t, Restore(ctx, backup, dbPath))

	db, err = Open(config)
	require.NoError(t, err)
	defer db.Close()
	n, err := NewService(db).Catalog().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(cardstest.Cards()), n)

	old, err := filepath.Glob(dbPath + ".old.*")
	require.NoError(t, err)
	assert.Len(t, old, 1)
}

func TestBackupScheduler_RunOnce(t *testing.T) {
	svc := setupTestService(t)
	m := NewBackupManager(svc.DB(), "unused.db", t.TempDir())
	tick := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	s := NewBackupScheduler(m, time.Hour, 2, nil)
	for i := 0; i < 3; i++ {
		s.RunOnce(context.Background())
	}

	status := s.Status()
	assert.Equal(t, 3, status.BackupCount)
	assert.Zero(t, status.FailureCount)
	assert.NoError(t, status.LastError)

	backups, err := m.List()
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestBackupScheduler_RunStopsOnCancel(t *testing.T) {
	s := NewBackupScheduler(NewBackupManager(nil, "x.db", t.TempDir()), time.Hour, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
