package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const backupExt = ".db"

// BackupManager writes consistent copies of an open database and restores
// them.
type BackupManager struct {
	db  *DB
	dir string
	now func() time.Time
}

// BackupInfo describes one backup file.
type BackupInfo struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
	Checksum string    `json:"checksum"`
}

// NewBackupManager creates a backup manager writing into dir. An empty dir
// uses "backups" next to dbPath.
func NewBackupManager(db *DB, dbPath, dir string) *BackupManager {
	return &BackupManager{db: db, dir: BackupDir(dbPath, dir), now: time.Now}
}

// BackupDir resolves the backup directory for a database.
func BackupDir(dbPath, dir string) string {
	if dir != "" {
		return dir
	}
	return filepath.Join(filepath.Dir(dbPath), "backups")
}

// Dir returns the backup directory.
func (m *BackupManager) Dir() string { return m.dir }

// Backup writes a verified copy of the database and returns its path. An
// empty name is derived from the current time.
func (m *BackupManager) Backup(ctx context.Context, name string) (string, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	if name == "" {
		name = "deck-engine_" + m.now().UTC().Format("20060102_150405")
	}
	path := filepath.Join(m.dir, strings.TrimSuffix(name, backupExt)+backupExt)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("backup %s already exists", path)
	}

	// VACUUM INTO produces a consistent snapshot without an exclusive lock.
	if _, err := m.db.Conn().ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := VerifyBackup(ctx, path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("backup verification failed: %w", err)
	}
	return path, nil
}

// List returns the backups in the directory, newest first.
func (m *BackupManager) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != backupExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(m.dir, e.Name())
		sum, err := checksum(path)
		if err != nil {
			sum = "unknown"
		}
		backups = append(backups, BackupInfo{
			Path:     path,
			Name:     e.Name(),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Checksum: sum,
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].ModTime.Equal(backups[j].ModTime) {
			return backups[i].ModTime.After(backups[j].ModTime)
		}
		return backups[i].Name > backups[j].Name
	})
	return backups, nil
}

// Prune keeps the newest keep backups and removes the rest. It returns the
// removed paths. keep <= 0 removes nothing.
func (m *BackupManager) Prune(keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	backups, err := m.List()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, b := range backups[min(keep, len(backups)):] {
		if err := os.Remove(b.Path); err != nil {
			return removed, fmt.Errorf("remove backup: %w", err)
		}
		removed = append(removed, b.Path)
	}
	return removed, nil
}

// VerifyBackup checks that path is an intact SQLite database carrying the
// engine schema.
func VerifyBackup(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	var tables int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('cards', 'collection')").Scan(&tables)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if tables != 2 {
		return fmt.Errorf("not a deck-engine database")
	}
	return nil
}

// Restore replaces the database file at dbPath with a verified backup. The
// database must not be open. The replaced file is kept next to it with an
// ".old" suffix.
func Restore(ctx context.Context, backupPath, dbPath string) error {
	if err := VerifyBackup(ctx, backupPath); err != nil {
		return fmt.Errorf("backup verification failed: %w", err)
	}

	tmp := dbPath + ".restore.tmp"
	if err := copyFile(backupPath, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if _, err := os.Stat(dbPath); err == nil {
		old := dbPath + ".old." + time.Now().UTC().Format("20060102_150405")
		if err := os.Rename(dbPath, old); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("move current database aside: %w", err)
		}
		// WAL sidecars belong to the replaced file.
		for _, suffix := range []string{"-wal", "-shm"} {
			_ = os.Remove(dbPath + suffix)
		}
	}
	if err := os.Rename(tmp, dbPath); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create restore file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy backup: %w", err)
	}
	return out.Close()
}

// checksum is the hex SHA-256 of a file.
func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
