package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BackupScheduler takes a backup on a fixed interval and prunes old ones.
type BackupScheduler struct {
	manager  *BackupManager
	interval time.Duration
	keep     int
	logger   *slog.Logger

	mu     sync.Mutex
	status SchedulerStatus
}

// SchedulerStatus counts scheduled backup attempts.
type SchedulerStatus struct {
	LastBackup   time.Time
	LastPath     string
	LastError    error
	BackupCount  int
	FailureCount int
}

// NewBackupScheduler creates a scheduler. keep <= 0 keeps every backup.
func NewBackupScheduler(manager *BackupManager, interval time.Duration, keep int, logger *slog.Logger) *BackupScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackupScheduler{manager: manager, interval: interval, keep: keep, logger: logger}
}

// Run backs up every interval until ctx is done.
func (s *BackupScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce takes one backup and prunes, recording the outcome.
func (s *BackupScheduler) RunOnce(ctx context.Context) {
	path, err := s.manager.Backup(ctx, "")
	if err == nil {
		var removed []string
		removed, err = s.manager.Prune(s.keep)
		if len(removed) > 0 {
			s.logger.Debug("old backups pruned", "count", len(removed))
		}
	}

	s.mu.Lock()
	s.status.LastBackup = s.manager.now()
	s.status.LastPath = path
	s.status.LastError = err
	if err != nil {
		s.status.FailureCount++
	} else {
		s.status.BackupCount++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled backup failed", "error", err)
		return
	}
	s.logger.Info("scheduled backup written", "path", path)
}

// Status returns a snapshot of the scheduler counters.
func (s *BackupScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
