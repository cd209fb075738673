package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"topdivers/internal/config"

	"github.com/rs/zerolog"
)

const (
	snapshotPrefix = "topdivers_"
	snapshotSuffix = ".db"
	snapshotStamp  = "20060102_150405.000"
)

// BackupService keeps rolling VACUUM INTO snapshots of the local store
// (chat sessions and the ledger queue) under StoragePath.
type BackupService struct {
	db     *DB
	cfg    config.BackupConfig
	logger *zerolog.Logger
	now    func() time.Time
}

func NewBackupService(db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	return &BackupService{db: db, cfg: cfg, logger: logger, now: time.Now}
}

// Start snapshots once, then every Interval, pruning after each scheduled
// run. It returns when ctx is done.
func (s *BackupService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("database backups disabled")
		return
	}
	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Int("retention_days", s.cfg.RetentionDays).
		Str("dir", s.cfg.StoragePath).
		Msg("database backups scheduled")

	s.snapshot(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.snapshot(ctx)
			s.CleanupOldBackups()
		}
	}
}

func (s *BackupService) snapshot(ctx context.Context) {
	path, err := s.PerformBackup(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("database backup failed")
		return
	}
	s.logger.Info().Str("path", path).Msg("database backup written")
}

// PerformBackup writes a consistent copy of the database and returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.cfg.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	path := filepath.Join(s.cfg.StoragePath, snapshotPrefix+s.now().UTC().Format(snapshotStamp)+snapshotSuffix)
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return path, nil
}

// CleanupOldBackups deletes snapshots older than RetentionDays and returns
// how many went. Other files in the directory are left alone.
func (s *BackupService) CleanupOldBackups() int {
	if s.cfg.RetentionDays <= 0 {
		return 0
	}
	entries, err := os.ReadDir(s.cfg.StoragePath)
	if err != nil {
		s.logger.Warn().Err(err).Str("dir", s.cfg.StoragePath).Msg("read backup dir")
		return 0
	}

	cutoff := s.now().AddDate(0, 0, -s.cfg.RetentionDays)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.cfg.StoragePath, name)); err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("delete expired backup")
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("expired backups pruned")
	}
	return removed
}
