package backup

import (
	"context"
	"sync"
	"time"

	"mysql-drift-guard/internal/logging"
)

// SchedulerConfig controls the periodic backup and cleanup loops
type SchedulerConfig struct {
	BackupInterval  time.Duration
	CleanupInterval time.Duration
	KeepDays        int
	MinKeep         int
}

// SetDefaults fills in default values for unset fields
func (c *SchedulerConfig) SetDefaults() {
	if c.BackupInterval <= 0 {
		c.BackupInterval = 24 * time.Hour
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 24 * time.Hour
	}
	if c.KeepDays <= 0 {
		c.KeepDays = 30
	}
	if c.MinKeep <= 0 {
		c.MinKeep = 5
	}
}

// Scheduler runs backups and cleanups on fixed intervals. A mutex serializes
// the two loops so a cleanup never deletes a backup that is still being
// written. Shutdown is cooperative: a running operation finishes, then the
// loop observes the cancelled context and exits.
type Scheduler struct {
	manager *Manager
	config  SchedulerConfig
	logger  *logging.Logger

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewScheduler creates a scheduler around an existing backup manager
func NewScheduler(manager *Manager, config SchedulerConfig, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	config.SetDefaults()
	return &Scheduler{
		manager: manager,
		config:  config,
		logger:  logger,
	}
}

// Run starts both loops and blocks until ctx is cancelled and any in-flight
// operation has finished.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.WithFields(map[string]interface{}{
		"backup_interval":  s.config.BackupInterval.String(),
		"cleanup_interval": s.config.CleanupInterval.String(),
	}).Info("Backup scheduler started")

	s.wg.Add(2)
	go s.backupLoop(ctx)
	go s.cleanupLoop(ctx)
	s.wg.Wait()

	s.logger.Info("Backup scheduler stopped")
}

func (s *Scheduler) backupLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.BackupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runBackup(ctx)
		}
	}
}

func (s *Scheduler) cleanupLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *Scheduler) runBackup(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.manager.Create(ctx)
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("Scheduled backup failed")
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"path": record.Path,
		"size": record.Size,
	}).Info("Scheduled backup completed")
}

func (s *Scheduler) runCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.manager.Cleanup(s.config.KeepDays, s.config.MinKeep)
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("Scheduled cleanup failed")
		return
	}
	if len(deleted) > 0 {
		s.logger.WithField("deleted", len(deleted)).Info("Scheduled cleanup removed expired backups")
	}
}
