package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vertextoedge/mediafs-sidecar/internal/port"
)

// Config contains maintenance service configuration
type Config struct {
	// Schedule is a standard cron expression or descriptor such as @hourly
	Schedule string

	// JournalRetention is how long journal entries are kept. Zero keeps them forever.
	JournalRetention time.Duration

	// TempFileMaxAge is the maximum age of leftover download temp files
	TempFileMaxAge time.Duration
}

// DefaultConfig returns default maintenance configuration
func DefaultConfig() *Config {
	return &Config{
		Schedule:         "@hourly",
		JournalRetention: 30 * 24 * time.Hour,
		TempFileMaxAge:   time.Hour,
	}
}

// Service runs periodic housekeeping on the journal and the sandbox
type Service struct {
	config   *Config
	schedule cron.Schedule
	journal  port.JournalRepository
	fs       port.FileSystem
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New creates a new maintenance Service
func New(cfg *Config, journal port.JournalRepository, fs port.FileSystem, logger *zap.Logger) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@hourly"
	}
	if cfg.TempFileMaxAge == 0 {
		cfg.TempFileMaxAge = time.Hour
	}

	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", cfg.Schedule, err)
	}

	return &Service{
		config:   cfg,
		schedule: schedule,
		journal:  journal,
		fs:       fs,
		logger:   logger,
	}, nil
}

// Start runs maintenance on schedule until ctx is cancelled or Stop is called
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("maintenance service already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	c := cron.New()
	c.Schedule(s.schedule, cron.FuncJob(func() {
		s.RunOnce(ctx)
	}))

	s.logger.Info("maintenance service started",
		zap.String("schedule", s.config.Schedule),
		zap.Duration("journal_retention", s.config.JournalRetention),
		zap.Duration("temp_file_max_age", s.config.TempFileMaxAge))

	c.Start()
	<-ctx.Done()

	// Wait for a running job to finish
	<-c.Stop().Done()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("maintenance service stopped")
	return nil
}

// Stop stops the maintenance service
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// RunOnce performs every maintenance job immediately
func (s *Service) RunOnce(ctx context.Context) {
	s.pruneJournal(ctx)
	s.cleanupTempFiles()
}

// pruneJournal removes journal entries older than the retention window
func (s *Service) pruneJournal(ctx context.Context) {
	if s.config.JournalRetention <= 0 {
		return
	}

	deleted, err := s.journal.DeleteOlderThan(ctx, s.config.JournalRetention)
	if err != nil {
		s.logger.Error("failed to prune journal", zap.Error(err))
	} else if deleted > 0 {
		s.logger.Info("pruned old journal entries", zap.Int64("count", deleted))
	}
}

// cleanupTempFiles removes download temp files left behind by crashes
func (s *Service) cleanupTempFiles() {
	fileCount, err := s.fs.CleanOldTempFiles(s.config.TempFileMaxAge)
	if err != nil {
		s.logger.Error("failed to cleanup old temp files", zap.Error(err))
	} else if fileCount > 0 {
		s.logger.Info("cleaned up old temp files from sandbox", zap.Int("count", fileCount))
	}
}
