// Package scheduler provides cron-based scheduling for the tracking
// pipeline and the unsubscribed-product cleanup.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/pricepulse/backend/internal/service"
	"github.com/robfig/cron/v3"
)

// Config holds the scheduler configuration
type Config struct {
	// PipelineSchedule is a cron expression for the tracking pass (e.g., "*/30 * * * *")
	PipelineSchedule string
	// CleanupSchedule is a cron expression for the product cleanup (e.g., "0 3 * * *")
	CleanupSchedule string
	// Timeout is the maximum duration for a complete tracking pass
	Timeout time.Duration
	// Enabled determines if the scheduler should run
	Enabled bool
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		PipelineSchedule: "*/30 * * * *",
		CleanupSchedule:  "0 3 * * *",
		Timeout:          10 * time.Minute,
		Enabled:          true,
	}
}

// Scheduler manages the recurring pipeline and cleanup jobs
type Scheduler struct {
	cron            *cron.Cron
	pipelineService *service.PipelineService
	cleanupService  *service.CleanupService
	config          Config
	logger          *slog.Logger
	pipelineEntryID cron.EntryID
}

// New creates a new Scheduler instance
func New(cfg Config, pipelineService *service.PipelineService, cleanupService *service.CleanupService, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron:            cron.New(cron.WithSeconds()),
		pipelineService: pipelineService,
		cleanupService:  cleanupService,
		config:          cfg,
		logger:          logger,
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled, skipping start")
		return nil
	}

	// Convert standard cron (5 fields) to cron with seconds (6 fields)
	pipelineEntryID, err := s.cron.AddFunc("0 "+s.config.PipelineSchedule, s.runPipelineJob)
	if err != nil {
		return err
	}
	s.pipelineEntryID = pipelineEntryID

	if _, err := s.cron.AddFunc("0 "+s.config.CleanupSchedule, s.runCleanupJob); err != nil {
		return err
	}

	s.cron.Start()

	s.logger.Info("Scheduler started",
		slog.String("pipeline_schedule", s.config.PipelineSchedule),
		slog.String("cleanup_schedule", s.config.CleanupSchedule),
		slog.Duration("timeout", s.config.Timeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Stopping scheduler...")
	return s.cron.Stop()
}

// RunNow triggers an immediate tracking pass (useful for manual triggers)
func (s *Scheduler) RunNow() {
	go s.runPipelineJob()
}

func (s *Scheduler) runPipelineJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Info("Starting scheduled tracking pass", slog.Time("start_time", startTime))

	results, err := s.pipelineService.RunOnce(ctx)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Tracking pass failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
		return
	}

	var written int
	for _, r := range results {
		written += r.Written
	}
	s.logger.Info("Tracking pass completed",
		slog.Int("batches", len(results)),
		slog.Int("readings_written", written),
		slog.Duration("duration", duration),
	)
}

func (s *Scheduler) runCleanupJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	if err := s.cleanupService.Run(ctx); err != nil {
		s.logger.Error("Cleanup job failed", slog.String("error", err.Error()))
	}
}

// GetNextRunTime returns the next scheduled tracking pass
func (s *Scheduler) GetNextRunTime() time.Time {
	if s.pipelineEntryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.pipelineEntryID).Next
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
