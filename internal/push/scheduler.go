package push

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/gitchat/internal/config"
)

// Scheduler runs the push cycle on a cron schedule using the gocron
// library. It does nothing when auto-sync is disabled.
type Scheduler struct {
	scheduler gocron.Scheduler
	service   *Service
	cfg       config.SyncConfig
	logger    *slog.Logger
}

// NewScheduler creates a scheduler around the push service.
func NewScheduler(service *Service, cfg config.SyncConfig, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		service:   service,
		cfg:       cfg,
		logger:    logger.With("component", "scheduler"),
	}, nil
}

// Start registers the auto-sync job and starts the scheduler's internal
// ticking. When sync is disabled this is a no-op.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("Auto-sync disabled, scheduler not started")
		return nil
	}

	_, err := s.scheduler.NewJob(
		gocron.CronJob(s.cfg.Schedule, false),
		gocron.NewTask(func(ctx context.Context) {
			s.logger.Info("Running scheduled push cycle")
			startTime := time.Now()

			result, err := s.service.RunCycle(ctx)
			switch {
			case err != nil:
				s.logger.Error("Scheduled push cycle failed", "error", err)
			case !result.Committed:
				s.logger.Info("Scheduled push cycle found nothing to commit")
			default:
				s.logger.Info("Scheduled push cycle finished",
					"commit_hash", result.CommitHash,
					"messages_synced", result.MessagesSynced,
					"duration", time.Since(startTime))
			}
		}),
		gocron.WithName("auto-sync"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule auto-sync job: %w", err)
	}

	s.scheduler.Start()
	s.logger.Info("Scheduler started", "schedule", s.cfg.Schedule)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running cycle to
// complete.
func (s *Scheduler) Stop() error {
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
		return err
	}
	s.logger.Info("Scheduler stopped gracefully.")
	return nil
}
