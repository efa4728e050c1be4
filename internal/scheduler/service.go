package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/models"
)

// Runner is the set of monitoring jobs driven by the scheduler
type Runner interface {
	RunPriceMonitoring(ctx context.Context) (*models.CycleReport, error)
	RunTrendingDigest(ctx context.Context) (int, error)
	RunDailySummary(ctx context.Context) (*models.Report, error)
}

// Service handles scheduling of monitoring tasks
type Service struct {
	config *config.Config
	runner Runner
	cron   *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, runner Runner) *Service {
	return &Service{
		config: cfg,
		runner: runner,
		cron: cron.New(
			cron.WithSeconds(),
			// A slow price cycle must not pile up behind the next tick
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logrus.StandardLogger()))),
		),
	}
}

// Start registers the jobs and begins the scheduled monitoring
func (s *Service) Start() error {
	jobs := []struct {
		name     string
		schedule string
		run      func(ctx context.Context) error
	}{
		{
			name:     "price alert check",
			schedule: s.config.AlertCheckSchedule,
			run: func(ctx context.Context) error {
				_, err := s.runner.RunPriceMonitoring(ctx)
				return err
			},
		},
		{
			name:     "trending digest",
			schedule: s.config.TrendingDigestSchedule,
			run: func(ctx context.Context) error {
				_, err := s.runner.RunTrendingDigest(ctx)
				return err
			},
		},
		{
			name:     "daily summary",
			schedule: s.config.SummarySchedule,
			run: func(ctx context.Context) error {
				_, err := s.runner.RunDailySummary(ctx)
				return err
			},
		},
	}

	for _, job := range jobs {
		if job.schedule == "" {
			logrus.Infof("No schedule for %s, job disabled", job.name)
			continue
		}

		_, err := s.cron.AddFunc(job.schedule, func() {
			logrus.Infof("Starting scheduled %s", job.name)
			if err := job.run(context.Background()); err != nil {
				logrus.Errorf("Scheduled %s failed: %v", job.name, err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", job.schedule, job.name, err)
		}

		logrus.Infof("Scheduled %s: %s", job.name, job.schedule)
	}

	s.cron.Start()
	logrus.Info("Scheduler started")
	return nil
}

// Entries returns the number of registered jobs
func (s *Service) Entries() int {
	return len(s.cron.Entries())
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
