package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/monadswap/signals-bot/internal/alerts"
	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/metrics"
	"github.com/monadswap/signals-bot/internal/models"
	"github.com/monadswap/signals-bot/internal/notifications"
	"github.com/monadswap/signals-bot/internal/storage"
	"github.com/monadswap/signals-bot/internal/trending"
)

const (
	jobPriceMonitor   = "price_monitor"
	jobTrendingDigest = "trending_digest"
	jobDailySummary   = "daily_summary"

	priceMonitorTimeout   = 5 * time.Minute
	trendingDigestTimeout = 15 * time.Minute

	archivePrefix     = "price-monitor-"
	archiveTimeLayout = "2006-01-02-15-04-05.000"

	// names written before millisecond precision
	legacyArchiveTimeLayout = "2006-01-02-15-04-05"
)

// ErrAlreadyRunning is returned when a price monitoring run is requested while one is in progress
var ErrAlreadyRunning = errors.New("price monitoring run already in progress")

// Service orchestrates the price monitoring cycle, the trending digest and the operator summary
type Service struct {
	config     *config.Config
	evaluator  alerts.EvaluatorInterface
	store      alerts.AlertStore
	trending   trending.TrendingInterface
	dispatcher notifications.Dispatcher
	archive    storage.Archive
	reporter   notifications.NotificationInterface
	metrics    *Metrics
	period     periodTotals
	now        func() time.Time
	mu         sync.RWMutex
	running    sync.Mutex
}

// Metrics holds monitoring status exposed on /status
type Metrics struct {
	TotalCycles      int                 `json:"total_cycles"`
	TotalTriggered   int                 `json:"total_triggered"`
	LastRun          time.Time           `json:"last_run"`
	LastRunDuration  string              `json:"last_run_duration"`
	LastCycle        *models.CycleReport `json:"last_cycle,omitempty"`
	LastDigestRun    time.Time           `json:"last_digest_run"`
	TotalDigestsSent int                 `json:"total_digests_sent"`
	LastSummary      time.Time           `json:"last_summary"`
	ErrorCount       int                 `json:"error_count"`
	LastError        string              `json:"last_error,omitempty"`
}

// periodTotals accumulates activity between two operator summaries
type periodTotals struct {
	cycles      int
	totals      models.CycleReport
	digestsSent int
}

// NewService creates a new monitoring service. archive and reporter may be nil.
func NewService(
	cfg *config.Config,
	evaluator alerts.EvaluatorInterface,
	store alerts.AlertStore,
	trendingService trending.TrendingInterface,
	dispatcher notifications.Dispatcher,
	archive storage.Archive,
	reporter notifications.NotificationInterface,
) *Service {
	return &Service{
		config:     cfg,
		evaluator:  evaluator,
		store:      store,
		trending:   trendingService,
		dispatcher: dispatcher,
		archive:    archive,
		reporter:   reporter,
		metrics:    &Metrics{},
		now:        time.Now,
	}
}

// RunPriceMonitoring runs one alert check cycle followed by the expired alert sweep
func (s *Service) RunPriceMonitoring(ctx context.Context) (*models.CycleReport, error) {
	if !s.running.TryLock() {
		logrus.Info("Price monitoring run already in progress, skipping")
		return nil, ErrAlreadyRunning
	}
	defer s.running.Unlock()

	start := s.now()
	logrus.Info("Starting price monitoring run")

	ctx, cancel := context.WithTimeout(ctx, priceMonitorTimeout)
	defer cancel()

	report, err := s.evaluator.RunCycle(ctx)
	if errors.Is(err, alerts.ErrCycleInProgress) {
		logrus.Info("Alert check cycle already in progress, skipping")
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		err = fmt.Errorf("alert check cycle failed: %w", err)
		s.recordError(err)
		metrics.RecordJobExecution(jobPriceMonitor, s.now().Sub(start), err)
		s.raise(models.SeverityCritical, "Price monitoring failed", err)
		return nil, err
	}

	cleaned, err := s.store.CleanupExpired(ctx)
	if err != nil {
		logrus.Warnf("Expired alert cleanup failed: %v", err)
		s.recordError(fmt.Errorf("expired alert cleanup failed: %w", err))
	} else {
		report.ExpiredCleaned = cleaned
		metrics.RecordAlertsCleaned(cleaned)
	}

	duration := s.now().Sub(start)
	s.updateMetrics(report, duration)
	metrics.RecordJobExecution(jobPriceMonitor, duration, nil)

	if report.Triggered > 0 || report.ExpiredCleaned > 0 {
		if err := s.storeReport(report); err != nil {
			logrus.Warnf("Failed to archive cycle report: %v", err)
		}
	}

	logrus.Infof("Price monitoring completed in %v: %d alerts checked, %d triggered, %d expired cleaned",
		duration, report.AlertsChecked, report.Triggered, report.ExpiredCleaned)

	return report, nil
}

// RunTrendingDigest notifies every opted-in user about the top token in their network.
// It returns the number of notifications delivered.
func (s *Service) RunTrendingDigest(ctx context.Context) (int, error) {
	start := s.now()
	logrus.Info("Starting trending digest run")

	ctx, cancel := context.WithTimeout(ctx, trendingDigestTimeout)
	defer cancel()

	users, err := s.trending.UsersWithPreferences(ctx)
	if err != nil {
		err = fmt.Errorf("failed to list trending subscribers: %w", err)
		s.recordError(err)
		metrics.RecordJobExecution(jobTrendingDigest, s.now().Sub(start), err)
		return 0, err
	}

	var sent atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())

	for _, fid := range users {
		g.Go(func() error {
			if s.sendDigest(gctx, fid) {
				sent.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	n := int(sent.Load())

	s.mu.Lock()
	s.metrics.LastDigestRun = s.now()
	s.metrics.TotalDigestsSent += n
	s.period.digestsSent += n
	s.mu.Unlock()

	metrics.RecordJobExecution(jobTrendingDigest, s.now().Sub(start), nil)
	logrus.Infof("Trending digest completed: %d of %d subscribers notified", n, len(users))

	return n, nil
}

func (s *Service) sendDigest(ctx context.Context, fid string) bool {
	log := logrus.WithField("fid", fid)

	prefs, err := s.trending.Preferences(ctx, fid)
	if err != nil {
		log.Warnf("Failed to read trending preferences: %v", err)
		return false
	}
	if prefs == nil || !prefs.Enabled {
		return false
	}

	tokens, err := s.trending.GetTrendingTokensForUser(ctx, fid)
	if err != nil {
		log.Warnf("Failed to compute trending tokens: %v", err)
		return false
	}
	if len(tokens) == 0 {
		log.Debug("No trending tokens, skipping digest")
		return false
	}

	title, body := DigestMessage(tokens[0])
	err = s.dispatcher.Notify(ctx, fid, title, body)
	metrics.RecordNotification("trending", err)
	if err != nil {
		log.Errorf("Failed to send trending digest: %v", err)
		return false
	}

	log.WithField("symbol", tokens[0].Symbol).Info("Trending digest sent")
	return true
}

// DigestMessage formats the notification for a user's top trending token
func DigestMessage(token models.TrendingToken) (string, string) {
	title := fmt.Sprintf("🔥 %s is Trending!", token.Symbol)
	body := fmt.Sprintf("%s has %d mentions in your network (Score: %.0f)",
		token.Symbol, token.MentionCount, math.Round(token.TrendingScore))
	return title, body
}

// BuildReport summarises activity since the previous summary
func (s *Service) BuildReport(ctx context.Context, period string) *models.Report {
	s.mu.RLock()
	report := &models.Report{
		GeneratedAt: s.now(),
		Period:      period,
		Cycles:      s.period.cycles,
		Totals:      s.period.totals,
		DigestsSent: s.period.digestsSent,
	}
	if s.metrics.LastCycle != nil {
		last := *s.metrics.LastCycle
		report.LastCycle = &last
	}
	s.mu.RUnlock()

	if users, err := s.store.UsersWithAlerts(ctx); err != nil {
		logrus.Warnf("Failed to count users with alerts: %v", err)
	} else {
		report.UsersWithAlerts = len(users)
	}

	if users, err := s.trending.UsersWithPreferences(ctx); err != nil {
		logrus.Warnf("Failed to count trending subscribers: %v", err)
	} else {
		report.TrendingSubscribers = len(users)
	}

	return report
}

// RunDailySummary sends the operator summary and starts a new reporting period
func (s *Service) RunDailySummary(ctx context.Context) (*models.Report, error) {
	start := s.now()
	report := s.BuildReport(ctx, "daily")

	if _, err := s.PruneArchive(); err != nil {
		logrus.Warnf("Archive retention sweep failed: %v", err)
	}

	if s.reporter == nil || !s.config.OpsReportingEnabled() {
		logrus.Infof("No operator channel configured, summary not sent (%d cycles, %d triggered)",
			report.Cycles, report.Totals.Triggered)
		s.resetPeriod(report.GeneratedAt)
		return report, nil
	}

	if err := s.reporter.SendReport(report); err != nil {
		err = fmt.Errorf("failed to send daily summary: %w", err)
		s.recordError(err)
		metrics.RecordJobExecution(jobDailySummary, s.now().Sub(start), err)
		return report, err
	}

	s.resetPeriod(report.GeneratedAt)
	metrics.RecordJobExecution(jobDailySummary, s.now().Sub(start), nil)
	logrus.Info("Daily summary sent")

	return report, nil
}

func (s *Service) resetPeriod(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.period = periodTotals{}
	s.metrics.LastSummary = at
}

func (s *Service) storeReport(report *models.CycleReport) error {
	if s.archive == nil {
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal cycle report: %w", err)
	}

	filename := archivePrefix + report.StartedAt.UTC().Format(archiveTimeLayout) + ".json"
	return s.archive.Store(filename, data)
}

// PruneArchive deletes archived cycle reports older than the configured retention.
// Names that do not carry a report timestamp are left alone.
func (s *Service) PruneArchive() (int, error) {
	if s.archive == nil || s.config.ArchiveRetention <= 0 {
		return 0, nil
	}

	names, err := s.archive.List(archivePrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list archived reports: %w", err)
	}

	cutoff := s.now().Add(-s.config.ArchiveRetention)
	deleted := 0
	for _, name := range names {
		startedAt, ok := archiveTime(name)
		if !ok || !startedAt.Before(cutoff) {
			continue
		}
		if err := s.archive.Delete(name); err != nil {
			logrus.Warnf("Failed to delete archived report %s: %v", name, err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		logrus.Infof("Pruned %d archived reports older than %v", deleted, s.config.ArchiveRetention)
	}
	return deleted, nil
}

func archiveTime(name string) (time.Time, bool) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), ".json")
	for _, layout := range []string{archiveTimeLayout, legacyArchiveTimeLayout} {
		if t, err := time.Parse(layout, stamp); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// raise sends an operator alert when a channel is configured
func (s *Service) raise(severity models.Severity, title string, cause error) {
	if s.reporter == nil || !s.config.OpsReportingEnabled() {
		return
	}

	alert := &models.OpsAlert{
		Severity:  severity,
		Title:     title,
		Message:   cause.Error(),
		CreatedAt: s.now(),
	}
	if err := s.reporter.SendAlert(alert); err != nil {
		logrus.Errorf("Failed to send operator alert: %v", err)
	}
}

func (s *Service) updateMetrics(report *models.CycleReport, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := *report
	s.metrics.TotalCycles++
	s.metrics.TotalTriggered += report.Triggered
	s.metrics.LastRun = report.StartedAt
	s.metrics.LastRunDuration = duration.String()
	s.metrics.LastCycle = &last

	s.period.cycles++
	s.period.totals.Add(*report)
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.ErrorCount++
	s.metrics.LastError = err.Error()
}

func (s *Service) workers() int {
	if s.config.AlertCheckWorkers < 1 {
		return 1
	}
	return s.config.AlertCheckWorkers
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
