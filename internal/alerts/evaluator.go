package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/metrics"
	"github.com/monadswap/signals-bot/internal/models"
	"github.com/monadswap/signals-bot/internal/notifications"
	"github.com/monadswap/signals-bot/internal/pricing"
)

const notificationTitle = "Price Alert"

// ErrCycleInProgress is returned by RunCycle while another cycle on the same evaluator is running
var ErrCycleInProgress = errors.New("alert check cycle already in progress")

// Alert outcomes reported to metrics
const (
	outcomeTriggered        = "triggered"
	outcomeNotCrossed       = "not_crossed"
	outcomeCooldown         = "cooldown"
	outcomeDisabled         = "disabled"
	outcomePriceUnavailable = "price_unavailable"
	outcomeNotifyFailed     = "notify_failed"
	outcomeStoreError       = "store_error"
)

// Evaluator runs the periodic price alert check
type Evaluator struct {
	store      AlertStore
	prices     pricing.PriceSource
	dispatcher notifications.Dispatcher
	cooldown   time.Duration
	workers    int
	now        func() time.Time

	// held for the whole cycle; cooldown checks are only sound with one cycle at a time
	running sync.Mutex
}

// Ensure Evaluator implements EvaluatorInterface
var _ EvaluatorInterface = (*Evaluator)(nil)

// NewEvaluator creates a new alert evaluator
func NewEvaluator(cfg *config.Config, store AlertStore, prices pricing.PriceSource, dispatcher notifications.Dispatcher) *Evaluator {
	workers := cfg.AlertCheckWorkers
	if workers < 1 {
		workers = 1
	}
	return &Evaluator{
		store:      store,
		prices:     prices,
		dispatcher: dispatcher,
		cooldown:   cfg.AlertCooldown,
		workers:    workers,
		now:        time.Now,
	}
}

// ShouldTrigger reports whether price has strictly crossed the alert's target
func ShouldTrigger(alert models.PriceAlert, price float64) bool {
	switch alert.Condition {
	case models.ConditionAbove:
		return price > alert.TargetPrice
	case models.ConditionBelow:
		return price < alert.TargetPrice
	default:
		return false
	}
}

// InCooldown reports whether alert fired less than cooldown before now
func InCooldown(alert models.PriceAlert, now time.Time, cooldown time.Duration) bool {
	return alert.LastTriggeredAt != nil && now.Sub(*alert.LastTriggeredAt) < cooldown
}

// FormatMessage renders the notification body for a triggered alert
func FormatMessage(alert models.PriceAlert, price float64) string {
	return fmt.Sprintf("🚨 Price Alert: %s is now $%s (%s your target of $%s)",
		alert.TokenSymbol,
		decimal.NewFromFloat(price).StringFixed(6),
		alert.Condition,
		decimal.NewFromFloat(alert.TargetPrice).String())
}

// RunCycle evaluates every enabled alert once. Failures on one alert or user
// are counted and logged; only failing to load the user index aborts the cycle.
func (e *Evaluator) RunCycle(ctx context.Context) (*models.CycleReport, error) {
	if !e.running.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer e.running.Unlock()

	report := &models.CycleReport{StartedAt: e.now().UTC()}
	start := time.Now()

	users, err := e.store.UsersWithAlerts(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load users with alerts: %w", err)
	}

	logrus.Infof("Starting price alert check for %d users", len(users))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(e.workers)

	for _, userID := range users {
		g.Go(func() error {
			userReport := e.checkUser(ctx, userID)

			mu.Lock()
			report.Add(userReport)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)

	logrus.WithFields(logrus.Fields{
		"users":             report.UsersChecked,
		"alerts":            report.AlertsChecked,
		"triggered":         report.Triggered,
		"cooldown_skipped":  report.CooldownSkipped,
		"price_unavailable": report.PriceUnavailable,
		"notify_failures":   report.NotifyFailures,
		"store_errors":      report.StoreErrors,
		"duration":          report.Duration.String(),
	}).Info("Price alert check completed")

	return report, nil
}

func (e *Evaluator) checkUser(ctx context.Context, userID string) models.CycleReport {
	var report models.CycleReport
	report.UsersChecked = 1

	alerts, err := e.store.ListForUser(ctx, userID)
	if err != nil {
		logrus.Errorf("Failed to load alerts for user %s: %v", userID, err)
		report.StoreErrors++
		metrics.RecordAlertOutcome(outcomeStoreError)
		return report
	}

	for i := range alerts {
		if ctx.Err() != nil {
			break
		}

		alert := &alerts[i]
		if !alert.Enabled {
			report.DisabledSkipped++
			metrics.RecordAlertOutcome(outcomeDisabled)
			continue
		}

		report.AlertsChecked++
		e.checkAlert(ctx, alert, &report)
	}

	return report
}

func (e *Evaluator) checkAlert(ctx context.Context, alert *models.PriceAlert, report *models.CycleReport) {
	log := logrus.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"user_id":  alert.UserID,
		"symbol":   alert.TokenSymbol,
	})

	if InCooldown(*alert, e.now(), e.cooldown) {
		report.CooldownSkipped++
		metrics.RecordAlertOutcome(outcomeCooldown)
		return
	}

	start := time.Now()
	price, err := e.prices.GetPrice(ctx, alert.TokenAddress)
	metrics.RecordUpstreamCall("monorail", "price", time.Since(start), err)
	if err != nil {
		if errors.Is(err, pricing.ErrPriceUnavailable) {
			log.Info("No price available, skipping alert")
		} else {
			log.Warnf("Could not get price, skipping alert: %v", err)
		}
		report.PriceUnavailable++
		metrics.RecordAlertOutcome(outcomePriceUnavailable)
		return
	}

	if !ShouldTrigger(*alert, price) {
		metrics.RecordAlertOutcome(outcomeNotCrossed)
		return
	}

	log.Infof("Alert triggered: %s %s $%v (current: $%v)", alert.TokenSymbol, alert.Condition, alert.TargetPrice, price)
	report.Triggered++
	metrics.RecordAlertOutcome(outcomeTriggered)

	err = e.dispatcher.Notify(ctx, alert.UserID, notificationTitle, FormatMessage(*alert, price))
	metrics.RecordNotification("price_alert", err)
	if err != nil {
		// the trigger still consumes the cooldown window
		log.Errorf("Failed to deliver price alert notification: %v", err)
		report.NotifyFailures++
		metrics.RecordAlertOutcome(outcomeNotifyFailed)
	}

	if err := e.store.MarkTriggered(ctx, alert, e.now()); err != nil {
		log.Errorf("Failed to record alert trigger: %v", err)
		report.StoreErrors++
		metrics.RecordAlertOutcome(outcomeStoreError)
	}
}
