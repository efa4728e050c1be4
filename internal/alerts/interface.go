package alerts

import (
	"context"
	"time"

	"github.com/monadswap/signals-bot/internal/models"
)

// AlertStore defines persistence of price alerts and their secondary indices
type AlertStore interface {
	Create(ctx context.Context, input models.AlertInput) (string, error)
	ListForUser(ctx context.Context, userID string) ([]models.PriceAlert, error)
	Get(ctx context.Context, userID, alertID string) (*models.PriceAlert, error)
	Remove(ctx context.Context, userID, alertID string) (bool, error)
	SetEnabled(ctx context.Context, userID, alertID string, enabled bool) (bool, error)
	MarkTriggered(ctx context.Context, alert *models.PriceAlert, at time.Time) error
	UsersWithAlerts(ctx context.Context) ([]string, error)
	CleanupExpired(ctx context.Context) (int, error)
}

// EvaluatorInterface runs price alert check cycles
type EvaluatorInterface interface {
	RunCycle(ctx context.Context) (*models.CycleReport, error)
}
