package notifications

import (
	"context"

	"github.com/monadswap/signals-bot/internal/models"
)

// Dispatcher delivers a notification to one end user, identified by FID
type Dispatcher interface {
	Notify(ctx context.Context, userID, title, body string) error
}

// NotificationInterface defines the contract for operator notification services
type NotificationInterface interface {
	SendReport(report *models.Report) error
	SendAlert(alert *models.OpsAlert) error
}
