package trending

import (
	"context"

	"github.com/monadswap/signals-bot/internal/models"
)

// Extractor finds token symbols mentioned in free text
type Extractor interface {
	Extract(text string) []string
}

// TrendingInterface defines the contract consumed by the API and the digest job
type TrendingInterface interface {
	GetTrendingTokensForUser(ctx context.Context, fid string) ([]models.TrendingToken, error)
	StorePreferences(ctx context.Context, fid string, enabled bool) error
	Preferences(ctx context.Context, fid string) (*models.TrendingPreferences, error)
	UsersWithPreferences(ctx context.Context) ([]string, error)
	Debug(ctx context.Context, fid string) (*DebugReport, error)
}
