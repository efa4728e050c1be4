package sources

import (
	"context"
	"errors"

	"github.com/monadswap/signals-bot/internal/models"
)

// ErrRateLimited is returned when the upstream API rejects a request with 429
var ErrRateLimited = errors.New("social API rate limit exceeded")

// SocialSource defines the contract for social graph data sources
type SocialSource interface {
	GetName() string
	IsEnabled() bool
	GetFollowing(ctx context.Context, fid string) ([]models.SocialUser, error)
	GetFeed(ctx context.Context, fid string, limit int) ([]models.SocialPost, error)
}
