package trending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/metrics"
	"github.com/monadswap/signals-bot/internal/models"
	"github.com/monadswap/signals-bot/internal/pricing"
	"github.com/monadswap/signals-bot/internal/sources"
	"github.com/monadswap/signals-bot/internal/storage"
)

const (
	preferencesTTL  = 30 * 24 * time.Hour
	debugFeedLimit  = 20
	debugSampleSize = 5
)

func cacheKey(fid string) string {
	return "trending:" + fid
}

func preferencesKey(fid string) string {
	return "trending_prefs:" + fid
}

// DebugReport describes what the social source returned for a user
type DebugReport struct {
	UserID          string              `json:"userId"`
	FollowingCount  int                 `json:"followingCount"`
	CastsCount      int                 `json:"castsCount"`
	TokenMentions   int                 `json:"tokenMentions"`
	SampleFollowing []models.SocialUser `json:"sampleFollowing"`
	SampleCasts     []DebugCast         `json:"sampleCasts"`
	FollowingError  string              `json:"followingError,omitempty"`
	FeedError       string              `json:"feedError,omitempty"`
}

// DebugCast is a trimmed cast with the symbols found in it
type DebugCast struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Symbols   []string  `json:"symbols"`
}

// Service computes trending tokens for a user's follow graph and stores notification preferences
type Service struct {
	source     sources.SocialSource
	kv         storage.KV
	extractor  Extractor
	aggregator *Aggregator
	ranker     *Ranker
	feedLimit  int
	cacheTTL   time.Duration
	now        func() time.Time
}

// Ensure Service implements TrendingInterface
var _ TrendingInterface = (*Service)(nil)

// NewService creates a new trending service
func NewService(cfg *config.Config, source sources.SocialSource, lookup pricing.TokenLookup, kv storage.KV) *Service {
	extractor := NewRegexExtractor(cfg.KnownTickers)
	return &Service{
		source:     source,
		kv:         kv,
		extractor:  extractor,
		aggregator: NewAggregator(extractor),
		ranker:     NewRanker(NewScorer(), lookup, cfg.TrendingLookupConcurrency),
		feedLimit:  cfg.FeedLimit,
		cacheTTL:   cfg.TrendingCacheTTL,
		now:        time.Now,
	}
}

// GetTrendingTokensForUser returns the ranked tokens mentioned in fid's
// following feed. A feed failure yields an empty list and the error; cache
// failures are only logged.
func (s *Service) GetTrendingTokensForUser(ctx context.Context, fid string) ([]models.TrendingToken, error) {
	if cached, ok := s.readCache(ctx, fid); ok {
		metrics.RecordTrendingRequest(true, len(cached))
		return cached, nil
	}

	start := time.Now()
	posts, err := s.source.GetFeed(ctx, fid, s.feedLimit)
	metrics.RecordUpstreamCall(s.source.GetName(), "feed", time.Since(start), err)
	if err != nil {
		return []models.TrendingToken{}, fmt.Errorf("failed to fetch feed for FID %s: %w", fid, err)
	}

	mentions := s.aggregator.Aggregate(posts)
	logrus.WithField("fid", fid).Infof("Found %d token mentions in %d casts", mentions.Len(), len(posts))

	if mentions.Len() == 0 {
		metrics.RecordTrendingRequest(false, 0)
		return []models.TrendingToken{}, nil
	}

	tokens := s.ranker.Rank(ctx, mentions)
	metrics.RecordTrendingRequest(false, len(tokens))

	s.writeCache(ctx, fid, tokens)

	return tokens, nil
}

func (s *Service) readCache(ctx context.Context, fid string) ([]models.TrendingToken, bool) {
	data, err := s.kv.Get(ctx, cacheKey(fid))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logrus.Warnf("Failed to read trending cache for FID %s: %v", fid, err)
		}
		return nil, false
	}

	var tokens []models.TrendingToken
	if err := json.Unmarshal(data, &tokens); err != nil {
		logrus.Warnf("Discarding unreadable trending cache for FID %s: %v", fid, err)
		return nil, false
	}

	logrus.Debugf("Serving %d cached trending tokens for FID %s", len(tokens), fid)
	return tokens, true
}

func (s *Service) writeCache(ctx context.Context, fid string, tokens []models.TrendingToken) {
	data, err := json.Marshal(tokens)
	if err != nil {
		logrus.Warnf("Failed to encode trending cache for FID %s: %v", fid, err)
		return
	}

	if err := s.kv.Set(ctx, cacheKey(fid), data, s.cacheTTL); err != nil {
		logrus.Warnf("Failed to write trending cache for FID %s: %v", fid, err)
	}
}

// StorePreferences records whether fid wants trending notifications
func (s *Service) StorePreferences(ctx context.Context, fid string, enabled bool) error {
	prefs := models.TrendingPreferences{
		Enabled:   enabled,
		UpdatedAt: s.now().UTC(),
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	if err := s.kv.Set(ctx, preferencesKey(fid), data, preferencesTTL); err != nil {
		return fmt.Errorf("failed to store preferences for FID %s: %w", fid, err)
	}

	if err := s.kv.SAdd(ctx, storage.TrendingPrefsUsersKey, fid); err != nil {
		return fmt.Errorf("failed to index preferences for FID %s: %w", fid, err)
	}

	logrus.WithField("fid", fid).Infof("Trending notifications set to %t", enabled)
	return nil
}

// Preferences returns fid's stored preferences, or nil when none exist
func (s *Service) Preferences(ctx context.Context, fid string) (*models.TrendingPreferences, error) {
	data, err := s.kv.Get(ctx, preferencesKey(fid))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for FID %s: %w", fid, err)
	}

	var prefs models.TrendingPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("failed to decode preferences for FID %s: %w", fid, err)
	}

	return &prefs, nil
}

// UsersWithPreferences returns every fid that has stored preferences. Fids
// whose record expired are pruned from the index on the way.
func (s *Service) UsersWithPreferences(ctx context.Context) ([]string, error) {
	fids, err := s.kv.SMembers(ctx, storage.TrendingPrefsUsersKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list trending preference users: %w", err)
	}

	live := make([]string, 0, len(fids))
	for _, fid := range fids {
		exists, err := s.kv.Exists(ctx, preferencesKey(fid))
		if err != nil {
			logrus.Warnf("Failed to check preferences for FID %s: %v", fid, err)
			live = append(live, fid)
			continue
		}
		if !exists {
			if err := s.kv.SRem(ctx, storage.TrendingPrefsUsersKey, fid); err != nil {
				logrus.Warnf("Failed to prune FID %s from preference index: %v", fid, err)
			}
			continue
		}
		live = append(live, fid)
	}

	return live, nil
}

// Debug fetches the following list and a short feed concurrently and reports what came back
func (s *Service) Debug(ctx context.Context, fid string) (*DebugReport, error) {
	var (
		following          []models.SocialUser
		posts              []models.SocialPost
		followErr, feedErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		following, followErr = s.source.GetFollowing(ctx, fid)
		return nil
	})
	g.Go(func() error {
		posts, feedErr = s.source.GetFeed(ctx, fid, debugFeedLimit)
		return nil
	})
	_ = g.Wait()

	if followErr != nil && feedErr != nil {
		return nil, fmt.Errorf("social source unavailable: %w", errors.Join(followErr, feedErr))
	}

	if following == nil {
		following = []models.SocialUser{}
	}

	report := &DebugReport{
		UserID:          fid,
		FollowingCount:  len(following),
		CastsCount:      len(posts),
		SampleFollowing: following[:min(len(following), debugSampleSize)],
		SampleCasts:     []DebugCast{},
	}
	if followErr != nil {
		report.FollowingError = followErr.Error()
	}
	if feedErr != nil {
		report.FeedError = feedErr.Error()
	}

	for i, post := range posts {
		symbols := s.extractor.Extract(post.Text)
		if len(symbols) > 0 {
			report.TokenMentions++
		}
		if i < debugSampleSize {
			report.SampleCasts = append(report.SampleCasts, DebugCast{
				Author:    post.AuthorHandle,
				Text:      sources.Truncate(post.Text, 100),
				Timestamp: post.Timestamp,
				Symbols:   symbols,
			})
		}
	}

	return report, nil
}
