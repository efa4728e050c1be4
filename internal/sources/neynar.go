package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/monadswap/signals-bot/internal/models"
)

const followingPageLimit = 100

// NeynarSource implements the Farcaster social graph via the Neynar v2 API
type NeynarSource struct {
	apiKey  string
	baseURL string
	client  *resty.Client
	limiter *rate.Limiter
}

// Ensure NeynarSource implements SocialSource
var _ SocialSource = (*NeynarSource)(nil)

type neynarUser struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Older responses list users directly, newer ones wrap each in {"user": ...}
type neynarFollowEntry struct {
	User *neynarUser `json:"user"`
	neynarUser
}

type neynarFollowingResponse struct {
	Users []neynarFollowEntry `json:"users"`
}

type neynarCast struct {
	Hash      string     `json:"hash"`
	Text      string     `json:"text"`
	Author    neynarUser `json:"author"`
	Timestamp string     `json:"timestamp"`
	Reactions struct {
		LikesCount   int `json:"likes_count"`
		RecastsCount int `json:"recasts_count"`
		RepliesCount int `json:"replies_count"`
	} `json:"reactions"`
	Replies struct {
		Count int `json:"count"`
	} `json:"replies"`
}

type neynarFeedResponse struct {
	Casts []neynarCast `json:"casts"`
}

// NewNeynarSource creates a new Neynar source. rps <= 0 disables request pacing.
func NewNeynarSource(apiKey, baseURL string, rps float64) *NeynarSource {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}

	return &NeynarSource{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "MonadSwap-Signals-Bot/1.0"),
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (n *NeynarSource) GetName() string {
	return "neynar"
}

func (n *NeynarSource) IsEnabled() bool {
	return n.apiKey != ""
}

// GetFollowing returns the accounts fid follows
func (n *NeynarSource) GetFollowing(ctx context.Context, fid string) ([]models.SocialUser, error) {
	if err := validateFID(fid); err != nil {
		return nil, err
	}

	body, err := n.get(ctx, "/farcaster/following", map[string]string{
		"fid":   fid,
		"limit": strconv.Itoa(followingPageLimit),
	})
	if err != nil {
		return nil, err
	}

	var resp neynarFollowingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse Neynar following response: %w", err)
	}

	users := make([]models.SocialUser, 0, len(resp.Users))
	for _, entry := range resp.Users {
		u := entry.neynarUser
		if entry.User != nil {
			u = *entry.User
		}
		if u.FID == 0 && u.Username == "" {
			continue
		}
		users = append(users, models.SocialUser{
			FID:         u.FID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
		})
	}

	logrus.Debugf("Fetched %d following for FID %s", len(users), fid)
	return users, nil
}

// GetFeed returns recent casts from the accounts fid follows
func (n *NeynarSource) GetFeed(ctx context.Context, fid string, limit int) ([]models.SocialPost, error) {
	if err := validateFID(fid); err != nil {
		return nil, err
	}

	body, err := n.get(ctx, "/farcaster/feed", map[string]string{
		"feed_type": "following",
		"fid":       fid,
		"limit":     strconv.Itoa(limit),
	})
	if err != nil {
		return nil, err
	}

	var resp neynarFeedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse Neynar feed response: %w", err)
	}

	posts := make([]models.SocialPost, 0, len(resp.Casts))
	for _, cast := range resp.Casts {
		if cast.Hash == "" || cast.Author.Username == "" {
			logrus.Debugf("Skipping malformed cast in feed for FID %s", fid)
			continue
		}

		timestamp, err := time.Parse(time.RFC3339, cast.Timestamp)
		if err != nil {
			logrus.Warnf("Failed to parse cast timestamp %q: %v", cast.Timestamp, err)
			continue
		}

		replies := cast.Replies.Count
		if replies == 0 {
			replies = cast.Reactions.RepliesCount
		}

		posts = append(posts, models.SocialPost{
			ID:           cast.Hash,
			AuthorHandle: cast.Author.Username,
			Text:         cast.Text,
			Timestamp:    timestamp,
			Engagement: models.Engagement{
				Likes:   cast.Reactions.LikesCount,
				Reposts: cast.Reactions.RecastsCount,
				Replies: replies,
			},
		})
	}

	logrus.Infof("Fetched %d casts from social graph for FID %s", len(posts), fid)
	return posts, nil
}

func (n *NeynarSource) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	if !n.IsEnabled() {
		return nil, fmt.Errorf("neynar source disabled - missing API key")
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", n.apiKey).
		SetQueryParams(params).
		Get(n.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("neynar request %s failed: %w", path, err)
	}

	if resp.StatusCode() == 429 {
		logrus.Warnf("Neynar rate limit hit for %s", path)
		return nil, ErrRateLimited
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("neynar API returned status %d for %s: %s", resp.StatusCode(), path, Truncate(string(resp.Body()), 200))
	}

	return resp.Body(), nil
}

func validateFID(fid string) error {
	if _, err := strconv.ParseUint(fid, 10, 64); err != nil {
		return fmt.Errorf("invalid FID %q", fid)
	}
	return nil
}

// Truncate shortens s to at most length runes, marking the cut with "..."
func Truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}
