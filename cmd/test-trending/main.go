package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/models"
	"github.com/monadswap/signals-bot/internal/pricing"
	"github.com/monadswap/signals-bot/internal/sources"
	"github.com/monadswap/signals-bot/internal/storage"
	"github.com/monadswap/signals-bot/internal/trending"
)

// sampleSource serves a fixed feed so the ranking can be inspected offline
type sampleSource struct {
	posts []models.SocialPost
}

func (s *sampleSource) GetName() string { return "sample" }
func (s *sampleSource) IsEnabled() bool { return true }

func (s *sampleSource) GetFollowing(ctx context.Context, fid string) ([]models.SocialUser, error) {
	seen := map[string]bool{}
	var users []models.SocialUser
	for i, p := range s.posts {
		if seen[p.AuthorHandle] {
			continue
		}
		seen[p.AuthorHandle] = true
		users = append(users, models.SocialUser{FID: int64(1000 + i), Username: p.AuthorHandle})
	}
	return users, nil
}

func (s *sampleSource) GetFeed(ctx context.Context, fid string, limit int) ([]models.SocialPost, error) {
	if len(s.posts) > limit {
		return s.posts[:limit], nil
	}
	return s.posts, nil
}

func samplePosts(now time.Time) []models.SocialPost {
	return []models.SocialPost{
		{ID: "0x01", AuthorHandle: "chogstar", Text: "$CHOG is the cutest thing on Monad testnet", Timestamp: now.Add(-2 * time.Hour), Engagement: models.Engagement{Likes: 42, Reposts: 8, Replies: 5}},
		{ID: "0x02", AuthorHandle: "molandak", Text: "swapped some MON into $CHOG and $YAKI this morning", Timestamp: now.Add(-5 * time.Hour), Engagement: models.Engagement{Likes: 17, Reposts: 2, Replies: 3}},
		{ID: "0x03", AuthorHandle: "salmonad", Text: "gm. $DAK liquidity is getting deep, usdc pairs look healthy", Timestamp: now.Add(-30 * time.Hour), Engagement: models.Engagement{Likes: 9, Reposts: 1}},
		{ID: "0x04", AuthorHandle: "chogstar", Text: "still bullish on $chog, lowercase tickers do not count though", Timestamp: now.Add(-3 * 24 * time.Hour), Engagement: models.Engagement{Likes: 3}},
		{ID: "0x05", AuthorHandle: "yakiyaki", Text: "$YAKI $YAKI $YAKI", Timestamp: now.Add(-1 * time.Hour), Engagement: models.Engagement{Likes: 120, Reposts: 30, Replies: 12}},
		{ID: "0x06", AuthorHandle: "oldtimer", Text: "remember when WETH was the only thing anyone bridged", Timestamp: now.Add(-10 * 24 * time.Hour), Engagement: models.Engagement{Likes: 2}},
		{ID: "0x07", AuthorHandle: "molandak", Text: "new token at 0xE0590015A873bF326bd645c3E1266d4db41C4E6B, dyor", Timestamp: now.Add(-6 * time.Hour), Engagement: models.Engagement{Replies: 4}},
	}
}

func main() {
	live := flag.Bool("live", false, "fetch the feed from Neynar and enrich with Monorail instead of using sample casts")
	fid := flag.String("fid", "15104", "Farcaster FID whose following feed is ranked (with -live)")
	flag.Parse()

	fmt.Println("🤖 MonadSwap Signals Bot - Trending Ranking Test")
	fmt.Println("================================================")

	var (
		cfg    *config.Config
		source sources.SocialSource
		lookup pricing.TokenLookup
	)

	if *live {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using system environment variables")
		}
		loaded, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
		source = sources.NewNeynarSource(cfg.NeynarAPIKey, cfg.NeynarBaseURL, cfg.NeynarRateLimit)
		lookup = pricing.NewMonorailClient(cfg.MonorailDataURL)
	} else {
		cfg = &config.Config{
			FeedLimit:                 100,
			KnownTickers:              config.DefaultKnownTickers,
			TrendingCacheTTL:          5 * time.Minute,
			TrendingLookupConcurrency: 4,
		}
		source = &sampleSource{posts: samplePosts(time.Now())}
	}

	service := trending.NewService(cfg, source, lookup, storage.NewMemoryKV())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Printf("\n📊 Ranking tokens for FID %s (source: %s)...\n", *fid, source.GetName())

	tokens, err := service.GetTrendingTokensForUser(ctx, *fid)
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}

	printRanking(tokens)

	if err := saveRanking(*fid, tokens); err != nil {
		fmt.Printf("\n⚠️  Warning: Could not save to file: %v\n", err)
	}

	fmt.Println("\n✅ Trending ranking test completed!")
}

func printRanking(tokens []models.TrendingToken) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	if len(tokens) == 0 {
		fmt.Println("ℹ️  No token mentions found in the feed.")
		return
	}

	fmt.Printf("%-4s %-12s %8s %10s %8s %12s\n", "#", "SYMBOL", "SCORE", "MENTIONS", "AUTHORS", "PRICE")
	for i, t := range tokens {
		price := "-"
		if t.PriceData != nil {
			price = fmt.Sprintf("$%.6f", t.PriceData.CurrentUSD)
		}
		fmt.Printf("%-4d %-12s %8.2f %10d %8d %12s\n",
			i+1, sources.Truncate(t.Symbol, 12), t.TrendingScore, t.MentionCount, len(t.MentionedBy), price)
	}
	fmt.Println(strings.Repeat("=", 70))
}

func saveRanking(fid string, tokens []models.TrendingToken) error {
	dir := "test_output"
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	filename := filepath.Join(dir, fmt.Sprintf("trending_%s_%s.json", fid, time.Now().Format("2006-01-02_15-04-05")))

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return err
	}

	fmt.Printf("\n💾 Ranking saved to: %s\n", filename)
	return nil
}
