package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/monadswap/signals-bot/internal/alerts"
	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/models"
	"github.com/monadswap/signals-bot/internal/monitoring"
	"github.com/monadswap/signals-bot/internal/notifications"
	"github.com/monadswap/signals-bot/internal/pricing"
	"github.com/monadswap/signals-bot/internal/sources"
	"github.com/monadswap/signals-bot/internal/storage"
	"github.com/monadswap/signals-bot/internal/trending"
)

// FileArchive writes archived reports to a local directory
type FileArchive struct {
	dir string
}

func (f *FileArchive) Store(filename string, data []byte) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return err
	}
	fmt.Printf("📁 Archived %s to %s\n", humanize.Bytes(uint64(len(data))), filepath.Join(f.dir, filename))
	return os.WriteFile(filepath.Join(f.dir, filename), data, 0644)
}

func (f *FileArchive) List(prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(f.dir, prefix+"*"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, filepath.Base(match))
	}
	return names, nil
}

func (f *FileArchive) Delete(filename string) error {
	return os.Remove(filepath.Join(f.dir, filename))
}

// TerminalReporter prints operator reports instead of sending them
type TerminalReporter struct{}

func (t *TerminalReporter) SendReport(report *models.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Printf("📊 %s REPORT\n", strings.ToUpper(report.Period))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println(string(data))
	return nil
}

func (t *TerminalReporter) SendAlert(alert *models.OpsAlert) error {
	fmt.Printf("🚨 [%s] %s: %s\n", alert.Severity, alert.Title, alert.Message)
	return nil
}

// staticPrices serves fixed prices keyed by token address
type staticPrices map[string]float64

func (s staticPrices) GetPrice(ctx context.Context, tokenAddress string) (float64, error) {
	price, ok := s[tokenAddress]
	if !ok {
		return 0, pricing.ErrPriceUnavailable
	}
	return price, nil
}

// staticFeed serves the same casts for every user
type staticFeed struct{}

var _ sources.SocialSource = staticFeed{}

func (staticFeed) GetName() string { return "static" }
func (staticFeed) IsEnabled() bool { return true }

func (staticFeed) GetFollowing(ctx context.Context, fid string) ([]models.SocialUser, error) {
	return []models.SocialUser{{FID: 2, Username: "chogstar"}, {FID: 3, Username: "molandak"}}, nil
}

func (staticFeed) GetFeed(ctx context.Context, fid string, limit int) ([]models.SocialPost, error) {
	now := time.Now()
	return []models.SocialPost{
		{ID: "0x1", AuthorHandle: "chogstar", Text: "$CHOG to the moon", Timestamp: now.Add(-time.Hour), Engagement: models.Engagement{Likes: 10, Reposts: 2}},
		{ID: "0x2", AuthorHandle: "molandak", Text: "$CHOG and $YAKI both pumping", Timestamp: now.Add(-3 * time.Hour), Engagement: models.Engagement{Likes: 4, Replies: 1}},
	}, nil
}

func main() {
	fmt.Println("🧪 MonadSwap Signals Bot - Local Integration Test")
	fmt.Println("=================================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &config.Config{
		Port:                      "8080",
		FeedLimit:                 100,
		KnownTickers:              config.DefaultKnownTickers,
		TrendingCacheTTL:          5 * time.Minute,
		TrendingLookupConcurrency: 4,
		AlertTTL:                  30 * 24 * time.Hour,
		AlertCooldown:             15 * time.Minute,
		AlertCheckWorkers:         4,
		ArchiveRetention:          7 * 24 * time.Hour,
		NotificationEmail:         "ops@localhost",
	}

	const (
		chog = "0xE0590015A873bF326bd645c3E1266d4db41C4E6B"
		yaki = "0xfe140e1dCe99Be9F4F15d657CD9b7BF622270C50"
	)

	kv := storage.NewMemoryKV()
	store := alerts.NewStore(kv, cfg.AlertTTL)
	dispatcher := notifications.LogDispatcher{}
	prices := staticPrices{chog: 0.42, yaki: 0.0009}
	evaluator := alerts.NewEvaluator(cfg, store, prices, dispatcher)
	trendingService := trending.NewService(cfg, staticFeed{}, nil, kv)

	service := monitoring.NewService(cfg, evaluator, store, trendingService, dispatcher,
		&FileArchive{dir: "test_output"}, &TerminalReporter{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Println("\n🔸 Creating alerts...")
	inputs := []models.AlertInput{
		{UserID: "15104", TokenAddress: chog, TokenSymbol: "CHOG", TargetPrice: 0.4, Condition: models.ConditionAbove},
		{UserID: "15104", TokenAddress: yaki, TokenSymbol: "YAKI", TargetPrice: 0.001, Condition: models.ConditionBelow},
		{UserID: "42", TokenAddress: chog, TokenSymbol: "CHOG", TargetPrice: 1, Condition: models.ConditionAbove},
		{UserID: "42", TokenAddress: "0x0000000000000000000000000000000000000001", TokenSymbol: "NOPE", TargetPrice: 1, Condition: models.ConditionBelow},
	}
	for _, input := range inputs {
		if err := alerts.Validate(input); err != nil {
			log.Fatalf("Invalid sample alert: %v", err)
		}
		id, err := store.Create(ctx, input)
		if err != nil {
			log.Fatalf("Failed to create alert: %v", err)
		}
		fmt.Printf("   ✅ %s %s %s $%g (%s)\n", input.UserID, input.TokenSymbol, input.Condition, input.TargetPrice, id)
	}

	fmt.Println("\n🔸 Running two price monitoring cycles (the second hits the cooldown)...")
	for i := 1; i <= 2; i++ {
		report, err := service.RunPriceMonitoring(ctx)
		if err != nil {
			log.Fatalf("Monitoring cycle failed: %v", err)
		}
		fmt.Printf("   Cycle %d: %d checked, %d triggered, %d in cooldown, %d without price\n",
			i, report.AlertsChecked, report.Triggered, report.CooldownSkipped, report.PriceUnavailable)
	}

	fmt.Println("\n🔸 Running trending digest...")
	if err := trendingService.StorePreferences(ctx, "15104", true); err != nil {
		log.Fatalf("Failed to store preferences: %v", err)
	}
	sent, err := service.RunTrendingDigest(ctx)
	if err != nil {
		log.Fatalf("Trending digest failed: %v", err)
	}
	fmt.Printf("   ✅ %d digest(s) sent\n", sent)

	if _, err := service.RunDailySummary(ctx); err != nil {
		log.Fatalf("Summary failed: %v", err)
	}

	fmt.Printf("\n📈 Status:\n%s\n", service.GetMetrics())

	fmt.Println("\n✅ Local integration test completed!")
}
