package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/monadswap/signals-bot/internal/balances"
	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/pricing"
	"github.com/monadswap/signals-bot/internal/sources"
)

func main() {
	fid := flag.String("fid", "15104", "Farcaster FID used for the social graph checks")
	symbol := flag.String("symbol", "CHOG", "token symbol used for the Monorail checks")
	wallet := flag.String("wallet", "", "wallet address used for the balance check")
	flag.Parse()

	fmt.Println("🔍 MonadSwap Signals Bot - API Connectivity Test")
	fmt.Println("================================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Println("\n📡 Testing Neynar...")
	fmt.Println(strings.Repeat("-", 40))
	testNeynar(ctx, sources.NewNeynarSource(cfg.NeynarAPIKey, cfg.NeynarBaseURL, cfg.NeynarRateLimit), *fid)

	fmt.Println("\n💱 Testing Monorail...")
	fmt.Println(strings.Repeat("-", 40))
	testMonorail(ctx, pricing.NewMonorailClient(cfg.MonorailDataURL), *symbol)

	fmt.Println("\n⛓️  Testing Monad RPC...")
	fmt.Println(strings.Repeat("-", 40))
	testRPC(ctx, cfg, *wallet)

	fmt.Println("\n✅ API connectivity test completed!")
}

func testNeynar(ctx context.Context, source *sources.NeynarSource, fid string) {
	if !source.IsEnabled() {
		fmt.Printf("⚠️  DISABLED (missing NEYNAR_API_KEY)\n")
		return
	}

	fmt.Printf("🔸 Following for FID %s... ", fid)
	following, err := source.GetFollowing(ctx, fid)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
	} else {
		fmt.Printf("✅ SUCCESS (%d accounts)\n", len(following))
	}

	fmt.Printf("🔸 Following feed for FID %s... ", fid)
	posts, err := source.GetFeed(ctx, fid, 10)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}
	fmt.Printf("✅ SUCCESS (%d casts)\n", len(posts))
	if len(posts) > 0 {
		fmt.Printf("   📝 Sample: @%s \"%s\"\n", posts[0].AuthorHandle, sources.Truncate(posts[0].Text, 80))
	}
}

func testMonorail(ctx context.Context, client *pricing.MonorailClient, symbol string) {
	fmt.Printf("🔸 Lookup %s... ", symbol)
	token, err := client.LookupToken(ctx, symbol)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}
	if token == nil {
		fmt.Printf("⚠️  NOT FOUND\n")
		return
	}
	fmt.Printf("✅ SUCCESS (%s, $%s)\n", token.Address, token.USDPerToken.String())

	fmt.Printf("🔸 Price %s... ", token.Address)
	price, err := client.GetPrice(ctx, token.Address)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}
	fmt.Printf("✅ SUCCESS ($%g)\n", price)
}

func testRPC(ctx context.Context, cfg *config.Config, wallet string) {
	service, client, err := balances.Dial(ctx, cfg)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}
	defer client.Close()

	fmt.Printf("🔸 Chain ID (expect %d)... ", cfg.MonadChainID)
	ok, err := service.VerifyNetwork(ctx)
	switch {
	case err != nil:
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	case !ok:
		fmt.Printf("⚠️  WRONG NETWORK\n")
	default:
		fmt.Printf("✅ SUCCESS\n")
	}

	if wallet == "" {
		return
	}

	fmt.Printf("🔸 Balances of %s... ", wallet)
	result, err := service.GetAllBalances(ctx, wallet)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}
	fmt.Printf("✅ SUCCESS\n")
	for symbol, amount := range result {
		fmt.Printf("   • %s: %s\n", symbol, amount)
	}
}
