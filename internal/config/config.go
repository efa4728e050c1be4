package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Token describes an ERC-20 token whose balance the bot can report
type Token struct {
	Symbol   string
	Address  string
	Decimals int
}

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Neynar (Farcaster social graph and notifications)
	NeynarAPIKey    string
	NeynarBaseURL   string
	NeynarRateLimit float64 // requests per second
	FeedLimit       int
	AppURL          string

	// Monorail data API
	MonorailDataURL string

	// Monad RPC
	MonadRPCURL  string
	MonadChainID int64
	Tokens       []Token

	// Redis configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Price alerts
	AlertTTL           time.Duration
	AlertCooldown      time.Duration
	AlertCheckWorkers  int
	AlertCheckSchedule string

	// Trending
	TrendingCacheTTL          time.Duration
	TrendingLookupConcurrency int
	TrendingDigestSchedule    string
	KnownTickers              []string

	// Operator summary
	SummarySchedule string

	// Azure Storage configuration (cycle report archive, optional)
	StorageAccount   string
	StorageContainer string
	ArchiveRetention time.Duration

	// Operator notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// DefaultKnownTickers are bare symbols recognised without a $ prefix
var DefaultKnownTickers = []string{
	"MON", "USDC", "WETH", "USDT", "DAI", "WBTC", "PEPE", "DOGE", "SHIB", "MATIC", "QR", "BYTE",
}

// MonadTestnetTokens are the official Monad testnet tokens
var MonadTestnetTokens = []Token{
	{Symbol: "USDC", Address: "0xf817257fed379853cDe0fa4F97AB987181B1E5Ea", Decimals: 6},
	{Symbol: "USDT", Address: "0x88b8E2161DEDC77EF4ab7585569D2415a1C1055D", Decimals: 6},
	{Symbol: "DAK", Address: "0x0F0BDEbF0F83cD1EE3974779Bcb7315f9808c714", Decimals: 18},
	{Symbol: "CHOG", Address: "0xE0590015A873bF326bd645c3E1266d4db41C4E6B", Decimals: 18},
	{Symbol: "YAKI", Address: "0xfe140e1dCe99Be9F4F15d657CD9b7BF622270C50", Decimals: 18},
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		NeynarAPIKey:    getEnv("NEYNAR_API_KEY", ""),
		NeynarBaseURL:   getEnv("NEYNAR_BASE_URL", "https://api.neynar.com/v2"),
		NeynarRateLimit: getFloatEnv("NEYNAR_RATE_LIMIT", 5),
		FeedLimit:       getIntEnv("FEED_LIMIT", 100),
		AppURL:          getEnv("APP_URL", "https://monadswap.vercel.app"),

		MonorailDataURL: getEnv("MONORAIL_DATA_URL", "https://api.monorail.xyz/v2"),

		MonadRPCURL:  getEnv("MONAD_RPC_URL", "https://testnet-rpc.monad.xyz"),
		MonadChainID: int64(getIntEnv("MONAD_CHAIN_ID", 10143)),
		Tokens:       MonadTestnetTokens,

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		AlertTTL:           getDurationEnv("ALERT_TTL", 30*24*time.Hour),
		AlertCooldown:      getDurationEnv("ALERT_COOLDOWN", 15*time.Minute),
		AlertCheckWorkers:  getIntEnv("ALERT_CHECK_WORKERS", 4),
		AlertCheckSchedule: getEnv("ALERT_CHECK_SCHEDULE", "0 * * * * *"),

		TrendingCacheTTL:          getDurationEnv("TRENDING_CACHE_TTL", 5*time.Minute),
		TrendingLookupConcurrency: getIntEnv("TRENDING_LOOKUP_CONCURRENCY", 4),
		TrendingDigestSchedule:    getEnv("TRENDING_DIGEST_SCHEDULE", "0 0 */6 * * *"),
		KnownTickers:              getSliceEnv("KNOWN_TICKERS", DefaultKnownTickers),

		SummarySchedule: getEnv("SUMMARY_SCHEDULE", "0 0 9 * * *"),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "price-monitor"),
		ArchiveRetention: getDurationEnv("ARCHIVE_RETENTION", 30*24*time.Hour),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.NeynarAPIKey == "" {
		return fmt.Errorf("NEYNAR_API_KEY is required")
	}

	if c.AlertTTL <= 0 {
		return fmt.Errorf("ALERT_TTL must be positive")
	}

	if c.AlertCooldown < 0 {
		return fmt.Errorf("ALERT_COOLDOWN must not be negative")
	}

	if c.AlertCheckWorkers < 1 {
		return fmt.Errorf("ALERT_CHECK_WORKERS must be at least 1")
	}

	if c.TrendingLookupConcurrency < 1 {
		return fmt.Errorf("TRENDING_LOOKUP_CONCURRENCY must be at least 1")
	}

	if c.FeedLimit < 1 || c.FeedLimit > 100 {
		return fmt.Errorf("FEED_LIMIT must be between 1 and 100")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// OpsReportingEnabled reports whether any operator channel is configured
func (c *Config) OpsReportingEnabled() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	return defaultValue
}
