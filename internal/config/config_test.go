package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NEYNAR_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.AlertTTL)
	assert.Equal(t, 15*time.Minute, cfg.AlertCooldown)
	assert.Equal(t, 5*time.Minute, cfg.TrendingCacheTTL)
	assert.Equal(t, int64(10143), cfg.MonadChainID)
	assert.Equal(t, DefaultKnownTickers, cfg.KnownTickers)
	assert.False(t, cfg.OpsReportingEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NEYNAR_API_KEY", "test-key")
	t.Setenv("ALERT_COOLDOWN", "5m")
	t.Setenv("KNOWN_TICKERS", "MON, USDC ,,DAK")
	t.Setenv("TEAMS_WEBHOOK_URL", "https://example.com/hook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.AlertCooldown)
	assert.Equal(t, []string{"MON", "USDC", "DAK"}, cfg.KnownTickers)
	assert.True(t, cfg.OpsReportingEnabled())
}

func TestConfig_validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			NeynarAPIKey:              "key",
			AlertTTL:                  time.Hour,
			AlertCheckWorkers:         1,
			TrendingLookupConcurrency: 1,
			FeedLimit:                 50,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "Valid config", mutate: func(c *Config) {}, wantErr: false},
		{name: "Missing Neynar key", mutate: func(c *Config) { c.NeynarAPIKey = "" }, wantErr: true},
		{name: "Zero workers", mutate: func(c *Config) { c.AlertCheckWorkers = 0 }, wantErr: true},
		{name: "Feed limit too large", mutate: func(c *Config) { c.FeedLimit = 500 }, wantErr: true},
		{name: "Email without SMTP", mutate: func(c *Config) { c.NotificationEmail = "ops@example.com" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
