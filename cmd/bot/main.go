package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/monadswap/signals-bot/internal/alerts"
	"github.com/monadswap/signals-bot/internal/api"
	"github.com/monadswap/signals-bot/internal/balances"
	"github.com/monadswap/signals-bot/internal/config"
	"github.com/monadswap/signals-bot/internal/metrics"
	"github.com/monadswap/signals-bot/internal/monitoring"
	"github.com/monadswap/signals-bot/internal/notifications"
	"github.com/monadswap/signals-bot/internal/pricing"
	"github.com/monadswap/signals-bot/internal/scheduler"
	"github.com/monadswap/signals-bot/internal/sources"
	"github.com/monadswap/signals-bot/internal/storage"
	"github.com/monadswap/signals-bot/internal/trending"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting MonadSwap Signals Bot")

	ctx := context.Background()

	// Key-value store
	var (
		kv     storage.KV
		health api.HealthChecker
	)
	if cfg.RedisAddr != "" {
		redisKV, err := storage.NewRedisKV(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logrus.Fatalf("Failed to initialize Redis: %v", err)
		}
		defer redisKV.Close()
		kv, health = redisKV, redisKV
	} else {
		logrus.Warn("REDIS_ADDR not set, using in-memory store (alerts are lost on restart)")
		kv = storage.NewMemoryKV()
	}

	// Optional archive of cycle reports
	var archive storage.Archive
	if cfg.StorageAccount != "" {
		azureStorage, err := storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
		archive = azureStorage
	}

	metrics.Init()
	metrics.RegisterIndexCollector(metrics.NewIndexCollector(kv))

	// Upstream clients
	socialSource := sources.NewNeynarSource(cfg.NeynarAPIKey, cfg.NeynarBaseURL, cfg.NeynarRateLimit)
	monorail := pricing.NewMonorailClient(cfg.MonorailDataURL)
	dispatcher := notifications.NewNeynarDispatcher(cfg)
	reporter := notifications.NewService(cfg)

	// Domain services
	trendingService := trending.NewService(cfg, socialSource, monorail, kv)
	alertStore := alerts.NewStore(kv, cfg.AlertTTL)
	evaluator := alerts.NewEvaluator(cfg, alertStore, monorail, dispatcher)
	monitoringService := monitoring.NewService(cfg, evaluator, alertStore, trendingService, dispatcher, archive, reporter)

	var balanceReader api.BalanceReader
	if cfg.MonadRPCURL != "" {
		balanceService, client, err := balances.Dial(ctx, cfg)
		if err != nil {
			logrus.Errorf("Balances disabled: %v", err)
		} else {
			defer client.Close()
			if ok, err := balanceService.VerifyNetwork(ctx); err != nil {
				logrus.Warnf("Could not verify Monad chain ID: %v", err)
			} else if !ok {
				logrus.Warnf("RPC endpoint is not on chain %d", cfg.MonadChainID)
			}
			balanceReader = balanceService
		}
	}

	schedulerService := scheduler.NewService(cfg, monitoringService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	handler := api.NewHandler(trendingService, alertStore, monitoringService, balanceReader, health)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
