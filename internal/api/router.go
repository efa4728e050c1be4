package api

import (
	"context"

	"github.com/gorilla/mux"

	"github.com/monadswap/signals-bot/internal/alerts"
	"github.com/monadswap/signals-bot/internal/metrics"
	"github.com/monadswap/signals-bot/internal/models"
	"github.com/monadswap/signals-bot/internal/trending"
)

// Monitor runs price monitoring on demand and reports its status
type Monitor interface {
	RunPriceMonitoring(ctx context.Context) (*models.CycleReport, error)
	GetMetrics() string
}

// BalanceReader returns wallet balances keyed by token symbol
type BalanceReader interface {
	GetAllBalances(ctx context.Context, wallet string) (map[string]string, error)
}

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler serves the mini-app API
type Handler struct {
	trending trending.TrendingInterface
	alerts   alerts.AlertStore
	monitor  Monitor
	balances BalanceReader
	health   HealthChecker
}

// NewHandler creates the API handler. balances and health may be nil.
func NewHandler(trendingService trending.TrendingInterface, store alerts.AlertStore, monitor Monitor, balances BalanceReader, health HealthChecker) *Handler {
	return &Handler{
		trending: trendingService,
		alerts:   store,
		monitor:  monitor,
		balances: balances,
		health:   health,
	}
}

// Router wires every route onto a gorilla/mux router
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.healthCheck).Methods("GET")
	router.HandleFunc("/status", h.status).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/trending", h.getTrending).Methods("GET")
	api.HandleFunc("/trending", h.setTrendingPreferences).Methods("POST")
	api.HandleFunc("/trending/debug", h.debugTrending).Methods("GET")

	api.HandleFunc("/alerts", h.createAlert).Methods("POST")
	api.HandleFunc("/alerts", h.listAlerts).Methods("GET")
	api.HandleFunc("/alerts", h.deleteAlert).Methods("DELETE")
	api.HandleFunc("/alerts", h.toggleAlert).Methods("PATCH")

	api.HandleFunc("/monitor-prices", h.monitorStatus).Methods("GET")
	api.HandleFunc("/monitor-prices", h.runMonitor).Methods("POST")

	if h.balances != nil {
		api.HandleFunc("/balances/{address}", h.getBalances).Methods("GET")
	}

	router.Use(loggingMiddleware)

	return router
}
