package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/monadswap/signals-bot/internal/alerts"
	"github.com/monadswap/signals-bot/internal/balances"
	"github.com/monadswap/signals-bot/internal/models"
	"github.com/monadswap/signals-bot/internal/monitoring"
)

type response map[string]interface{}

// flexID accepts a Farcaster FID sent either as a JSON number or a string
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("userId must be a number or string: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type createAlertRequest struct {
	UserID       flexID           `json:"userId"`
	TokenAddress string           `json:"tokenAddress"`
	TokenSymbol  string           `json:"tokenSymbol"`
	TargetPrice  json.RawMessage  `json:"targetPrice"`
	Condition    models.Condition `json:"condition"`
}

type toggleAlertRequest struct {
	UserID  flexID `json:"userId"`
	AlertID string `json:"alertId"`
	Enabled *bool  `json:"enabled"`
}

type trendingPreferencesRequest struct {
	UserID  flexID `json:"userId"`
	Enabled *bool  `json:"enabled"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, cause error) {
	body := response{"success": false, "error": message}
	if cause != nil {
		body["details"] = cause.Error()
	}
	writeJSON(w, status, body)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.Debugf("%s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	body := response{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.health != nil {
		if err := h.health.Health(r.Context()); err != nil {
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}

	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.monitor.GetMetrics()))
}

func (h *Handler) getTrending(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "Missing userId parameter", nil)
		return
	}

	logrus.Infof("Fetching trending tokens for user %s", userID)

	// A failing feed degrades to an empty list
	tokens, err := h.trending.GetTrendingTokensForUser(r.Context(), userID)
	if err != nil {
		logrus.WithField("fid", userID).Warnf("Trending tokens unavailable: %v", err)
	}
	if tokens == nil {
		tokens = []models.TrendingToken{}
	}

	samples := make([]response, 0, 3)
	for _, t := range tokens[:min(len(tokens), 3)] {
		samples = append(samples, response{
			"symbol":   t.Symbol,
			"mentions": t.MentionCount,
			"score":    math.Round(t.TrendingScore*100) / 100,
		})
	}

	debug := response{
		"userId":       userID,
		"message":      fmt.Sprintf("Processed %d trending tokens", len(tokens)),
		"sampleTokens": samples,
	}
	if err != nil {
		debug["error"] = err.Error()
	}

	writeJSON(w, http.StatusOK, response{
		"success": true,
		"tokens":  tokens,
		"count":   len(tokens),
		"debug":   debug,
	})
}

func (h *Handler) setTrendingPreferences(w http.ResponseWriter, r *http.Request) {
	var req trendingPreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.UserID == "" || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "Missing userId or enabled parameter", nil)
		return
	}

	if err := h.trending.StorePreferences(r.Context(), string(req.UserID), *req.Enabled); err != nil {
		logrus.Errorf("Failed to store trending preferences: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update preferences", err)
		return
	}

	state := "disabled"
	if *req.Enabled {
		state = "enabled"
	}
	writeJSON(w, http.StatusOK, response{
		"success": true,
		"message": fmt.Sprintf("Trending notifications %s", state),
	})
}

func (h *Handler) debugTrending(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "Missing userId parameter", nil)
		return
	}

	report, err := h.trending.Debug(r.Context(), userID)
	if err != nil {
		logrus.Errorf("Trending debug failed for %s: %v", userID, err)
		writeError(w, http.StatusBadGateway, "Social data unavailable", err)
		return
	}

	writeJSON(w, http.StatusOK, response{"success": true, "debug": report})
}

func (h *Handler) createAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input := models.AlertInput{
		UserID:       string(req.UserID),
		TokenAddress: strings.TrimSpace(req.TokenAddress),
		TokenSymbol:  strings.TrimSpace(req.TokenSymbol),
		Condition:    req.Condition,
	}

	price, err := parseTargetPrice(req.TargetPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Target price must be a positive number", nil)
		return
	}
	input.TargetPrice = price

	if err := alerts.Validate(input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	alertID, err := h.alerts.Create(r.Context(), input)
	if err != nil {
		logrus.Errorf("Failed to create price alert: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create price alert", err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		"success": true,
		"alertId": alertID,
		"message": fmt.Sprintf("Price alert created for %s %s $%s",
			input.TokenSymbol, input.Condition, strconv.FormatFloat(input.TargetPrice, 'f', -1, 64)),
	})
}

// parseTargetPrice rejects anything that is not a JSON number. A missing price is 0.
func parseTargetPrice(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var price float64
	if err := json.Unmarshal(raw, &price); err != nil {
		return 0, err
	}
	return price, nil
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "Missing userId parameter", nil)
		return
	}

	list, err := h.alerts.ListForUser(r.Context(), userID)
	if err != nil {
		logrus.Errorf("Failed to fetch alerts for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch alerts", err)
		return
	}
	if list == nil {
		list = []models.PriceAlert{}
	}

	writeJSON(w, http.StatusOK, response{
		"success": true,
		"alerts":  list,
		"count":   len(list),
	})
}

func (h *Handler) deleteAlert(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	alertID := r.URL.Query().Get("alertId")
	if userID == "" || alertID == "" {
		writeError(w, http.StatusBadRequest, "Missing userId or alertId parameter", nil)
		return
	}

	deleted, err := h.alerts.Remove(r.Context(), userID, alertID)
	if err != nil {
		logrus.Errorf("Failed to delete alert %s: %v", alertID, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete alert", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Alert not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, response{
		"success": true,
		"message": "Alert deleted successfully",
	})
}

func (h *Handler) toggleAlert(w http.ResponseWriter, r *http.Request) {
	var req toggleAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.UserID == "" || req.AlertID == "" || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "Missing required fields: userId, alertId, enabled", nil)
		return
	}

	updated, err := h.alerts.SetEnabled(r.Context(), string(req.UserID), req.AlertID, *req.Enabled)
	if err != nil {
		logrus.Errorf("Failed to update alert %s: %v", req.AlertID, err)
		writeError(w, http.StatusInternalServerError, "Failed to update alert", err)
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "Alert not found", nil)
		return
	}

	state := "disabled"
	if *req.Enabled {
		state = "enabled"
	}
	writeJSON(w, http.StatusOK, response{
		"success": true,
		"message": fmt.Sprintf("Alert %s successfully", state),
	})
}

func (h *Handler) monitorStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{
		"message":   "Price monitoring endpoint is active. Use POST to trigger a monitoring cycle.",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) runMonitor(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	report, err := h.monitor.RunPriceMonitoring(r.Context())
	if errors.Is(err, monitoring.ErrAlreadyRunning) {
		writeError(w, http.StatusConflict, "Price monitoring cycle already running", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Price monitoring cycle failed", err)
		return
	}

	duration := time.Since(start)
	writeJSON(w, http.StatusOK, response{
		"success":   true,
		"message":   "Price monitoring cycle completed",
		"duration":  fmt.Sprintf("%dms", duration.Milliseconds()),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"report":    report,
	})
}

func (h *Handler) getBalances(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	result, err := h.balances.GetAllBalances(r.Context(), address)
	if err != nil {
		if errors.Is(err, balances.ErrInvalidAddress) {
			writeError(w, http.StatusBadRequest, "Invalid wallet address", nil)
			return
		}
		writeError(w, http.StatusBadGateway, "Failed to fetch balances", err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		"success":  true,
		"address":  address,
		"balances": result,
	})
}
