package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadswap/signals-bot/internal/alerts"
	"github.com/monadswap/signals-bot/internal/balances"
	"github.com/monadswap/signals-bot/internal/models"
	"github.com/monadswap/signals-bot/internal/monitoring"
	"github.com/monadswap/signals-bot/internal/storage"
	"github.com/monadswap/signals-bot/internal/trending"
)

type stubTrending struct {
	tokens  []models.TrendingToken
	err     error
	prefs   map[string]bool
	debug   *trending.DebugReport
	debugEr error
}

func (s *stubTrending) GetTrendingTokensForUser(ctx context.Context, fid string) ([]models.TrendingToken, error) {
	return s.tokens, s.err
}

func (s *stubTrending) StorePreferences(ctx context.Context, fid string, enabled bool) error {
	s.prefs[fid] = enabled
	return nil
}

func (s *stubTrending) Preferences(ctx context.Context, fid string) (*models.TrendingPreferences, error) {
	enabled, ok := s.prefs[fid]
	if !ok {
		return nil, nil
	}
	return &models.TrendingPreferences{Enabled: enabled}, nil
}

func (s *stubTrending) UsersWithPreferences(ctx context.Context) ([]string, error) {
	var users []string
	for fid := range s.prefs {
		users = append(users, fid)
	}
	return users, nil
}

func (s *stubTrending) Debug(ctx context.Context, fid string) (*trending.DebugReport, error) {
	return s.debug, s.debugEr
}

type stubMonitor struct {
	runs int
	err  error
}

func (m *stubMonitor) RunPriceMonitoring(ctx context.Context) (*models.CycleReport, error) {
	m.runs++
	if m.err != nil {
		return nil, m.err
	}
	return &models.CycleReport{AlertsChecked: 2, Triggered: 1}, nil
}

func (m *stubMonitor) GetMetrics() string {
	return `{"total_cycles": 3}`
}

type stubBalances struct{}

func (stubBalances) GetAllBalances(ctx context.Context, wallet string) (map[string]string, error) {
	if !strings.HasPrefix(wallet, "0x") {
		return nil, balances.ErrInvalidAddress
	}
	return map[string]string{"MON": "1.5", "USDC": "0.00"}, nil
}

type stubHealth struct{ err error }

func (s stubHealth) Health(ctx context.Context) error { return s.err }

type testEnv struct {
	router   http.Handler
	store    *alerts.Store
	trending *stubTrending
	monitor  *stubMonitor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    alerts.NewStore(storage.NewMemoryKV(), 30*24*time.Hour),
		trending: &stubTrending{prefs: map[string]bool{}},
		monitor:  &stubMonitor{},
	}
	handler := NewHandler(env.trending, env.store, env.monitor, stubBalances{}, stubHealth{})
	env.router = handler.Router()
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestCreateAlert_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{
			name:   "Valid alert with numeric userId",
			body:   `{"userId": 15104, "tokenAddress": "0xabc", "tokenSymbol": "CHOG", "targetPrice": 0.5, "condition": "above"}`,
			status: http.StatusOK,
		},
		{
			name:   "Valid alert with string userId",
			body:   `{"userId": "15104", "tokenAddress": "0xabc", "tokenSymbol": "CHOG", "targetPrice": 2, "condition": "below"}`,
			status: http.StatusOK,
		},
		{
			name:    "Missing symbol",
			body:    `{"userId": 15104, "tokenAddress": "0xabc", "targetPrice": 0.5, "condition": "above"}`,
			status:  http.StatusBadRequest,
			message: "Missing required fields: userId, tokenAddress, tokenSymbol, targetPrice, condition",
		},
		{
			name:    "Unknown condition",
			body:    `{"userId": 15104, "tokenAddress": "0xabc", "tokenSymbol": "CHOG", "targetPrice": 0.5, "condition": "sideways"}`,
			status:  http.StatusBadRequest,
			message: `Condition must be either "above" or "below"`,
		},
		{
			name:    "Negative price",
			body:    `{"userId": 15104, "tokenAddress": "0xabc", "tokenSymbol": "CHOG", "targetPrice": -1, "condition": "above"}`,
			status:  http.StatusBadRequest,
			message: "Target price must be a positive number",
		},
		{
			name:    "Price sent as string",
			body:    `{"userId": 15104, "tokenAddress": "0xabc", "tokenSymbol": "CHOG", "targetPrice": "0.5", "condition": "above"}`,
			status:  http.StatusBadRequest,
			message: "Target price must be a positive number",
		},
		{
			name:   "Malformed body",
			body:   `{"userId": `,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec, body := env.do(t, "POST", "/api/alerts", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, true, body["success"])
				assert.True(t, strings.HasPrefix(body["alertId"].(string), "alert_"))
				return
			}
			assert.Equal(t, false, body["success"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["error"])
			}

			users, err := env.store.UsersWithAlerts(context.Background())
			require.NoError(t, err)
			assert.Empty(t, users)
		})
	}
}

func TestCreateAlert_Message(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, "POST", "/api/alerts",
		`{"userId": 15104, "tokenAddress": "0xabc", "tokenSymbol": "CHOG", "targetPrice": 0.25, "condition": "above"}`)
	assert.Equal(t, "Price alert created for CHOG above $0.25", body["message"])
}

func TestAlertsLifecycle(t *testing.T) {
	env := newTestEnv(t)

	_, created := env.do(t, "POST", "/api/alerts",
		`{"userId": 42, "tokenAddress": "0xabc", "tokenSymbol": "CHOG", "targetPrice": 1, "condition": "above"}`)
	alertID := created["alertId"].(string)

	rec, listed := env.do(t, "GET", "/api/alerts?userId=42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), listed["count"])

	rec, _ = env.do(t, "PATCH", "/api/alerts", `{"userId": 42, "alertId": "`+alertID+`", "enabled": false}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	alert, err := env.store.Get(context.Background(), "42", alertID)
	require.NoError(t, err)
	assert.False(t, alert.Enabled)

	rec, body := env.do(t, "PATCH", "/api/alerts", `{"userId": 42, "alertId": "alert_missing", "enabled": true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Alert not found", body["error"])

	rec, _ = env.do(t, "PATCH", "/api/alerts", `{"userId": 42, "alertId": "`+alertID+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, "DELETE", "/api/alerts?userId=42&alertId="+alertID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, "DELETE", "/api/alerts?userId=42&alertId="+alertID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, "DELETE", "/api/alerts?userId=42", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, listed = env.do(t, "GET", "/api/alerts?userId=42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), listed["count"])
	assert.Equal(t, []interface{}{}, listed["alerts"])
}

func TestListAlerts_MissingUser(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, "GET", "/api/alerts", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing userId parameter", body["error"])
}

func TestGetTrending(t *testing.T) {
	tests := []struct {
		name   string
		target string
		tokens []models.TrendingToken
		err    error
		status int
		count  float64
	}{
		{
			name:   "Ranked tokens",
			target: "/api/trending?userId=15104",
			tokens: []models.TrendingToken{
				{TokenMention: models.TokenMention{Symbol: "CHOG", MentionCount: 3}, TrendingScore: 12.3456},
				{TokenMention: models.TokenMention{Symbol: "MON", MentionCount: 1}, TrendingScore: 2},
			},
			status: http.StatusOK,
			count:  2,
		},
		{
			name:   "Feed failure degrades to empty list",
			target: "/api/trending?userId=15104",
			err:    errors.New("neynar timeout"),
			status: http.StatusOK,
			count:  0,
		},
		{
			name:   "Missing userId",
			target: "/api/trending",
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.trending.tokens = tt.tokens
			env.trending.err = tt.err

			rec, body := env.do(t, "GET", tt.target, "")
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}

			assert.Equal(t, true, body["success"])
			assert.Equal(t, tt.count, body["count"])
			assert.Len(t, body["tokens"], int(tt.count))

			debug := body["debug"].(map[string]interface{})
			if len(tt.tokens) > 0 {
				sample := debug["sampleTokens"].([]interface{})[0].(map[string]interface{})
				assert.Equal(t, 12.35, sample["score"])
			}
		})
	}
}

func TestSetTrendingPreferences(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, "POST", "/api/trending", `{"userId": 15104, "enabled": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Trending notifications enabled", body["message"])
	assert.True(t, env.trending.prefs["15104"])

	rec, _ = env.do(t, "POST", "/api/trending", `{"userId": 15104, "enabled": "yes"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(t, "POST", "/api/trending", `{"userId": 15104}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing userId or enabled parameter", body["error"])
}

func TestDebugTrending(t *testing.T) {
	env := newTestEnv(t)
	env.trending.debug = &trending.DebugReport{UserID: "15104", FollowingCount: 12, CastsCount: 20}

	rec, body := env.do(t, "GET", "/api/trending/debug?userId=15104", "")
	require.Equal(t, http.StatusOK, rec.Code)
	debug := body["debug"].(map[string]interface{})
	assert.Equal(t, float64(12), debug["followingCount"])

	env.trending.debug, env.trending.debugEr = nil, errors.New("both calls failed")
	rec, _ = env.do(t, "GET", "/api/trending/debug?userId=15104", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMonitorPrices(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, "GET", "/api/monitor-prices", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["message"], "Use POST")
	assert.Zero(t, env.monitor.runs)

	rec, body = env.do(t, "POST", "/api/monitor-prices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.monitor.runs)
	assert.Equal(t, "Price monitoring cycle completed", body["message"])
	report := body["report"].(map[string]interface{})
	assert.Equal(t, float64(1), report["triggered"])

	env.monitor.err = errors.New("index unavailable")
	rec, body = env.do(t, "POST", "/api/monitor-prices", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "index unavailable", body["details"])

	env.monitor.err = monitoring.ErrAlreadyRunning
	rec, body = env.do(t, "POST", "/api/monitor-prices", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestBalances(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, "GET", "/api/balances/0x1234567890123456789012345678901234567890", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"MON": "1.5", "USDC": "0.00"}, body["balances"])

	rec, _ = env.do(t, "GET", "/api/balances/not-an-address", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndStatus(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	rec, body = env.do(t, "GET", "/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), body["total_cycles"])

	unhealthy := NewHandler(env.trending, env.store, env.monitor, nil, stubHealth{err: errors.New("redis down")}).Router()
	rec = httptest.NewRecorder()
	unhealthy.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFlexID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{input: `15104`, expected: "15104"},
		{input: `" 15104 "`, expected: "15104"},
		{input: `null`, expected: ""},
		{input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var id flexID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(id))
		})
	}
}
