package models

import "time"

// Engagement holds the reaction counters of a social post
type Engagement struct {
	Likes   int `json:"likes"`
	Reposts int `json:"reposts"`
	Replies int `json:"replies"`
}

// Total returns likes + reposts + replies
func (e Engagement) Total() int {
	return e.Likes + e.Reposts + e.Replies
}

// SocialPost represents a post (cast) fetched from the social graph
type SocialPost struct {
	ID           string     `json:"id"`
	AuthorHandle string     `json:"author_handle"`
	Text         string     `json:"text"`
	Timestamp    time.Time  `json:"timestamp"`
	Engagement   Engagement `json:"engagement"`
}

// SocialUser is an account in a user's follow graph
type SocialUser struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// TokenMention aggregates every occurrence of one symbol across a batch of posts
type TokenMention struct {
	Symbol          string      `json:"symbol"`
	MentionCount    int         `json:"mentionCount"`
	EngagementScore int         `json:"engagementScore"`
	MentionedBy     []string    `json:"mentionedBy"`
	RecentMentions  []time.Time `json:"recentMentions"`
}

// PriceData is the live price attached to a trending token
type PriceData struct {
	CurrentUSD    float64 `json:"current"`
	Change24hPct  float64 `json:"change24h"`
	ConfidencePct float64 `json:"confidence"`
}

// TrendingToken is a scored, optionally price-enriched token mention
type TrendingToken struct {
	TokenMention
	TrendingScore   float64    `json:"trendingScore"`
	ContractAddress string     `json:"contractAddress,omitempty"`
	PriceData       *PriceData `json:"priceData,omitempty"`
}

// Condition is the direction a price alert watches for
type Condition string

const (
	ConditionAbove Condition = "above"
	ConditionBelow Condition = "below"
)

// Valid reports whether c is a known condition
func (c Condition) Valid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// PriceAlert represents a persisted user price alert
type PriceAlert struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	TokenAddress    string     `json:"tokenAddress"`
	TokenSymbol     string     `json:"tokenSymbol"`
	TargetPrice     float64    `json:"targetPrice"`
	Condition       Condition  `json:"condition"`
	Enabled         bool       `json:"enabled"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastTriggeredAt *time.Time `json:"lastTriggeredAt,omitempty"`
}

// AlertInput carries the caller-supplied fields of a new alert
type AlertInput struct {
	UserID       string    `json:"userId" validate:"required,number"`
	TokenAddress string    `json:"tokenAddress" validate:"required"`
	TokenSymbol  string    `json:"tokenSymbol" validate:"required"`
	TargetPrice  float64   `json:"targetPrice" validate:"gt=0"`
	Condition    Condition `json:"condition" validate:"required,oneof=above below"`
}

// TrendingPreferences is a user's opt-in for trending notifications
type TrendingPreferences struct {
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CycleReport summarises one price alert check cycle
type CycleReport struct {
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	UsersChecked     int           `json:"users_checked"`
	AlertsChecked    int           `json:"alerts_checked"`
	DisabledSkipped  int           `json:"disabled_skipped"`
	CooldownSkipped  int           `json:"cooldown_skipped"`
	PriceUnavailable int           `json:"price_unavailable"`
	Triggered        int           `json:"triggered"`
	NotifyFailures   int           `json:"notify_failures"`
	StoreErrors      int           `json:"store_errors"`
	ExpiredCleaned   int           `json:"expired_cleaned"`
}

// Add accumulates the counters and duration of other into r
func (r *CycleReport) Add(other CycleReport) {
	r.Duration += other.Duration
	r.UsersChecked += other.UsersChecked
	r.AlertsChecked += other.AlertsChecked
	r.DisabledSkipped += other.DisabledSkipped
	r.CooldownSkipped += other.CooldownSkipped
	r.PriceUnavailable += other.PriceUnavailable
	r.Triggered += other.Triggered
	r.NotifyFailures += other.NotifyFailures
	r.StoreErrors += other.StoreErrors
	r.ExpiredCleaned += other.ExpiredCleaned
}

// Report represents a periodic operator summary
type Report struct {
	GeneratedAt         time.Time    `json:"generated_at"`
	Period              string       `json:"period"`
	Cycles              int          `json:"cycles"`
	Totals              CycleReport  `json:"totals"`
	LastCycle           *CycleReport `json:"last_cycle,omitempty"`
	UsersWithAlerts     int          `json:"users_with_alerts"`
	TrendingSubscribers int          `json:"trending_subscribers"`
	DigestsSent         int          `json:"digests_sent"`
}

// Severity grades an operator alert
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// OpsAlert is an urgent operator notification, e.g. a failed monitoring run
type OpsAlert struct {
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
