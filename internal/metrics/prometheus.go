package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Job metrics
	JobExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_job_executions_total",
			Help: "Total number of scheduled job executions",
		},
		[]string{"job", "status"}, // status: success|error
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signals_job_duration_seconds",
			Help:    "Scheduled job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"job"},
	)

	JobLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "signals_job_last_run_timestamp",
			Help: "Unix timestamp of last job execution",
		},
		[]string{"job"},
	)

	// Alert metrics
	AlertOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_alert_outcomes_total",
			Help: "Alert evaluations by outcome",
		},
		// outcome: triggered|not_crossed|cooldown|disabled|price_unavailable|notify_failed|store_error
		[]string{"outcome"},
	)

	AlertsCleaned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signals_alerts_expired_cleaned_total",
			Help: "Alert IDs removed from indices after their record expired",
		},
	)

	// Trending metrics
	TrendingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_trending_requests_total",
			Help: "Trending token requests by cache result",
		},
		[]string{"cache"}, // cache: hit|miss
	)

	TrendingTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signals_trending_tokens",
			Help:    "Number of tokens in a computed trending list",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	// Upstream metrics
	UpstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_upstream_calls_total",
			Help: "Total number of upstream API calls",
		},
		[]string{"upstream", "operation", "status"}, // status: success|error
	)

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signals_upstream_latency_seconds",
			Help:    "Upstream API latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"upstream", "operation"},
	)

	// Notification metrics
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_notifications_total",
			Help: "User notifications by kind and status",
		},
		[]string{"kind", "status"}, // kind: price_alert|trending, status: success|error
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(JobExecutions)
		prometheus.MustRegister(JobDuration)
		prometheus.MustRegister(JobLastRun)

		prometheus.MustRegister(AlertOutcomes)
		prometheus.MustRegister(AlertsCleaned)

		prometheus.MustRegister(TrendingRequests)
		prometheus.MustRegister(TrendingTokens)

		prometheus.MustRegister(UpstreamCalls)
		prometheus.MustRegister(UpstreamLatency)

		prometheus.MustRegister(NotificationsSent)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordJobExecution records a scheduled job run
func RecordJobExecution(job string, duration time.Duration, err error) {
	JobExecutions.WithLabelValues(job, status(err)).Inc()
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
	JobLastRun.WithLabelValues(job).SetToCurrentTime()
}

// RecordAlertOutcome records the result of evaluating one alert
func RecordAlertOutcome(outcome string) {
	AlertOutcomes.WithLabelValues(outcome).Inc()
}

// RecordAlertsCleaned records alert IDs dropped by the expiry sweep
func RecordAlertsCleaned(n int) {
	if n > 0 {
		AlertsCleaned.Add(float64(n))
	}
}

// RecordTrendingRequest records a trending lookup and, on a miss, the size of the computed list
func RecordTrendingRequest(cacheHit bool, tokens int) {
	if cacheHit {
		TrendingRequests.WithLabelValues("hit").Inc()
		return
	}
	TrendingRequests.WithLabelValues("miss").Inc()
	TrendingTokens.Observe(float64(tokens))
}

// RecordUpstreamCall records an upstream API call
func RecordUpstreamCall(upstream, operation string, latency time.Duration, err error) {
	UpstreamCalls.WithLabelValues(upstream, operation, status(err)).Inc()
	UpstreamLatency.WithLabelValues(upstream, operation).Observe(latency.Seconds())
}

// RecordNotification records a user notification attempt
func RecordNotification(kind string, err error) {
	NotificationsSent.WithLabelValues(kind, status(err)).Inc()
}
