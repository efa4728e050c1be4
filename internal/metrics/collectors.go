package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/monadswap/signals-bot/internal/storage"
)

// IndexCollector reports the size of the KV secondary indices at scrape time
type IndexCollector struct {
	kv storage.KV

	usersWithAlerts    *prometheus.Desc
	trendingSubscribed *prometheus.Desc
}

// NewIndexCollector creates a collector over kv
func NewIndexCollector(kv storage.KV) *IndexCollector {
	return &IndexCollector{
		kv: kv,
		usersWithAlerts: prometheus.NewDesc(
			"signals_users_with_alerts",
			"Number of users with at least one price alert",
			nil, nil,
		),
		trendingSubscribed: prometheus.NewDesc(
			"signals_trending_preference_users",
			"Number of users with stored trending preferences",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *IndexCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.usersWithAlerts
	ch <- c.trendingSubscribed
}

// Collect implements prometheus.Collector
func (c *IndexCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectSetSize(ctx, ch, c.usersWithAlerts, storage.UsersWithAlertsKey)
	c.collectSetSize(ctx, ch, c.trendingSubscribed, storage.TrendingPrefsUsersKey)
}

func (c *IndexCollector) collectSetSize(ctx context.Context, ch chan<- prometheus.Metric, desc *prometheus.Desc, key string) {
	n, err := c.kv.SCard(ctx, key)
	if err != nil {
		logrus.Warnf("Failed to collect size of %s: %v", key, err)
		return
	}

	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(n))
}

// RegisterIndexCollector registers collector with the default registry
func RegisterIndexCollector(collector *IndexCollector) {
	prometheus.MustRegister(collector)
}
