package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricewatch_scans_total",
		Help: "Completed scan passes by terminal status.",
	}, []string{"status"})

	ScrapesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricewatch_scrapes_total",
		Help: "Per-product scrape outcomes.",
	}, []string{"platform", "result"})

	NotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricewatch_notifications_total",
		Help: "Price alerts dispatched.",
	})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricewatch_scan_duration_seconds",
		Help:    "Wall-clock duration of full scan passes.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)
