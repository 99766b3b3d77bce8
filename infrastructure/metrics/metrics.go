// Package metrics exposes publish and sweep instrumentation to Prometheus.
package metrics

import (
	"time"

	"blog-publisher/domain/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "blog_publisher"

var (
	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Publish attempts by platform and result",
		},
		[]string{"platform", "result"}, // result: "success" or an error kind
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Duration of a publish including retries",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"platform"},
	)

	publishRetries = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_retries",
			Help:      "Retries spent per publish",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"platform"},
	)

	tokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "OAuth token refreshes by platform and result",
		},
		[]string{"platform", "result"},
	)

	sweepPosts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_posts_total",
			Help:      "Posts handled by the scheduled sweep",
		},
		[]string{"outcome"}, // "published", "failed", "skipped"
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of one sweep run",
			Buckets:   prometheus.DefBuckets,
		},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_open",
			Help:      "1 while a platform circuit breaker is open or half-open",
		},
		[]string{"platform"},
	)
)

func ObservePublish(platform string, res model.PublishResult, elapsed time.Duration) {
	result := "success"
	if !res.Success {
		result = string(res.Kind)
		if result == "" {
			result = "unknown"
		}
	}
	publishTotal.WithLabelValues(platform, result).Inc()
	publishDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
	publishRetries.WithLabelValues(platform).Observe(float64(res.Retries))
}

func ObserveTokenRefresh(platform string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	tokenRefreshTotal.WithLabelValues(platform, result).Inc()
}

func ObserveSweep(report model.SweepReport, elapsed time.Duration) {
	sweepPosts.WithLabelValues("published").Add(float64(report.Published))
	sweepPosts.WithLabelValues("failed").Add(float64(report.Failed))
	sweepPosts.WithLabelValues("skipped").Add(float64(report.Skipped))
	sweepDuration.Observe(elapsed.Seconds())
}

// BreakerStateChanged matches platform.BreakerConfig.OnStateChange.
func BreakerStateChanged(platform, _, to string) {
	v := 0.0
	if to != "closed" {
		v = 1
	}
	breakerState.WithLabelValues(platform).Set(v)
}
