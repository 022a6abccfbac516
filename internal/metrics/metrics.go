// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records per-run query outcomes as Prometheus metrics and
// writes them to a node-exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/dataset-popularity/pkg/types"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder holds the metrics of one run. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	matchCount    *prometheus.GaugeVec
	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
	rateLimited   prometheus.Gauge
	lastRun       prometheus.Gauge
}

// NewRecorder creates a recorder on its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		matchCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dataset_popularity_match_count",
			Help: "GitHub code search total_count for the dataset's load call",
		}, []string{"ecosystem", "dataset"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dataset_popularity_queries_total",
			Help: "Code search queries by outcome",
		}, []string{"ecosystem", "outcome"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dataset_popularity_query_duration_seconds",
			Help:    "Code search request latency, including rate-limit pauses",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		}),
		rateLimited: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dataset_popularity_rate_limited",
			Help: "1 when the last run stopped early on an exhausted rate limit",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dataset_popularity_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
	r.registry.MustRegister(r.matchCount, r.queries, r.queryDuration, r.rateLimited, r.lastRun)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Observe records one dataset outcome and how long its query took.
func (r *Recorder) Observe(rec types.PopularityRecord, took time.Duration) {
	if r == nil {
		return
	}
	r.queryDuration.Observe(took.Seconds())
	if rec.Failed() {
		r.queries.WithLabelValues(rec.Ecosystem, OutcomeFailure).Inc()
		return
	}
	r.queries.WithLabelValues(rec.Ecosystem, OutcomeSuccess).Inc()
	r.matchCount.WithLabelValues(rec.Ecosystem, rec.Dataset).Set(float64(rec.Count))
}

// RateLimited flags that the run was cut short by the provider's quota.
func (r *Recorder) RateLimited() {
	if r == nil {
		return
	}
	r.rateLimited.Set(1)
}

// Finish stamps the run completion time.
func (r *Recorder) Finish(at time.Time) {
	if r == nil {
		return
	}
	r.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics in the Prometheus text format. The
// write is atomic so a collector never reads a half-written file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
