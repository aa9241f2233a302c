// Package metrics holds the Prometheus instrumentation for storeadmin.
// A nil *Collector is valid and records nothing, so components can take
// one unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport_error"
	OutcomeAPI       = "api_error"
	OutcomeFailure   = "failure"
	OutcomePartial   = "partial"
)

// Config holds the metric name prefix.
type Config struct {
	Namespace string `yaml:"namespace" json:"namespace"`
	Subsystem string `yaml:"subsystem" json:"subsystem"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Namespace: "storeadmin"}
}

// Collector wraps the Prometheus vectors used by the resource client,
// the action menu and the cleanup sweeper. It owns its registry.
type Collector struct {
	registry *prometheus.Registry

	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	Actions            *prometheus.CounterVec
	PendingAssets      prometheus.Gauge
	SweepAttempts      *prometheus.CounterVec
	StaleLoads         *prometheus.CounterVec
}

// New creates a Collector with the default configuration.
func New() *Collector {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Collector with its own registry.
func NewWithConfig(cfg Config) *Collector {
	reg := prometheus.NewRegistry()
	ns, sub := cfg.Namespace, cfg.Subsystem

	c := &Collector{
		registry: reg,
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "api_requests_total",
			Help:      "Total number of admin API requests",
		}, []string{"kind", "operation", "outcome"}),
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "api_request_duration_seconds",
			Help:      "Duration of admin API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "operation"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "row_actions_total",
			Help:      "Total number of row actions by outcome",
		}, []string{"kind", "action", "outcome"}),
		PendingAssets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "pending_asset_deletions",
			Help:      "Asset deletions waiting for a retry",
		}),
		SweepAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "asset_sweep_attempts_total",
			Help:      "Retried asset deletions by result",
		}, []string{"result"}),
		StaleLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "stale_loads_discarded_total",
			Help:      "List responses discarded because a newer load superseded them",
		}, []string{"kind"}),
	}

	reg.MustRegister(c.APIRequests, c.APIRequestDuration, c.Actions,
		c.PendingAssets, c.SweepAttempts, c.StaleLoads)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns an HTTP handler that serves the collector's metrics.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordAPIRequest records one admin API call.
func (c *Collector) RecordAPIRequest(kind, operation, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.APIRequests.WithLabelValues(kind, operation, outcome).Inc()
	c.APIRequestDuration.WithLabelValues(kind, operation).Observe(duration.Seconds())
}

// RecordAction records the outcome of a row action.
func (c *Collector) RecordAction(kind, action, outcome string) {
	if c == nil {
		return
	}
	c.Actions.WithLabelValues(kind, action, outcome).Inc()
}

// SetPendingAssets sets the pending asset deletion gauge.
func (c *Collector) SetPendingAssets(n int) {
	if c == nil {
		return
	}
	c.PendingAssets.Set(float64(n))
}

// RecordSweep records one retried asset deletion.
func (c *Collector) RecordSweep(result string) {
	if c == nil {
		return
	}
	c.SweepAttempts.WithLabelValues(result).Inc()
}

// RecordStaleLoad records a discarded list response.
func (c *Collector) RecordStaleLoad(kind string) {
	if c == nil {
		return
	}
	c.StaleLoads.WithLabelValues(kind).Inc()
}
