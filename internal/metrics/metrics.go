// Package metrics exposes Prometheus collectors for policy decisions and
// persistence activity.
//
// Metrics:
//   - smrsim_policy_decisions_total: decisions by direction and outcome
//   - smrsim_policy_violations_total: violations by code
//   - smrsim_policy_penalty_seconds: penalty delays applied to permitted I/O
//   - smrsim_persistence_flushes_total: flushes by kind (full, pages)
//   - smrsim_persistence_pages_written_total: state pages written
//   - smrsim_persistence_errors_total: failed flushes and loads
//   - smrsim_zones: zones in the directory
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config selects the metric namespace and whether recording is enabled.
type Config struct {
	Enabled   bool
	Namespace string
}

// Collector records engine metrics into its own registry.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	decisionsTotal  *prometheus.CounterVec
	violationsTotal *prometheus.CounterVec
	penalty         prometheus.Histogram

	flushesTotal *prometheus.CounterVec
	pagesWritten prometheus.Counter
	errorsTotal  *prometheus.CounterVec

	zones prometheus.Gauge
}

// NewCollector creates and registers the collectors. A nil registry gets a
// fresh one.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "smrsim"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "policy",
				Name:      "decisions_total",
				Help:      "Total number of policy decisions",
			},
			[]string{"direction", "outcome"},
		),
		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "policy",
				Name:      "violations_total",
				Help:      "Total number of policy violations by code",
			},
			[]string{"code"},
		),
		penalty: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "policy",
				Name:      "penalty_seconds",
				Help:      "Penalty delay applied to permitted out-of-policy I/O",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 4, 8, 10},
			},
		),
		flushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "persistence",
				Name:      "flushes_total",
				Help:      "Total number of state flushes by kind",
			},
			[]string{"kind"},
		),
		pagesWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "persistence",
				Name:      "pages_written_total",
				Help:      "Total number of state pages written",
			},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "persistence",
				Name:      "errors_total",
				Help:      "Total number of persistence failures by operation",
			},
			[]string{"op"},
		),
		zones: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "zones",
				Help:      "Number of zones in the directory",
			},
		),
	}

	registry.MustRegister(
		c.decisionsTotal,
		c.violationsTotal,
		c.penalty,
		c.flushesTotal,
		c.pagesWritten,
		c.errorsTotal,
		c.zones,
	)
	return c
}

// Registry returns the registry the collectors are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordDecision records one policy decision. Outcome is "accepted",
// "permitted" or "rejected"; violations lists every code raised.
func (c *Collector) RecordDecision(direction, outcome string, violations []string) {
	if !c.config.Enabled {
		return
	}
	c.decisionsTotal.WithLabelValues(direction, outcome).Inc()
	for _, v := range violations {
		c.violationsTotal.WithLabelValues(v).Inc()
	}
}

// RecordPenalty records an applied penalty delay.
func (c *Collector) RecordPenalty(d time.Duration) {
	if !c.config.Enabled || d <= 0 {
		return
	}
	c.penalty.Observe(d.Seconds())
}

// RecordFlush records a successful flush of the given number of pages.
func (c *Collector) RecordFlush(full bool, pages int) {
	if !c.config.Enabled {
		return
	}
	kind := "pages"
	if full {
		kind = "full"
	}
	c.flushesTotal.WithLabelValues(kind).Inc()
	c.pagesWritten.Add(float64(pages))
}

// RecordError records a persistence failure.
func (c *Collector) RecordError(op string) {
	if !c.config.Enabled {
		return
	}
	c.errorsTotal.WithLabelValues(op).Inc()
}

// SetZones updates the zone count gauge.
func (c *Collector) SetZones(n uint32) {
	if !c.config.Enabled {
		return
	}
	c.zones.Set(float64(n))
}
