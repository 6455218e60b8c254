// Package metrics exposes packing and plan-commit counters to Prometheus.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xelth-com/fabricplan/internal/packing"
)

// Collector records planning metrics. Metrics are registered lazily on first use.
type Collector struct {
	reg       prometheus.Registerer
	gatherer  prometheus.Gatherer
	namespace string
	once      sync.Once

	packAttempts *prometheus.CounterVec
	packDuration *prometheus.HistogramVec
	packExcluded *prometheus.CounterVec
	packUtilized *prometheus.HistogramVec
	commits      *prometheus.CounterVec
	plansDeleted prometheus.Counter
}

// NewPrometheus creates a collector on reg.
//
// Parameters:
//   - reg: registry to register on; a fresh registry is created if nil
//   - namespace: metric namespace, "fabricplan" if empty
func NewPrometheus(reg *prometheus.Registry, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "fabricplan"
	}
	return &Collector{reg: reg, gatherer: reg, namespace: namespace}
}

func (c *Collector) ensureRegistered() {
	c.once.Do(func() {
		c.packAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: "packing",
			Name:      "attempts_total",
			Help:      "Packing attempts by strategy.",
		}, []string{"strategy"})

		c.packDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.namespace,
			Subsystem: "packing",
			Name:      "duration_seconds",
			Help:      "Time spent in one packing attempt by strategy.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8), // 100µs .. ~1.6s
		}, []string{"strategy"})

		c.packExcluded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: "packing",
			Name:      "excluded_pieces_total",
			Help:      "Pieces left out of a packing attempt by reason.",
		}, []string{"reason"})

		c.packUtilized = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.namespace,
			Subsystem: "packing",
			Name:      "utilization_percent",
			Help:      "Roll utilization achieved per attempt by strategy.",
			Buckets:   prometheus.LinearBuckets(10, 10, 9),
		}, []string{"strategy"})

		c.commits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: "plan",
			Name:      "commits_total",
			Help:      "Plan commit outcomes (created|conflict|failed).",
		}, []string{"result"})

		c.plansDeleted = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: "plan",
			Name:      "deleted_total",
			Help:      "Plans deleted, releasing their orders.",
		})

		c.reg.MustRegister(c.packAttempts, c.packDuration, c.packExcluded, c.packUtilized, c.commits, c.plansDeleted)
	})
}

// ObservePacking is a packing.Observer. It is safe for concurrent use.
func (c *Collector) ObservePacking(strategy packing.Strategy, elapsed time.Duration, outcome *packing.Outcome) {
	c.ensureRegistered()
	s := string(strategy)
	c.packAttempts.WithLabelValues(s).Inc()
	c.packDuration.WithLabelValues(s).Observe(elapsed.Seconds())
	c.packUtilized.WithLabelValues(s).Observe(outcome.UtilizationPct.InexactFloat64())
	for _, ex := range outcome.Excluded {
		c.packExcluded.WithLabelValues(string(ex.Reason)).Inc()
	}
}

// CommitResult counts one plan commit outcome
func (c *Collector) CommitResult(result string) {
	c.ensureRegistered()
	c.commits.WithLabelValues(result).Inc()
}

// PlanDeleted counts a plan deletion
func (c *Collector) PlanDeleted() {
	c.ensureRegistered()
	c.plansDeleted.Inc()
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	c.ensureRegistered()
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
