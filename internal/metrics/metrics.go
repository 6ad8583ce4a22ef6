// Package metrics exposes the pool's occupancy and timing counters as
// Prometheus metrics, per SPEC_FULL.md's domain-stack wiring of
// github.com/prometheus/client_golang.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus metrics for one or more named pools. A
// "pool" label (rather than a hard dependency on a single global pool)
// lets a process run more than one Pool, per spec §9's "the design admits
// multiple independent pools".
type Collector struct {
	Registry *prometheus.Registry

	connectionsActive  *prometheus.GaugeVec
	connectionsIdle    *prometheus.GaugeVec
	connectionsTotal   *prometheus.GaugeVec
	connectionsWaiting *prometheus.GaugeVec
	acquireDuration    *prometheus.HistogramVec
	acquireTimeouts    *prometheus.CounterVec
	scavengeDrops      *prometheus.CounterVec
	sessionOpenErrors  *prometheus.CounterVec
}

// New creates and registers the pool metrics on a fresh registry. Safe to
// call more than once (e.g. in tests) — each call returns an independent
// registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		connectionsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mysqlpool_connections_active",
				Help: "Sessions currently lent out to a Handle",
			},
			[]string{"pool"},
		),
		connectionsIdle: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mysqlpool_connections_idle",
				Help: "Sessions currently sitting in the idle queue",
			},
			[]string{"pool"},
		),
		connectionsTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mysqlpool_connections_total",
				Help: "Sessions considered to belong to the pool (idle + active)",
			},
			[]string{"pool"},
		),
		connectionsWaiting: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mysqlpool_connections_waiting",
				Help: "Goroutines currently blocked in Acquire",
			},
			[]string{"pool"},
		),
		acquireDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mysqlpool_acquire_duration_seconds",
				Help:    "Time spent inside Pool.Acquire, success or failure",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
			[]string{"pool"},
		),
		acquireTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mysqlpool_acquire_timeouts_total",
				Help: "Acquire calls that returned AcquireTimeout",
			},
			[]string{"pool"},
		),
		scavengeDrops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mysqlpool_scavenge_drops_total",
				Help: "Idle sessions dropped by the scavenger, by reason",
			},
			[]string{"pool", "reason"},
		),
		sessionOpenErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mysqlpool_session_open_errors_total",
				Help: "Failed session open/reopen attempts, by source",
			},
			[]string{"pool", "source"},
		),
	}

	reg.MustRegister(
		c.connectionsActive,
		c.connectionsIdle,
		c.connectionsTotal,
		c.connectionsWaiting,
		c.acquireDuration,
		c.acquireTimeouts,
		c.scavengeDrops,
		c.sessionOpenErrors,
	)

	return c
}

// UpdatePoolStats sets the occupancy gauges for pool from a Stats snapshot.
func (c *Collector) UpdatePoolStats(name string, active, idle, total, waiting int) {
	c.connectionsActive.WithLabelValues(name).Set(float64(active))
	c.connectionsIdle.WithLabelValues(name).Set(float64(idle))
	c.connectionsTotal.WithLabelValues(name).Set(float64(total))
	c.connectionsWaiting.WithLabelValues(name).Set(float64(waiting))
}

// AcquireCompleted observes the latency of one Acquire call.
func (c *Collector) AcquireCompleted(name string, d time.Duration) {
	c.acquireDuration.WithLabelValues(name).Observe(d.Seconds())
}

// AcquireTimedOut increments the acquire-timeout counter for pool.
func (c *Collector) AcquireTimedOut(name string) {
	c.acquireTimeouts.WithLabelValues(name).Inc()
}

// ScavengeDropped records a scavenger-initiated session drop, tagged by
// reason ("unrecoverable" or "idle_trim").
func (c *Collector) ScavengeDropped(name, reason string) {
	c.scavengeDrops.WithLabelValues(name, reason).Inc()
}

// SessionOpenFailed records a failed session open/reopen, tagged by the
// caller that observed it ("warmup", "producer", "acquire", "scavenger").
func (c *Collector) SessionOpenFailed(name, source string) {
	c.sessionOpenErrors.WithLabelValues(name, source).Inc()
}

// Remove deletes all series for a named pool, e.g. when a non-singleton
// Pool is closed and discarded.
func (c *Collector) Remove(name string) {
	c.connectionsActive.DeleteLabelValues(name)
	c.connectionsIdle.DeleteLabelValues(name)
	c.connectionsTotal.DeleteLabelValues(name)
	c.connectionsWaiting.DeleteLabelValues(name)
	c.acquireDuration.DeletePartialMatch(prometheus.Labels{"pool": name})
	c.acquireTimeouts.DeleteLabelValues(name)
	c.scavengeDrops.DeletePartialMatch(prometheus.Labels{"pool": name})
	c.sessionOpenErrors.DeletePartialMatch(prometheus.Labels{"pool": name})
}
