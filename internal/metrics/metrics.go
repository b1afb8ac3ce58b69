// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamzrod/opcua-replicator/internal/cache"
	"github.com/tamzrod/opcua-replicator/internal/poller"
)

// Collector records engine events as Prometheus metrics.
// It implements poller.Observer.
type Collector struct {
	reads       *prometheus.CounterVec
	readLatency *prometheus.HistogramVec
	state       *prometheus.GaugeVec
	attempts    prometheus.Counter
	reconnects  prometheus.Counter
	fresh       *prometheus.GaugeVec
	value       *prometheus.GaugeVec
}

var _ poller.Observer = (*Collector)(nil)

var allStates = []poller.State{
	poller.Idle, poller.Waiting, poller.Reading, poller.Updating,
	poller.Faulted, poller.Reconnecting, poller.Stopped,
}

// New creates a Collector and registers it with registerer.
// If registerer is nil, prometheus.DefaultRegisterer is used.
func New(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	c := &Collector{
		reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opcua",
				Subsystem: "poller",
				Name:      "reads_total",
				Help:      "Total number of node reads by tag and result",
			},
			[]string{"tag", "result"},
		),
		readLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "opcua",
				Subsystem: "poller",
				Name:      "read_latency_seconds",
				Help:      "Latency of node reads",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"tag"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "opcua",
				Subsystem: "poller",
				Name:      "state",
				Help:      "1 for the current engine state, 0 otherwise",
			},
			[]string{"state"},
		),
		attempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "opcua",
				Subsystem: "session",
				Name:      "reconnect_attempts_total",
				Help:      "Total number of reconnect attempts",
			},
		),
		reconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "opcua",
				Subsystem: "session",
				Name:      "reconnects_total",
				Help:      "Total number of successful reconnects",
			},
		),
		fresh: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "opcua",
				Subsystem: "cache",
				Name:      "fresh",
				Help:      "1 if the cached value of the tag is fresh",
			},
			[]string{"tag"},
		),
		value: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "opcua",
				Subsystem: "cache",
				Name:      "value",
				Help:      "Last good value of the tag",
			},
			[]string{"tag"},
		),
	}

	for _, s := range allStates {
		c.state.WithLabelValues(s.String()).Set(0)
	}

	registerer.MustRegister(
		c.reads,
		c.readLatency,
		c.state,
		c.attempts,
		c.reconnects,
		c.fresh,
		c.value,
	)

	return c
}

func (c *Collector) StateChanged(from, to poller.State) {
	c.state.WithLabelValues(from.String()).Set(0)
	c.state.WithLabelValues(to.String()).Set(1)
}

func (c *Collector) ReadCompleted(tag string, err *poller.ReadError, latency time.Duration) {
	result := "good"
	if err != nil {
		result = resultLabel(err.Kind)
	}
	c.reads.WithLabelValues(tag, result).Inc()
	c.readLatency.WithLabelValues(tag).Observe(latency.Seconds())
}

func (c *Collector) CacheUpdated(entries []cache.Entry) {
	for _, e := range entries {
		f := 0.0
		if e.Fresh {
			f = 1
		}
		c.fresh.WithLabelValues(e.Name).Set(f)
		if e.HasValue {
			c.value.WithLabelValues(e.Name).Set(e.Sample.Value)
		}
	}
}

func (c *Collector) ReconnectAttempt(uint) { c.attempts.Inc() }

func (c *Collector) Reconnected(uint) { c.reconnects.Inc() }

func resultLabel(k poller.ReadErrorKind) string {
	switch k {
	case poller.Timeout:
		return "timeout"
	case poller.SessionUnavailable:
		return "session_unavailable"
	default:
		return "bad_status"
	}
}
