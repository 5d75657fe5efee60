// Package metrics exposes relay counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Priya8975/status-relay/internal/domain"
)

// Recorder is the metrics sink used by the reconciler, sweeper, poller and
// command handlers.
type Recorder interface {
	RecordDelivery(kind domain.OutcomeKind, errorKind string)
	RecordFanOut(duration time.Duration)
	RecordSweep(report domain.SweepReport)
	RecordPoll(success bool, events int)
	RecordCommand(name string)
}

// Collector records metrics into a Prometheus registry.
type Collector struct {
	deliveries    *prometheus.CounterVec
	fanOutLatency prometheus.Histogram
	sweepResults  *prometheus.GaugeVec
	sweepRuns     prometheus.Counter
	polls         *prometheus.CounterVec
	pollEvents    prometheus.Counter
	commands      *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Per-subscription delivery outcomes.",
		}, []string{"outcome", "error_kind"}),
		fanOutLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_fanout_duration_seconds",
			Help:    "Time to deliver one incident update to every subscription.",
			Buckets: prometheus.DefBuckets,
		}),
		sweepResults: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "relay_sweep_subscriptions",
			Help: "Subscription counts from the most recent sweep.",
		}, []string{"result"}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_sweep_runs_total",
			Help: "Completed maintenance sweeps.",
		}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_statuspage_polls_total",
			Help: "Status page poll cycles by result.",
		}, []string{"result"}),
		pollEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_incident_events_total",
			Help: "Incident update events emitted by the poller.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_commands_total",
			Help: "Slash commands handled, by name.",
		}, []string{"command"}),
	}

	reg.MustRegister(
		c.deliveries,
		c.fanOutLatency,
		c.sweepResults,
		c.sweepRuns,
		c.polls,
		c.pollEvents,
		c.commands,
	)

	return c
}

func (c *Collector) RecordDelivery(kind domain.OutcomeKind, errorKind string) {
	c.deliveries.WithLabelValues(string(kind), errorKind).Inc()
}

func (c *Collector) RecordFanOut(duration time.Duration) {
	c.fanOutLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordSweep(report domain.SweepReport) {
	c.sweepRuns.Inc()
	c.sweepResults.WithLabelValues("total").Set(float64(report.Total))
	c.sweepResults.WithLabelValues("valid").Set(float64(report.Valid))
	c.sweepResults.WithLabelValues("invalid").Set(float64(report.Invalid))
	c.sweepResults.WithLabelValues("deleted").Set(float64(report.Deleted))
}

func (c *Collector) RecordPoll(success bool, events int) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.polls.WithLabelValues(result).Inc()
	c.pollEvents.Add(float64(events))
}

func (c *Collector) RecordCommand(name string) {
	c.commands.WithLabelValues(name).Inc()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordDelivery(domain.OutcomeKind, string) {}
func (Nop) RecordFanOut(time.Duration)                {}
func (Nop) RecordSweep(domain.SweepReport)            {}
func (Nop) RecordPoll(bool, int)                      {}
func (Nop) RecordCommand(string)                      {}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
