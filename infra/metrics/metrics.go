// Package metrics holds the prometheus collectors of the auction service.
// Every method is safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Instructions        *prometheus.CounterVec
	InstructionDuration *prometheus.HistogramVec
	ClearingSteps       prometheus.Counter
	EventsConsumed      *prometheus.CounterVec
	OutboxPublished     *prometheus.CounterVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		Instructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auction_instructions_total",
				Help: "Instructions executed, by outcome.",
			},
			[]string{"instruction", "result"},
		),
		InstructionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auction_instruction_duration_seconds",
				Help:    "Instruction latency including the store commit.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"instruction"},
		),
		ClearingSteps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "auction_clearing_steps_total",
				Help: "Price discovery steps taken.",
			},
		),
		EventsConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auction_events_consumed_total",
				Help: "Fill and out events settled.",
			},
			[]string{"kind"},
		),
		OutboxPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auction_outbox_published_total",
				Help: "Outbox publish attempts.",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(m.Instructions, m.InstructionDuration, m.ClearingSteps, m.EventsConsumed, m.OutboxPublished)
	return m
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveInstruction(name string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Instructions.WithLabelValues(name, result).Inc()
	m.InstructionDuration.WithLabelValues(name).Observe(d.Seconds())
}

func (m *Metrics) AddClearingSteps(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ClearingSteps.Add(float64(n))
}

func (m *Metrics) AddEventsConsumed(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EventsConsumed.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.OutboxPublished.WithLabelValues(result).Inc()
}
