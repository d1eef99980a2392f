package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the conversation instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Turns                *prometheus.CounterVec
	Transfers            *prometheus.CounterVec
	CollaboratorFailures *prometheus.CounterVec
	TurnDuration         prometheus.Histogram
}

// New registers every instrument on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_turns_total",
			Help: "Agent turns by agent and resulting action",
		}, []string{"agent", "action"}),

		Transfers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_transfers_total",
			Help: "Hand-offs between agents",
		}, []string{"from", "to"}),

		CollaboratorFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_collaborator_failures_total",
			Help: "Failed calls to external collaborators",
		}, []string{"collaborator"}),

		// up to 30s: a turn may chain several model calls
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bank_turn_duration_seconds",
			Help:    "Inbound message latency, including the transfer chain",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}
}

func (m *Metrics) RecordTurn(agent, action string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(agent, action).Inc()
}

func (m *Metrics) RecordTransfer(from, to string) {
	if m == nil {
		return
	}
	m.Transfers.WithLabelValues(from, to).Inc()
}

// RecordFailure counts one failed call to collaborator (nlu, directory, rates, registry).
func (m *Metrics) RecordFailure(collaborator string) {
	if m == nil {
		return
	}
	m.CollaboratorFailures.WithLabelValues(collaborator).Inc()
}

func (m *Metrics) ObserveTurn(d time.Duration) {
	if m == nil {
		return
	}
	m.TurnDuration.Observe(d.Seconds())
}
