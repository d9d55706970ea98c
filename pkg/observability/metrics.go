package observability

import (
	"context"

	"github.com/aretw0/strand/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the scheduler's Prometheus collectors.
type Metrics struct {
	Requests    *prometheus.CounterVec
	Spawned     prometheus.Counter
	Rendezvous  prometheus.Counter
	Kills       prometheus.Counter
	Delegations *prometheus.CounterVec
	Roots       prometheus.Gauge
	Runs        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strand_requests_total",
				Help: "Service requests issued by fibers",
			},
			[]string{"kind"},
		),
		Spawned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strand_fibers_spawned_total",
			Help: "Fibers spawned by other fibers",
		}),
		Rendezvous: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strand_rendezvous_total",
			Help: "Completed channel rendezvous",
		}),
		Kills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strand_kills_total",
			Help: "Kill requests serviced",
		}),
		Delegations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strand_delegations_total",
				Help: "Requests delegated to the host",
			},
			[]string{"kind"},
		),
		Roots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "strand_roots",
			Help: "Fibers currently rooted in the collector",
		}),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strand_runs_total",
				Help: "Finished runs by outcome",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.Requests, m.Spawned, m.Rendezvous, m.Kills, m.Delegations, m.Roots, m.Runs)
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRequest: func(_ context.Context, e *domain.FiberEvent) {
			m.Requests.WithLabelValues(string(e.Kind)).Inc()
		},
		OnRoot: func(_ context.Context, e *domain.FiberEvent) {
			m.Roots.Inc()
			if e.Type == domain.EventSpawn {
				m.Spawned.Inc()
			}
		},
		OnUnroot: func(context.Context, *domain.FiberEvent) {
			m.Roots.Dec()
		},
		OnRendezvous: func(context.Context, *domain.FiberEvent) {
			m.Rendezvous.Inc()
		},
		OnKill: func(context.Context, *domain.FiberEvent) {
			m.Kills.Inc()
		},
		OnDelegate: func(_ context.Context, e *domain.FiberEvent) {
			m.Delegations.WithLabelValues(string(e.Kind)).Inc()
		},
	}
}

// ObserveRun records the outcome of a finished run.
func (m *Metrics) ObserveRun(report *domain.Report) {
	outcome := "ok"
	if report.Error != "" {
		outcome = "error"
	}
	m.Runs.WithLabelValues(outcome).Inc()
}
