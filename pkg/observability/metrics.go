package observability

import (
	"context"

	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics turns controller lifecycle hooks into Prometheus series.
type Metrics struct {
	Commands          *prometheus.CounterVec
	Dropped           *prometheus.CounterVec
	Events            *prometheus.CounterVec
	BreakpointChanges *prometheus.CounterVec
	ConnectionErrors  prometheus.Counter
	ApplySeconds      *prometheus.HistogramVec
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bugjar_commands_total",
				Help: "Commands sent to the debuggee",
			},
			[]string{"command"},
		),
		Dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bugjar_dropped_commands_total",
				Help: "Commands refused because the session was not accepting them",
			},
			[]string{"command"},
		),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bugjar_events_total",
				Help: "Debuggee events applied",
			},
			[]string{"event"},
		),
		BreakpointChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bugjar_breakpoint_changes_total",
				Help: "Acknowledged breakpoint transitions",
			},
			[]string{"kind"},
		),
		ConnectionErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bugjar_connection_errors_total",
				Help: "Transport failures that ended a session",
			},
		),
		ApplySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bugjar_event_apply_seconds",
				Help:    "Time to apply one event and notify observers",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"event"},
		),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Commands, m.Dropped, m.Events, m.BreakpointChanges, m.ConnectionErrors, m.ApplySeconds,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommand: func(_ context.Context, e *domain.CommandEvent) {
			if e.Dropped {
				m.Dropped.WithLabelValues(string(e.Command.Kind)).Inc()
				return
			}
			m.Commands.WithLabelValues(string(e.Command.Kind)).Inc()
		},
		OnEventApplied: func(_ context.Context, e *domain.EventApplied) {
			m.Events.WithLabelValues(string(e.Kind)).Inc()
			m.ApplySeconds.WithLabelValues(string(e.Kind)).Observe(e.Duration.Seconds())
		},
		OnBreakpointChange: func(_ context.Context, c *domain.BreakpointChange) {
			m.BreakpointChanges.WithLabelValues(string(c.Kind)).Inc()
		},
		OnConnectionError: func(context.Context, error) {
			m.ConnectionErrors.Inc()
		},
	}
}

// Chain runs several hook sets in order. Nil callbacks are skipped.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommand: func(ctx context.Context, e *domain.CommandEvent) {
			for _, h := range sets {
				if h.OnCommand != nil {
					h.OnCommand(ctx, e)
				}
			}
		},
		OnEventApplied: func(ctx context.Context, e *domain.EventApplied) {
			for _, h := range sets {
				if h.OnEventApplied != nil {
					h.OnEventApplied(ctx, e)
				}
			}
		},
		OnBreakpointChange: func(ctx context.Context, c *domain.BreakpointChange) {
			for _, h := range sets {
				if h.OnBreakpointChange != nil {
					h.OnBreakpointChange(ctx, c)
				}
			}
		},
		OnConnectionError: func(ctx context.Context, err error) {
			for _, h := range sets {
				if h.OnConnectionError != nil {
					h.OnConnectionError(ctx, err)
				}
			}
		},
	}
}
