package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value sums the samples of a family whose labels include want.
func value(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !hasLabels(m, want) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	for k, v := range want {
		found := false
		for _, lp := range m.GetLabel() {
			if lp.GetName() == k && lp.GetValue() == v {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics()
	require.NoError(t, m.Register(reg))

	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnCommand(ctx, &domain.CommandEvent{Command: domain.NewCommand(domain.CommandRun)})
	hooks.OnCommand(ctx, &domain.CommandEvent{Command: domain.NewCommand(domain.CommandRun)})
	hooks.OnCommand(ctx, &domain.CommandEvent{Command: domain.NewCommand(domain.CommandStep), Dropped: true})
	hooks.OnEventApplied(ctx, &domain.EventApplied{Kind: domain.EventStack, Duration: time.Millisecond})
	hooks.OnBreakpointChange(ctx, &domain.BreakpointChange{Kind: domain.ChangeClear})
	hooks.OnConnectionError(ctx, errors.New("eof"))

	assert.Equal(t, 2.0, value(t, reg, "bugjar_commands_total", map[string]string{"command": "run"}))
	assert.Equal(t, 1.0, value(t, reg, "bugjar_dropped_commands_total", map[string]string{"command": "step"}))
	assert.Equal(t, 1.0, value(t, reg, "bugjar_events_total", map[string]string{"event": "stack"}))
	assert.Equal(t, 1.0, value(t, reg, "bugjar_event_apply_seconds", map[string]string{"event": "stack"}))
	assert.Equal(t, 1.0, value(t, reg, "bugjar_breakpoint_changes_total", map[string]string{"kind": "clear"}))
	assert.Equal(t, 1.0, value(t, reg, "bugjar_connection_errors_total", nil))
}

func TestMetrics_RegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, observability.NewMetrics().Register(reg))
	assert.Error(t, observability.NewMetrics().Register(reg))
}

func TestChain_RunsInOrderAndSkipsNil(t *testing.T) {
	var order []string
	first := domain.LifecycleHooks{OnCommand: func(context.Context, *domain.CommandEvent) { order = append(order, "first") }}
	second := domain.LifecycleHooks{OnCommand: func(context.Context, *domain.CommandEvent) { order = append(order, "second") }}

	chained := observability.Chain(first, domain.LifecycleHooks{}, second)
	chained.OnCommand(context.Background(), &domain.CommandEvent{})
	assert.NotPanics(t, func() { chained.OnConnectionError(context.Background(), errors.New("x")) })

	assert.Equal(t, []string{"first", "second"}, order)
}
