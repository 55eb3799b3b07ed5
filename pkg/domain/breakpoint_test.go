package domain_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveState_PriorityOrder(t *testing.T) {
	tests := []struct {
		name string
		bp   *domain.Breakpoint
		want domain.DisplayState
	}{
		{"absent", nil, domain.StateNone},
		{"fresh", &domain.Breakpoint{File: "a.py", Line: 1, Enabled: true}, domain.StateEnabled},
		{"disabled", &domain.Breakpoint{File: "a.py", Line: 1}, domain.StateDisabled},
		{"ignored", &domain.Breakpoint{File: "a.py", Line: 1, Enabled: true, IgnoreCount: 2}, domain.StateIgnored},
		{"ignored while disabled", &domain.Breakpoint{File: "a.py", Line: 1, IgnoreCount: 1}, domain.StateIgnored},
		{"temporary wins over ignore", &domain.Breakpoint{File: "a.py", Line: 1, Temporary: true, IgnoreCount: 3}, domain.StateTemporary},
		{"temporary wins over disabled", &domain.Breakpoint{File: "a.py", Line: 1, Temporary: true}, domain.StateTemporary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.DeriveState(tt.bp))
		})
	}
}

func TestDisplayState_Text(t *testing.T) {
	data, err := json.Marshal(domain.LineState{File: "a.py", Line: 3, State: domain.StateIgnored})
	require.NoError(t, err)
	assert.JSONEq(t, `{"file":"a.py","line":3,"state":"ignored"}`, string(data))

	var ls domain.LineState
	require.NoError(t, json.Unmarshal(data, &ls))
	assert.Equal(t, domain.StateIgnored, ls.State)

	var bad domain.DisplayState
	assert.Error(t, bad.UnmarshalText([]byte("blinking")))
}

func TestConnectionError_MatchesClass(t *testing.T) {
	cause := errors.New("broken pipe")
	err := fmt.Errorf("send: %w", domain.NewConnectionError("send", cause))

	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, domain.ErrConnectionClosed)

	var connErr *domain.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "send", connErr.Op)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestNewPosition_TopFrameIsLast(t *testing.T) {
	frames := []domain.Frame{
		domain.NewFrame("main.py", 3),
		domain.NewFrame("app.py", 10),
	}
	pos := domain.NewPosition(frames)

	assert.True(t, pos.Running())
	assert.Equal(t, "app.py", pos.File)
	assert.Equal(t, 10, pos.Line)

	frames[1].Meta["filename"] = "mutated.py"
	assert.Equal(t, "app.py", pos.Stack[1].Filename(), "position must not alias the caller's frames")

	empty := domain.NewPosition(nil)
	assert.False(t, empty.Running())
	assert.Empty(t, empty.File)
}

func TestCommands(t *testing.T) {
	a := domain.NewBreakpointCommand(domain.CommandCreate, "app.py", 10)
	b := domain.NewCommand(domain.CommandRun)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, domain.Location{File: "app.py", Line: 10}, a.Location())
	assert.True(t, a.Kind.IsBreakpoint())
	assert.False(t, b.Kind.IsBreakpoint())
	assert.True(t, domain.ControllerRestarting.AcceptsCommands())
	assert.False(t, domain.ControllerFailed.AcceptsCommands())
}
