package wire_test

import (
	"testing"

	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_Stack(t *testing.T) {
	line := []byte(`{"type":"event","event":"stack","args":{"stack":[[3,{"filename":"main.py","function":"<module>"}],[10,{"filename":"app.py"}]]}}`)

	ev, err := wire.DecodeEvent(line)
	require.NoError(t, err)

	stack, ok := ev.(domain.StackUpdate)
	require.True(t, ok, "got %T", ev)
	require.Len(t, stack.Frames, 2)
	assert.Equal(t, 10, stack.Frames[1].Line)
	assert.Equal(t, "app.py", stack.Frames[1].Filename())
	assert.Equal(t, "<module>", stack.Frames[0].Meta["function"])
}

func TestDecodeEvent_EmptyStack(t *testing.T) {
	ev, err := wire.DecodeEvent([]byte(`{"type":"event","event":"stack","args":{"stack":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.StackUpdate{}, ev)
}

func TestDecodeEvent_BreakpointAcks(t *testing.T) {
	ev, err := wire.DecodeEvent([]byte(`{"type":"event","event":"breakpoint_ignore","args":{"bp":{"filename":"app.py","line":"7","enabled":true,"ignore_count":2}}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.BreakpointAck{
		Transition: domain.TransitionIgnore,
		Breakpoint: domain.Breakpoint{File: "app.py", Line: 7, Enabled: true, IgnoreCount: 2},
	}, ev, "weakly typed numbers are accepted")

	ev, err = wire.DecodeEvent([]byte(`{"type":"event","event":"breakpoint_clear","args":{"bp":{"filename":"app.py","line":20,"temporary":true},"hit":true}}`))
	require.NoError(t, err)
	ack := ev.(domain.BreakpointAck)
	assert.Equal(t, domain.TransitionClear, ack.Transition)
	assert.True(t, ack.Hit)
}

func TestDecodeEvent_Messages(t *testing.T) {
	tests := map[string]domain.Event{
		`{"type":"event","event":"line","args":{"filename":"app.py","line":4}}`:          domain.LineReached{File: "app.py", Line: 4},
		`{"type":"event","event":"call","args":{"args":"x=1"}}`:                          domain.CallEntered{Args: "x=1"},
		`{"type":"event","event":"return","args":{"retval":"None"}}`:                     domain.Returned{Value: "None"},
		`{"type":"event","event":"exception","args":{"name":"KeyError","value":"'a'"}}`:  domain.ExceptionRaised{Details: map[string]any{"name": "KeyError", "value": "'a'"}},
		`{"type":"event","event":"restart","args":{"source":"app.py"}}`:                  domain.Restarted{Source: "app.py"},
		`{"type":"event","event":"info","args":{"message":"hello"}}`:                     domain.Info{Message: "hello"},
		`{"type":"event","event":"warning","args":{"message":"hmm"}}`:                    domain.Warning{Message: "hmm"},
		`{"type":"event","event":"error","args":{"message":"boom"}}`:                     domain.Error{Message: "boom"},
		`{"type":"event","event":"bootstrap","args":{}}`:                                 wire.Handshake{},
	}
	for line, want := range tests {
		got, err := wire.DecodeEvent([]byte(line))
		require.NoError(t, err, line)
		assert.Equal(t, want, got, line)
	}
}

func TestDecodeEvent_Errors(t *testing.T) {
	_, err := wire.DecodeEvent([]byte(`not json`))
	assert.ErrorIs(t, err, wire.ErrMalformed)

	_, err = wire.DecodeEvent([]byte(`{"type":"command","command":"run"}`))
	assert.ErrorIs(t, err, wire.ErrMalformed)

	_, err = wire.DecodeEvent([]byte(`{"type":"event","event":"teleport"}`))
	assert.ErrorIs(t, err, wire.ErrUnknownEvent)

	_, err = wire.DecodeEvent([]byte(`{"type":"event","event":"stack","args":{"stack":[["x"]]}}`))
	assert.ErrorIs(t, err, wire.ErrMalformed)
}

func TestEncodeCommand(t *testing.T) {
	cmd := domain.NewBreakpointCommand(domain.CommandIgnore, "app.py", 7)
	cmd.Count = 2

	data, err := wire.EncodeCommand(cmd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"command","id":"`+cmd.ID+`","command":"ignore","args":{"filename":"app.py","line":7,"count":2}}`, string(data))

	run := domain.NewCommand(domain.CommandRun)
	data, err = wire.EncodeCommand(run)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"command","id":"`+run.ID+`","command":"run"}`, string(data))

	_, err = wire.EncodeCommand(domain.Command{Kind: "jump"})
	assert.ErrorIs(t, err, wire.ErrUnknownCommand)
}

func TestCommandRoundTrip(t *testing.T) {
	cmd := domain.NewBreakpointCommand(domain.CommandCreate, "pkg/app.py", 33)
	cmd.Temporary = true

	data, err := wire.EncodeCommand(cmd)
	require.NoError(t, err)
	got, err := wire.DecodeCommand(data)
	require.NoError(t, err)
	assert.Equal(t, cmd, got)
}

func TestEncodeEvent_DecodesBack(t *testing.T) {
	events := []domain.Event{
		domain.StackUpdate{Frames: []domain.Frame{domain.NewFrame("app.py", 10)}},
		domain.StackUpdate{},
		domain.BreakpointAck{
			Transition: domain.TransitionTemporary,
			Breakpoint: domain.Breakpoint{File: "app.py", Line: 20, Enabled: true, Temporary: true},
		},
		domain.Restarted{Source: "app.py"},
		domain.Error{Message: "boom"},
	}
	for _, ev := range events {
		data, err := wire.EncodeEvent(ev)
		require.NoError(t, err)
		got, err := wire.DecodeEvent(data)
		require.NoError(t, err)
		assert.Equal(t, ev, got)
	}
}
