package scripting_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/bugjar/internal/testutils"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/observer"
	"github.com/aretw0/bugjar/pkg/scripting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// syncBuffer is written by the handler goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newEngine(t *testing.T, sess *testutils.MockSession) (*scripting.Engine, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	var e *scripting.Engine
	if sess == nil {
		e = scripting.New(nil, scripting.WithOutput(out))
	} else {
		e = scripting.New(sess, scripting.WithOutput(out))
	}
	t.Cleanup(func() { _ = e.Close() })
	return e, out
}

func TestEngine_Commands(t *testing.T) {
	sess := new(testutils.MockSession)
	sess.On("ToggleBreakpoint", mock.Anything, "app.py", 10).Return(nil)
	sess.On("CreateBreakpoint", mock.Anything, "app.py", 12, true).Return(nil)
	sess.On("IgnoreBreakpoint", mock.Anything, "app.py", 10, 3).Return(nil)
	sess.On("Step", mock.Anything).Return(nil)
	sess.On("Run", mock.Anything).Return(nil)

	e, _ := newEngine(t, sess)
	err := e.DoString(context.Background(), `
		assert(bugjar.toggle("app.py", 10))
		assert(bugjar.tbreak("app.py", 12))
		assert(bugjar.ignore("app.py", 10, 3))
		assert(bugjar.step())
		assert(bugjar.run())
	`)
	require.NoError(t, err)
	sess.AssertExpectations(t)
}

func TestEngine_CommandErrorsAreValues(t *testing.T) {
	sess := new(testutils.MockSession)
	sess.On("ClearBreakpoint", mock.Anything, "app.py", 99).Return(domain.ErrUnknownBreakpoint)

	e, out := newEngine(t, sess)
	err := e.DoString(context.Background(), `
		local ok, msg = bugjar.clear("app.py", 99)
		print(ok, msg)
	`)
	require.NoError(t, err)
	assert.Equal(t, "nil\t"+domain.ErrUnknownBreakpoint.Error()+"\n", out.String())
}

func TestEngine_Queries(t *testing.T) {
	sess := new(testutils.MockSession)
	sess.On("CurrentFileBreakpoints", "app.py").Return([]domain.LineState{
		{File: "app.py", Line: 10, State: domain.StateEnabled},
		{File: "app.py", Line: 20, State: domain.StateIgnored},
	})
	sess.On("Position").Return(domain.NewPosition([]domain.Frame{domain.NewFrame("app.py", 7)}))
	sess.On("State").Return(domain.ControllerActive)

	e, out := newEngine(t, sess)
	err := e.DoString(context.Background(), `
		local bps = bugjar.breakpoints("app.py")
		print(#bps, bps[1].line, bps[2].state)
		local pos = bugjar.position()
		print(pos.running, pos.file, pos.line, #pos.stack)
		print(bugjar.state())
	`)
	require.NoError(t, err)

	want := "2\t10\t" + domain.StateIgnored.String() + "\n" +
		"true\tapp.py\t7\t1\n" +
		domain.ControllerActive.String() + "\n"
	assert.Equal(t, want, out.String())
}

func TestEngine_NoSession(t *testing.T) {
	e, out := newEngine(t, nil)
	require.NoError(t, e.DoString(context.Background(), `print(bugjar.step())`))
	assert.Equal(t, "nil\t"+scripting.ErrNoSession.Error()+"\n", out.String())
}

func TestEngine_Sandbox(t *testing.T) {
	e, out := newEngine(t, nil)
	require.NoError(t, e.DoString(context.Background(), `print(io == nil, os == nil, require == nil)`))
	assert.Equal(t, "true\ttrue\ttrue\n", out.String())
}

func TestEngine_SyntaxError(t *testing.T) {
	e, _ := newEngine(t, nil)
	assert.Error(t, e.DoString(context.Background(), `this is not lua`))
}

func TestEngine_Timeout(t *testing.T) {
	e := scripting.New(nil, scripting.WithTimeout(50*time.Millisecond))
	defer e.Close()

	start := time.Now()
	err := e.DoString(context.Background(), `while true do end`)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEngine_DoFile(t *testing.T) {
	sess := new(testutils.MockSession)
	sess.On("Next", mock.Anything).Return(nil)

	path := filepath.Join(t.TempDir(), "auto.lua")
	require.NoError(t, os.WriteFile(path, []byte(`assert(bugjar.next())`), 0o644))

	e, _ := newEngine(t, sess)
	require.NoError(t, e.DoFile(context.Background(), path))
	sess.AssertExpectations(t)
}

func TestEngine_Handlers(t *testing.T) {
	e, out := newEngine(t, nil)
	require.NoError(t, e.DoString(context.Background(), `
		function on_line(file, line) print("line", file, line) end
		function on_breakpoint(kind, bp) print("bp", kind, bp.file, bp.line, bp.hit) end
		function on_exception(d) print("exc", d.type) end
	`))

	e.OnLine("app.py", 3)
	e.OnBreakpointChanged(domain.BreakpointChange{
		Kind:       domain.ChangeClear,
		Breakpoint: domain.NewBreakpoint("app.py", 5),
		State:      domain.StateNone,
		Hit:        true,
	})
	e.OnException(map[string]any{"type": "ValueError"})
	e.OnInfo("no handler for this one")

	want := "line\tapp.py\t3\nbp\tclear\tapp.py\t5\ttrue\nexc\tValueError\n"
	assert.Eventually(t, func() bool { return out.String() == want }, time.Second, 10*time.Millisecond)
}

func TestEngine_HandlerErrorIsContained(t *testing.T) {
	e, out := newEngine(t, nil)
	require.NoError(t, e.DoString(context.Background(), `
		function on_info(msg) error("boom") end
		function on_warning(msg) print("still alive", msg) end
	`))

	e.OnInfo("x")
	e.OnWarning("y")

	assert.Eventually(t, func() bool { return out.String() == "still alive\ty\n" }, time.Second, 10*time.Millisecond)
}

func TestEngine_CloseIgnoresLaterNotifications(t *testing.T) {
	e := scripting.New(nil)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	e.OnLine("app.py", 1)
	assert.ErrorIs(t, e.DoString(context.Background(), `print(1)`), scripting.ErrClosed)
}

// A handler that issues a command runs against a live controller without
// re-entering the Lua state.
func TestEngine_DrivesController(t *testing.T) {
	out := &syncBuffer{}
	e := scripting.New(nil, scripting.WithOutput(out))
	defer e.Close()

	rec := observer.NewRecorder(0)
	ctl, dbg := testutils.StartedSession(t, observer.NewMulti(rec, e))
	e.Bind(ctl)

	require.NoError(t, e.DoString(context.Background(), `
		function on_line(file, line)
			if line == 3 then assert(bugjar.step()) end
		end
		function on_breakpoint(kind, bp) print(kind, bp.file, bp.line, bp.state) end
		assert(bugjar.toggle("app.py", 3))
	`))

	assert.Eventually(t, func() bool {
		return out.String() == "enable\tapp.py\t3\t"+domain.StateEnabled.String()+"\n"
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, dbg.Emit(context.Background(), domain.LineReached{File: "app.py", Line: 3}))

	assert.Eventually(t, func() bool {
		for _, cmd := range dbg.Received() {
			if cmd.Kind == domain.CommandStep {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}
