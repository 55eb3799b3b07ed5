// Package scripting runs Lua automation against a debugger session.
//
// Scripts drive the session through the global "bugjar" table and react to
// session notifications by defining global handlers such as on_line or
// on_breakpoint. The Engine is a ports.Observer; register it with the
// controller to have handlers called.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aretw0/bugjar/internal/logging"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds one script run or one handler call.
const DefaultTimeout = 5 * time.Second

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("scripting engine closed")
	// ErrNoSession is raised by bugjar functions before Bind.
	ErrNoSession = errors.New("no session bound")
)

// QueueSize bounds handler calls waiting for the Lua state.
const QueueSize = 256

// Engine owns one Lua state. gopher-lua states are not goroutine-safe, so
// every entry point serializes on mu. Handlers run on a dedicated goroutine:
// a command issued from Lua may itself produce a notification, which is
// queued instead of re-entering the state.
type Engine struct {
	mu      sync.Mutex
	L       *lua.LState
	closed  bool
	session ports.Session

	qmu     sync.RWMutex
	stopped bool
	calls   chan handlerCall
	done    chan struct{}

	logger  *slog.Logger
	out     io.Writer
	timeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger configures a logger for handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithOutput redirects Lua print. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.out = w
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// New creates a sandboxed engine. sess may be nil and bound later.
func New(sess ports.Session, opts ...Option) *Engine {
	e := &Engine{
		session: sess,
		logger:  logging.NewNop(),
		out:     os.Stdout,
		timeout: DefaultTimeout,
		calls:   make(chan handlerCall, QueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(e.L)
	e.L.SetGlobal("print", e.L.NewFunction(e.print))
	e.L.SetGlobal("bugjar", e.L.SetFuncs(e.L.NewTable(), e.api()))

	go e.dispatchLoop()
	return e
}

// openSafeLibraries leaves out io, os, debug and package.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// Bind attaches the session the bugjar functions act on.
func (e *Engine) Bind(sess ports.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = sess
}

// DoString runs a chunk of Lua.
func (e *Engine) DoString(ctx context.Context, code string) error {
	return e.run(ctx, func() error { return e.L.DoString(code) })
}

// DoFile runs a Lua file.
func (e *Engine) DoFile(ctx context.Context, path string) error {
	return e.run(ctx, func() error { return e.L.DoFile(path) })
}

func (e *Engine) run(ctx context.Context, fn func() error) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	e.L.SetContext(ctx)
	defer e.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Close runs the handler calls already queued, then releases the Lua
// state. Later notifications are ignored.
func (e *Engine) Close() error {
	e.qmu.Lock()
	if e.stopped {
		e.qmu.Unlock()
		return nil
	}
	e.stopped = true
	close(e.calls)
	e.qmu.Unlock()
	<-e.done

	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.L.Close()
	return nil
}

func (e *Engine) print(L *lua.LState) int {
	n := L.GetTop()
	for i := 1; i <= n; i++ {
		if i > 1 {
			fmt.Fprint(e.out, "\t")
		}
		fmt.Fprint(e.out, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(e.out)
	return 0
}

type handlerCall struct {
	name  string
	build func(L *lua.LState) []lua.LValue
}

// handle queues a call to the global Lua function name.
func (e *Engine) handle(name string, build func(L *lua.LState) []lua.LValue) {
	e.qmu.RLock()
	defer e.qmu.RUnlock()
	if e.stopped {
		return
	}
	select {
	case e.calls <- handlerCall{name: name, build: build}:
	default:
		e.logger.Warn("Lua handler queue full, dropping notification", "handler", name)
	}
}

func (e *Engine) dispatchLoop() {
	defer close(e.done)
	for call := range e.calls {
		e.dispatch(call.name, call.build)
	}
}

// dispatch calls the handler if the script defined one. Handler errors are
// logged and never reach the session.
func (e *Engine) dispatch(name string, build func(L *lua.LState) []lua.LValue) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	fn := e.L.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return
	}
	var args []lua.LValue
	if build != nil {
		args = build(e.L)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	e.L.SetContext(ctx)
	defer e.L.RemoveContext()

	if err := e.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
		e.logger.Warn("Lua handler failed", "handler", name, "err", err)
	}
}

// toLua converts decoded JSON-like values.
func toLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case []any:
		t := L.NewTable()
		for _, item := range x {
			t.Append(toLua(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range x {
			t.RawSetString(k, toLua(L, item))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(x))
	}
}

func framesTable(L *lua.LState, frames []domain.Frame) *lua.LTable {
	t := L.NewTable()
	for _, f := range frames {
		ft := L.NewTable()
		ft.RawSetString("file", lua.LString(f.Filename()))
		ft.RawSetString("line", lua.LNumber(f.Line))
		t.Append(ft)
	}
	return t
}

func breakpointTable(L *lua.LState, bp domain.Breakpoint) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("file", lua.LString(bp.File))
	t.RawSetString("line", lua.LNumber(bp.Line))
	t.RawSetString("enabled", lua.LBool(bp.Enabled))
	t.RawSetString("temporary", lua.LBool(bp.Temporary))
	t.RawSetString("ignore_count", lua.LNumber(bp.IgnoreCount))
	t.RawSetString("state", lua.LString(domain.DeriveState(&bp).String()))
	return t
}
