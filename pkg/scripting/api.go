package scripting

import (
	"context"

	"github.com/aretw0/bugjar/pkg/ports"
	lua "github.com/yuin/gopher-lua"
)

// api builds the bugjar table. Commands return true, or nil and an error
// message, so scripts can write `assert(bugjar.step())`.
func (e *Engine) api() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"toggle": e.location(func(ctx context.Context, s ports.Session, file string, line int) error {
			return s.ToggleBreakpoint(ctx, file, line)
		}),
		"tbreak": e.location(func(ctx context.Context, s ports.Session, file string, line int) error {
			return s.CreateBreakpoint(ctx, file, line, true)
		}),
		"enable": e.location(func(ctx context.Context, s ports.Session, file string, line int) error {
			return s.EnableBreakpoint(ctx, file, line)
		}),
		"disable": e.location(func(ctx context.Context, s ports.Session, file string, line int) error {
			return s.DisableBreakpoint(ctx, file, line)
		}),
		"clear": e.location(func(ctx context.Context, s ports.Session, file string, line int) error {
			return s.ClearBreakpoint(ctx, file, line)
		}),
		"ignore":      e.ignore,
		"run":         e.command(ports.Session.Run),
		"step":        e.command(ports.Session.Step),
		"next":        e.command(ports.Session.Next),
		"ret":         e.command(ports.Session.Return),
		"breakpoints": e.breakpoints,
		"position":    e.position,
		"state":       e.state,
	}
}

func contextOf(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// result pushes true, or nil plus the error message.
func result(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// bound is called with mu held by whichever entry point is running Lua.
func (e *Engine) bound() (ports.Session, error) {
	if e.session == nil {
		return nil, ErrNoSession
	}
	return e.session, nil
}

func (e *Engine) location(fn func(context.Context, ports.Session, string, int) error) lua.LGFunction {
	return func(L *lua.LState) int {
		file := L.CheckString(1)
		line := L.CheckInt(2)
		s, err := e.bound()
		if err != nil {
			return result(L, err)
		}
		return result(L, fn(contextOf(L), s, file, line))
	}
}

func (e *Engine) command(fn func(ports.Session, context.Context) error) lua.LGFunction {
	return func(L *lua.LState) int {
		s, err := e.bound()
		if err != nil {
			return result(L, err)
		}
		return result(L, fn(s, contextOf(L)))
	}
}

func (e *Engine) ignore(L *lua.LState) int {
	file := L.CheckString(1)
	line := L.CheckInt(2)
	count := L.CheckInt(3)
	s, err := e.bound()
	if err != nil {
		return result(L, err)
	}
	return result(L, s.IgnoreBreakpoint(contextOf(L), file, line, count))
}

// breakpoints(file) lists {line=, state=} for one file; without a file it
// lists every breakpoint record.
func (e *Engine) breakpoints(L *lua.LState) int {
	s, err := e.bound()
	if err != nil {
		return result(L, err)
	}

	t := L.NewTable()
	if L.GetTop() >= 1 {
		file := L.CheckString(1)
		for _, ls := range s.CurrentFileBreakpoints(file) {
			entry := L.NewTable()
			entry.RawSetString("file", lua.LString(ls.File))
			entry.RawSetString("line", lua.LNumber(ls.Line))
			entry.RawSetString("state", lua.LString(ls.State.String()))
			t.Append(entry)
		}
	} else {
		for _, bp := range s.Breakpoints() {
			t.Append(breakpointTable(L, bp))
		}
	}
	L.Push(t)
	return 1
}

func (e *Engine) position(L *lua.LState) int {
	s, err := e.bound()
	if err != nil {
		return result(L, err)
	}
	pos := s.Position()
	t := L.NewTable()
	t.RawSetString("running", lua.LBool(pos.Running()))
	if pos.Running() {
		t.RawSetString("file", lua.LString(pos.File))
		t.RawSetString("line", lua.LNumber(pos.Line))
	}
	t.RawSetString("stack", framesTable(L, pos.Stack))
	L.Push(t)
	return 1
}

func (e *Engine) state(L *lua.LState) int {
	s, err := e.bound()
	if err != nil {
		return result(L, err)
	}
	L.Push(lua.LString(s.State().String()))
	return 1
}
