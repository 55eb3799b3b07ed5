package scripting

import (
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
	lua "github.com/yuin/gopher-lua"
)

var _ ports.Observer = (*Engine)(nil)

func (e *Engine) OnStack(frames []domain.Frame) {
	e.handle("on_stack", func(L *lua.LState) []lua.LValue {
		return []lua.LValue{framesTable(L, frames)}
	})
}

func (e *Engine) OnActiveFile(active domain.ActiveFile) {
	e.handle("on_active_file", func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(active.File), lua.LNumber(active.Line), lua.LBool(active.Changed)}
	})
}

func (e *Engine) OnBreakpointDisplay(line domain.LineState) {
	e.handle("on_breakpoint_display", func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(line.File), lua.LNumber(line.Line), lua.LString(line.State.String())}
	})
}

func (e *Engine) OnCurrentLineCleared() {
	e.handle("on_current_line_cleared", nil)
}

func (e *Engine) OnLine(file string, line int) {
	e.handle("on_line", func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(file), lua.LNumber(line)}
	})
}

func (e *Engine) OnCall(args any) {
	e.handle("on_call", func(L *lua.LState) []lua.LValue {
		return []lua.LValue{toLua(L, args)}
	})
}

func (e *Engine) OnReturn(value any) {
	e.handle("on_return", func(L *lua.LState) []lua.LValue {
		return []lua.LValue{toLua(L, value)}
	})
}

func (e *Engine) OnException(details map[string]any) {
	e.handle("on_exception", func(L *lua.LState) []lua.LValue {
		return []lua.LValue{toLua(L, details)}
	})
}

func (e *Engine) OnRestart(source string) {
	e.handle("on_restart", func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(source)}
	})
}

func (e *Engine) OnBreakpointChanged(change domain.BreakpointChange) {
	e.handle("on_breakpoint", func(L *lua.LState) []lua.LValue {
		t := breakpointTable(L, change.Breakpoint)
		t.RawSetString("state", lua.LString(change.State.String()))
		t.RawSetString("hit", lua.LBool(change.Hit))
		return []lua.LValue{lua.LString(string(change.Kind)), t}
	})
}

func (e *Engine) OnInfo(message string) {
	e.handle("on_info", func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(message)}
	})
}

func (e *Engine) OnWarning(message string) {
	e.handle("on_warning", func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(message)}
	})
}

func (e *Engine) OnDebuggeeError(message string) {
	e.handle("on_debuggee_error", func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(message)}
	})
}

func (e *Engine) OnError(err error) {
	e.handle("on_error", func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(err.Error())}
	})
}

func (e *Engine) OnCommandDropped(cmd domain.Command, err error) {
	e.handle("on_command_dropped", func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(string(cmd.Kind)), lua.LString(err.Error())}
	})
}
