package observer

import "github.com/aretw0/bugjar/pkg/domain"

// Hooks is an Observer built from optional callbacks. Nil fields are skipped.
type Hooks struct {
	Stack              func([]domain.Frame)
	ActiveFile         func(domain.ActiveFile)
	BreakpointDisplay  func(domain.LineState)
	CurrentLineCleared func()
	Line               func(file string, line int)
	Call               func(args any)
	Return             func(value any)
	Exception          func(details map[string]any)
	Restart            func(source string)
	BreakpointChanged  func(domain.BreakpointChange)
	Info               func(message string)
	Warning            func(message string)
	DebuggeeError      func(message string)
	Error              func(err error)
	CommandDropped     func(cmd domain.Command, err error)
}

func (h Hooks) OnStack(frames []domain.Frame) {
	if h.Stack != nil {
		h.Stack(frames)
	}
}

func (h Hooks) OnActiveFile(active domain.ActiveFile) {
	if h.ActiveFile != nil {
		h.ActiveFile(active)
	}
}

func (h Hooks) OnBreakpointDisplay(line domain.LineState) {
	if h.BreakpointDisplay != nil {
		h.BreakpointDisplay(line)
	}
}

func (h Hooks) OnCurrentLineCleared() {
	if h.CurrentLineCleared != nil {
		h.CurrentLineCleared()
	}
}

func (h Hooks) OnLine(file string, line int) {
	if h.Line != nil {
		h.Line(file, line)
	}
}

func (h Hooks) OnCall(args any) {
	if h.Call != nil {
		h.Call(args)
	}
}

func (h Hooks) OnReturn(value any) {
	if h.Return != nil {
		h.Return(value)
	}
}

func (h Hooks) OnException(details map[string]any) {
	if h.Exception != nil {
		h.Exception(details)
	}
}

func (h Hooks) OnRestart(source string) {
	if h.Restart != nil {
		h.Restart(source)
	}
}

func (h Hooks) OnBreakpointChanged(change domain.BreakpointChange) {
	if h.BreakpointChanged != nil {
		h.BreakpointChanged(change)
	}
}

func (h Hooks) OnInfo(message string) {
	if h.Info != nil {
		h.Info(message)
	}
}

func (h Hooks) OnWarning(message string) {
	if h.Warning != nil {
		h.Warning(message)
	}
}

func (h Hooks) OnDebuggeeError(message string) {
	if h.DebuggeeError != nil {
		h.DebuggeeError(message)
	}
}

func (h Hooks) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}

func (h Hooks) OnCommandDropped(cmd domain.Command, err error) {
	if h.CommandDropped != nil {
		h.CommandDropped(cmd, err)
	}
}
