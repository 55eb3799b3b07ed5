// Package observer provides reusable ports.Observer implementations: no-op,
// hook structs, fan-out, flattening to domain.Notification, recording,
// asynchronous delivery and logging.
package observer

import (
	"time"

	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
)

// Nop ignores every notification. Embed it to implement only some methods.
type Nop struct{}

func (Nop) OnStack([]domain.Frame)                      {}
func (Nop) OnActiveFile(domain.ActiveFile)              {}
func (Nop) OnBreakpointDisplay(domain.LineState)        {}
func (Nop) OnCurrentLineCleared()                       {}
func (Nop) OnLine(string, int)                          {}
func (Nop) OnCall(any)                                  {}
func (Nop) OnReturn(any)                                {}
func (Nop) OnException(map[string]any)                  {}
func (Nop) OnRestart(string)                            {}
func (Nop) OnBreakpointChanged(domain.BreakpointChange) {}
func (Nop) OnInfo(string)                               {}
func (Nop) OnWarning(string)                            {}
func (Nop) OnDebuggeeError(string)                      {}
func (Nop) OnError(error)                               {}
func (Nop) OnCommandDropped(domain.Command, error)      {}

var _ ports.Observer = Nop{}

// Multi fans every notification out to each observer in order.
type Multi []ports.Observer

// NewMulti skips nil observers.
func NewMulti(observers ...ports.Observer) Multi {
	m := make(Multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m Multi) OnStack(frames []domain.Frame) {
	for _, o := range m {
		o.OnStack(frames)
	}
}

func (m Multi) OnActiveFile(active domain.ActiveFile) {
	for _, o := range m {
		o.OnActiveFile(active)
	}
}

func (m Multi) OnBreakpointDisplay(line domain.LineState) {
	for _, o := range m {
		o.OnBreakpointDisplay(line)
	}
}

func (m Multi) OnCurrentLineCleared() {
	for _, o := range m {
		o.OnCurrentLineCleared()
	}
}

func (m Multi) OnLine(file string, line int) {
	for _, o := range m {
		o.OnLine(file, line)
	}
}

func (m Multi) OnCall(args any) {
	for _, o := range m {
		o.OnCall(args)
	}
}

func (m Multi) OnReturn(value any) {
	for _, o := range m {
		o.OnReturn(value)
	}
}

func (m Multi) OnException(details map[string]any) {
	for _, o := range m {
		o.OnException(details)
	}
}

func (m Multi) OnRestart(source string) {
	for _, o := range m {
		o.OnRestart(source)
	}
}

func (m Multi) OnBreakpointChanged(change domain.BreakpointChange) {
	for _, o := range m {
		o.OnBreakpointChanged(change)
	}
}

func (m Multi) OnInfo(message string) {
	for _, o := range m {
		o.OnInfo(message)
	}
}

func (m Multi) OnWarning(message string) {
	for _, o := range m {
		o.OnWarning(message)
	}
}

func (m Multi) OnDebuggeeError(message string) {
	for _, o := range m {
		o.OnDebuggeeError(message)
	}
}

func (m Multi) OnError(err error) {
	for _, o := range m {
		o.OnError(err)
	}
}

func (m Multi) OnCommandDropped(cmd domain.Command, err error) {
	for _, o := range m {
		o.OnCommandDropped(cmd, err)
	}
}

// Func flattens every callback into a domain.Notification.
type Func func(domain.Notification)

func (f Func) emit(n domain.Notification) {
	n.Time = time.Now()
	f(n)
}

func (f Func) OnStack(frames []domain.Frame) {
	f.emit(domain.Notification{Kind: domain.NotifyStack, Frames: domain.CloneFrames(frames)})
}

func (f Func) OnActiveFile(active domain.ActiveFile) {
	f.emit(domain.Notification{Kind: domain.NotifyActiveFile, File: active.File, Line: active.Line, Changed: active.Changed})
}

func (f Func) OnBreakpointDisplay(line domain.LineState) {
	state := line.State
	f.emit(domain.Notification{Kind: domain.NotifyBreakpointDisplay, File: line.File, Line: line.Line, State: &state})
}

func (f Func) OnCurrentLineCleared() {
	f.emit(domain.Notification{Kind: domain.NotifyCurrentLineClear})
}

func (f Func) OnLine(file string, line int) {
	f.emit(domain.Notification{Kind: domain.NotifyLine, File: file, Line: line})
}

func (f Func) OnCall(args any) {
	f.emit(domain.Notification{Kind: domain.NotifyCall, Payload: args})
}

func (f Func) OnReturn(value any) {
	f.emit(domain.Notification{Kind: domain.NotifyReturn, Payload: value})
}

func (f Func) OnException(details map[string]any) {
	f.emit(domain.Notification{Kind: domain.NotifyException, Payload: details})
}

func (f Func) OnRestart(source string) {
	f.emit(domain.Notification{Kind: domain.NotifyRestart, Source: source})
}

func (f Func) OnBreakpointChanged(change domain.BreakpointChange) {
	state := change.State
	f.emit(domain.Notification{
		Kind:   domain.NotifyBreakpointChanged,
		File:   change.Breakpoint.File,
		Line:   change.Breakpoint.Line,
		State:  &state,
		Change: &change,
	})
}

func (f Func) OnInfo(message string) {
	f.emit(domain.Notification{Kind: domain.NotifyInfo, Message: message})
}

func (f Func) OnWarning(message string) {
	f.emit(domain.Notification{Kind: domain.NotifyWarning, Message: message})
}

func (f Func) OnDebuggeeError(message string) {
	f.emit(domain.Notification{Kind: domain.NotifyDebuggeeError, Message: message})
}

func (f Func) OnError(err error) {
	f.emit(domain.Notification{Kind: domain.NotifyError, Message: err.Error()})
}

func (f Func) OnCommandDropped(cmd domain.Command, err error) {
	f.emit(domain.Notification{
		Kind:    domain.NotifyCommandDropped,
		File:    cmd.File,
		Line:    cmd.Line,
		Message: err.Error(),
		Command: &cmd,
	})
}
