package ports

import "github.com/aretw0/bugjar/pkg/domain"

// Observer receives reconciled session state. Event notifications arrive in
// order from the controller's event loop and must not block for long.
// OnError and OnCommandDropped may also be called from the goroutine that
// issued the failing command.
type Observer interface {
	OnStack(frames []domain.Frame)
	OnActiveFile(active domain.ActiveFile)
	OnBreakpointDisplay(line domain.LineState)
	OnCurrentLineCleared()

	OnLine(file string, line int)
	OnCall(args any)
	OnReturn(value any)
	OnException(details map[string]any)
	OnRestart(source string)

	OnBreakpointChanged(change domain.BreakpointChange)

	OnInfo(message string)
	OnWarning(message string)
	OnDebuggeeError(message string)

	// OnError reports a session-level failure (bootstrap, transport, closed stream).
	OnError(err error)

	// OnCommandDropped reports a command that was refused without being sent.
	OnCommandDropped(cmd domain.Command, err error)
}
