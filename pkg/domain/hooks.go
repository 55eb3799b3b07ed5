package domain

import (
	"context"
	"time"
)

// CommandEvent is emitted for every command the controller issues or drops.
type CommandEvent struct {
	Timestamp time.Time
	Command   Command
	Dropped   bool
	Err       error
}

// EventApplied is emitted after a debuggee event has been applied and observers notified.
type EventApplied struct {
	Timestamp time.Time
	Kind      EventKind
	Duration  time.Duration
}

// LifecycleHooks defines callbacks for controller observability.
type LifecycleHooks struct {
	OnCommand          func(context.Context, *CommandEvent)
	OnEventApplied     func(context.Context, *EventApplied)
	OnBreakpointChange func(context.Context, *BreakpointChange)
	OnConnectionError  func(context.Context, error)
}
