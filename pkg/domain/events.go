package domain

// EventKind tags the variants of Event.
type EventKind string

const (
	EventStack      EventKind = "stack"
	EventLine       EventKind = "line"
	EventCall       EventKind = "call"
	EventReturn     EventKind = "return"
	EventException  EventKind = "exception"
	EventRestart    EventKind = "restart"
	EventBreakpoint EventKind = "breakpoint"
	EventInfo       EventKind = "info"
	EventWarning    EventKind = "warning"
	EventError      EventKind = "error"
)

// Event is something the debuggee reported.
type Event interface {
	Kind() EventKind
}

// StackUpdate replaces the whole call stack. Empty Frames means the program
// is not running.
type StackUpdate struct {
	Frames []Frame
}

// LineReached reports a new line being executed.
type LineReached struct {
	File string
	Line int
}

// CallEntered reports a function call; Args is whatever the debuggee sent.
type CallEntered struct {
	Args any
}

// Returned reports a function return value.
type Returned struct {
	Value any
}

// ExceptionRaised carries the debuggee's description of an exception.
type ExceptionRaised struct {
	Details map[string]any
}

// Restarted means the program finished and the debuggee is starting it again.
type Restarted struct {
	Source string
}

// Transition is the breakpoint operation a BreakpointAck acknowledges.
type Transition string

const (
	TransitionCreate    Transition = "create"
	TransitionEnable    Transition = "enable"
	TransitionDisable   Transition = "disable"
	TransitionIgnore    Transition = "ignore"
	TransitionTemporary Transition = "temporary"
	TransitionClear     Transition = "clear"
)

// BreakpointAck carries the debuggee's view of a breakpoint after a transition.
// Hit marks a clear caused by a temporary breakpoint being honored.
type BreakpointAck struct {
	Transition Transition
	Breakpoint Breakpoint
	Hit        bool
}

// Info, Warning and Error are free-form messages from the debuggee.
type Info struct{ Message string }

type Warning struct{ Message string }

type Error struct{ Message string }

func (StackUpdate) Kind() EventKind     { return EventStack }
func (LineReached) Kind() EventKind     { return EventLine }
func (CallEntered) Kind() EventKind     { return EventCall }
func (Returned) Kind() EventKind        { return EventReturn }
func (ExceptionRaised) Kind() EventKind { return EventException }
func (Restarted) Kind() EventKind       { return EventRestart }
func (BreakpointAck) Kind() EventKind   { return EventBreakpoint }
func (Info) Kind() EventKind            { return EventInfo }
func (Warning) Kind() EventKind         { return EventWarning }
func (Error) Kind() EventKind           { return EventError }
