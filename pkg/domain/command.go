package domain

import "github.com/google/uuid"

// CommandKind enumerates what can be asked of the debuggee.
type CommandKind string

const (
	CommandBootstrap CommandKind = "bootstrap"
	CommandRun       CommandKind = "run"
	CommandStep      CommandKind = "step"
	CommandNext      CommandKind = "next"
	CommandReturn    CommandKind = "return"
	CommandCreate    CommandKind = "create"
	CommandEnable    CommandKind = "enable"
	CommandDisable   CommandKind = "disable"
	CommandIgnore    CommandKind = "ignore"
	CommandTemporary CommandKind = "temporary"
	CommandClear     CommandKind = "clear"
)

// IsBreakpoint reports whether the command targets a breakpoint location.
func (k CommandKind) IsBreakpoint() bool {
	switch k {
	case CommandCreate, CommandEnable, CommandDisable, CommandIgnore, CommandTemporary, CommandClear:
		return true
	}
	return false
}

// Command is a single request to the debuggee. ID correlates logs across
// the controller and the transport.
type Command struct {
	ID        string      `json:"id"`
	Kind      CommandKind `json:"command"`
	File      string      `json:"file,omitempty"`
	Line      int         `json:"line,omitempty"`
	Count     int         `json:"count,omitempty"`
	Temporary bool        `json:"temporary,omitempty"`
}

// NewCommand creates a command without a target (run, step, next, return, bootstrap).
func NewCommand(kind CommandKind) Command {
	return Command{ID: uuid.NewString(), Kind: kind}
}

// NewBreakpointCommand creates a command targeting file:line.
func NewBreakpointCommand(kind CommandKind, file string, line int) Command {
	cmd := NewCommand(kind)
	cmd.File = file
	cmd.Line = line
	return cmd
}

// Location returns the command's target.
func (c Command) Location() Location {
	return Location{File: c.File, Line: c.Line}
}
