package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownBreakpoint is returned when no breakpoint exists at a location.
var ErrUnknownBreakpoint = errors.New("unknown breakpoint")

// ErrDuplicateBreakpoint is returned when creating a breakpoint at an occupied location.
var ErrDuplicateBreakpoint = errors.New("duplicate breakpoint")

// ErrConnectionNotBootstrapped is returned when a command is issued before the
// connection to the debuggee has completed its handshake.
var ErrConnectionNotBootstrapped = errors.New("connection not bootstrapped")

// ErrConnectionClosed is returned when the connection has been closed, either
// locally or because the debuggee went away.
var ErrConnectionClosed = errors.New("connection closed")

// ErrConnection is the class of transport failures. Match it with errors.Is;
// the concrete error is a *ConnectionError.
var ErrConnection = errors.New("connection error")

// ErrSessionNotFound is returned when no persisted breakpoints exist for a session ID.
var ErrSessionNotFound = errors.New("session not found")

// ConnectionError reports a transport failure during Op (bootstrap, send, receive).
type ConnectionError struct {
	Op  string
	Err error
}

// NewConnectionError wraps err as a transport failure of op.
func NewConnectionError(op string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Err: err}
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection error during %s", e.Op)
	}
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is makes every ConnectionError match ErrConnection.
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }
