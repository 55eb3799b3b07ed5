/*
Package domain contains the core models of a debugging session.

It is kept pure and free of I/O, following Hexagonal Architecture principles.
Adapters translate their own wire formats into these types.

# Key Entities

  - Breakpoint: a (file, line) location with enabled, temporary and ignore attributes.
  - DisplayState: the single visual state derived from a Breakpoint.
  - Position: the call stack reported by the debuggee and its top frame.
  - Event: tagged variants emitted by the debuggee (StackUpdate, BreakpointAck, ...).
  - Command: requests sent to the debuggee (run, step, create, enable, ...).
  - Notification: a flattened, serializable record of what observers were told.
*/
package domain
