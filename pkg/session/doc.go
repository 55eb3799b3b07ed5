/*
Package session implements the debugger session controller.

A Controller owns one debuggee session. Front-ends call its command methods
(ToggleBreakpoint, Step, Run...) and read its synchronous views
(CurrentFileBreakpoints, Position). The debuggee answers with events that a
single goroutine applies to the breakpoint store and the session position
before notifying the configured ports.Observer.

Breakpoint state only changes when the debuggee acknowledges a command.
Commands issued before Start completes are dropped, reported through
Observer.OnCommandDropped, and returned as domain.ErrConnectionNotBootstrapped.
*/
package session
