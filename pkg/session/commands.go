package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/bugjar/pkg/breakpoint"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
)

// ToggleBreakpoint flips the breakpoint at file:line. An enabled breakpoint
// is disabled, a disabled, ignored or temporary one is enabled, and an
// unknown location gets a new breakpoint. The store changes only when the
// debuggee acknowledges.
func (c *Controller) ToggleBreakpoint(ctx context.Context, file string, line int) error {
	kind := domain.CommandCreate
	if bp, err := c.store.Get(file, line); err == nil {
		if domain.DeriveState(&bp) == domain.StateEnabled {
			kind = domain.CommandDisable
		} else {
			kind = domain.CommandEnable
		}
	}
	return c.send(ctx, domain.NewBreakpointCommand(kind, file, line))
}

// CreateBreakpoint asks the debuggee for a new breakpoint. With temporary
// set on an existing location, that breakpoint is made temporary instead.
func (c *Controller) CreateBreakpoint(ctx context.Context, file string, line int, temporary bool) error {
	if _, err := c.store.Get(file, line); err == nil {
		if !temporary {
			return fmt.Errorf("%w at %s:%d", domain.ErrDuplicateBreakpoint, file, line)
		}
		return c.send(ctx, domain.NewBreakpointCommand(domain.CommandTemporary, file, line))
	}
	cmd := domain.NewBreakpointCommand(domain.CommandCreate, file, line)
	cmd.Temporary = temporary
	return c.send(ctx, cmd)
}

// EnableBreakpoint enables a known breakpoint, clearing its ignore count and
// temporary flag.
func (c *Controller) EnableBreakpoint(ctx context.Context, file string, line int) error {
	return c.sendKnown(ctx, domain.NewBreakpointCommand(domain.CommandEnable, file, line))
}

// DisableBreakpoint disables a known breakpoint.
func (c *Controller) DisableBreakpoint(ctx context.Context, file string, line int) error {
	return c.sendKnown(ctx, domain.NewBreakpointCommand(domain.CommandDisable, file, line))
}

// IgnoreBreakpoint makes a known breakpoint skip its next count hits.
// A count of zero enables it again.
func (c *Controller) IgnoreBreakpoint(ctx context.Context, file string, line int, count int) error {
	if count < 0 {
		return breakpoint.ErrNegativeIgnore
	}
	cmd := domain.NewBreakpointCommand(domain.CommandIgnore, file, line)
	cmd.Count = count
	return c.sendKnown(ctx, cmd)
}

// ClearBreakpoint removes a known breakpoint.
func (c *Controller) ClearBreakpoint(ctx context.Context, file string, line int) error {
	return c.sendKnown(ctx, domain.NewBreakpointCommand(domain.CommandClear, file, line))
}

// Run resumes execution until the next breakpoint.
func (c *Controller) Run(ctx context.Context) error {
	return c.send(ctx, domain.NewCommand(domain.CommandRun))
}

// Step executes one line, entering calls.
func (c *Controller) Step(ctx context.Context) error {
	return c.send(ctx, domain.NewCommand(domain.CommandStep))
}

// Next executes one line, stepping over calls.
func (c *Controller) Next(ctx context.Context) error {
	return c.send(ctx, domain.NewCommand(domain.CommandNext))
}

// Return runs until the current frame returns.
func (c *Controller) Return(ctx context.Context) error {
	return c.send(ctx, domain.NewCommand(domain.CommandReturn))
}

func (c *Controller) sendKnown(ctx context.Context, cmd domain.Command) error {
	if _, err := c.store.Get(cmd.File, cmd.Line); err != nil {
		return err
	}
	return c.send(ctx, cmd)
}

// send delivers cmd if the session accepts commands. Otherwise the command
// is dropped, never queued, and the drop is reported.
func (c *Controller) send(ctx context.Context, cmd domain.Command) error {
	c.mu.RLock()
	state, conn := c.state, c.conn
	c.mu.RUnlock()

	if state == domain.ControllerClosed {
		c.rejectClosed(ctx, cmd)
		return domain.ErrConnectionClosed
	}
	if !state.AcceptsCommands() {
		c.drop(ctx, cmd, domain.ErrConnectionNotBootstrapped)
		return domain.ErrConnectionNotBootstrapped
	}

	err := conn.Send(ctx, cmd)
	if c.hooks.OnCommand != nil {
		c.hooks.OnCommand(ctx, &domain.CommandEvent{Timestamp: time.Now(), Command: cmd, Err: err})
	}
	if err != nil {
		if errors.Is(err, domain.ErrConnection) || errors.Is(err, domain.ErrConnectionClosed) {
			c.failConnection(ctx, conn, err)
		}
		return err
	}

	c.logger.Debug("Command sent", "command", cmd.Kind, "id", cmd.ID, "file", cmd.File, "line", cmd.Line)
	return nil
}

// rejectClosed reports a command issued after Close as an error, not a drop.
func (c *Controller) rejectClosed(ctx context.Context, cmd domain.Command) {
	c.logger.Warn("Command rejected: session closed",
		"command", cmd.Kind,
		"file", cmd.File,
		"line", cmd.Line,
	)
	if c.hooks.OnCommand != nil {
		c.hooks.OnCommand(ctx, &domain.CommandEvent{Timestamp: time.Now(), Command: cmd, Dropped: true, Err: domain.ErrConnectionClosed})
	}
	c.observer.OnError(domain.ErrConnectionClosed)
}

func (c *Controller) drop(ctx context.Context, cmd domain.Command, err error) {
	c.logger.Warn("Command dropped: connection not yet configured",
		"command", cmd.Kind,
		"file", cmd.File,
		"line", cmd.Line,
		"err", err,
	)
	if c.hooks.OnCommand != nil {
		c.hooks.OnCommand(ctx, &domain.CommandEvent{Timestamp: time.Now(), Command: cmd, Dropped: true, Err: err})
	}
	c.observer.OnCommandDropped(cmd, err)
}

// failConnection gives up on conn after a transport failure. No retries.
func (c *Controller) failConnection(ctx context.Context, conn ports.Connection, err error) {
	c.mu.Lock()
	if c.conn != conn || !c.state.AcceptsCommands() {
		c.mu.Unlock()
		return
	}
	c.state = domain.ControllerFailed
	c.mu.Unlock()

	_ = conn.Close()
	c.releaseLock()

	c.logger.Error("Connection failed", "session_id", c.sessionID, "err", err)
	if c.hooks.OnConnectionError != nil {
		c.hooks.OnConnectionError(ctx, err)
	}
	c.observer.OnError(err)
}
