package session

import (
	"context"
	"time"

	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
)

// loop is the only mutator of session state. Each event is fully applied,
// and its notifications delivered, before the next one is read.
func (c *Controller) loop(conn ports.Connection, done chan struct{}) {
	defer close(done)
	ctx := context.Background()

	for ev := range conn.Events() {
		start := time.Now()
		c.apply(ev)
		if c.hooks.OnEventApplied != nil {
			c.hooks.OnEventApplied(ctx, &domain.EventApplied{
				Timestamp: start,
				Kind:      ev.Kind(),
				Duration:  time.Since(start),
			})
		}
	}
	c.streamEnded(conn)
}

func (c *Controller) streamEnded(conn ports.Connection) {
	c.mu.Lock()
	if c.conn != conn || !c.state.AcceptsCommands() {
		c.mu.Unlock()
		return
	}
	c.state = domain.ControllerFailed
	c.mu.Unlock()

	// Start re-dials from Failed when a Dialer is configured.
	c.releaseLock()
	c.logger.Warn("Debuggee event stream ended", "session_id", c.sessionID)
	c.observer.OnError(domain.ErrConnectionClosed)
}

func (c *Controller) apply(ev domain.Event) {
	c.logger.Debug("Applying event", "event", ev.Kind())

	switch e := ev.(type) {
	case domain.StackUpdate:
		c.applyStack(e.Frames)
	case domain.BreakpointAck:
		c.applyAck(e)
	case domain.Restarted:
		c.applyRestart(e.Source)
	case domain.LineReached:
		c.observer.OnLine(e.File, e.Line)
	case domain.CallEntered:
		c.observer.OnCall(e.Args)
	case domain.Returned:
		c.observer.OnReturn(e.Value)
	case domain.ExceptionRaised:
		c.observer.OnException(e.Details)
	case domain.Info:
		c.observer.OnInfo(e.Message)
	case domain.Warning:
		c.observer.OnWarning(e.Message)
	case domain.Error:
		c.observer.OnDebuggeeError(e.Message)
	default:
		c.logger.Warn("Ignoring unsupported event", "event", ev.Kind())
	}
}

func (c *Controller) applyStack(frames []domain.Frame) {
	c.mu.Lock()
	previous := c.position.File
	c.position = domain.NewPosition(frames)
	pos := c.position.Clone()
	c.mu.Unlock()

	c.observer.OnStack(pos.Stack)
	if !pos.Running() {
		c.observer.OnCurrentLineCleared()
		return
	}

	c.observer.OnActiveFile(domain.ActiveFile{
		File:    pos.File,
		Line:    pos.Line,
		Changed: pos.File != previous,
	})
	for _, ls := range c.store.LineStates(pos.File) {
		c.observer.OnBreakpointDisplay(ls)
	}
}

// applyAck makes the store match the debuggee's view of one breakpoint.
func (c *Controller) applyAck(ack domain.BreakpointAck) {
	bp := ack.Breakpoint

	if ack.Transition == domain.TransitionClear {
		if _, err := c.store.Clear(bp.File, bp.Line); err != nil {
			c.logger.Warn("Clear acknowledged for unknown breakpoint", "file", bp.File, "line", bp.Line)
		}
		c.notifyChange(domain.BreakpointChange{
			Kind:       domain.ChangeClear,
			Breakpoint: bp,
			State:      domain.StateNone,
			Hit:        ack.Hit,
		})
		return
	}

	if _, err := c.store.Get(bp.File, bp.Line); err != nil {
		if ack.Transition != domain.TransitionCreate {
			c.logger.Warn("Adopting breakpoint unknown to this session",
				"transition", ack.Transition,
				"file", bp.File,
				"line", bp.Line,
			)
		}
		if _, err := c.store.Create(bp.File, bp.Line); err != nil {
			c.logger.Error("Failed to adopt breakpoint", "file", bp.File, "line", bp.Line, "err", err)
			return
		}
	}

	// Ignore first: a zero count re-enables, which the record may override.
	_, err := c.store.SetIgnore(bp.File, bp.Line, bp.IgnoreCount)
	if err == nil {
		if bp.Enabled {
			_, err = c.store.Enable(bp.File, bp.Line)
		} else {
			_, err = c.store.Disable(bp.File, bp.Line)
		}
	}
	if err == nil {
		_, err = c.store.SetTemporary(bp.File, bp.Line, bp.Temporary)
	}
	if err != nil {
		c.logger.Error("Failed to apply breakpoint ack", "transition", ack.Transition, "file", bp.File, "line", bp.Line, "err", err)
		return
	}

	stored, err := c.store.Get(bp.File, bp.Line)
	if err != nil {
		return
	}
	c.notifyChange(domain.BreakpointChange{
		Kind:       changeKind(ack.Transition, stored),
		Breakpoint: stored,
		State:      domain.DeriveState(&stored),
	})
}

func changeKind(t domain.Transition, bp domain.Breakpoint) domain.ChangeKind {
	switch t {
	case domain.TransitionDisable:
		return domain.ChangeDisable
	case domain.TransitionIgnore:
		if bp.IgnoreCount == 0 {
			return domain.ChangeEnable
		}
		return domain.ChangeIgnore
	default:
		return domain.ChangeEnable
	}
}

func (c *Controller) notifyChange(change domain.BreakpointChange) {
	ctx := context.Background()
	if c.hooks.OnBreakpointChange != nil {
		c.hooks.OnBreakpointChange(ctx, &change)
	}
	c.observer.OnBreakpointChanged(change)
	c.persist(ctx)
}

// persist saves the current breakpoint set. Failures are logged only.
func (c *Controller) persist(ctx context.Context) {
	if c.repo == nil {
		return
	}
	snap := &domain.Snapshot{
		SessionID:   c.sessionID,
		Breakpoints: c.store.All(),
		UpdatedAt:   time.Now(),
	}
	if err := c.repo.Save(ctx, c.sessionID, snap); err != nil {
		c.logger.Warn("Failed to persist breakpoints", "session_id", c.sessionID, "err", err)
	}
}

func (c *Controller) applyRestart(source string) {
	c.mu.Lock()
	restarting := c.state == domain.ControllerActive
	if restarting {
		c.state = domain.ControllerRestarting
	}
	c.position = domain.Position{}
	c.mu.Unlock()

	c.logger.Info("Debuggee restarted", "source", source)
	c.observer.OnRestart(source)

	if restarting {
		c.mu.Lock()
		if c.state == domain.ControllerRestarting {
			c.state = domain.ControllerActive
		}
		c.mu.Unlock()
	}
}
