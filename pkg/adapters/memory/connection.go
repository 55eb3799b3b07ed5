// Package memory provides in-process adapters: a channel based debuggee
// connection and an in-memory breakpoint repository.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/bugjar/internal/link"
	"github.com/aretw0/bugjar/pkg/domain"
)

// Connection implements ports.Connection over Go channels. The other end is
// a Debuggee, used by tests, scripts and embedded debuggers.
type Connection struct {
	link  *link.Link
	inbox chan domain.Event
	peer  *Debuggee
}

// New creates a connected pair.
func New() (*Connection, *Debuggee) {
	c := &Connection{
		link:  link.New(link.DefaultBuffer),
		inbox: make(chan domain.Event, link.DefaultBuffer),
	}
	c.peer = &Debuggee{
		conn:     c,
		commands: make(chan domain.Command, 256),
		table:    make(map[domain.Location]domain.Breakpoint),
	}
	go c.pump()
	return c, c.peer
}

// pump moves events from the debuggee to the stream. A nil event is a hangup.
func (c *Connection) pump() {
	defer c.link.Finish()
	ctx := context.Background()
	for {
		select {
		case ev := <-c.inbox:
			if ev == nil || !c.link.Emit(ctx, ev) {
				return
			}
		case <-c.link.Done():
			return
		}
	}
}

// Bootstrap completes immediately unless the debuggee was told to fail it.
func (c *Connection) Bootstrap(ctx context.Context) error {
	if err := c.link.CanBootstrap(); err != nil {
		return err
	}
	if err := c.peer.bootstrapError(); err != nil {
		return domain.NewConnectionError("bootstrap", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.NewConnectionError("bootstrap", err)
	}
	return c.link.MarkBootstrapped()
}

// Send hands the command to the debuggee.
func (c *Connection) Send(ctx context.Context, cmd domain.Command) error {
	if err := c.link.CanSend(); err != nil {
		return err
	}
	if err := c.peer.sendError(); err != nil {
		return c.link.SendError("send", err)
	}
	select {
	case c.peer.commands <- cmd:
		c.peer.record(cmd)
		return nil
	case <-c.link.Done():
		return domain.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the event stream.
func (c *Connection) Events() <-chan domain.Event { return c.link.Events() }

// State reports the lifecycle state.
func (c *Connection) State() domain.ConnState { return c.link.State() }

// Close shuts the connection down. It is idempotent.
func (c *Connection) Close() error {
	c.link.Shutdown()
	return nil
}

// Debuggee is the far end of a memory Connection. It keeps its own
// breakpoint table so it can acknowledge commands with full records.
type Debuggee struct {
	conn     *Connection
	commands chan domain.Command

	mu       sync.Mutex
	received []domain.Command
	table    map[domain.Location]domain.Breakpoint
	failBoot error
	failSend error
	hungUp   bool
}

// FailBootstrap makes subsequent Bootstrap calls fail with err.
func (d *Debuggee) FailBootstrap(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failBoot = err
}

// FailSends makes subsequent Send calls fail with a transport error wrapping err.
func (d *Debuggee) FailSends(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failSend = err
}

func (d *Debuggee) bootstrapError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failBoot
}

func (d *Debuggee) sendError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failSend
}

func (d *Debuggee) record(cmd domain.Command) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.received = append(d.received, cmd)
}

// Received returns every command accepted so far, in order.
func (d *Debuggee) Received() []domain.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Command(nil), d.received...)
}

// Commands is the raw command stream.
func (d *Debuggee) Commands() <-chan domain.Command { return d.commands }

// Receive waits for the next command.
func (d *Debuggee) Receive(ctx context.Context) (domain.Command, error) {
	select {
	case cmd := <-d.commands:
		return cmd, nil
	case <-ctx.Done():
		return domain.Command{}, ctx.Err()
	}
}

// Emit sends an event to the controller side.
func (d *Debuggee) Emit(ctx context.Context, ev domain.Event) error {
	if ev == nil {
		return errors.New("memory: nil event")
	}
	return d.push(ctx, ev)
}

func (d *Debuggee) push(ctx context.Context, ev domain.Event) error {
	if d.conn.link.State() == domain.ConnClosed {
		return domain.ErrConnectionClosed
	}
	select {
	case d.conn.inbox <- ev:
		return nil
	case <-d.conn.link.Done():
		return domain.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hangup simulates the debuggee going away: events already emitted are
// delivered, then the stream ends.
func (d *Debuggee) Hangup(ctx context.Context) error {
	d.mu.Lock()
	if d.hungUp {
		d.mu.Unlock()
		return nil
	}
	d.hungUp = true
	d.mu.Unlock()
	return d.push(ctx, nil)
}

// Ack applies a breakpoint command to the debuggee's table and emits the
// matching BreakpointAck. Other commands are ignored.
func (d *Debuggee) Ack(ctx context.Context, cmd domain.Command) error {
	ack, ok := d.apply(cmd)
	if !ok {
		return nil
	}
	return d.Emit(ctx, ack)
}

// Hit simulates a temporary breakpoint being honored: it is cleared and the
// clear is acknowledged with Hit set.
func (d *Debuggee) Hit(ctx context.Context, file string, line int) error {
	loc := domain.Location{File: file, Line: line}
	d.mu.Lock()
	bp, ok := d.table[loc]
	if ok && bp.Temporary {
		delete(d.table, loc)
	}
	d.mu.Unlock()
	if !ok || !bp.Temporary {
		return nil
	}
	return d.Emit(ctx, domain.BreakpointAck{Transition: domain.TransitionClear, Breakpoint: bp, Hit: true})
}

// Serve acknowledges breakpoint commands until ctx is done or the connection closes.
func (d *Debuggee) Serve(ctx context.Context) error {
	for {
		select {
		case cmd := <-d.commands:
			if err := d.Ack(ctx, cmd); err != nil {
				return err
			}
		case <-d.conn.link.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Debuggee) apply(cmd domain.Command) (domain.BreakpointAck, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	loc := cmd.Location()
	bp, known := d.table[loc]
	if !known {
		bp = domain.NewBreakpoint(cmd.File, cmd.Line)
	}

	var transition domain.Transition
	switch cmd.Kind {
	case domain.CommandCreate:
		transition = domain.TransitionCreate
		bp = domain.NewBreakpoint(cmd.File, cmd.Line)
		bp.Temporary = cmd.Temporary
	case domain.CommandEnable:
		transition = domain.TransitionEnable
		bp.Enabled = true
		bp.IgnoreCount = 0
		bp.Temporary = false
	case domain.CommandDisable:
		transition = domain.TransitionDisable
		bp.Enabled = false
	case domain.CommandIgnore:
		transition = domain.TransitionIgnore
		bp.IgnoreCount = cmd.Count
		if cmd.Count == 0 {
			bp.Enabled = true
		}
	case domain.CommandTemporary:
		transition = domain.TransitionTemporary
		bp.Temporary = true
	case domain.CommandClear:
		delete(d.table, loc)
		return domain.BreakpointAck{Transition: domain.TransitionClear, Breakpoint: bp}, true
	default:
		return domain.BreakpointAck{}, false
	}
	d.table[loc] = bp
	return domain.BreakpointAck{Transition: transition, Breakpoint: bp}, true
}
