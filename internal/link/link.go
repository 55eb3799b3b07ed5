// Package link holds the lifecycle bookkeeping shared by every Connection adapter.
package link

import (
	"context"
	"sync"

	"github.com/aretw0/bugjar/pkg/domain"
)

// DefaultBuffer is the capacity of an event stream.
const DefaultBuffer = 64

// Link tracks the NotBootstrapped -> Bootstrapped -> Closed lifecycle and owns
// the event channel. Exactly one goroutine (the pump) may call Emit, and it
// must call Finish when it exits.
type Link struct {
	mu     sync.RWMutex
	state  domain.ConnState
	done   chan struct{}
	once   sync.Once
	events chan domain.Event
	pumped chan struct{}
}

// New creates a link whose event stream holds up to buffer events.
func New(buffer int) *Link {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Link{
		done:   make(chan struct{}),
		events: make(chan domain.Event, buffer),
		pumped: make(chan struct{}),
	}
}

// State reports the lifecycle state.
func (l *Link) State() domain.ConnState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Events is the stream handed out by Connection.Events.
func (l *Link) Events() <-chan domain.Event {
	return l.events
}

// Done is closed once the link is shut down.
func (l *Link) Done() <-chan struct{} {
	return l.done
}

// CanBootstrap fails once the link is closed.
func (l *Link) CanBootstrap() error {
	if l.State() == domain.ConnClosed {
		return domain.ErrConnectionClosed
	}
	return nil
}

// MarkBootstrapped moves a live link to Bootstrapped.
func (l *Link) MarkBootstrapped() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == domain.ConnClosed {
		return domain.ErrConnectionClosed
	}
	l.state = domain.ConnBootstrapped
	return nil
}

// CanSend returns the error a Send should fail with, or nil.
func (l *Link) CanSend() error {
	switch l.State() {
	case domain.ConnNotBootstrapped:
		return domain.ErrConnectionNotBootstrapped
	case domain.ConnClosed:
		return domain.ErrConnectionClosed
	default:
		return nil
	}
}

// SendError maps a transport failure to the error Send should return. Once the
// link is closed every failure is reported as ErrConnectionClosed.
func (l *Link) SendError(op string, err error) error {
	if l.State() == domain.ConnClosed {
		return domain.ErrConnectionClosed
	}
	return domain.NewConnectionError(op, err)
}

// Shutdown marks the link closed. It reports whether this call did it.
func (l *Link) Shutdown() bool {
	first := false
	l.once.Do(func() {
		first = true
		l.mu.Lock()
		l.state = domain.ConnClosed
		l.mu.Unlock()
		close(l.done)
	})
	return first
}

// Emit delivers an event from the pump. It gives up when the link shuts down
// or ctx is done, and reports whether the event was delivered.
func (l *Link) Emit(ctx context.Context, ev domain.Event) bool {
	select {
	case l.events <- ev:
		return true
	case <-l.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Finish is called by the pump on exit. It closes the event stream and marks
// the link closed if it was not already.
func (l *Link) Finish() {
	l.Shutdown()
	close(l.events)
	close(l.pumped)
}

// Wait blocks until the pump has finished or ctx is done.
func (l *Link) Wait(ctx context.Context) error {
	select {
	case <-l.pumped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pumped is closed after Finish.
func (l *Link) Pumped() <-chan struct{} {
	return l.pumped
}
