package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/bugjar/internal/logging"
	"github.com/aretw0/bugjar/pkg/breakpoint"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
)

// ErrInvalidState is returned by Start when the controller is neither idle nor failed.
var ErrInvalidState = errors.New("invalid controller state")

const (
	// DefaultBootstrapTimeout bounds the handshake performed by Start.
	DefaultBootstrapTimeout = 10 * time.Second
	// DefaultLockTTL is how long a session lock survives a crashed holder.
	DefaultLockTTL = 30 * time.Minute
)

// Controller reconciles one debuggee session: it issues commands over a
// ports.Connection, applies the debuggee's events to the breakpoint store and
// position, and reports every change to a ports.Observer.
//
// Events are applied by a single goroutine in arrival order. Observers are
// called outside the controller's lock, so they may call back into it; they
// must not call Close.
type Controller struct {
	mu       sync.RWMutex
	conn     ports.Connection
	state    domain.ControllerState
	position domain.Position
	loopDone chan struct{}
	unlock   ports.UnlockFunc

	store    *breakpoint.Store
	observer ports.Observer
	logger   *slog.Logger
	hooks    domain.LifecycleHooks

	dialer           ports.Dialer
	bootstrapTimeout time.Duration

	repo      ports.BreakpointRepository
	sessionID string

	locker  ports.DistributedLocker
	lockKey string
	lockTTL time.Duration
}

// New creates an idle controller. Nothing is sent until Start.
func New(conn ports.Connection, obs ports.Observer, opts ...Option) *Controller {
	c := &Controller{
		conn:             conn,
		state:            domain.ControllerIdle,
		observer:         obs,
		store:            breakpoint.NewStore(),
		logger:           logging.NewNop(),
		bootstrapTimeout: DefaultBootstrapTimeout,
		sessionID:        "default",
		lockTTL:          DefaultLockTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start bootstraps the connection and begins applying events. It is valid
// from Idle and, to recover, from Failed.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.ControllerIdle && c.state != domain.ControllerFailed {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidState, state)
	}
	c.state = domain.ControllerBootstrapping
	conn := c.conn
	previous := c.loopDone
	c.loopDone = nil
	c.mu.Unlock()

	if previous != nil {
		// The loop of a failed run exits once its connection is closed.
		_ = conn.Close()
		<-previous
	}

	c.logger.Debug("Starting session", "session_id", c.sessionID)

	if conn.State() == domain.ConnClosed {
		if c.dialer == nil {
			return c.fail(ctx, domain.ErrConnectionClosed)
		}
		fresh, err := c.dialer(ctx)
		if err != nil {
			return c.fail(ctx, err)
		}
		conn = fresh
		c.mu.Lock()
		c.conn = fresh
		c.mu.Unlock()
	}

	if err := c.acquireLock(ctx); err != nil {
		return c.fail(ctx, err)
	}

	bctx, cancel := context.WithTimeout(ctx, c.bootstrapTimeout)
	err := conn.Bootstrap(bctx)
	cancel()
	if err != nil {
		return c.fail(ctx, err)
	}

	c.mu.Lock()
	if c.state != domain.ControllerBootstrapping {
		// Closed while the handshake was in flight.
		c.mu.Unlock()
		_ = conn.Close()
		return domain.ErrConnectionClosed
	}
	c.state = domain.ControllerActive
	c.position = domain.Position{}
	done := make(chan struct{})
	c.loopDone = done
	c.mu.Unlock()

	go c.loop(conn, done)

	if err := c.restore(ctx); err != nil {
		return err
	}

	c.logger.Info("Session started", "session_id", c.sessionID, "breakpoints", c.store.Len())
	return nil
}

func (c *Controller) acquireLock(ctx context.Context) error {
	if c.locker == nil {
		return nil
	}
	c.mu.RLock()
	held := c.unlock != nil
	c.mu.RUnlock()
	if held {
		return nil
	}

	unlock, err := c.locker.Lock(ctx, c.lockKey, c.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire session lock %q: %w", c.lockKey, err)
	}
	c.mu.Lock()
	c.unlock = unlock
	c.mu.Unlock()
	return nil
}

func (c *Controller) releaseLock() {
	c.mu.Lock()
	unlock := c.unlock
	c.unlock = nil
	c.mu.Unlock()
	if unlock == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := unlock(ctx); err != nil {
		c.logger.Warn("Failed to release session lock (will expire via TTL)",
			"lock_key", c.lockKey,
			"err", err,
		)
	}
}

// fail moves to Failed and reports err. It returns err for convenience.
func (c *Controller) fail(ctx context.Context, err error) error {
	c.mu.Lock()
	if c.state != domain.ControllerClosed {
		c.state = domain.ControllerFailed
	}
	c.mu.Unlock()
	c.releaseLock()

	c.logger.Error("Session failed", "session_id", c.sessionID, "err", err)
	if errors.Is(err, domain.ErrConnection) && c.hooks.OnConnectionError != nil {
		c.hooks.OnConnectionError(ctx, err)
	}
	c.observer.OnError(err)
	return err
}

// restore re-creates the persisted breakpoints, or the ones already in the
// store when no snapshot exists, on the freshly bootstrapped debuggee.
func (c *Controller) restore(ctx context.Context) error {
	bps := c.store.All()
	if c.repo != nil {
		snap, err := c.repo.Load(ctx, c.sessionID)
		switch {
		case err == nil:
			bps = snap.Breakpoints
			c.store.Replace(bps)
		case errors.Is(err, domain.ErrSessionNotFound):
		default:
			c.logger.Warn("Failed to load persisted breakpoints", "session_id", c.sessionID, "err", err)
		}
	}
	if len(bps) == 0 {
		return nil
	}

	c.logger.Debug("Restoring breakpoints", "session_id", c.sessionID, "count", len(bps))
	for _, bp := range bps {
		create := domain.NewBreakpointCommand(domain.CommandCreate, bp.File, bp.Line)
		create.Temporary = bp.Temporary
		if err := c.send(ctx, create); err != nil {
			return err
		}
		if !bp.Enabled {
			if err := c.send(ctx, domain.NewBreakpointCommand(domain.CommandDisable, bp.File, bp.Line)); err != nil {
				return err
			}
		}
		if bp.IgnoreCount > 0 {
			ignore := domain.NewBreakpointCommand(domain.CommandIgnore, bp.File, bp.Line)
			ignore.Count = bp.IgnoreCount
			if err := c.send(ctx, ignore); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close stops the session. It closes the connection, waits for the event
// loop to drain and releases the session lock. Safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.state == domain.ControllerClosed && c.loopDone == nil {
		c.mu.Unlock()
		return nil
	}
	c.state = domain.ControllerClosed
	conn := c.conn
	done := c.loopDone
	c.loopDone = nil
	c.mu.Unlock()

	err := conn.Close()
	if done != nil {
		<-done
	}
	c.releaseLock()
	c.logger.Debug("Session closed", "session_id", c.sessionID)
	return err
}

// State reports the controller lifecycle state.
func (c *Controller) State() domain.ControllerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Position returns a copy of the current session position.
func (c *Controller) Position() domain.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.position.Clone()
}

// Breakpoints returns every known breakpoint ordered by file and line.
func (c *Controller) Breakpoints() []domain.Breakpoint {
	return c.store.All()
}

// CurrentFileBreakpoints returns the display state of every breakpoint in
// file, ordered by line. Used to redraw a file when it is opened.
func (c *Controller) CurrentFileBreakpoints(file string) []domain.LineState {
	return c.store.LineStates(file)
}

// SessionID identifies the session for persistence and locking.
func (c *Controller) SessionID() string {
	return c.sessionID
}
