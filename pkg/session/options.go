package session

import (
	"log/slog"
	"time"

	"github.com/aretw0/bugjar/pkg/breakpoint"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
)

// Option configures the Controller.
type Option func(*Controller)

// WithLogger configures a logger for the Controller.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithDialer lets Start replace a closed connection with a fresh one.
func WithDialer(dialer ports.Dialer) Option {
	return func(c *Controller) {
		c.dialer = dialer
	}
}

// WithStore injects the breakpoint store, e.g. to share it with a view.
func WithStore(store *breakpoint.Store) Option {
	return func(c *Controller) {
		c.store = store
	}
}

// WithRepository persists breakpoints under sessionID after every applied
// ack and restores them on Start.
func WithRepository(repo ports.BreakpointRepository, sessionID string) Option {
	return func(c *Controller) {
		c.repo = repo
		if sessionID != "" {
			c.sessionID = sessionID
		}
	}
}

// WithLocker enables distributed locking. The lock named key is held from
// Start until Close or failure.
func WithLocker(locker ports.DistributedLocker, key string) Option {
	return func(c *Controller) {
		c.locker = locker
		c.lockKey = key
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		c.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithBootstrapTimeout overrides DefaultBootstrapTimeout.
func WithBootstrapTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.bootstrapTimeout = d
	}
}
