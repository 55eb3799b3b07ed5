package bugjar

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/bugjar/internal/logging"
	"github.com/aretw0/bugjar/pkg/adapters/socket"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/observer"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/aretw0/bugjar/pkg/session"
)

// attachConfig collects the options of Attach.
type attachConfig struct {
	logger    *slog.Logger
	observers []ports.Observer
	dialer    ports.Dialer
	sessionID string
	repo      ports.BreakpointRepository
	hooks     domain.LifecycleHooks
	timeout   time.Duration
}

// Option configures Attach.
type Option func(*attachConfig)

// WithLogger sets a custom structured logger for the session.
func WithLogger(logger *slog.Logger) Option {
	return func(c *attachConfig) {
		c.logger = logger
	}
}

// WithObserver adds observers. They are called in registration order.
func WithObserver(observers ...ports.Observer) Option {
	return func(c *attachConfig) {
		c.observers = append(c.observers, observers...)
	}
}

// WithDialer replaces the TCP transport, e.g. with a Redis or in-memory one.
func WithDialer(dialer ports.Dialer) Option {
	return func(c *attachConfig) {
		c.dialer = dialer
	}
}

// WithRepository persists breakpoints under sessionID and restores them on attach.
func WithRepository(repo ports.BreakpointRepository, sessionID string) Option {
	return func(c *attachConfig) {
		c.repo = repo
		c.sessionID = sessionID
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *attachConfig) {
		c.hooks = hooks
	}
}

// WithBootstrapTimeout bounds the handshake with the debuggee.
func WithBootstrapTimeout(d time.Duration) Option {
	return func(c *attachConfig) {
		c.timeout = d
	}
}

// Attach connects to the debuggee listening on address and returns a started
// controller. address is ignored when WithDialer is given.
func Attach(ctx context.Context, address string, opts ...Option) (*session.Controller, error) {
	cfg := &attachConfig{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.dialer == nil {
		cfg.dialer = socket.Dialer(address, socket.WithLogger(cfg.logger))
	}

	conn, err := cfg.dialer(ctx)
	if err != nil {
		return nil, err
	}

	sessOpts := []session.Option{
		session.WithLogger(cfg.logger),
		session.WithDialer(cfg.dialer),
		session.WithLifecycleHooks(cfg.hooks),
	}
	if cfg.repo != nil {
		sessOpts = append(sessOpts, session.WithRepository(cfg.repo, cfg.sessionID))
	}
	if cfg.timeout > 0 {
		sessOpts = append(sessOpts, session.WithBootstrapTimeout(cfg.timeout))
	}

	ctl := session.New(conn, observer.NewMulti(cfg.observers...), sessOpts...)
	if err := ctl.Start(ctx); err != nil {
		_ = ctl.Close()
		return nil, err
	}
	return ctl, nil
}
