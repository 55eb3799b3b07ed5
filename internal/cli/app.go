// Package cli wires configuration into a running session and holds the
// console front-end shared by the bugjar commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/bugjar/internal/config"
	"github.com/aretw0/bugjar/pkg/adapters/file"
	"github.com/aretw0/bugjar/pkg/adapters/memory"
	"github.com/aretw0/bugjar/pkg/adapters/process"
	redisadapter "github.com/aretw0/bugjar/pkg/adapters/redis"
	"github.com/aretw0/bugjar/pkg/adapters/socket"
	"github.com/aretw0/bugjar/pkg/adapters/sqlite"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/observability"
	"github.com/aretw0/bugjar/pkg/observer"
	"github.com/aretw0/bugjar/pkg/persistence/middleware"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/aretw0/bugjar/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
)

// App is a configured session and everything it holds open.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Controller *session.Controller
	Repository ports.BreakpointRepository
	Registry   *prometheus.Registry
	Debuggee   *process.Process

	async   *observer.Async
	closers []func() error
}

// NewRepository builds the breakpoint repository selected by cfg. client
// may be nil unless the store kind is redis.
func NewRepository(cfg *config.Config, client *backend.Client) (ports.BreakpointRepository, func() error, error) {
	repo, closer, err := newBackend(cfg, client)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.Root != "" {
		repo = middleware.Chain(repo, middleware.NewRelativePathMiddleware(cfg.Store.Root))
	}
	return repo, closer, nil
}

func newBackend(cfg *config.Config, client *backend.Client) (ports.BreakpointRepository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Kind {
	case config.StoreMemory:
		return memory.NewStore(), noop, nil
	case config.StoreFile:
		return file.New(cfg.Store.Path, file.WithFormat(file.Format(cfg.Store.Format))), noop, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StoreRedis:
		if client == nil {
			return nil, nil, errors.New("redis store needs a redis client")
		}
		opts := []redisadapter.Option{redisadapter.WithPrefix(cfg.Transport.Redis.Prefix)}
		if cfg.Store.TTL > 0 {
			opts = append(opts, redisadapter.WithTTL(cfg.Store.TTL))
		}
		return redisadapter.NewFromClient(client, opts...), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
}

// NewDialer builds the transport dialer selected by cfg.
func NewDialer(cfg *config.Config, client *backend.Client, logger *slog.Logger) (ports.Dialer, error) {
	switch cfg.Transport.Kind {
	case config.TransportSocket:
		return socket.Dialer(cfg.Transport.Address, socket.WithLogger(logger)), nil
	case config.TransportRedis:
		if client == nil {
			return nil, errors.New("redis transport needs a redis client")
		}
		return redisadapter.Dialer(client, cfg.Session,
			redisadapter.WithChannelPrefix(cfg.Transport.Redis.Prefix),
			redisadapter.WithConnLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", cfg.Transport.Kind)
	}
}

// debugHooks logs every command and applied event at debug level.
func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommand: func(ctx context.Context, e *domain.CommandEvent) {
			if e.Dropped {
				logger.Debug("Command dropped", "command", e.Command.Kind, "id", e.Command.ID, "err", e.Err)
				return
			}
			logger.Debug("Command sent", "command", e.Command.Kind, "id", e.Command.ID)
		},
		OnEventApplied: func(ctx context.Context, e *domain.EventApplied) {
			logger.Debug("Event applied", "event", e.Kind, "duration", e.Duration)
		},
	}
}

// NewApp dials the debuggee and builds the controller. The front-end
// observers are fed through one queue so a slow client never stalls the
// event loop. The controller is not started.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, observers ...ports.Observer) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}

	var client *backend.Client
	if cfg.UsesRedis() {
		r := cfg.Transport.Redis
		client = redisadapter.NewClient(r.Address, r.Password, r.DB)
		app.closers = append(app.closers, client.Close)
	}

	repo, closeRepo, err := NewRepository(cfg, client)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Repository = repo
	app.closers = append(app.closers, closeRepo)

	dialer, err := NewDialer(cfg, client, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	conn, err := app.connect(ctx, dialer)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("connect to debuggee: %w", err)
	}

	metrics := observability.NewMetrics()
	if err := metrics.Register(app.Registry); err != nil {
		_ = conn.Close()
		_ = app.Close()
		return nil, err
	}

	app.async = observer.NewAsync(observer.NewMulti(observers...), observer.DefaultQueueSize, logger)
	obs := observer.NewMulti(observer.NewLogger(logger), app.async)

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithDialer(dialer),
		session.WithRepository(repo, cfg.Session),
		session.WithBootstrapTimeout(cfg.Transport.BootstrapTimeout),
		session.WithLifecycleHooks(observability.Chain(metrics.Hooks(), debugHooks(logger))),
	}
	if cfg.Lock.Enabled {
		opts = append(opts,
			session.WithLocker(redisadapter.NewLocker(client, cfg.Transport.Redis.Prefix), cfg.Session),
			session.WithLockTTL(cfg.Lock.TTL),
		)
	}

	app.Controller = session.New(conn, obs, opts...)
	return app, nil
}

// stopGrace is how long a launched debuggee gets to exit on Close.
const stopGrace = 3 * time.Second

// connect dials the debuggee, launching it first when configured.
func (a *App) connect(ctx context.Context, dialer ports.Dialer) (ports.Connection, error) {
	if !a.Config.Debuggee.Enabled() {
		return dialer(ctx)
	}

	p, err := process.Launch(ctx, a.Config.Debuggee,
		process.WithLogger(a.Logger),
		process.WithStdout(os.Stdout),
		process.WithVar("address", a.Config.Transport.Address),
		process.WithVar("session", a.Config.Session),
	)
	if err != nil {
		return nil, err
	}
	a.Debuggee = p
	a.closers = append(a.closers, func() error {
		if err := p.Stop(stopGrace); err != nil && !errors.Is(err, process.ErrNotRunning) {
			return err
		}
		return nil
	})
	return p.DialReady(ctx, dialer, a.Config.Transport.BootstrapTimeout)
}

// Close stops the controller, drains queued notifications and releases
// the backends.
func (a *App) Close() error {
	var errs []error
	if a.Controller != nil {
		errs = append(errs, a.Controller.Close())
	}
	if a.async != nil {
		a.async.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
