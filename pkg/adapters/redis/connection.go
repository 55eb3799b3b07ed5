package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/bugjar/internal/link"
	"github.com/aretw0/bugjar/internal/logging"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/aretw0/bugjar/pkg/wire"
	backend "github.com/redis/go-redis/v9"
)

// Connection implements ports.Connection over Redis Pub/Sub. Commands are
// published on "<prefix><session>:commands" and events are read from
// "<prefix><session>:events", both in the wire format.
type Connection struct {
	client  *backend.Client
	session string
	prefix  string
	logger  *slog.Logger

	sub       *backend.PubSub
	link      *link.Link
	ready     chan struct{}
	readyOnce sync.Once
}

// ConnOption configures a Connection.
type ConnOption func(*Connection)

// WithChannelPrefix sets the channel namespace.
func WithChannelPrefix(prefix string) ConnOption {
	return func(c *Connection) {
		c.prefix = prefix
	}
}

// WithConnLogger configures a logger for transport diagnostics.
func WithConnLogger(logger *slog.Logger) ConnOption {
	return func(c *Connection) {
		c.logger = logger
	}
}

// CommandsChannel is where commands for session are published.
func CommandsChannel(prefix, session string) string {
	return prefix + session + ":commands"
}

// EventsChannel is where the debuggee of session publishes events.
func EventsChannel(prefix, session string) string {
	return prefix + session + ":events"
}

// NewConnection subscribes to the session's event channel. The subscription
// is confirmed before it returns so no event published afterwards is missed.
func NewConnection(ctx context.Context, client *backend.Client, session string, opts ...ConnOption) (*Connection, error) {
	c := &Connection{
		client:  client,
		session: session,
		prefix:  DefaultPrefix,
		logger:  logging.NewNop(),
		link:    link.New(link.DefaultBuffer),
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.sub = client.Subscribe(ctx, EventsChannel(c.prefix, session))
	if _, err := c.sub.Receive(ctx); err != nil {
		_ = c.sub.Close()
		return nil, domain.NewConnectionError("subscribe", err)
	}

	go c.pump(c.sub.Channel())
	return c, nil
}

// Dialer returns a ports.Dialer that opens a fresh subscription on every call.
func Dialer(client *backend.Client, session string, opts ...ConnOption) ports.Dialer {
	return func(ctx context.Context) (ports.Connection, error) {
		return NewConnection(ctx, client, session, opts...)
	}
}

func (c *Connection) pump(messages <-chan *backend.Message) {
	defer c.link.Finish()
	ctx := context.Background()

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			ev, err := wire.DecodeEvent([]byte(msg.Payload))
			if err != nil {
				c.logger.Warn("Dropping undecodable debuggee message", "channel", msg.Channel, "err", err)
				continue
			}
			if _, ok := ev.(wire.Handshake); ok {
				c.readyOnce.Do(func() { close(c.ready) })
				continue
			}
			if !c.link.Emit(ctx, ev) {
				return
			}
		case <-c.link.Done():
			return
		}
	}
}

func (c *Connection) publish(ctx context.Context, cmd domain.Command) error {
	data, err := wire.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	if err := c.client.Publish(ctx, CommandsChannel(c.prefix, c.session), data).Err(); err != nil {
		return c.link.SendError("send", err)
	}
	return nil
}

// Bootstrap publishes the bootstrap command and waits for the handshake.
func (c *Connection) Bootstrap(ctx context.Context) error {
	if err := c.link.CanBootstrap(); err != nil {
		return err
	}
	if c.link.State() == domain.ConnBootstrapped {
		return nil
	}
	if err := c.publish(ctx, domain.NewCommand(domain.CommandBootstrap)); err != nil {
		return err
	}

	select {
	case <-c.ready:
		return c.link.MarkBootstrapped()
	case <-c.link.Pumped():
		return domain.ErrConnectionClosed
	case <-ctx.Done():
		return domain.NewConnectionError("bootstrap", fmt.Errorf("no handshake from session %q: %w", c.session, ctx.Err()))
	}
}

// Send publishes one command.
func (c *Connection) Send(ctx context.Context, cmd domain.Command) error {
	if err := c.link.CanSend(); err != nil {
		return err
	}
	return c.publish(ctx, cmd)
}

// Events returns the event stream.
func (c *Connection) Events() <-chan domain.Event { return c.link.Events() }

// State reports the lifecycle state.
func (c *Connection) State() domain.ConnState { return c.link.State() }

// Close unsubscribes. The shared client is left open.
func (c *Connection) Close() error {
	if !c.link.Shutdown() {
		return nil
	}
	return c.sub.Close()
}
