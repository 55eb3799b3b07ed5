// Package socket connects to a debuggee over a byte stream (TCP, a pipe, a
// subprocess's stdio) using the newline-delimited JSON wire protocol.
package socket

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/aretw0/bugjar/internal/link"
	"github.com/aretw0/bugjar/internal/logging"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/aretw0/bugjar/pkg/wire"
)

// Connection implements ports.Connection over an io.ReadWriteCloser.
type Connection struct {
	rwc    io.ReadWriteCloser
	link   *link.Link
	logger *slog.Logger
	buffer int

	writeMu   sync.Mutex
	ready     chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger configures a logger for transport diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connection) {
		c.logger = logger
	}
}

// WithBuffer sets the capacity of the event stream.
func WithBuffer(n int) Option {
	return func(c *Connection) {
		c.buffer = n
	}
}

// New wraps an established stream and starts reading from it.
func New(rwc io.ReadWriteCloser, opts ...Option) *Connection {
	c := &Connection{
		rwc:    rwc,
		logger: logging.NewNop(),
		buffer: link.DefaultBuffer,
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.link = link.New(c.buffer)
	go c.pump()
	return c
}

// Dial opens a TCP connection to a debuggee listening on address.
func Dial(ctx context.Context, address string, opts ...Option) (*Connection, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, domain.NewConnectionError("dial", fmt.Errorf("%s: %w", address, err))
	}
	return New(conn, opts...), nil
}

// Dialer returns a ports.Dialer that dials address on every call.
func Dialer(address string, opts ...Option) ports.Dialer {
	return func(ctx context.Context) (ports.Connection, error) {
		return Dial(ctx, address, opts...)
	}
}

func (c *Connection) pump() {
	defer c.link.Finish()

	scanner := bufio.NewScanner(c.rwc)
	scanner.Buffer(make([]byte, 0, 64*1024), wire.MaxMessageSize)
	ctx := context.Background()

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := wire.DecodeEvent(line)
		if err != nil {
			c.logger.Warn("Dropping undecodable debuggee message", "err", err)
			continue
		}
		if _, ok := ev.(wire.Handshake); ok {
			c.readyOnce.Do(func() { close(c.ready) })
			continue
		}
		if !c.link.Emit(ctx, ev) {
			return
		}
	}

	if err := scanner.Err(); err != nil && c.link.State() != domain.ConnClosed {
		c.logger.Warn("Debuggee stream failed", "err", err)
		return
	}
	c.logger.Debug("Debuggee stream ended")
}

func (c *Connection) write(ctx context.Context, cmd domain.Command) error {
	data, err := wire.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if conn, ok := c.rwc.(interface{ SetWriteDeadline(time.Time) error }); ok {
		deadline, _ := ctx.Deadline()
		_ = conn.SetWriteDeadline(deadline)
	}
	if _, err := c.rwc.Write(data); err != nil {
		return c.link.SendError("send", err)
	}
	return nil
}

// Bootstrap sends the bootstrap command and waits for the debuggee's answer.
func (c *Connection) Bootstrap(ctx context.Context) error {
	if err := c.link.CanBootstrap(); err != nil {
		return err
	}
	if c.link.State() == domain.ConnBootstrapped {
		return nil
	}
	if err := c.write(ctx, domain.NewCommand(domain.CommandBootstrap)); err != nil {
		return err
	}

	select {
	case <-c.ready:
		return c.link.MarkBootstrapped()
	case <-c.link.Pumped():
		return domain.NewConnectionError("bootstrap", io.ErrUnexpectedEOF)
	case <-ctx.Done():
		return domain.NewConnectionError("bootstrap", ctx.Err())
	}
}

// Send writes one command line.
func (c *Connection) Send(ctx context.Context, cmd domain.Command) error {
	if err := c.link.CanSend(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.write(ctx, cmd)
}

// Events returns the event stream.
func (c *Connection) Events() <-chan domain.Event { return c.link.Events() }

// State reports the lifecycle state.
func (c *Connection) State() domain.ConnState { return c.link.State() }

// Close closes the underlying stream, which also stops the reader.
func (c *Connection) Close() error {
	c.link.Shutdown()
	c.closeOnce.Do(func() {
		c.closeErr = c.rwc.Close()
	})
	return c.closeErr
}
