// Package tests holds reusable suites that every adapter of a port must pass.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Peer is the debuggee side of a connection under test. Implementations must
// answer the bootstrap handshake on their own.
type Peer interface {
	// Receive returns the next command the controller side sent.
	Receive(ctx context.Context) (domain.Command, error)
	// Emit sends an event to the controller side.
	Emit(ctx context.Context, ev domain.Event) error
}

// ConnectionFactory builds a fresh, not yet bootstrapped connection and its peer.
type ConnectionFactory func(t *testing.T) (ports.Connection, Peer)

const contractTimeout = 2 * time.Second

// RunConnectionContract verifies that a Connection adapter honors the lifecycle
// and delivery guarantees the session controller relies on.
func RunConnectionContract(t *testing.T, factory ConnectionFactory) {
	t.Helper()

	t.Run("Send before Bootstrap", func(t *testing.T) {
		conn, _ := factory(t)
		defer conn.Close()

		assert.Equal(t, domain.ConnNotBootstrapped, conn.State())
		err := conn.Send(context.Background(), domain.NewCommand(domain.CommandRun))
		assert.ErrorIs(t, err, domain.ErrConnectionNotBootstrapped)
	})

	t.Run("Bootstrap and Send", func(t *testing.T) {
		conn, peer := factory(t)
		defer conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), contractTimeout)
		defer cancel()

		require.NoError(t, conn.Bootstrap(ctx))
		assert.Equal(t, domain.ConnBootstrapped, conn.State())

		sent := domain.NewBreakpointCommand(domain.CommandIgnore, "app.py", 12)
		sent.Count = 3
		require.NoError(t, conn.Send(ctx, sent))
		require.NoError(t, conn.Send(ctx, domain.NewCommand(domain.CommandStep)))

		got, err := peer.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, sent, got)

		got, err = peer.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.CommandStep, got.Kind)
	})

	t.Run("Events arrive in order", func(t *testing.T) {
		conn, peer := factory(t)
		defer conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), contractTimeout)
		defer cancel()
		require.NoError(t, conn.Bootstrap(ctx))

		want := []domain.Event{
			domain.StackUpdate{Frames: []domain.Frame{domain.NewFrame("app.py", 10)}},
			domain.LineReached{File: "app.py", Line: 10},
			domain.BreakpointAck{
				Transition: domain.TransitionClear,
				Breakpoint: domain.Breakpoint{File: "app.py", Line: 20, Enabled: true, Temporary: true},
				Hit:        true,
			},
			domain.Restarted{Source: "app.py"},
			domain.Warning{Message: "careful"},
		}
		for _, ev := range want {
			require.NoError(t, peer.Emit(ctx, ev))
		}

		for i, expected := range want {
			select {
			case ev, ok := <-conn.Events():
				require.True(t, ok, "stream closed early at %d", i)
				assert.Equal(t, expected, ev)
			case <-ctx.Done():
				t.Fatalf("timed out waiting for event %d", i)
			}
		}
	})

	t.Run("Close unblocks consumers", func(t *testing.T) {
		conn, _ := factory(t)
		ctx, cancel := context.WithTimeout(context.Background(), contractTimeout)
		defer cancel()
		require.NoError(t, conn.Bootstrap(ctx))

		drained := make(chan struct{})
		go func() {
			defer close(drained)
			for range conn.Events() {
			}
		}()

		require.NoError(t, conn.Close())
		select {
		case <-drained:
		case <-ctx.Done():
			t.Fatal("Events consumer still blocked after Close")
		}

		assert.Equal(t, domain.ConnClosed, conn.State())
		assert.ErrorIs(t, conn.Send(ctx, domain.NewCommand(domain.CommandRun)), domain.ErrConnectionClosed)
		assert.NoError(t, conn.Close(), "Close is idempotent")
	})

	t.Run("In-flight Send fails on Close", func(t *testing.T) {
		conn, _ := factory(t)
		ctx, cancel := context.WithTimeout(context.Background(), contractTimeout)
		defer cancel()
		require.NoError(t, conn.Bootstrap(ctx))

		// The peer never reads, so a buffering adapter eventually blocks.
		result := make(chan error, 1)
		go func() {
			for {
				if err := conn.Send(ctx, domain.NewCommand(domain.CommandStep)); err != nil {
					result <- err
					return
				}
			}
		}()

		time.Sleep(50 * time.Millisecond)
		require.NoError(t, conn.Close())

		select {
		case err := <-result:
			assert.ErrorIs(t, err, domain.ErrConnectionClosed)
		case <-ctx.Done():
			t.Fatal("Send still blocked after Close")
		}
	})

	t.Run("Close before Bootstrap", func(t *testing.T) {
		conn, _ := factory(t)
		require.NoError(t, conn.Close())

		_, ok := <-conn.Events()
		assert.False(t, ok)
		assert.Error(t, conn.Bootstrap(context.Background()))
	})
}
