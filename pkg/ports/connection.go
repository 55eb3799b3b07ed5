package ports

import (
	"context"

	"github.com/aretw0/bugjar/pkg/domain"
)

// Connection is the transport to a debuggee.
//
// Send before Bootstrap fails with domain.ErrConnectionNotBootstrapped and
// after Close with domain.ErrConnectionClosed. Transport failures are
// *domain.ConnectionError values.
type Connection interface {
	// Bootstrap performs the handshake with the debuggee.
	Bootstrap(ctx context.Context) error

	// Send delivers one command. It returns once the transport accepted it.
	Send(ctx context.Context, cmd domain.Command) error

	// Events returns the stream of debuggee events. It is the same channel for
	// the lifetime of the connection and is closed when the connection closes.
	Events() <-chan domain.Event

	// State reports the lifecycle state.
	State() domain.ConnState

	// Close releases the transport, unblocks pending Events consumers and
	// in-flight sends. It is idempotent.
	Close() error
}

// Dialer opens a fresh Connection. A closed connection is never reused.
type Dialer func(ctx context.Context) (Connection, error)
