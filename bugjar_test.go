package bugjar_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/bugjar"
	"github.com/aretw0/bugjar/pkg/adapters/memory"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/observer"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryDialer(conn ports.Connection) ports.Dialer {
	return func(context.Context) (ports.Connection, error) { return conn, nil }
}

func TestAttach_RestoresSavedBreakpoints(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := memory.NewStore()
	require.NoError(t, repo.Save(ctx, "demo", &domain.Snapshot{
		SessionID:   "demo",
		Breakpoints: []domain.Breakpoint{{File: "app.py", Line: 10, Enabled: true}},
	}))

	conn, dbg := memory.New()
	go func() { _ = dbg.Serve(ctx) }()

	rec := observer.NewRecorder(0)
	ctl, err := bugjar.Attach(ctx, "",
		bugjar.WithDialer(memoryDialer(conn)),
		bugjar.WithRepository(repo, "demo"),
		bugjar.WithObserver(rec),
	)
	require.NoError(t, err)
	defer ctl.Close()

	assert.Equal(t, domain.ControllerActive, ctl.State())
	assert.Eventually(t, func() bool {
		for _, cmd := range dbg.Received() {
			if cmd.Kind == domain.CommandCreate && cmd.Location() == (domain.Location{File: "app.py", Line: 10}) {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestAttach_BootstrapFailure(t *testing.T) {
	conn, dbg := memory.New()
	boom := errors.New("no handshake")
	dbg.FailBootstrap(boom)

	_, err := bugjar.Attach(context.Background(), "", bugjar.WithDialer(memoryDialer(conn)))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestAttach_DialFailure(t *testing.T) {
	boom := domain.NewConnectionError("dial", errors.New("refused"))
	_, err := bugjar.Attach(context.Background(), "", bugjar.WithDialer(func(context.Context) (ports.Connection, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, domain.ErrConnection)
}

func Example() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, dbg := memory.New()
	go func() { _ = dbg.Serve(ctx) }()

	changes := make(chan domain.BreakpointChange, 1)
	ctl, err := bugjar.Attach(ctx, "",
		bugjar.WithDialer(func(context.Context) (ports.Connection, error) { return conn, nil }),
		bugjar.WithObserver(observer.Hooks{
			BreakpointChanged: func(c domain.BreakpointChange) { changes <- c },
		}),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer ctl.Close()

	show := func() {
		c := <-changes
		fmt.Println(c.Kind, c.Breakpoint.Location(), c.State)
	}

	_ = ctl.ToggleBreakpoint(ctx, "app.py", 10)
	show()
	_ = ctl.IgnoreBreakpoint(ctx, "app.py", 10, 2)
	show()
	_ = ctl.ToggleBreakpoint(ctx, "app.py", 10)
	show()

	// Output:
	// enable app.py:10 enabled
	// ignore app.py:10 ignored
	// enable app.py:10 enabled
}
