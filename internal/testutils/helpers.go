// Package testutils holds test doubles shared by the front-end adapters.
package testutils

import (
	"context"
	"testing"

	"github.com/aretw0/bugjar/pkg/adapters/memory"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/aretw0/bugjar/pkg/session"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSession is a testify mock of ports.Session.
type MockSession struct {
	mock.Mock
}

var _ ports.Session = (*MockSession)(nil)

func (m *MockSession) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSession) ToggleBreakpoint(ctx context.Context, file string, line int) error {
	return m.Called(ctx, file, line).Error(0)
}

func (m *MockSession) CreateBreakpoint(ctx context.Context, file string, line int, temporary bool) error {
	return m.Called(ctx, file, line, temporary).Error(0)
}

func (m *MockSession) EnableBreakpoint(ctx context.Context, file string, line int) error {
	return m.Called(ctx, file, line).Error(0)
}

func (m *MockSession) DisableBreakpoint(ctx context.Context, file string, line int) error {
	return m.Called(ctx, file, line).Error(0)
}

func (m *MockSession) IgnoreBreakpoint(ctx context.Context, file string, line int, count int) error {
	return m.Called(ctx, file, line, count).Error(0)
}

func (m *MockSession) ClearBreakpoint(ctx context.Context, file string, line int) error {
	return m.Called(ctx, file, line).Error(0)
}

func (m *MockSession) Run(ctx context.Context) error    { return m.Called(ctx).Error(0) }
func (m *MockSession) Step(ctx context.Context) error   { return m.Called(ctx).Error(0) }
func (m *MockSession) Next(ctx context.Context) error   { return m.Called(ctx).Error(0) }
func (m *MockSession) Return(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockSession) CurrentFileBreakpoints(file string) []domain.LineState {
	args := m.Called(file)
	if v := args.Get(0); v != nil {
		return v.([]domain.LineState)
	}
	return nil
}

func (m *MockSession) Breakpoints() []domain.Breakpoint {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.([]domain.Breakpoint)
	}
	return nil
}

func (m *MockSession) Position() domain.Position {
	return m.Called().Get(0).(domain.Position)
}

func (m *MockSession) State() domain.ControllerState {
	return m.Called().Get(0).(domain.ControllerState)
}

// StartedSession returns an active controller wired to an in-memory
// debuggee that acknowledges every breakpoint command.
func StartedSession(t *testing.T, obs ports.Observer, opts ...session.Option) (*session.Controller, *memory.Debuggee) {
	t.Helper()
	conn, dbg := memory.New()
	ctl := session.New(conn, obs, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = dbg.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = ctl.Close()
	})

	require.NoError(t, ctl.Start(context.Background()))
	return ctl, dbg
}
