package ports

import (
	"context"

	"github.com/aretw0/bugjar/pkg/domain"
)

// Session is the driving port: what front-ends (console, HTTP, MCP, Lua)
// may ask of a session controller.
type Session interface {
	Start(ctx context.Context) error

	ToggleBreakpoint(ctx context.Context, file string, line int) error
	CreateBreakpoint(ctx context.Context, file string, line int, temporary bool) error
	EnableBreakpoint(ctx context.Context, file string, line int) error
	DisableBreakpoint(ctx context.Context, file string, line int) error
	IgnoreBreakpoint(ctx context.Context, file string, line int, count int) error
	ClearBreakpoint(ctx context.Context, file string, line int) error

	Run(ctx context.Context) error
	Step(ctx context.Context) error
	Next(ctx context.Context) error
	Return(ctx context.Context) error

	CurrentFileBreakpoints(file string) []domain.LineState
	Breakpoints() []domain.Breakpoint
	Position() domain.Position
	State() domain.ControllerState
}
