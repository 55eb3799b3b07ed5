package ports

import (
	"context"

	"github.com/aretw0/bugjar/pkg/domain"
)

// BreakpointRepository persists the breakpoints of a session so they survive
// restarts of the controller.
type BreakpointRepository interface {
	// Save replaces the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if nothing was saved.
	Load(ctx context.Context, sessionID string) (*domain.Snapshot, error)

	// Delete removes the snapshot. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of every stored session.
	List(ctx context.Context) ([]string, error)
}
