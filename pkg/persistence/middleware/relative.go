package middleware

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
)

type relativeMiddleware struct {
	next ports.BreakpointRepository
	root string
}

// NewRelativePathMiddleware stores breakpoint files under root as
// slash-separated paths relative to it and resolves them against root on
// load, so saved breakpoints follow a checkout that moves. Files outside
// root are stored as given.
func NewRelativePathMiddleware(root string) Middleware {
	root = filepath.Clean(root)
	return func(next ports.BreakpointRepository) ports.BreakpointRepository {
		return &relativeMiddleware{next: next, root: root}
	}
}

func (m *relativeMiddleware) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	// Copy so the controller's snapshot is left untouched.
	cloned := *snap
	cloned.Breakpoints = make([]domain.Breakpoint, len(snap.Breakpoints))
	for i, bp := range snap.Breakpoints {
		bp.File = m.relative(bp.File)
		cloned.Breakpoints[i] = bp
	}
	return m.next.Save(ctx, sessionID, &cloned)
}

func (m *relativeMiddleware) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	snap, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range snap.Breakpoints {
		snap.Breakpoints[i].File = m.absolute(snap.Breakpoints[i].File)
	}
	return snap, nil
}

func (m *relativeMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *relativeMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *relativeMiddleware) relative(file string) string {
	if !filepath.IsAbs(file) {
		return file
	}
	rel, err := filepath.Rel(m.root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return file
	}
	return filepath.ToSlash(rel)
}

func (m *relativeMiddleware) absolute(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(m.root, filepath.FromSlash(file))
}
