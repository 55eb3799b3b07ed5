package middleware_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/bugjar/pkg/adapters/memory"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/persistence/middleware"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativePathMiddleware(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	outside := filepath.Join(filepath.Dir(root), "elsewhere", "lib.py")

	underlying := memory.NewStore()
	repo := middleware.NewRelativePathMiddleware(root)(underlying)

	snap := &domain.Snapshot{
		SessionID: "s1",
		Breakpoints: []domain.Breakpoint{
			{File: filepath.Join(root, "pkg", "app.py"), Line: 3, Enabled: true},
			{File: outside, Line: 7, Enabled: true},
			{File: "already/relative.py", Line: 9},
		},
	}
	original := snap.Breakpoints[0].File
	require.NoError(t, repo.Save(ctx, "s1", snap))
	assert.Equal(t, original, snap.Breakpoints[0].File, "caller's snapshot must not change")

	stored, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "pkg/app.py", stored.Breakpoints[0].File)
	assert.Equal(t, outside, stored.Breakpoints[1].File)
	assert.Equal(t, "already/relative.py", stored.Breakpoints[2].File)

	// A fresh view rooted elsewhere resolves against its own root.
	moved := t.TempDir()
	loaded, err := middleware.NewRelativePathMiddleware(moved)(underlying).Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(moved, "pkg", "app.py"), loaded.Breakpoints[0].File)
	assert.Equal(t, outside, loaded.Breakpoints[1].File)
	assert.Equal(t, filepath.Join(moved, "already", "relative.py"), loaded.Breakpoints[2].File)
}

func TestRelativePathMiddleware_PassThrough(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	repo := middleware.Chain(underlying, middleware.NewRelativePathMiddleware(t.TempDir()))

	_, err := repo.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	require.NoError(t, repo.Save(ctx, "a", &domain.Snapshot{SessionID: "a"}))
	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	require.NoError(t, repo.Delete(ctx, "a"))
	ids, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestChain_Order(t *testing.T) {
	var calls []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.BreakpointRepository) ports.BreakpointRepository {
			return &tagged{BreakpointRepository: next, name: name, calls: &calls}
		}
	}
	repo := middleware.Chain(memory.NewStore(), tag("outer"), tag("inner"))
	_, _ = repo.List(context.Background())
	assert.Equal(t, []string{"outer", "inner"}, calls)
}

type tagged struct {
	ports.BreakpointRepository
	name  string
	calls *[]string
}

func (t *tagged) List(ctx context.Context) ([]string, error) {
	*t.calls = append(*t.calls, t.name)
	return t.BreakpointRepository.List(ctx)
}
