package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/bugjar/pkg/adapters/memory"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunRepositoryContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	snap := &domain.Snapshot{Breakpoints: []domain.Breakpoint{{File: "a.py", Line: 1, Enabled: true}}}

	require.NoError(t, store.Save(ctx, "s1", snap))
	snap.Breakpoints[0].Enabled = false

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, loaded.Breakpoints[0].Enabled)
	assert.Equal(t, "s1", loaded.SessionID)

	loaded.Breakpoints[0].Line = 99
	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Breakpoints[0].Line)
}
