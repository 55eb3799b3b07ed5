package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRepositoryContract runs a suite of tests to verify that a
// BreakpointRepository implementation adheres to the interface contract.
func RunRepositoryContract(t *testing.T, repo BreakpointRepository) {
	ctx := context.Background()
	sessionID := "contract-" + time.Now().Format("20060102150405")

	sample := func(id string) *domain.Snapshot {
		return &domain.Snapshot{
			SessionID: id,
			Breakpoints: []domain.Breakpoint{
				{File: "app.py", Line: 10, Enabled: true},
				{File: "app.py", Line: 20, Enabled: true, Temporary: true},
				{File: "lib/util.py", Line: 3, Enabled: false, IgnoreCount: 2},
			},
			UpdatedAt: time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := sample(sessionID)

		require.NoError(t, repo.Save(ctx, sessionID, snap), "Save should not return error")

		loaded, err := repo.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.ElementsMatch(t, snap.Breakpoints, loaded.Breakpoints)
	})

	t.Run("Save replaces", func(t *testing.T) {
		snap := sample(sessionID)
		snap.Breakpoints = snap.Breakpoints[:1]
		require.NoError(t, repo.Save(ctx, sessionID, snap))

		loaded, err := repo.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, snap.Breakpoints, loaded.Breakpoints)
	})

	t.Run("Save empty", func(t *testing.T) {
		id := sessionID + "-empty"
		defer func() { _ = repo.Delete(ctx, id) }()

		require.NoError(t, repo.Save(ctx, id, &domain.Snapshot{SessionID: id}))
		loaded, err := repo.Load(ctx, id)
		require.NoError(t, err, "an empty snapshot is still a saved session")
		assert.Empty(t, loaded.Breakpoints)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := repo.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, sessionID, sample(sessionID)))

		require.NoError(t, repo.Delete(ctx, sessionID), "Delete should not return error")

		_, err := repo.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, repo.Delete(ctx, sessionID), "Delete of a missing session is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, repo.Save(ctx, id1, sample(id1)))
		require.NoError(t, repo.Save(ctx, id2, sample(id2)))

		defer func() {
			_ = repo.Delete(ctx, id1)
			_ = repo.Delete(ctx, id2)
		}()

		sessions, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
