package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTrackerStoreContract runs a suite of tests to verify that a TrackerStore implementation
// adheres to the defined interface contract.
func RunTrackerStoreContract(t *testing.T, store TrackerStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	newTracker := func(id string) domain.Tracker {
		return domain.NewTracker(domain.TrackerSeed{SessionID: id, Origin: "contract"})
	}

	t.Run("Save and Load", func(t *testing.T) {
		tracker := newTracker(sessionID)
		tracker["foo"] = "bar"
		tracker["count"] = 42
		tracker.Append(domain.NewMessage(sessionID, domain.RoleAI, "hello", nil, false))

		err := store.Save(ctx, sessionID, tracker)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.StartNodeID, loaded.CurrentNode())
		assert.Equal(t, "bar", loaded["foo"])
		assert.Equal(t, "contract", loaded.String(domain.KeyOrigin))
		// JSON stores turn ints into float64, only existence is part of the contract.
		assert.NotNil(t, loaded["count"])
		require.Len(t, loaded.History(), 1)
		assert.Equal(t, "hello", loaded.History()[0].Content())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, newTracker(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, newTracker(id1)))
		require.NoError(t, store.Save(ctx, id2, newTracker(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
