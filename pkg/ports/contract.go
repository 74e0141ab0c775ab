package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDraftStoreContract runs a suite of tests to verify that a DraftStore
// implementation adheres to the defined interface contract.
func RunDraftStoreContract(t *testing.T, store DraftStore) {
	ctx := context.Background()
	id := "contract-test-draft-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		draft := &domain.Draft{
			ID:      id,
			Title:   "config.yaml",
			Path:    "/tmp/config.yaml",
			Text:    "name: café\nitems:\n  - 1\n",
			View:    domain.ViewTree,
			Dirty:   true,
			SavedAt: time.Now().UTC().Truncate(time.Second),
		}

		err := store.Save(ctx, id, draft)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, draft.Title, loaded.Title)
		assert.Equal(t, draft.Path, loaded.Path)
		assert.Equal(t, draft.Text, loaded.Text)
		assert.Equal(t, domain.ViewTree, loaded.View)
		assert.True(t, loaded.Dirty)
		assert.True(t, draft.SavedAt.Equal(loaded.SavedAt))
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		loaded.Text = "mutated"

		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.Text)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, id, &domain.Draft{ID: id, Text: "a: 1\n"})
		require.NoError(t, err)

		err = store.Delete(ctx, id)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, id), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		_ = store.Save(ctx, id1, &domain.Draft{ID: id1})
		_ = store.Save(ctx, id2, &domain.Draft{ID: id2})

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
