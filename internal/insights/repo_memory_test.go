package insights

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.Save(ctx, testRoot()))
	for _, c := range testChildren() {
		require.NoError(t, repo.Save(ctx, c))
	}

	// Re-saving keeps the original slot.
	updated := testChildren()[0]
	updated.Statement = "edited"
	require.NoError(t, repo.Save(ctx, updated))

	children, err := repo.ListChildren(ctx, "root-1")
	require.NoError(t, err)
	assert.Equal(t, ids(testChildren()), ids(children))
	assert.Equal(t, "edited", children[0].Statement)

	none, err := repo.ListChildren(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.Save(ctx, child("c", map[string]string{"Geography": "US"})))

	got, err := repo.Get(ctx, "c")
	require.NoError(t, err)
	got.Dimensions()["Geography"] = "UK"

	again, err := repo.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "US", again.Dimensions()["Geography"])

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepoUpdateChecksVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	rec := testRoot()
	rec.CurrentVersion = 1
	require.NoError(t, repo.Save(ctx, rec))

	next := rec
	next.Statement = "edited"
	next.CurrentVersion = 2
	require.NoError(t, repo.Update(ctx, next, 1))

	stale := rec
	stale.Statement = "stale"
	stale.CurrentVersion = 2
	assert.ErrorIs(t, repo.Update(ctx, stale, 1), ErrVersionConflict)

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Statement)

	missing := rec
	missing.ID = "nope"
	assert.ErrorIs(t, repo.Update(ctx, missing, 1), ErrNotFound)
}
