package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreIsolatesUsers(t *testing.T) {
	c, _, _, _ := newTestController()
	store := NewMemoryStore(fixedNow)
	ctx := context.Background()

	_, err := store.Update(ctx, "user-1", func(s *Session) error {
		c.Enter(s)
		return c.SelectFile(s, reportFile())
	})
	require.NoError(t, err)

	other, err := store.Get(ctx, "user-2")
	require.NoError(t, err)
	assert.False(t, other.InWorkflow)
	assert.Equal(t, "user-2", other.UserID)

	mine, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StageExtraction, mine.Stage)
	assert.Equal(t, testNow, mine.UpdatedAt)
}

func TestStoreReturnsSnapshots(t *testing.T) {
	c, _, _, _ := newTestController()
	store := NewMemoryStore(fixedNow)
	ctx := context.Background()

	snap, err := store.Update(ctx, "user-1", func(s *Session) error {
		c.Enter(s)
		require.NoError(t, c.SelectFile(s, reportFile()))
		return c.RunExtraction(ctx, s)
	})
	require.NoError(t, err)
	snap.Artifact.Path = "mutated"
	snap.Extracted[0].Statement = "mutated"

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "uploads/extraction/abc-report.pdf", got.Artifact.Path)
	assert.Equal(t, "Churn fell 4%", got.Extracted[0].Statement)
}

func TestStoreKeepsChangesOnError(t *testing.T) {
	store := NewMemoryStore(fixedNow)
	snap, err := store.Update(context.Background(), "user-1", func(s *Session) error {
		s.PromptOpen = false
		s.InWorkflow = true
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, snap.InWorkflow)
}

func TestStoreSerializesUpdates(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Update(ctx, "user-1", func(s *Session) error {
				s.Stage++
				return nil
			})
		}()
	}
	wg.Wait()
	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, Stage(50), got.Stage)
}

func TestStoreExpire(t *testing.T) {
	now := testNow
	store := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()
	_, err := store.Update(ctx, "user-1", func(s *Session) error { s.InWorkflow = true; return nil })
	require.NoError(t, err)

	cutoff := testNow.Add(time.Minute)
	assert.Equal(t, []string{"user-1"}, store.IdleSince(cutoff))

	expired, err := store.Expire(ctx, "user-1", cutoff, func(*Session) error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, expired)
	assert.Equal(t, 1, store.Len())

	now = testNow.Add(2 * time.Minute)
	_, err = store.Update(ctx, "user-1", func(*Session) error { return nil })
	require.NoError(t, err)
	expired, err = store.Expire(ctx, "user-1", cutoff, func(*Session) error { return nil })
	require.NoError(t, err)
	assert.False(t, expired, "touched after cutoff")

	expired, err = store.Expire(ctx, "user-1", now.Add(time.Second), func(*Session) error { return nil })
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, 0, store.Len())

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, got.InWorkflow)
}
