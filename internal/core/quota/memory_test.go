package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_IncrementIfBelow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(MemoryOptions{})
	defer store.Close()

	rec, ok, err := store.IncrementIfBelow(ctx, "u", "2025-03-14", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Record{UserID: "u", Day: "2025-03-14", Count: 1, Limit: 2}, rec)

	_, ok, err = store.IncrementIfBelow(ctx, "u", "2025-03-14", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	rec, ok, err = store.IncrementIfBelow(ctx, "u", "2025-03-14", 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, rec.Count)

	// 新的一天先歸零再加一
	rec, ok, err = store.IncrementIfBelow(ctx, "u", "2025-03-15", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Record{UserID: "u", Day: "2025-03-15", Count: 1, Limit: 2}, rec)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewMemoryStore(MemoryOptions{})
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := store.IncrementIfBelow(ctx, "u", "2025-03-14", 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_CleanupRemovesIdleRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(MemoryOptions{IdleTTL: time.Hour})
	defer store.Close()

	now := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, _, err := store.IncrementIfBelow(ctx, "old", "2025-03-14", 5)
	require.NoError(t, err)

	now = now.Add(90 * time.Minute)
	_, _, err = store.IncrementIfBelow(ctx, "fresh", "2025-03-14", 5)
	require.NoError(t, err)

	assert.Equal(t, 1, store.cleanup())
	_, found, _ := store.Load(ctx, "old")
	assert.False(t, found)
	_, found, _ = store.Load(ctx, "fresh")
	assert.True(t, found)
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	store := NewMemoryStore(MemoryOptions{IdleTTL: time.Hour, CleanupInterval: time.Millisecond})
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
