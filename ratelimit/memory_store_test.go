package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStoreWindowReset(t *testing.T) {
	store := NewMemoryCounterStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })
	ctx := context.Background()

	count, err := store.Increment(ctx, "cnt", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, int64(1), count)

	count, _ = store.Increment(ctx, "cnt", time.Minute)
	assert.Equal(t, int64(2), count)

	// expired window starts counting from one again
	now = now.Add(61 * time.Second)
	count, _ = store.Increment(ctx, "cnt", time.Minute)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStorePrunesExpiredEntries(t *testing.T) {
	store := NewMemoryCounterStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })
	ctx := context.Background()

	// a churn of distinct identities, all expiring together
	for i := 0; i < 100; i++ {
		if _, err := store.Increment(ctx, fmt.Sprintf("old-%d", i), time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	now = now.Add(2 * time.Minute)

	// enough further churn to cross the prune threshold
	for i := 0; i < pruneEvery; i++ {
		if _, err := store.Increment(ctx, fmt.Sprintf("new-%d", i), time.Minute); err != nil {
			t.Fatal(err)
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, pruneEvery, len(store.entries))
	_, stale := store.entries["old-0"]
	assert.False(t, stale)
}
