package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter() (*Limiter, *MemoryCounterStore, *time.Time) {
	store := NewMemoryCounterStore()
	limiter := NewLimiter(store)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store.SetClock(clock)
	limiter.SetClock(clock)
	return limiter, store, &now
}

func TestWindowLimitBoundary(t *testing.T) {
	limiter, _, now := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		decision, err := limiter.CheckAndIncrement(ctx, "10.0.0.1", ClassAuth)
		if err != nil {
			t.Fatal(err)
		}
		assert.True(t, decision.Allowed)
		assert.Equal(t, int64(10-(i+1)), decision.Remaining)
	}

	decision, err := limiter.CheckAndIncrement(ctx, "10.0.0.1", ClassAuth)
	if err != nil {
		t.Fatal(err)
	}
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonRateLimitExceeded, decision.Reason)
	assert.Equal(t, int64(0), decision.Remaining)

	// first call of a fresh window is admitted again
	*now = now.Add(61 * time.Second)
	decision, err = limiter.CheckAndIncrement(ctx, "10.0.0.1", ClassAuth)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, decision.Allowed)
}

func TestIdentitiesAndClassesAreIndependent(t *testing.T) {
	limiter, _, _ := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		limiter.CheckAndIncrement(ctx, "10.0.0.1", ClassAuth)
	}
	decision, err := limiter.CheckAndIncrement(ctx, "10.0.0.2", ClassAuth)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, decision.Allowed)

	decision, err = limiter.CheckAndIncrement(ctx, "10.0.0.1", ClassCrypto)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, decision.Allowed)
}

func TestAbuseEscalation(t *testing.T) {
	limiter, _, now := newTestLimiter()
	ctx := context.Background()

	var decision Decision
	var err error
	for i := 0; i < 21; i++ {
		decision, err = limiter.CheckAndIncrement(ctx, "10.0.0.1", ClassAuth)
		if err != nil {
			t.Fatal(err)
		}
	}
	// 21st call crosses 2x limit and creates the block record
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonBlocked, decision.Reason)

	// the block outlives the counting window
	*now = now.Add(2 * time.Minute)
	decision, err = limiter.CheckAndIncrement(ctx, "10.0.0.1", ClassAuth)
	if err != nil {
		t.Fatal(err)
	}
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonBlocked, decision.Reason)
	assert.True(t, decision.RetryAfter > 0)
	assert.True(t, decision.RetryAfter <= BlockDuration)

	// counting resumes once the block expires
	*now = now.Add(BlockDuration)
	decision, err = limiter.CheckAndIncrement(ctx, "10.0.0.1", ClassAuth)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, decision.Allowed)
}

func TestBlockedIdentityDoesNotInflateCounter(t *testing.T) {
	limiter, store, now := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 21; i++ {
		limiter.CheckAndIncrement(ctx, "10.0.0.1", ClassAuth)
	}

	// fresh window: the old counter expires but the block persists
	*now = now.Add(2 * time.Minute)
	for i := 0; i < 5; i++ {
		decision, err := limiter.CheckAndIncrement(ctx, "10.0.0.1", ClassAuth)
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, ReasonBlocked, decision.Reason)
	}

	// blocked calls are rejected before counting, so no new window counter
	// was ever created
	_, found, err := store.Get(ctx, "rl:cnt:auth:10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	assert.False(t, found)
}

func TestUnknownClass(t *testing.T) {
	limiter, _, _ := newTestLimiter()
	_, err := limiter.CheckAndIncrement(context.Background(), "10.0.0.1", Class("bogus"))
	assert.Error(t, err)
}

func TestConcurrentAdmission(t *testing.T) {
	store := NewMemoryCounterStore()
	limiter := NewLimiter(store)
	ctx := context.Background()

	const requests = 50
	var wg sync.WaitGroup
	decisions := make([]Decision, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision, err := limiter.CheckAndIncrement(ctx, "10.0.0.1", ClassAuth)
			if err != nil {
				t.Error(err)
				return
			}
			decisions[i] = decision
		}(i)
	}
	wg.Wait()

	allowed := 0
	for _, d := range decisions {
		if d.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 10, allowed)
}

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (f *failingStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 0, errStoreDown
}
func (f *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errStoreDown
}
func (f *failingStore) SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error {
	return errStoreDown
}

func TestFallbackKeepsDecisionRules(t *testing.T) {
	store := NewFallbackCounterStore(&failingStore{}, NewMemoryCounterStore())
	limiter := NewLimiter(store)
	ctx := context.Background()

	var decision Decision
	var err error
	for i := 0; i < 11; i++ {
		decision, err = limiter.CheckAndIncrement(ctx, "10.0.0.1", ClassAuth)
		if err != nil {
			t.Fatal(err)
		}
	}
	// degraded mode still rejects over the limit instead of failing open
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonRateLimitExceeded, decision.Reason)
}
