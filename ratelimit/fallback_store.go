package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-kit/log/level"
	"github.com/mintbay/go-mintbay-server/global"
)

// FallbackCounterStore wraps a shared store with a process-local fallback. When
// the shared store is unreachable the same decision rules keep running against
// local counters, so a redis outage degrades coordination scope, never safety.
type FallbackCounterStore struct {
	primary  CounterStore
	fallback CounterStore
	degraded atomic.Bool
}

func NewFallbackCounterStore(primary CounterStore, fallback CounterStore) *FallbackCounterStore {
	return &FallbackCounterStore{primary: primary, fallback: fallback}
}

func (f *FallbackCounterStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := f.primary.Increment(ctx, key, window)
	if err != nil {
		f.logDegraded(err)
		return f.fallback.Increment(ctx, key, window)
	}
	f.degraded.Store(false)
	return count, nil
}

func (f *FallbackCounterStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, found, err := f.primary.Get(ctx, key)
	if err != nil {
		f.logDegraded(err)
		return f.fallback.Get(ctx, key)
	}
	return value, found, nil
}

func (f *FallbackCounterStore) SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := f.primary.SetWithTTL(ctx, key, value, ttl); err != nil {
		f.logDegraded(err)
		return f.fallback.SetWithTTL(ctx, key, value, ttl)
	}
	return nil
}

// log the transition once per outage, not per request
func (f *FallbackCounterStore) logDegraded(err error) {
	if f.degraded.CompareAndSwap(false, true) {
		level.Error(global.Logger).Log("msg", "counter store unreachable, using in-memory fallback", "err", err.Error())
	}
}
