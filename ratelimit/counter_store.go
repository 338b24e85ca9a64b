package ratelimit

import (
	"context"
	"time"
)

// CounterStore is the capability the limiter needs from its backing store.
//
// Increment must be a single atomic increment-with-expiry: the counter is
// created with the given window TTL on its first increment and the
// post-increment value is returned. Implementations must not split this into
// separate read and write calls, otherwise concurrent requests at the limit
// boundary can both slip through.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	Get(ctx context.Context, key string) (string, bool, error)
	SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error
}
