package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Class groups endpoints that share a quota
type Class string

const (
	ClassAuth   Class = "auth"
	ClassUpload Class = "upload"
	ClassCrypto Class = "crypto"
	ClassPublic Class = "public"
)

const (
	ReasonRateLimitExceeded = "rate limit exceeded"
	ReasonBlocked           = "blocked"

	// crossing abuseMultiplier x limit within one window escalates the plain
	// rejection to a temporary hard block
	abuseMultiplier = 2
	BlockDuration   = 15 * time.Minute
)

type rule struct {
	limit  int64
	window time.Duration
}

var classRules = map[Class]rule{
	ClassAuth:   {limit: 10, window: time.Minute},
	ClassUpload: {limit: 5, window: time.Minute},
	ClassCrypto: {limit: 20, window: time.Minute},
	ClassPublic: {limit: 100, window: time.Minute},
}

// Decision is the structured outcome of a quota check. Denials are values,
// never errors; Reason is surfaced to end users.
type Decision struct {
	Allowed    bool
	Remaining  int64
	Reason     string
	RetryAfter time.Duration
}

// Limiter enforces per (identity, class) sliding windows with two-tier
// escalation. All decision logic runs against the CounterStore interface, so
// the shared and in-memory stores behave identically.
type Limiter struct {
	store CounterStore
	now   func() time.Time
}

func NewLimiter(store CounterStore) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// SetClock overrides the time source (tests only)
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// CheckAndIncrement counts the request and decides whether it may proceed.
// Blocked identities are rejected before incrementing so they do not keep
// inflating window counters. An error means the store failed, which is distinct
// from a denial.
func (l *Limiter) CheckAndIncrement(ctx context.Context, identity string, class Class) (Decision, error) {
	r, ok := classRules[class]
	if !ok {
		return Decision{}, fmt.Errorf("unknown endpoint class %q", class)
	}

	blockKey := fmt.Sprintf("rl:block:%s:%s", class, identity)
	blockedUntil, blocked, err := l.store.Get(ctx, blockKey)
	if err != nil {
		return Decision{}, err
	}
	if blocked {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			Reason:     ReasonBlocked,
			RetryAfter: l.retryAfter(blockedUntil),
		}, nil
	}

	countKey := fmt.Sprintf("rl:cnt:%s:%s", class, identity)
	count, err := l.store.Increment(ctx, countKey, r.window)
	if err != nil {
		return Decision{}, err
	}

	if count > abuseMultiplier*r.limit {
		until := l.now().Add(BlockDuration)
		if sErr := l.store.SetWithTTL(ctx, blockKey, strconv.FormatInt(until.UnixMilli(), 10), BlockDuration); sErr != nil {
			return Decision{}, sErr
		}
		return Decision{
			Allowed:    false,
			Remaining:  0,
			Reason:     ReasonBlocked,
			RetryAfter: BlockDuration,
		}, nil
	}

	if count > r.limit {
		return Decision{
			Allowed:   false,
			Remaining: 0,
			Reason:    ReasonRateLimitExceeded,
		}, nil
	}

	return Decision{
		Allowed:   true,
		Remaining: r.limit - count,
	}, nil
}

// Limit returns the window quota of a class
func Limit(class Class) int64 {
	return classRules[class].limit
}

func (l *Limiter) retryAfter(blockedUntil string) time.Duration {
	untilMillis, err := strconv.ParseInt(blockedUntil, 10, 64)
	if err != nil {
		return BlockDuration
	}
	remaining := time.UnixMilli(untilMillis).Sub(l.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
