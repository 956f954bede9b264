// Package ratelimit implements a token-bucket admission gate keyed by an
// arbitrary string (typically client IP + route). Bucket state lives behind
// a BucketStore so the backend can be swapped for a shared cache; the
// in-memory store in this package is the shipped default.
package ratelimit

import (
	"math"
	"time"
)

// Config describes one bucket family. Effective capacity is Burst when it is
// set, otherwise Capacity. RefillPerSecond == 0 disables the limiter for this
// config: every consume is admitted.
type Config struct {
	Capacity        int
	Burst           int
	RefillPerSecond float64
}

func (c Config) effectiveCapacity() int {
	if c.Burst > 0 {
		return c.Burst
	}
	return c.Capacity
}

// Decision is the outcome of one Consume call.
type Decision struct {
	Allowed      bool
	Remaining    int
	RetryAfterMs int64
	ResetMs      int64
}

// Bucket is the stored state for one key. It is replaced wholesale once
// ExpiresAt passes, so idle keys are not retained indefinitely.
type Bucket struct {
	Key          string
	Tokens       float64
	LastRefillAt time.Time
	ExpiresAt    time.Time
}

// UpdateFunc transforms the live bucket for a key (nil when absent or past
// its TTL) into its next state plus the admission decision.
type UpdateFunc func(b *Bucket) (Bucket, Decision)

// BucketStore holds bucket state. Update must apply fn atomically per key:
// two concurrent calls for the same key must never both observe the same
// prior state.
type BucketStore interface {
	Update(key string, now time.Time, fn UpdateFunc) Decision
}

type Limiter struct {
	store BucketStore
}

func NewLimiter(store BucketStore) *Limiter {
	return &Limiter{store: store}
}

// Consume takes one token from the bucket for key, creating the bucket at
// full capacity on first use. The refill-decrement-write-back runs as a
// single atomic store operation.
func (l *Limiter) Consume(key string, cfg Config, now time.Time) Decision {
	capacity := float64(cfg.effectiveCapacity())

	// Zero refill rate denotes a disabled limiter. Short-circuit so the
	// arithmetic below never divides by zero.
	if cfg.RefillPerSecond <= 0 {
		return Decision{Allowed: true, Remaining: int(capacity)}
	}

	return l.store.Update(key, now, func(b *Bucket) (Bucket, Decision) {
		tokens := capacity
		if b != nil {
			elapsed := now.Sub(b.LastRefillAt).Seconds()
			tokens = math.Min(capacity, b.Tokens+elapsed*cfg.RefillPerSecond)
		}

		var d Decision
		if tokens >= 1 {
			tokens--
			d.Allowed = true
			d.Remaining = int(math.Floor(tokens))
		} else {
			d.RetryAfterMs = ceilMs((1 - tokens) / cfg.RefillPerSecond)
		}
		d.ResetMs = ceilMs((capacity - tokens) / cfg.RefillPerSecond)

		ttl := time.Duration(2 * capacity / cfg.RefillPerSecond * float64(time.Second))
		next := Bucket{
			Key:          key,
			Tokens:       tokens,
			LastRefillAt: now,
			ExpiresAt:    now.Add(ttl),
		}
		return next, d
	})
}

func ceilMs(seconds float64) int64 {
	return int64(math.Ceil(seconds * 1000))
}
