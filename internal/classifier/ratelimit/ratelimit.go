// Package ratelimit gates LM calls with a token bucket, spec.md §4.3:
// capacity Q (1-60, default 10), refilled continuously at Q tokens per
// 60 seconds. Tokens only gate LM calls, never cache hits.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const refillInterval = 60 * time.Second

// DefaultCapacity is Q's default value, spec.md §6.
const DefaultCapacity = 10

// Limiter wraps x/time/rate.Limiter: a bucket of Q tokens that starts
// full and regains one token every 60/Q seconds. The bucket is not
// refilled to full at fixed one-minute boundaries, so a 60-second
// window can admit more than Q calls (a full burst followed by
// refilled tokens).
type Limiter struct {
	l *rate.Limiter
}

// New builds a Limiter with capacity tokens that refills at capacity
// tokens per 60 seconds, one token at a time.
func New(capacity int) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	r := rate.Limit(float64(capacity) / refillInterval.Seconds())
	return &Limiter{l: rate.NewLimiter(r, capacity)}
}

// Acquire blocks until one token is available or ctx is cancelled.
// This is the "(b) rate-limiter token acquisition (unbounded; only
// during shutdown is the thread interrupted)" blocking point of
// spec.md §5.
func (lim *Limiter) Acquire(ctx context.Context) error {
	return lim.l.Wait(ctx)
}
