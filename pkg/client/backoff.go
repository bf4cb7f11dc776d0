package client

import (
	"math/rand"
	"time"
)

// Retry defaults.
const (
	// DefaultRetryInitial is the delay before the first retry.
	DefaultRetryInitial = 250 * time.Millisecond

	// DefaultRetryMax caps the delay between retries.
	DefaultRetryMax = 5 * time.Second

	// DefaultRetryMultiplier is the factor by which the delay grows.
	DefaultRetryMultiplier = 2.0

	// DefaultRetryJitter is the maximum jitter as a fraction of the delay.
	DefaultRetryJitter = 0.25
)

// RetryPolicy controls how read-only calls are retried when the service is
// unavailable. Mutations are never retried.
type RetryPolicy struct {
	// Attempts is the total number of attempts. Zero or one disables
	// retries.
	Attempts int

	Initial    time.Duration
	Max        time.Duration
	Multiplier float64

	// Jitter is the maximum extra delay as a fraction of the delay. Zero
	// uses DefaultRetryJitter.
	Jitter float64
}

// backoff calculates exponential retry delays with jitter.
type backoff struct {
	current    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64

	rng *rand.Rand
}

func newBackoff(p RetryPolicy) *backoff {
	if p.Initial <= 0 {
		p.Initial = DefaultRetryInitial
	}
	if p.Max <= 0 {
		p.Max = DefaultRetryMax
	}
	if p.Multiplier <= 1 {
		p.Multiplier = DefaultRetryMultiplier
	}
	if p.Jitter <= 0 {
		p.Jitter = DefaultRetryJitter
	}
	return &backoff{
		current:    p.Initial,
		max:        p.Max,
		multiplier: p.Multiplier,
		jitter:     p.Jitter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next delay (with jitter) and advances the backoff.
func (b *backoff) Next() time.Duration {
	delay := b.current
	if b.jitter > 0 {
		delay += time.Duration(float64(delay) * b.jitter * b.rng.Float64())
	}

	next := time.Duration(float64(b.current) * b.multiplier)
	if next > b.max {
		next = b.max
	}
	b.current = next

	return delay
}
