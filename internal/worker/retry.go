package worker

import (
	"math"
	"time"
)

// RetryPolicy is an exponential backoff: the n-th retry waits
// InitialDelay * BackoffFactor^(n-1), never more than MaxDelay.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// LedgerRetryPolicy paces spreadsheet writes: 2s, 4s, 8s, 16s, then the
// task is dead-lettered.
func LedgerRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
}

// orDefaults fills unset fields from def.
func (r RetryPolicy) orDefaults(def RetryPolicy) RetryPolicy {
	if r.MaxRetries == 0 {
		r.MaxRetries = def.MaxRetries
	}
	if r.InitialDelay == 0 {
		r.InitialDelay = def.InitialDelay
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = def.MaxDelay
	}
	if r.BackoffFactor == 0 {
		r.BackoffFactor = def.BackoffFactor
	}
	return r
}

// Exhausted reports whether the 1-based attempt was the last one allowed.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.MaxRetries
}

// NextDelay returns the wait before the 1-based attempt.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := r.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	scaled := float64(base) * math.Pow(factor, float64(attempt-1))
	if r.MaxDelay > 0 && scaled >= float64(r.MaxDelay) {
		return r.MaxDelay
	}
	if scaled >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(scaled)
}

// Schedule lists the wait before every retry the policy allows.
func (r RetryPolicy) Schedule() []time.Duration {
	out := make([]time.Duration, 0, r.MaxRetries)
	for i := 1; i <= r.MaxRetries; i++ {
		out = append(out, r.NextDelay(i))
	}
	return out
}
