package worker

import (
	"math"
	"time"
)

// RetryPolicy shapes the backoff between sheet-append attempts for a sync
// task. Zero fields take the worker defaults via normalized.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// normalized fills zero fields with the sync worker defaults: five attempts,
// a 2s initial delay doubling up to one minute.
func (r RetryPolicy) normalized() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = 5
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = 2 * time.Second
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = time.Minute
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}
	return r
}

// NextDelay returns how long a task that has failed attempt times (1-based)
// waits before it becomes visible to the poll loop again.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	r = r.normalized()
	if attempt < 1 {
		attempt = 1
	}

	delay := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if delay > r.MaxDelay || delay <= 0 {
		delay = r.MaxDelay
	}
	return delay
}
