package adapter

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// linearBackOff implements backoff.BackOff with a fixed linear step schedule
// (1s, 2s, 3s, ...) instead of the exponential growth of
// backoff.NewExponentialBackOff(). The HTTP fallback log-query retry
// (spec.md §4.4) requires exactly this shape: attempt n waits n seconds,
// capped at maxAttempts.
type linearBackOff struct {
	step        time.Duration
	maxAttempts int
	attempt     int
}

// NewLinearBackOff returns a backoff.BackOff that waits step, 2*step, 3*step,
// ... and reports backoff.Stop once maxAttempts have elapsed.
func NewLinearBackOff(step time.Duration, maxAttempts int) backoff.BackOff {
	return &linearBackOff{step: step, maxAttempts: maxAttempts}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	if b.attempt > b.maxAttempts {
		return backoff.Stop
	}
	return time.Duration(b.attempt) * b.step
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}
