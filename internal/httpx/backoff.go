package httpx

import (
	"math/rand"
	"time"
)

// RetryPolicy controls how transient failures are retried. Retryable
// failures are transport errors and HTTPErrors whose Retryable reports true.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter spreads each delay by up to +/- Jitter of its value (0..1).
	Jitter float64
}

// DefaultRetryPolicy never retries. Raising MaxRetries enables the delays.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 0,
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   2 * time.Second,
	Jitter:     0.25,
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	p.Jitter = min(max(p.Jitter, 0), 1)
	return p
}

// Delay returns the wait before retry number attempt (0-indexed): BaseDelay
// doubled per attempt, capped at MaxDelay, then jittered.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.normalized()
	delay := p.BaseDelay
	for i := 0; i < attempt && delay < p.MaxDelay; i++ {
		delay *= 2
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter == 0 {
		return delay
	}
	factor := 1 + (rand.Float64()*2-1)*p.Jitter
	return time.Duration(float64(delay) * factor)
}
