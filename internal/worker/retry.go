package worker

import "time"

// RetryPolicy decides how often and when a failed job is attempted again
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 30 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Minute
	}
	return p
}

// Delay returns the wait before the next attempt after attempts failures:
// BaseDelay doubled per earlier failure, capped at MaxDelay.
func (p RetryPolicy) Delay(attempts int) time.Duration {
	p = p.withDefaults()
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(delay, p.MaxDelay)
}

// Exhausted reports whether a job has used all of its attempts. A job's own
// limit wins over the policy's.
func (p RetryPolicy) Exhausted(attempts, jobMax int) bool {
	limit := p.withDefaults().MaxAttempts
	if jobMax > 0 {
		limit = jobMax
	}
	return attempts >= limit
}
