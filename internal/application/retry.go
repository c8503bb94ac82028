package application

import "time"

const DefaultMaxAttempts = 3

// RetryPolicy bounds the optimistic-concurrency retry loop of the ledger.
// Sleep is called between attempts when set; the baseline policy has no
// backoff, which can amplify contention under heavy parallel writers.
type RetryPolicy struct {
	MaxAttempts int
	Sleep       func(attempt int) time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p RetryPolicy) pause(attempt int) {
	if p.Sleep == nil {
		return
	}
	if d := p.Sleep(attempt); d > 0 {
		time.Sleep(d)
	}
}
