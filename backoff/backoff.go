// Package backoff is the one retry policy shared by login, proactive
// renewal and scheduled renewal, so all three paths back off identically.
package backoff

import (
	"context"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

// Policy retries an operation up to MaxAttempts times, sleeping
// BaseDelay * 2^(attempt-1) between attempts. Errors rejected by Retryable
// abort immediately and surface unchanged.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   func(error) bool
}

// Do runs op under the policy and returns the last error when every
// attempt fails. Context cancellation stops the wait between attempts.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}

	exponential := cbackoff.NewExponentialBackOff()
	exponential.InitialInterval = base
	exponential.Multiplier = 2
	exponential.RandomizationFactor = 0
	exponential.MaxInterval = 5 * time.Minute
	exponential.MaxElapsedTime = 0

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return cbackoff.Permanent(err)
		}
		return err
	}

	schedule := cbackoff.WithContext(cbackoff.WithMaxRetries(exponential, uint64(attempts-1)), ctx)
	return cbackoff.Retry(wrapped, schedule)
}
