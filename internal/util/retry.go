package util

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry calls fn up to maxAttempts times with exponential backoff starting at
// baseDelay and doubling after each failure. It returns nil on the first
// successful call, or the last error if all attempts fail. Cancelling ctx
// stops the retries.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = baseDelay
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = time.Hour
	eb.MaxElapsedTime = 0

	var b backoff.BackOff = backoff.WithMaxRetries(eb, uint64(maxAttempts-1))
	b = backoff.WithContext(b, ctx)

	return backoff.Retry(fn, b)
}

// Permanent wraps err so that Retry gives up immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
