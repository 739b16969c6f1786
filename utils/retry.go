package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrRetryExhausted is returned once every attempt allowed by a RetryPolicy failed.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// RetryPolicy bounds how often and how fast an operation is retried.
type RetryPolicy struct {
	MaxAttempts uint
	Delay       time.Duration
	// Exponential grows the delay between attempts, starting at Delay.
	Exponential bool
}

func (p RetryPolicy) backOff() backoff.BackOff {
	if p.Exponential {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = p.Delay
		b.MaxInterval = 10 * p.Delay
		return b
	}
	return backoff.NewConstantBackOff(p.Delay)
}

// Retry runs fn until it succeeds, ctx ends, or the policy runs out of attempts.
func Retry(ctx context.Context, name string, p RetryPolicy, fn func() error) error {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 1
	}
	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		return struct{}{}, fn()
	}
	notify := func(err error, wait time.Duration) {
		Sugar.Warnf("%s failed (attempt %d/%d), retrying in %s: %v", name, attempt, p.MaxAttempts, wait, err)
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(p.MaxAttempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return fmt.Errorf("%w: %s after %d attempts: %v", ErrRetryExhausted, name, attempt, err)
	}
	return nil
}
