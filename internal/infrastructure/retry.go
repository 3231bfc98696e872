package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryPolicy bounds Retry. MaxRetry is the number of retries after the first
// attempt.
type RetryPolicy struct {
	MaxRetry int
	Factor   float64
	MinDelay time.Duration
	MaxDelay time.Duration
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxRetry < 0 {
		p.MaxRetry = 0
	}
	if p.Factor < 1 {
		p.Factor = defaultBackoffFactor
	}
	if p.MinDelay <= 0 {
		p.MinDelay = defaultMinJitter
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxJitter
	}
	if p.MaxDelay < p.MinDelay {
		p.MaxDelay = p.MinDelay
	}

	return p
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// Retry runs fn until it succeeds or the policy is exhausted. A Permanent
// error stops immediately and is returned unwrapped.
func Retry(ctx context.Context, logger logrus.FieldLogger, policy RetryPolicy, fn func(ctx context.Context) error) error {
	policy = policy.normalize()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetry; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt == policy.MaxRetry {
			break
		}

		wait := BackoffWithJitter(attempt, policy.Factor, policy.MinDelay, policy.MaxDelay, rng)
		logger.WithFields(logrus.Fields{
			"attempt":   attempt + 1,
			"max_retry": policy.MaxRetry,
			"retry_in":  wait.String(),
		}).Warnf("attempt failed: %v", lastErr)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("after %d attempts: %w", policy.MaxRetry+1, lastErr)
}

// BackoffWithJitter returns floor*factor^attempt plus a random jitter of up to
// ceil-floor, never more than ceil.
func BackoffWithJitter(attempt int, factor float64, floor, ceil time.Duration, rng *rand.Rand) time.Duration {
	grown := math.Min(float64(floor)*math.Pow(factor, float64(attempt)), float64(ceil))
	wait := time.Duration(grown)
	if ceil <= floor {
		return wait
	}

	wait += time.Duration(rng.Int63n(int64(ceil-floor) + 1))

	return min(wait, ceil)
}
