// Package retry is the single retry policy shared by engine startup,
// synthesis and the telemetry reconnect loop.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Policy describes a fixed-delay retry.
// Attempts is the total number of calls (0 means unlimited).
// Timeout bounds the whole sequence (0 means none).
type Policy struct {
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

// ErrPermanent marks an error that must not be retried.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so Do returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }
func (e *permanentError) Is(target error) bool {
	return target == ErrPermanent
}

func (p Policy) backoff() goretry.Backoff {
	delay := p.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	b := goretry.NewConstant(delay)
	if p.Attempts > 0 {
		b = goretry.WithMaxRetries(uint64(p.Attempts-1), b)
	}
	if p.Timeout > 0 {
		b = goretry.WithMaxDuration(p.Timeout, b)
	}
	return b
}

// Do calls fn until it succeeds, returns a permanent error, the policy is
// exhausted or ctx is done. The last error from fn is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	attempt := 0
	var last error
	err := goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx, attempt)
		attempt++
		if err == nil {
			return nil
		}
		last = err
		if errors.Is(err, ErrPermanent) {
			return err
		}
		return goretry.RetryableError(err)
	})
	if err == nil {
		return nil
	}
	if last != nil && ctx.Err() == nil {
		return last
	}
	return err
}
