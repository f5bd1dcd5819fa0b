// Package retry re-executes an operation on transient failures with a
// bounded number of attempts and exponential backoff between them.
package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 50 * time.Millisecond
)

// Policy allows MaxRetries re-executions after the first attempt. The
// delay before retry n (1-based) is BaseDelay * 2^(n-1).
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration

	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewPolicy(maxRetries int, baseDelay time.Duration) *Policy {
	return &Policy{MaxRetries: maxRetries, BaseDelay: baseDelay}
}

// ExhaustedError carries the last transient failure once the retry bound
// is reached. It unwraps to that failure.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Delay returns the wait before the given retry (1-based).
func (p *Policy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	return p.BaseDelay << (retry - 1)
}

// Do runs op until it succeeds, fails with an error retryable rejects, or
// the retry bound is exhausted. op receives the 0-based attempt number.
func (p *Policy) Do(ctx context.Context, op func(attempt int) error, retryable func(error) bool) error {
	attempt := 0
	for {
		err := op(attempt)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt >= p.MaxRetries {
			return &ExhaustedError{Attempts: attempt + 1, Err: err}
		}

		attempt++
		if serr := p.sleep(ctx, p.Delay(attempt)); serr != nil {
			return fmt.Errorf("retry wait interrupted: %w", serr)
		}
	}
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
