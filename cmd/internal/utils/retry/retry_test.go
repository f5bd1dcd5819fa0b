package retry

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

var (
	errTransient = errors.New("transient")
	errFatal     = errors.New("fatal")
)

func isTransient(err error) bool {
	return errors.Is(err, errTransient)
}

func recordingPolicy(maxRetries int, base time.Duration) (*Policy, *[]time.Duration) {
	var waits []time.Duration
	p := NewPolicy(maxRetries, base)
	p.Sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return p, &waits
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	p, waits := recordingPolicy(3, 10*time.Millisecond)

	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return nil
	}, isTransient)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *waits)
}

func TestDo_RecoversFromTransient(t *testing.T) {
	p, waits := recordingPolicy(3, 10*time.Millisecond)

	var attempts []int
	err := p.Do(context.Background(), func(attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 2 {
			return errTransient
		}
		return nil
	}, isTransient)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *waits)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	p, waits := recordingPolicy(3, 10*time.Millisecond)

	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return errFatal
	}, isTransient)

	assert.Same(t, errFatal, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *waits)
}

func TestDo_ExhaustsBound(t *testing.T) {
	p, waits := recordingPolicy(3, 25*time.Millisecond)

	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return errTransient
	}, isTransient)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
	}, *waits)
}

func TestDo_ZeroRetries(t *testing.T) {
	p, _ := recordingPolicy(0, time.Millisecond)

	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return errTransient
	}, isTransient)

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	p := NewPolicy(3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Do(ctx, func(int) error { return errTransient }, isTransient)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelay(t *testing.T) {
	p := NewPolicy(DefaultMaxRetries, DefaultBaseDelay)
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 50*time.Millisecond, p.Delay(1))
	assert.Equal(t, 100*time.Millisecond, p.Delay(2))
	assert.Equal(t, 200*time.Millisecond, p.Delay(3))
}
