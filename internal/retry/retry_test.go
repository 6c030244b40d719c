package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoStopsAfterAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")

	err := Do(context.Background(), Policy{Attempts: 3, Delay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		assert.Equal(t, calls, attempt)
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoReturnsOnSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 5, Delay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 1 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoPermanentErrorIsNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("config")

	err := Do(context.Background(), Policy{Attempts: 5, Delay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		return Permanent(boom)
	})

	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, 1, calls)
}

func TestDoHonoursTimeout(t *testing.T) {
	start := time.Now()
	err := Do(context.Background(), Policy{Delay: 10 * time.Millisecond, Timeout: 50 * time.Millisecond}, func(ctx context.Context, attempt int) error {
		return errors.New("never ready")
	})

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Policy{Delay: 10 * time.Millisecond}, func(ctx context.Context, attempt int) error {
		return errors.New("retry me")
	})

	require.Error(t, err)
}
