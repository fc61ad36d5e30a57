package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_Delay(t *testing.T) {
	s := Schedule{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
	}

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{50, time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Delay(tt.retry), "retry %d", tt.retry)
	}
}

func TestSchedule_DelayWithJitterStaysInBounds(t *testing.T) {
	s := Schedule{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Jitter:          0.5,
	}

	for i := 0; i < 100; i++ {
		d := s.Delay(2)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	policy := Policy{MaxAttempts: 4, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, Multiplier: 2}

	calls := 0
	var retried []int
	err := RetryWithCallback(context.Background(), policy, func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	}, func(attempt int, err error, next time.Duration) {
		retried = append(retried, attempt)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetry_StopsOnFatal(t *testing.T) {
	policy := Policy{MaxAttempts: 5, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1}

	calls := 0
	err := Retry(context.Background(), policy, func() error {
		calls++
		return NewFatalError(errors.New("bad input"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	policy := Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1}

	calls := 0
	err := Retry(context.Background(), policy, func() error {
		calls++
		return errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}
