package publishing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyDo(t *testing.T) {
	fast := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	t.Run("first attempt success", func(t *testing.T) {
		calls := 0
		err := fast.do(context.Background(), func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("recovers within budget", func(t *testing.T) {
		calls := 0
		err := fast.do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		last := errors.New("still broken")
		calls := 0
		err := fast.do(context.Background(), func() error {
			calls++
			return last
		})
		assert.ErrorIs(t, err, last)
		assert.Equal(t, 3, calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := fast.do(ctx, func() error {
			calls++
			cancel()
			return errors.New("transient")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		none := RetryPolicy{}
		calls := 0
		err := none.do(context.Background(), func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}
