package enrichers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("allows within burst", func(t *testing.T) {
		rl := NewRateLimiter(1, 3)

		assert.True(t, rl.Allow())
		assert.True(t, rl.Allow())
		assert.True(t, rl.Allow())
		assert.False(t, rl.Allow())
	})

	t.Run("refills over time", func(t *testing.T) {
		rl := NewRateLimiter(100, 1)

		assert.True(t, rl.Allow())
		assert.False(t, rl.Allow())

		time.Sleep(20 * time.Millisecond)
		assert.True(t, rl.Allow())
	})
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("returns immediately when tokens available", func(t *testing.T) {
		rl := NewRateLimiter(10, 10)

		start := time.Now()
		err := rl.Wait(context.Background())
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("returns error when context cancelled", func(t *testing.T) {
		rl := NewRateLimiter(0.01, 1)
		require.True(t, rl.Allow())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := rl.Wait(ctx)
		assert.Error(t, err)
	})
}

func TestRateLimiter_SetRate(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.SetRate(100)

	require.True(t, rl.Allow())
	time.Sleep(20 * time.Millisecond)
	assert.True(t, rl.Allow())
}

func TestRateLimiter_Tokens(t *testing.T) {
	rl := NewRateLimiter(1, 5)
	assert.InDelta(t, 5, rl.Tokens(), 0.1)

	rl.Allow()
	assert.InDelta(t, 4, rl.Tokens(), 0.1)
}
