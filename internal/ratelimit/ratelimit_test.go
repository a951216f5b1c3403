package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitterLimiterWaits(t *testing.T) {
	l := NewJitterLimiter(10*time.Millisecond, 30*time.Millisecond)

	start := time.Now()
	err := l.Wait(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
}

func TestJitterLimiterZeroDelayReturnsImmediately(t *testing.T) {
	l := NewJitterLimiter(0, 0)

	start := time.Now()
	err := l.Wait(context.Background())

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestJitterLimiterCancelledContext(t *testing.T) {
	l := NewJitterLimiter(time.Minute, 2*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJitterLimiterDelayRange(t *testing.T) {
	l := NewJitterLimiter(5*time.Millisecond, 15*time.Millisecond)

	for i := 0; i < 100; i++ {
		d := l.calculateDelay()
		assert.GreaterOrEqual(t, d, 5*time.Millisecond)
		assert.Less(t, d, 15*time.Millisecond)
	}
}

func TestJitterLimiterSetDelay(t *testing.T) {
	l := NewJitterLimiter(time.Second, 2*time.Second)
	l.SetDelay(1*time.Millisecond, 2*time.Millisecond)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
