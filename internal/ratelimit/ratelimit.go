package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter paces outbound requests.
type Limiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// JitterLimiter sleeps a uniformly random duration in [minDelay, maxDelay]
// before every request, emulating human pacing. The randomness is the
// point: fixed intervals are a bot signature.
type JitterLimiter struct {
	minDelay time.Duration
	maxDelay time.Duration
	mu       sync.Mutex
}

func NewJitterLimiter(minDelay, maxDelay time.Duration) *JitterLimiter {
	return &JitterLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (l *JitterLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	delay := l.calculateDelay()
	l.mu.Unlock()

	if delay <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (l *JitterLimiter) SetDelay(min, max time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.minDelay = min
	l.maxDelay = max
}

func (l *JitterLimiter) calculateDelay() time.Duration {
	if l.maxDelay <= l.minDelay {
		return l.minDelay
	}

	delta := l.maxDelay - l.minDelay
	return l.minDelay + time.Duration(rand.Int63n(int64(delta)))
}
