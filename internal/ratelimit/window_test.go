package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(length time.Duration, limit int) (*Limiter, *time.Time) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := New(length, limit)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(5*time.Second, 50)

	for i := 1; i <= 50; i++ {
		require.True(t, l.Allow(), "call %d should fit the window", i)
	}
	assert.False(t, l.Allow(), "call 51 must be limited")
	assert.False(t, l.Allow(), "call 52 must be limited")
}

func TestWindowResetRestoresBudget(t *testing.T) {
	l, now := newTestLimiter(5*time.Second, 50)

	for i := 0; i < 51; i++ {
		l.Allow()
	}
	require.False(t, l.Allow())

	*now = now.Add(5*time.Second + time.Millisecond)

	for i := 1; i <= 50; i++ {
		require.True(t, l.Allow(), "call %d after reset should fit", i)
	}
	assert.False(t, l.Allow())
}

func TestExactWindowLengthIsSameWindow(t *testing.T) {
	l, now := newTestLimiter(5*time.Second, 50)

	for i := 0; i < 51; i++ {
		l.Allow()
	}

	// Strictly-greater comparison: at exactly the window length the old
	// window still stands.
	*now = now.Add(5 * time.Second)
	assert.False(t, l.Allow())
}

func TestRejectedCallsStillCount(t *testing.T) {
	l, now := newTestLimiter(5*time.Second, 3)

	require.True(t, l.Allow())
	require.True(t, l.Allow())
	require.True(t, l.Allow())
	require.False(t, l.Allow())
	require.False(t, l.Allow())

	// Counting rejected calls does not extend the window.
	*now = now.Add(6 * time.Second)
	assert.True(t, l.Allow())
}

func TestDefaultsApplied(t *testing.T) {
	l := New(0, 0)

	assert.Equal(t, 5*time.Second, l.length)
	assert.Equal(t, 50, l.limit)
}

func TestConcurrentAllowCountsEveryCall(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, 100)

	var wg sync.WaitGroup
	allowed := make(chan bool, 400)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				allowed <- l.Allow()
			}
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	assert.Equal(t, 100, count)
}
