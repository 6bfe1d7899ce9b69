package ratelimit

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplierhub/internal/apperrors"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(max int, window time.Duration) (*Limiter, *fakeClock, *MemoryStore) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	return NewWithStore("test", max, window, store, clock.Now), clock, store
}

func TestLimiter_RejectsOverLimitThenRecovers(t *testing.T) {
	l, clock, _ := newTestLimiter(5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Allow("10.0.0.1"), "request %d", i+1)
		clock.Advance(time.Second)
	}

	err := l.Allow("10.0.0.1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRateLimited))
	assert.Equal(t, 429, apperrors.Status(err))

	clock.Advance(15 * time.Minute)
	assert.NoError(t, l.Allow("10.0.0.1"))
}

func TestLimiter_RejectedAttemptsAreNotRecorded(t *testing.T) {
	l, clock, _ := newTestLimiter(2, time.Minute)

	require.NoError(t, l.Allow("k"))
	clock.Advance(30 * time.Second)
	require.NoError(t, l.Allow("k"))

	// Hammering while full must not push the window forward.
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		require.Error(t, l.Allow("k"))
	}

	// First instant is now outside the window, so exactly one slot frees up.
	clock.Advance(21 * time.Second)
	assert.NoError(t, l.Allow("k"))
	assert.Error(t, l.Allow("k"))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l, _, _ := newTestLimiter(1, time.Minute)

	require.NoError(t, l.Allow("a"))
	assert.Error(t, l.Allow("a"))
	assert.NoError(t, l.Allow("b"))
}

func TestLimiter_Prune(t *testing.T) {
	l, clock, store := newTestLimiter(3, time.Minute)

	require.NoError(t, l.Allow("old"))
	clock.Advance(45 * time.Second)
	require.NoError(t, l.Allow("fresh"))
	clock.Advance(30 * time.Second)

	removed := l.Prune(clock.Now())
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
}

func TestLimiter_ConcurrentAllowNeverExceedsMax(t *testing.T) {
	l, _, _ := newTestLimiter(10, time.Minute)

	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") == nil {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, admitted)
}
