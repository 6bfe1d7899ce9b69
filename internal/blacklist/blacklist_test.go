package blacklist

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, s.Add(ctx, "a", exp))
	require.NoError(t, s.Add(ctx, "a", exp))
	require.NoError(t, s.Add(ctx, "b", exp))

	ok, err := s.Contains(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = s.Contains(ctx, "c")
	assert.False(t, ok)

	n, _ := s.Len(ctx)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Clear(ctx))
	n, _ = s.Len(ctx)
	assert.Zero(t, n)
	ok, _ = s.Contains(ctx, "a")
	assert.False(t, ok)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("tok-%d", i)
			_ = s.Add(ctx, token, time.Now())
			ok, _ := s.Contains(ctx, token)
			assert.True(t, ok)
		}(i)
	}
	wg.Wait()

	n, _ := s.Len(ctx)
	assert.Equal(t, 50, n)
}
