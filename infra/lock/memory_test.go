package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirasaad/finplan/pkg/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_Exclusive(t *testing.T) {
	t.Parallel()
	l := NewMemoryLocker()
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(ctx, "user-1")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())

	l.mu.Lock()
	assert.Empty(t, l.slots)
	l.mu.Unlock()
}

func TestMemoryLocker_IndependentKeysAndTimeout(t *testing.T) {
	t.Parallel()
	l := NewMemoryLocker()
	ctx := context.Background()

	relA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	relB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	relB()

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, "a")
	assert.ErrorIs(t, err, lock.ErrNotAcquired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	relA()
	relA2, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	relA2()
}
