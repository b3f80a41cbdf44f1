//go:build go1.19

package xsync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpinlockMutualExclusion(t *testing.T) {
	var (
		l    Spinlock
		n    int
		wg   sync.WaitGroup
		runs = 200
	)

	wg.Add(runs)
	for i := 0; i < runs; i++ {
		go func() {
			defer wg.Done()
			l.Lock()
			defer l.Unlock()
			n++
		}()
	}
	wg.Wait()

	require.Equal(t, runs, n)
}

func TestSpinlockTryLock(t *testing.T) {
	var l Spinlock

	require.True(t, l.TryLock())
	require.False(t, l.TryLock())
	l.Unlock()
	require.True(t, l.TryLock())
	l.Unlock()
}
