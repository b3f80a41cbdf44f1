//go:build go1.19

package xsync

import (
	"sync/atomic"

	"code.hybscloud.com/spin"
)

// Spinlock is a mutual-exclusion lock that spins briefly before yielding the
// processor, instead of immediately parking in the OS scheduler the way
// [sync.Mutex] does under contention.
//
// A zero Spinlock is unlocked and ready to use. It must not be copied after
// first use.
type Spinlock struct {
	_    NoCopy
	held atomic.Bool
}

// NoCopy is re-declared here instead of imported from pkg/xunsafe to keep
// internal/xsync free of a dependency on it.
type NoCopy [0]func()

// Lock acquires the spinlock, blocking until it is available.
func (l *Spinlock) Lock() {
	var w spin.Wait

	for !l.held.CompareAndSwap(false, true) {
		w.Once()
	}
}

// TryLock attempts to acquire the spinlock without blocking.
func (l *Spinlock) TryLock() bool {
	return l.held.CompareAndSwap(false, true)
}

// Unlock releases the spinlock. Unlocking an already-unlocked Spinlock is a
// programming error and its effects are undefined, same as [sync.Mutex].
func (l *Spinlock) Unlock() {
	l.held.Store(false)
}
