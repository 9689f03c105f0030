// Package platform abstracts the primitives a hosting environment must
// supply to the region allocator: mutual exclusion with a non-blocking
// trylock, a task identifier for the currently running goroutine, and a
// yield point for spin-retry loops.
package platform

import "sync"

// Lock is a mutex that supports a non-blocking trylock in addition to the
// ordinary blocking acquire, matching the two-level locking scheme's trylock
// discipline (master lock ordering over per-region locks).
type Lock struct {
	mu sync.Mutex
}

// TryLock attempts to acquire the lock without blocking. It reports whether
// the lock was acquired.
func (l *Lock) TryLock() bool {
	return l.mu.TryLock()
}

// Lock blocks until the lock is acquired.
func (l *Lock) Lock() {
	l.mu.Lock()
}

// Unlock releases the lock. The caller must hold it.
func (l *Lock) Unlock() {
	l.mu.Unlock()
}

// AcquireWithWait implements a "try; if wait is set spin on retry; else
// return again" trylock protocol. It returns false only when wait is false
// and the first trylock failed.
func (l *Lock) AcquireWithWait(wait bool) bool {
	if l.mu.TryLock() {
		return true
	}
	if !wait {
		return false
	}
	for {
		Yield()
		if l.mu.TryLock() {
			return true
		}
	}
}

// RWLock is the per-table-shape lock: readers may iterate the region table's
// shape concurrently, but structural mutation (add/delete) is exclusive.
// Finding a region only needs read access to the table shape; adding or
// deleting a region needs write access.
type RWLock struct {
	mu sync.RWMutex
}

func (l *RWLock) RLock()                { l.mu.RLock() }
func (l *RWLock) RUnlock()              { l.mu.RUnlock() }
func (l *RWLock) Lock()                 { l.mu.Lock() }
func (l *RWLock) Unlock()               { l.mu.Unlock() }
func (l *RWLock) TryRLock() bool        { return l.mu.TryRLock() }
func (l *RWLock) TryLock() bool         { return l.mu.TryLock() }

// AcquireReadWithWait mirrors Lock.AcquireWithWait for the read side of the
// master lock, used by find_first/find_next/ptr2region.
func (l *RWLock) AcquireReadWithWait(wait bool) bool {
	if l.mu.TryRLock() {
		return true
	}
	if !wait {
		return false
	}
	for {
		Yield()
		if l.mu.TryRLock() {
			return true
		}
	}
}
