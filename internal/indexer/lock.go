package indexer

import (
	"fmt"
	"sync/atomic"

	"github.com/gofrs/flock"
)

// IndexLock provides non-blocking lock semantics using atomic operations.
// It guards against two rebuilds running in the same process.
type IndexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// FileLock is an advisory lock on "<store>.lock" that keeps a second
// process from rebuilding into the same store concurrently.
type FileLock struct {
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock backed by path. An empty path yields a lock that
// always succeeds, for stores with no file on disk.
func NewFileLock(path string) *FileLock {
	if path == "" {
		return &FileLock{}
	}
	return &FileLock{flock: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking.
// Returns false if another process holds it.
func (l *FileLock) TryLock() (bool, error) {
	if l.flock == nil {
		l.locked = true
		return true, nil
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.flock.Path(), err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. It is safe to call on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if l.flock == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.flock.Path(), err)
	}
	return nil
}
