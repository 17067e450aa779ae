package indexer

import "sync/atomic"

// IndexLock guards a Builder against overlapping builds. It never blocks:
// a second build is rejected instead of queued.
type IndexLock struct {
	state atomic.Int32 // 0 = idle, 1 = building
}

// TryAcquire takes the lock if no build is running.
// Returns true if the lock was acquired, false otherwise.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release ends the running build.
// Must only be called by the holder of the lock.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// held reports whether a build is running
func (l *IndexLock) held() bool {
	return l.state.Load() == 1
}
