package viewtxn

import "sync"

// CommitLock guards the swap from a writer's Overlay into the shared
// GroupIndex/PageCache snapshot. It is deliberately a single coarse lock —
// row-level locking of the base store's own data is that store's job, out
// of scope here — the same role Felmond13-novusdb/concurrency.LockManager's
// IndexMu plays for that teacher's index updates, simplified from a
// per-record lock table down to the one swap point this extension actually
// needs.
type CommitLock struct {
	mu sync.Mutex
}

// Lock acquires the commit lock, blocking until any concurrent commit
// finishes applying its overlay.
func (l *CommitLock) Lock() { l.mu.Lock() }

// Unlock releases the commit lock.
func (l *CommitLock) Unlock() { l.mu.Unlock() }
