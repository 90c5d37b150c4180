package quota

import (
	"sync"
)

// LockRegistry hands out one mutex per user so the check-then-commit
// sequence and entitlement updates serialize per user. Operations on
// different users are fully independent.
type LockRegistry struct {
	mu    sync.RWMutex
	locks map[string]*sync.Mutex
}

// NewLockRegistry creates an empty lock registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{
		locks: make(map[string]*sync.Mutex),
	}
}

// get returns the mutex for a user, creating it on first use.
func (r *LockRegistry) get(userID string) *sync.Mutex {
	r.mu.RLock()
	lock, exists := r.locks[userID]
	r.mu.RUnlock()

	if exists {
		return lock
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	lock, exists = r.locks[userID]
	if exists {
		return lock
	}

	lock = &sync.Mutex{}
	r.locks[userID] = lock

	return lock
}

// Lock acquires the per-user critical section.
func (r *LockRegistry) Lock(userID string) {
	r.get(userID).Lock()
}

// Unlock releases the per-user critical section.
func (r *LockRegistry) Unlock(userID string) {
	r.get(userID).Unlock()
}
