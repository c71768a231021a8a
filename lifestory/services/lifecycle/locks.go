// lifestory/services/lifecycle/locks.go
package lifecycle

import (
	"sync"

	"github.com/google/uuid"
)

// EntityLocks serializes writers per aggregate id. Operations on distinct ids
// run fully in parallel; reads never take these locks.
type EntityLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func NewEntityLocks() *EntityLocks {
	return &EntityLocks{locks: make(map[uuid.UUID]*entityLock)}
}

// Lock blocks until the caller holds the per-id lock and returns the unlock
// function. Entries are refcounted so the map does not grow with dead ids.
func (l *EntityLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &entityLock{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
