package execution

import (
	"sync"

	"github.com/google/uuid"
)

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex serialises operations per work order. Entries are dropped
// once no caller holds or waits on them.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[uuid.UUID]*lockEntry)}
}

// Lock blocks until id is free and returns its unlock function
func (k *keyedMutex) Lock(id uuid.UUID) func() {
	k.mu.Lock()
	e, ok := k.entries[id]
	if !ok {
		e = &lockEntry{}
		k.entries[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, id)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
