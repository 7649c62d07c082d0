package service

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes mutation operations per asset identifier. Two
// concurrent rotates on the same asset would otherwise interleave their
// temporary-file writes and corrupt the final rename. Entries are reference
// counted so the table does not grow with the number of assets ever touched.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[uuid.UUID]*lockEntry)}
}

func (k *keyedMutex) lock(id uuid.UUID) {
	k.mu.Lock()
	e := k.entries[id]
	if e == nil {
		e = &lockEntry{}
		k.entries[id] = e
	}
	e.refs++
	k.mu.Unlock()
	e.mu.Lock()
}

func (k *keyedMutex) unlock(id uuid.UUID) {
	k.mu.Lock()
	e := k.entries[id]
	e.refs--
	if e.refs == 0 {
		delete(k.entries, id)
	}
	k.mu.Unlock()
	e.mu.Unlock()
}
