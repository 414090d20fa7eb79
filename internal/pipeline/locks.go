package pipeline

import (
	"sync"

	"github.com/google/uuid"
)

// lockTable hands out one mutex per transition so stage operations on the
// same transition serialize while different transitions run concurrently.
// Entries are never evicted; the per-transition footprint is one mutex.
type lockTable struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (t *lockTable) get(id uuid.UUID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	return l
}
