package ledger

import "sync"

// KeyedMutex provides a mutex per string key. The entry for a key is created
// on first use and kept for the lifetime of the process; the key space is
// bounded by the set of UTXOs and authorizations the facilitator has seen,
// which is also the set of records kept in the store.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, blocking until it is available, and
// returns an unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
