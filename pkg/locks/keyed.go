package locks

import "sync"

// KeyedMutex hands out one mutex per key. Entries are reference counted and
// dropped once nobody holds or waits for them, so finished games do not
// leak locks.
type KeyedMutex struct {
	lock    sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[string]*keyedEntry),
	}
}

// Lock blocks until the key is free and returns the function releasing it.
func (k *KeyedMutex) Lock(key string) func() {
	k.lock.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.lock.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.lock.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.lock.Unlock()
	}
}

// Len returns the number of keys currently held or waited on.
func (k *KeyedMutex) Len() int {
	k.lock.Lock()
	defer k.lock.Unlock()
	return len(k.entries)
}
