package periodlock

import "sync"

// KeyMutex serializes check-then-act sequences on a per-key basis so
// that two concurrent writers targeting the same month cannot both pass
// the lock check. It protects a single process; the store transaction
// remains the cross-process guarantee.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyMutex builds an empty key mutex.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[Key]*keyLock)}
}

// Lock acquires the mutex for key and returns the matching unlock
// function. Entries are removed once the last holder releases, so the
// map does not grow with the number of distinct months ever touched.
func (m *KeyMutex) Lock(key Key) (unlock func()) {
	m.mu.Lock()
	kl, ok := m.locks[key]
	if !ok {
		kl = &keyLock{}
		m.locks[key] = kl
	}
	kl.refs++
	m.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		m.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}
