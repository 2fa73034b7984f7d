package cache

import "sync"

// KeyLocker hands out one mutex per cache key so that concurrent misses on
// the same key compute the value once. Idle mutexes are dropped on Unlock.
type KeyLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

// NewKeyLocker creates a new lock manager.
func NewKeyLocker() *KeyLocker {
	return &KeyLocker{locks: make(map[string]*keyLock)}
}

// Lock acquires the mutex associated with key, blocking until it is free.
func (l *KeyLocker) Lock(key string) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.Lock()
}

// Unlock releases the mutex associated with key. Unlocking a key that is not
// locked is a no-op.
func (l *KeyLocker) Unlock(key string) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		l.mu.Unlock()
		return
	}
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()

	kl.Unlock()
}

// Len returns the number of keys currently locked or waited on.
func (l *KeyLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
