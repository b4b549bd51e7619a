package subscription

import "sync"

// LockSet serializes work per key. The reconciler and the service lock on
// the provider subscription ID, so webhook snapshots and user-initiated
// cancellations for the same agreement apply in order while unrelated
// agreements proceed concurrently. Both sides must share one instance.
type LockSet struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewLockSet() *LockSet {
	return &LockSet{locks: make(map[string]*keyedLock)}
}

func (k *LockSet) Lock(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

func (k *LockSet) Unlock(key string) {
	k.mu.Lock()
	l := k.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}

// inflightSet tracks keys with work in flight. TryAcquire fails instead of
// blocking; checkouts reject concurrent duplicates rather than queue them.
type inflightSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInflightSet() *inflightSet {
	return &inflightSet{keys: make(map[string]struct{})}
}

func (s *inflightSet) TryAcquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.keys[key]; busy {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *inflightSet) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}
