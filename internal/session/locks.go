package session

import "sync"

// Locks hands out one mutex per session id. Entries live only while some
// goroutine holds or waits for them.
type Locks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{m: make(map[string]*lockEntry)}
}

func (l *Locks) For(id string) sync.Locker {
	return sessionLock{locks: l, id: id}
}

func (l *Locks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

type sessionLock struct {
	locks *Locks
	id    string
}

func (s sessionLock) Lock() {
	s.locks.mu.Lock()
	e, ok := s.locks.m[s.id]
	if !ok {
		e = &lockEntry{}
		s.locks.m[s.id] = e
	}
	e.refs++
	s.locks.mu.Unlock()

	e.mu.Lock()
}

func (s sessionLock) Unlock() {
	s.locks.mu.Lock()
	e := s.locks.m[s.id]
	e.refs--
	if e.refs == 0 {
		delete(s.locks.m, s.id)
	}
	s.locks.mu.Unlock()

	e.mu.Unlock()
}
