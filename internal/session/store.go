package session

import (
	"maps"
	"sync"
	"time"
)

// State is the per-visitor session payload: wizard namespace to field mapping.
type State map[string]map[string]string

// Clone returns a deep copy so callers never share maps with the store.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	out := make(State, len(s))
	for ns, fields := range s {
		out[ns] = maps.Clone(fields)
	}
	return out
}

type Store interface {
	Load(id string) (State, bool)
	Save(id string, state State)
	Delete(id string)
}

type entry struct {
	state    State
	lastSeen time.Time
}

// MemoryStore keeps sessions in process and expires those idle longer than ttl.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewMemoryStore(ttl, cleanupEvery time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go s.cleanupLoop(cleanupEvery)

	return s
}

func (s *MemoryStore) cleanupLoop(every time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) cleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)

	removed := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Load returns a copy of the session state. Expired sessions are reported as
// missing.
func (s *MemoryStore) Load(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if e.lastSeen.Before(s.now().Add(-s.ttl)) {
		delete(s.sessions, id)
		return nil, false
	}
	e.lastSeen = s.now()
	return e.state.Clone(), true
}

func (s *MemoryStore) Save(id string, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = &entry{state: state.Clone(), lastSeen: s.now()}
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the cleanup loop and waits for it to exit.
func (s *MemoryStore) Close() {
	s.once.Do(func() {
		close(s.stop)
	})
	<-s.done
}
