package intake

import "sync"

// Store maps session identifiers to sessions, in process memory only. There
// is no eviction, TTL or persistence; sessions live until process exit.
//
// Lock hands out a per-session mutex so the driver can serialize message
// processing per session while letting different sessions proceed in
// parallel.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		sessions: map[string]*Session{},
		locks:    map[string]*sync.Mutex{},
	}
}

// GetOrCreate returns the session for id, creating it in the entry stage on
// first contact. created reports whether this call created it.
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	st.mu.RLock()
	s = st.sessions[id]
	st.mu.RUnlock()
	if s != nil {
		return s, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s = st.sessions[id]; s != nil {
		return s, false
	}
	s = NewSession(id)
	st.sessions[id] = s
	return s, true
}

// Put overwrites the stored session for id.
func (st *Store) Put(id string, s *Session) {
	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
}

// Lock returns the mutex serializing message processing for id.
func (st *Store) Lock(id string) *sync.Mutex {
	st.lockMu.Lock()
	defer st.lockMu.Unlock()
	if mu, ok := st.locks[id]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	st.locks[id] = mu
	return mu
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
