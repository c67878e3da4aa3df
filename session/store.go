package session

import (
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
)

// Store keeps sessions in memory. Nothing survives a restart.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	aliases     map[*Session]string
	backend     Backend
	uploadLimit int64
}

func NewStore(b Backend, uploadLimit int64) *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		aliases:     make(map[*Session]string),
		backend:     b,
		uploadLimit: uploadLimit,
	}
}

// Create starts a session under a fresh random id.
func (st *Store) Create() *Session {
	return st.GetOrCreate(uuid.NewV4().String())
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// GetOrCreate returns the session with the given id, creating it when
// needed. Telegram chats use their chat id here.
func (st *Store) GetOrCreate(id string) *Session {
	if s, ok := st.Get(id); ok {
		return s
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s := New(id, st.backend, st.uploadLimit)
	st.sessions[id] = s
	return s
}

// Share registers s under an extra random id and returns it. The bot hands
// this id out in dashboard links so the chat id itself is never exposed.
// A session gets one such id, later calls return the same one.
func (st *Store) Share(s *Session) string {
	st.mu.Lock()
	defer st.mu.Unlock()
	if id, ok := st.aliases[s]; ok {
		return id
	}
	id := uuid.NewV4().String()
	st.sessions[id] = s
	st.aliases[s] = id
	return id
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Expire drops sessions untouched for longer than ttl and returns how many
// were removed.
func (st *Store) Expire(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.lastTouched().Before(cutoff) {
			delete(st.sessions, id)
			delete(st.aliases, s)
			removed++
		}
	}
	return removed
}
