package auth

import (
	"context"
	"sync"
	"time"

	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/clock"
)

// SessionNamespace prefixes every persisted session key.
const SessionNamespace = "session_user"

// Session is one logged-in staff member. It expires at ExpiresAt or on
// logout, whichever comes first.
type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func sessionKey(id string) string { return SessionNamespace + ":" + id }

// SessionStore persists sessions across process restarts.
// Satisfied by *MemorySessionStore and *RedisSessionStore.
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore keeps sessions in process. Used when no Redis URL is
// configured and in tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	clock    clock.Clock
	sessions map[string]Session
}

func NewMemorySessionStore(c clock.Clock) *MemorySessionStore {
	if c == nil {
		c = clock.System()
	}
	return &MemorySessionStore{clock: c, sessions: make(map[string]Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionKey(s.ID)] = s
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(id)
	s, ok := m.sessions[key]
	if !ok {
		return Session{}, apperr.NotFound("session", id)
	}
	if !m.clock.Now().Before(s.ExpiresAt) {
		delete(m.sessions, key)
		return Session{}, apperr.NotFound("session", id)
	}
	return s, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey(id))
	return nil
}

func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
