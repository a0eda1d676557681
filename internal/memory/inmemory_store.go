package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

// InMemoryStore keeps sessions in process. A session expires ttl after its
// last activity; expired sessions are invisible at once and removed by Sweep.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*SessionData
	ttl      time.Duration
	now      func() time.Time
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*SessionData),
		ttl:      ttl,
		now:      time.Now,
	}
}

// live returns the session if it exists and has not expired. Callers hold mu.
func (s *InMemoryStore) live(sessionID string) (*SessionData, bool) {
	session, ok := s.sessions[sessionID]
	if !ok || s.expired(session) {
		return nil, false
	}
	return session, true
}

func (s *InMemoryStore) expired(session *SessionData) bool {
	return s.ttl > 0 && s.now().Sub(session.Metadata.LastActivity) > s.ttl
}

func (s *InMemoryStore) CreateSession(_ context.Context, sessionID, customerID string) (*SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(sessionID); ok {
		return nil, fmt.Errorf("session %s already exists", sessionID)
	}
	session := newSession(sessionID, customerID, s.now())
	s.sessions[sessionID] = session
	return clone(session), nil
}

func (s *InMemoryStore) LoadSession(_ context.Context, sessionID string) (*SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.live(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return clone(session), nil
}

func (s *InMemoryStore) AppendMessages(_ context.Context, sessionID string, msgs ...models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.live(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	session.append(s.now(), msgs)
	return nil
}

func (s *InMemoryStore) GetMessages(ctx context.Context, sessionID string) ([]models.Message, error) {
	session, err := s.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

func (s *InMemoryStore) ClearSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

func (s *InMemoryStore) SessionExists(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.live(sessionID)
	return ok, nil
}

func (s *InMemoryStore) UpdateActivity(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.live(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	session.Metadata.LastActivity = s.now()
	return nil
}

func (s *InMemoryStore) Sweep(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if s.expired(session) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func clone(session *SessionData) *SessionData {
	cp := *session
	cp.Messages = append([]models.Message(nil), session.Messages...)
	return &cp
}
