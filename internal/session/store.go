package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptosniper/internal/domain"
)

// MemorySessionStore keeps sessions in a mutex-guarded map
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	now      Clock
	ttl      time.Duration
}

// NewMemorySessionStore creates an empty session store; now defaults to time.Now
func NewMemorySessionStore(now Clock) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{
		sessions: make(map[string]domain.Session),
		now:      now,
		ttl:      domain.SessionTTL,
	}
}

// Create opens a session for userID
func (s *MemorySessionStore) Create(ctx context.Context, userID int64) (*domain.Session, error) {
	now := s.now()
	sess := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return &sess, nil
}

// Get returns a live session
func (s *MemorySessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || !s.now().Before(sess.ExpiresAt) {
		return nil, fmt.Errorf("session: %w", domain.ErrNotFound)
	}
	return &sess, nil
}

// Delete destroys a session
func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired sessions
func (s *MemorySessionStore) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
