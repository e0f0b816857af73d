package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"cryptosniper/internal/domain"
)

const sessionKeyPrefix = "session:"

// RedisSessionStore keeps sessions as JSON with a TTL equal to their lifetime
type RedisSessionStore struct {
	rdb *redis.Client
	now Clock
}

// NewRedisSessionStore creates a session store backed by rdb
func NewRedisSessionStore(rdb *redis.Client, now Clock) *RedisSessionStore {
	if now == nil {
		now = time.Now
	}
	return &RedisSessionStore{rdb: rdb, now: now}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Create opens a session for userID
func (s *RedisSessionStore) Create(ctx context.Context, userID int64) (*domain.Session, error) {
	now := s.now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.SessionTTL),
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(sess.ID), payload, domain.SessionTTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return sess, nil
}

// Get returns a live session
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if !s.now().Before(sess.ExpiresAt) {
		return nil, fmt.Errorf("session: %w", domain.ErrNotFound)
	}
	return &sess, nil
}

// Delete destroys a session
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Sweep is a no-op; Redis expires keys on its own
func (s *RedisSessionStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}
