package repositories

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionStoreMiss = errors.New("session store: key not found")

// Session store TTL; in-flight verification sessions are short-lived.
const sessionTTL = 24 * time.Hour

// SessionStore is a small key-value contract for in-flight verification
// session state. The same session-manager logic runs against Redis in
// production and an in-memory map in tests.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

type redisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a SessionStore backed by Redis.
func NewRedisSessionStore(client *redis.Client) SessionStore {
	return &redisSessionStore{client: client}
}

func (s *redisSessionStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrSessionStoreMiss
		}
		return "", err
	}
	return val, nil
}

func (s *redisSessionStore) Set(ctx context.Context, key string, value string) error {
	return s.client.Set(ctx, key, value, sessionTTL).Err()
}

func (s *redisSessionStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

type memorySessionStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemorySessionStore creates an in-memory SessionStore for tests and
// single-process development.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{data: make(map[string]string)}
}

func (s *memorySessionStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	if !ok {
		return "", ErrSessionStoreMiss
	}
	return val, nil
}

func (s *memorySessionStore) Set(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memorySessionStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
