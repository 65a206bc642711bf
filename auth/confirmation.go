package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ConfirmationStore holds single-use email confirmation tokens.
type ConfirmationStore interface {
	Put(ctx context.Context, token, userID string, ttl time.Duration) error
	// Take consumes token and returns its user id, or ErrInvalidConfirmation.
	Take(ctx context.Context, token string) (string, error)
}

type RedisConfirmationStore struct {
	rdb *redis.Client
}

func NewRedisConfirmationStore(rdb *redis.Client) *RedisConfirmationStore {
	return &RedisConfirmationStore{rdb: rdb}
}

func confirmationKey(token string) string {
	return "auth:confirm:" + token
}

func (s *RedisConfirmationStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, confirmationKey(token), userID, ttl).Err()
}

func (s *RedisConfirmationStore) Take(ctx context.Context, token string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, confirmationKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidConfirmation
	}
	return userID, err
}

type pendingConfirmation struct {
	userID  string
	expires time.Time
}

type MemoryConfirmationStore struct {
	mu     sync.Mutex
	tokens map[string]pendingConfirmation
	now    func() time.Time
}

func NewMemoryConfirmationStore() *MemoryConfirmationStore {
	return &MemoryConfirmationStore{tokens: make(map[string]pendingConfirmation), now: time.Now}
}

func (s *MemoryConfirmationStore) Put(_ context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = pendingConfirmation{userID: userID, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryConfirmationStore) Take(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.tokens[token]
	delete(s.tokens, token)
	if !ok || s.now().After(p.expires) {
		return "", ErrInvalidConfirmation
	}
	return p.userID, nil
}
