package checkout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// StateStore keeps each customer's Flow between requests.
type StateStore interface {
	Load(ctx context.Context, userID string) (*Flow, error)
	Save(ctx context.Context, userID string, flow *Flow) error
	Delete(ctx context.Context, userID string) error
}

func stateKey(userID string) string {
	return "checkout:" + userID
}

type RedisStateStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStateStore(rdb *redis.Client, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{rdb: rdb, ttl: ttl}
}

// Load returns a fresh flow when none is stored.
func (s *RedisStateStore) Load(ctx context.Context, userID string) (*Flow, error) {
	data, err := s.rdb.Get(ctx, stateKey(userID)).Bytes()
	if err == redis.Nil {
		return NewFlow(), nil
	}
	if err != nil {
		return nil, err
	}
	flow := NewFlow()
	if err := json.Unmarshal(data, flow); err != nil {
		return NewFlow(), nil
	}
	return flow, nil
}

func (s *RedisStateStore) Save(ctx context.Context, userID string, flow *Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, stateKey(userID), data, s.ttl).Err()
}

func (s *RedisStateStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, stateKey(userID)).Err()
}

type MemoryStateStore struct {
	mu    sync.Mutex
	flows map[string]Flow
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{flows: make(map[string]Flow)}
}

func (s *MemoryStateStore) Load(_ context.Context, userID string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flows[userID]; ok {
		return &f, nil
	}
	return NewFlow(), nil
}

func (s *MemoryStateStore) Save(_ context.Context, userID string, flow *Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[userID] = *flow
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, userID)
	return nil
}
