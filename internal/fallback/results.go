package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tourist-kgqa/internal/common/database"
)

// Result status values. A request id that was never written reads back as
// pending: from the client's point of view an unknown id and an in-flight
// one are the same thing.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Result is the stored outcome of one deferred question.
type Result struct {
	Status    string    `json:"status"`
	Answer    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// ResultStore holds deferred-answer outcomes keyed by request id. Writes are
// terminal: once a completed or error result lands it is never overwritten.
type ResultStore interface {
	Get(ctx context.Context, requestID string) (Result, error)
	Set(ctx context.Context, requestID string, result Result) error
}

// MemoryResultStore is the default in-process backend.
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]Result
}

func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{results: make(map[string]Result)}
}

func (s *MemoryResultStore) Get(ctx context.Context, requestID string) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if res, ok := s.results[requestID]; ok {
		return res, nil
	}
	return Result{Status: StatusPending}, nil
}

func (s *MemoryResultStore) Set(ctx context.Context, requestID string, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.results[requestID]; ok && existing.Status != StatusPending {
		return nil
	}
	s.results[requestID] = result
	return nil
}

// RedisResultStore persists results with a TTL so answers survive a restart
// and expire instead of accumulating.
type RedisResultStore struct {
	client *database.RedisClient
	ttl    time.Duration
}

func NewRedisResultStore(client *database.RedisClient, ttl time.Duration) *RedisResultStore {
	return &RedisResultStore{client: client, ttl: ttl}
}

func resultKey(requestID string) string {
	return "fallback:result:" + requestID
}

func (s *RedisResultStore) Get(ctx context.Context, requestID string) (Result, error) {
	raw, err := s.client.Get(ctx, resultKey(requestID))
	if err == redis.Nil {
		return Result{Status: StatusPending}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to read fallback result: %w", err)
	}

	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return Result{}, fmt.Errorf("failed to decode fallback result: %w", err)
	}
	return res, nil
}

func (s *RedisResultStore) Set(ctx context.Context, requestID string, result Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode fallback result: %w", err)
	}
	// SetNX keeps the write-once guarantee atomic: only pending ids are ever
	// absent, so the first terminal result wins and later writers no-op.
	if _, err := s.client.SetNX(ctx, resultKey(requestID), raw, s.ttl); err != nil {
		return fmt.Errorf("failed to store fallback result: %w", err)
	}
	return nil
}
