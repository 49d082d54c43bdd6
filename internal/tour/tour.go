// Package tour persists the site tour step a visitor has reached.
package tour

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joeblew999/plat-explore/internal/logger"
)

// Key is the storage key of the tour step.
const Key = "site-tour"

// ScopedKey namespaces Key by visitor. An empty visitor yields Key.
func ScopedKey(visitor string) string {
	if visitor == "" {
		return Key
	}
	return Key + ":" + visitor
}

// Store loads and saves a tour step under a key.
type Store interface {
	// Load returns ok=false when nothing usable is stored.
	Load(ctx context.Context, key string) (step int, ok bool, err error)
	Save(ctx context.Context, key string, step int) error
}

// MemoryStore keeps steps in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	steps map[string]int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{steps: make(map[string]int)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	step, ok := s.steps[key]
	return step, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, step int) error {
	s.mu.Lock()
	s.steps[key] = step
	s.mu.Unlock()
	return nil
}

// RedisStore keeps steps in Redis as decimal strings.
type RedisStore struct {
	Client *redis.Client
	// TTL expires idle entries; 0 keeps them forever.
	TTL time.Duration
}

// OpenRedis connects to addr. An empty addr returns nil.
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	logger.L().Debug("redis_open", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// Load reads the step. A missing key or a value that is not an integer
// reports ok=false.
func (s *RedisStore) Load(ctx context.Context, key string) (int, bool, error) {
	v, err := s.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("loading tour step: %w", err)
	}
	step, err := strconv.Atoi(v)
	if err != nil {
		logger.L().Debug("tour_step_invalid", "key", key, "value", v)
		return 0, false, nil
	}
	return step, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, step int) error {
	if err := s.Client.Set(ctx, key, strconv.Itoa(step), s.TTL).Err(); err != nil {
		return fmt.Errorf("saving tour step: %w", err)
	}
	return nil
}
