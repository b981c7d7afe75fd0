package curriculum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a curriculum id is unknown to the store.
var ErrNotFound = errors.New("curriculum not found")

// Store persists generated study plans.
type Store interface {
	Get(ctx context.Context, id string) (*Overview, error)
	Save(ctx context.Context, ov *Overview) error
	List(ctx context.Context) ([]*Overview, error)
	Delete(ctx context.Context, id string) error
}

// InMemoryStore keeps plans in process memory.
type InMemoryStore struct {
	mu    sync.RWMutex
	plans map[string]*Overview
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{plans: make(map[string]*Overview)}
}

func (s *InMemoryStore) Get(ctx context.Context, id string) (*Overview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ov, ok := s.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ov
	cp.Steps = append([]Step(nil), ov.Steps...)
	return &cp, nil
}

func (s *InMemoryStore) Save(ctx context.Context, ov *Overview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ov
	cp.Steps = append([]Step(nil), ov.Steps...)
	s.plans[ov.ID] = &cp
	return nil
}

func (s *InMemoryStore) List(ctx context.Context) ([]*Overview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Overview, 0, len(s.plans))
	for _, ov := range s.plans {
		cp := *ov
		cp.Steps = append([]Step(nil), ov.Steps...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return ErrNotFound
	}
	delete(s.plans, id)
	return nil
}

const redisIndexKey = "curriculum:index"

// RedisStore persists plans as JSON under curriculum:<id>.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(id string) string { return "curriculum:" + id }

func (s *RedisStore) Get(ctx context.Context, id string) (*Overview, error) {
	val, err := s.client.Get(ctx, redisKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var ov Overview
	if err := json.Unmarshal([]byte(val), &ov); err != nil {
		return nil, fmt.Errorf("corrupt curriculum %s: %w", id, err)
	}
	return &ov, nil
}

func (s *RedisStore) Save(ctx context.Context, ov *Overview) error {
	data, err := json.Marshal(ov)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisKey(ov.ID), data, 0)
	pipe.SAdd(ctx, redisIndexKey, ov.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) List(ctx context.Context) ([]*Overview, error) {
	ids, err := s.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Overview, 0, len(ids))
	for _, id := range ids {
		ov, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			_ = s.client.SRem(ctx, redisIndexKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ov)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return err
	}
	_ = s.client.SRem(ctx, redisIndexKey, id).Err()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
