package redis_session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/teachmate/teachmate/internal/session"
)

const indexKey = "session:index"

// Store persists sessions as JSON values under session:<id>, with the
// set of live ids kept in session:index.
type Store struct {
	client *redis.Client
}

// Conn opens a redis connection and verifies it with a ping.
func Conn(ctx context.Context, host, port, pass string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: pass,
		DB:       db,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	if pong != "PONG" {
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}

	return client, nil
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(id string) string { return "session:" + id }

func (s *Store) Load(ctx context.Context, id string) (*session.Session, error) {
	val, err := s.client.Get(ctx, key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess session.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key(sess.ID), data, 0)
	pipe.SAdd(ctx, indexKey, sess.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) List(ctx context.Context) ([]session.Summary, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]session.Summary, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Load(ctx, id)
		if errors.Is(err, session.ErrNotFound) {
			// index entry outlived its record, drop it
			_ = s.client.SRem(ctx, indexKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sess.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, key(id)).Result()
	if err != nil {
		return err
	}
	_ = s.client.SRem(ctx, indexKey, id).Err()
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}
