package inmemory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/teachmate/teachmate/internal/session"
)

// Store keeps sessions in process memory. Records are deep-copied on
// the way in and out so callers cannot mutate stored state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*session.Session)}
}

func (s *Store) Load(ctx context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return clone(sess)
}

func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	cp, err := clone(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = cp
	return nil
}

func (s *Store) List(ctx context.Context) ([]session.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]session.Summary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return session.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func clone(sess *session.Session) (*session.Session, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	var cp session.Session
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
