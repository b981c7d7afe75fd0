package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session id is unknown to the store.
var ErrNotFound = errors.New("session not found")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// DefaultName is the name a session carries until the first
	// assistant turn produces a title.
	DefaultName = "New Session"
)

// Message is one turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RewrittenQuery keeps the last user query alongside its
// retrieval-friendly rewrite.
type RewrittenQuery struct {
	Original  string `json:"original"`
	Rewritten string `json:"rewritten"`
}

// Session is the full persisted conversation state. Baselines maps the
// decimal index of a user message in History to the context-free answer
// computed for that turn.
type Session struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	History       []Message         `json:"history"`
	Documents     []string          `json:"documents"`
	Baselines     map[string]string `json:"baselines"`
	LastQuery     RewrittenQuery    `json:"last_query"`
	SearchSources []string          `json:"search_sources"`
	DocSources    []string          `json:"doc_sources"`
	UsedWebSearch bool              `json:"used_web_search"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Summary is the listing view of a session.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Turns     int       `json:"turns"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an empty session with a fresh id.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Name:      DefaultName,
		Baselines: map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Summary returns the listing view of the session.
func (s *Session) Summary() Summary {
	return Summary{ID: s.ID, Name: s.Name, Turns: len(s.History), UpdatedAt: s.UpdatedAt}
}

// Store persists sessions. Save overwrites the whole record; callers
// serialize writers per session via Locker.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
}
