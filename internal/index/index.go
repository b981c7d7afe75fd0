package index

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/teachmate/teachmate/provider"
)

// Chunk is one embedded piece of an ingested document.
type Chunk struct {
	ID         string
	Document   string // source document name or URL
	SourceType string // document, image or web
	Text       string
	Vector     []float32
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	Chunk
	Score float64
}

// Index stores embedded chunks for a single session namespace.
type Index interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	Query(ctx context.Context, vector []float32, topK int) ([]ScoredChunk, error)
	DeleteAll(ctx context.Context) error
}

// Factory builds a backend index for a session namespace.
type Factory func(namespace string) Index

// Manager hands out per-session indexes, embedding queries and chunks
// through the configured provider. When no backend is configured every
// operation degrades to a no-op and queries return nothing.
type Manager struct {
	llm     provider.Provider
	factory Factory
	logger  *log.Logger

	mu      sync.Mutex
	handles map[string]Index
}

func NewManager(llm provider.Provider, factory Factory, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.Writer(), "[INDEX] ", log.LstdFlags)
	}
	return &Manager{
		llm:     llm,
		factory: factory,
		logger:  logger,
		handles: make(map[string]Index),
	}
}

// Enabled reports whether a vector backend is configured.
func (m *Manager) Enabled() bool { return m.factory != nil }

func (m *Manager) handle(sessionID string) Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.handles[sessionID]
	if !ok {
		idx = m.factory(sessionID)
		m.handles[sessionID] = idx
	}
	return idx
}

// Upsert embeds the given texts and stores them in the session index.
func (m *Manager) Upsert(ctx context.Context, sessionID string, chunks []Chunk) error {
	if !m.Enabled() || len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := m.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(chunks), len(vecs))
	}
	for i := range chunks {
		chunks[i].Vector = vecs[i]
	}
	return m.handle(sessionID).Upsert(ctx, chunks)
}

// Query embeds the question and returns the topK nearest chunks.
func (m *Manager) Query(ctx context.Context, sessionID, question string, topK int) ([]ScoredChunk, error) {
	if !m.Enabled() {
		return nil, nil
	}
	vecs, err := m.llm.CreateEmbedding(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return m.handle(sessionID).Query(ctx, vecs[0], topK)
}

// Drop removes all vectors for a session and forgets its handle.
func (m *Manager) Drop(ctx context.Context, sessionID string) error {
	if !m.Enabled() {
		return nil
	}
	m.mu.Lock()
	idx, ok := m.handles[sessionID]
	delete(m.handles, sessionID)
	m.mu.Unlock()
	if !ok {
		idx = m.factory(sessionID)
	}
	if err := idx.DeleteAll(ctx); err != nil {
		m.logger.Printf("drop vectors for session %s: %v", sessionID, err)
		return err
	}
	return nil
}
