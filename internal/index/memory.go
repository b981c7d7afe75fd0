package index

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process cosine-similarity index. Good enough for
// single-node deployments and tests.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []Chunk
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// MemoryFactory builds one MemoryIndex per session namespace.
func MemoryFactory() Factory {
	return func(namespace string) Index { return NewMemoryIndex() }
}

func (m *MemoryIndex) Upsert(ctx context.Context, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		replaced := false
		for i := range m.chunks {
			if m.chunks[i].ID == c.ID {
				m.chunks[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			m.chunks = append(m.chunks, c)
		}
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int) ([]ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scored := make([]ScoredChunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		scored = append(scored, ScoredChunk{Chunk: c, Score: cosine(vector, c.Vector)})
	}
	// stable so equal scores keep insertion order
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (m *MemoryIndex) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
