package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// PineconeIndex talks to a Pinecone serverless index over its REST API,
// one namespace per session.
type PineconeIndex struct {
	host       string
	apiKey     string
	namespace  string
	httpClient *http.Client
}

// PineconeFactory builds namespace-scoped handles against one index host.
func PineconeFactory(host, apiKey string, timeout time.Duration) Factory {
	host = strings.TrimRight(host, "/")
	client := &http.Client{Timeout: timeout}
	return func(namespace string) Index {
		return &PineconeIndex{host: host, apiKey: apiKey, namespace: namespace, httpClient: client}
	}
}

type pineconeVector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (p *PineconeIndex) Upsert(ctx context.Context, chunks []Chunk) error {
	vectors := make([]pineconeVector, len(chunks))
	for i, c := range chunks {
		vectors[i] = pineconeVector{
			ID:     c.ID,
			Values: c.Vector,
			Metadata: map[string]string{
				"document":    c.Document,
				"source_type": c.SourceType,
				"text":        c.Text,
			},
		}
	}
	body := map[string]any{"vectors": vectors, "namespace": p.namespace}
	return p.post(ctx, "/vectors/upsert", body, nil)
}

func (p *PineconeIndex) Query(ctx context.Context, vector []float32, topK int) ([]ScoredChunk, error) {
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"namespace":       p.namespace,
		"includeMetadata": true,
	}
	var raw struct {
		Matches []struct {
			ID       string            `json:"id"`
			Score    float64           `json:"score"`
			Metadata map[string]string `json:"metadata"`
		} `json:"matches"`
	}
	if err := p.post(ctx, "/query", body, &raw); err != nil {
		return nil, err
	}
	out := make([]ScoredChunk, 0, len(raw.Matches))
	for _, m := range raw.Matches {
		out = append(out, ScoredChunk{
			Chunk: Chunk{
				ID:         m.ID,
				Document:   m.Metadata["document"],
				SourceType: m.Metadata["source_type"],
				Text:       m.Metadata["text"],
			},
			Score: m.Score,
		})
	}
	return out, nil
}

func (p *PineconeIndex) DeleteAll(ctx context.Context) error {
	body := map[string]any{"deleteAll": true, "namespace": p.namespace}
	return p.post(ctx, "/vectors/delete", body, nil)
}

func (p *PineconeIndex) post(ctx context.Context, path string, body any, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", p.host+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pinecone %s returned status: %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
