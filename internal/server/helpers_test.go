package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"time"

	"github.com/teachmate/teachmate/internal/chat"
	"github.com/teachmate/teachmate/internal/index"
	"github.com/teachmate/teachmate/internal/ingest"
	"github.com/teachmate/teachmate/internal/session"
	"github.com/teachmate/teachmate/internal/session/inmemory"
	"github.com/teachmate/teachmate/tools/websearch/models"
)

// testProvider returns canned answers for every pipeline stage.
type testProvider struct {
	completion string
}

func (p testProvider) Complete(ctx context.Context, system, user string) (string, error) {
	return p.completion, nil
}

func (p testProvider) DescribeImage(ctx context.Context, mimeType string, data []byte) (string, error) {
	return "described image", nil
}

func (p testProvider) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

type testSearcher struct{}

func (testSearcher) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	return []models.Result{{Title: "hit", URL: "https://example.test", Snippet: "snippet"}}, nil
}

type testDeps struct {
	store    session.Store
	locker   *session.Locker
	index    *index.Manager
	ingestor *ingest.Ingestor
	orch     *chat.Orchestrator
}

func newTestDeps(p testProvider, maxUpload int64) testDeps {
	store := inmemory.NewStore()
	locker := session.NewLocker()
	mgr := index.NewManager(p, index.MemoryFactory(), nil)
	ing := ingest.NewIngestor(p, mgr, maxUpload, 1000, 200, nil)
	gate := index.RelevanceGate{Threshold: 0.75, TopK: 5}
	orch := chat.NewOrchestrator(
		store, locker, mgr, gate, testSearcher{}, ing,
		chat.NewRewriter(p, nil), chat.NewIntentDetector(p, nil), chat.NewComposer(p, nil),
		5, 5*time.Second, nil,
	)
	return testDeps{store: store, locker: locker, index: mgr, ingestor: ing, orch: orch}
}

// multipartFile builds a multipart body with a single file field.
func multipartFile(fieldName, filename string, content []byte, extraFields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}
	for k, v := range extraFields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}
