package curriculum

import (
	"context"
	"errors"
	"testing"

	"github.com/teachmate/teachmate/tools/websearch/models"
)

type stubLLM struct {
	response string
	err      error
}

func (s stubLLM) Complete(ctx context.Context, system, user string) (string, error) {
	return s.response, s.err
}

func (s stubLLM) DescribeImage(ctx context.Context, mimeType string, data []byte) (string, error) {
	return "", nil
}

func (s stubLLM) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

type stubSearcher struct{}

func (stubSearcher) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	return []models.Result{{Title: "t", URL: "https://x.test", Snippet: "s"}}, nil
}

func TestGenerateParsesModelJSON(t *testing.T) {
	llm := stubLLM{response: "```json\n" + `{
		"title": "Machine Learning Basics",
		"overview": "An introduction.",
		"steps": [
			{"title": "Introduction to ML", "estimated_time": "2 weeks"},
			{"title": "Regression", "estimated_time": "1 week"}
		],
		"total_time": "3 weeks"
	}` + "\n```"}
	svc := NewService(llm, stubSearcher{}, NewInMemoryStore(), nil)

	ov, err := svc.Generate(context.Background(), "machine learning", "", "3 weeks")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ov.ID == "" {
		t.Fatal("expected generated id")
	}
	if ov.Title != "Machine Learning Basics" || len(ov.Steps) != 2 {
		t.Fatalf("unexpected overview: %+v", ov)
	}

	saved, err := svc.store.Get(context.Background(), ov.ID)
	if err != nil {
		t.Fatalf("plan not persisted: %v", err)
	}
	if saved.TotalTime != "3 weeks" {
		t.Fatalf("unexpected total time: %q", saved.TotalTime)
	}
}

func TestGenerateFallsBackOnModelFailure(t *testing.T) {
	llm := stubLLM{err: errors.New("down")}
	svc := NewService(llm, stubSearcher{}, NewInMemoryStore(), nil)

	ov, err := svc.Generate(context.Background(), "quantum computing", "", "")
	if err != nil {
		t.Fatalf("generate must degrade, not fail: %v", err)
	}
	if len(ov.Steps) != 1 || ov.Steps[0].Title != "Introduction to quantum computing" {
		t.Fatalf("unexpected fallback plan: %+v", ov)
	}
	if ov.TotalTime != "Not specified" {
		t.Fatalf("unexpected total time: %q", ov.TotalTime)
	}
}

func TestModifyKeepsPlanOnUnparsableOutput(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewService(stubLLM{response: "sure, I changed it for you!"}, stubSearcher{}, store, nil)

	orig := &Overview{
		ID:    "cur-1",
		Title: "T",
		Steps: []Step{{Title: "Step 1", EstimatedTime: "1 week"}},
	}
	if err := store.Save(context.Background(), orig); err != nil {
		t.Fatalf("save: %v", err)
	}

	ov, err := svc.Modify(context.Background(), "cur-1", "add more steps")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(ov.Steps) != 1 || ov.Steps[0].Title != "Step 1" {
		t.Fatalf("plan must stay unmodified: %+v", ov.Steps)
	}
}

func TestModifyAppliesSteps(t *testing.T) {
	store := NewInMemoryStore()
	llm := stubLLM{response: `{"steps": [
		{"title": "Step 1", "estimated_time": "1 week"},
		{"title": "Step 2", "estimated_time": "2 weeks"}
	]}`}
	svc := NewService(llm, stubSearcher{}, store, nil)

	orig := &Overview{ID: "cur-2", Title: "T", Steps: []Step{{Title: "Step 1", EstimatedTime: "1 week"}}}
	if err := store.Save(context.Background(), orig); err != nil {
		t.Fatalf("save: %v", err)
	}

	ov, err := svc.Modify(context.Background(), "cur-2", "add a second step")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(ov.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %+v", ov.Steps)
	}

	saved, _ := store.Get(context.Background(), "cur-2")
	if len(saved.Steps) != 2 {
		t.Fatalf("modified plan not persisted: %+v", saved.Steps)
	}
}

func TestModifyUnknownID(t *testing.T) {
	svc := NewService(stubLLM{}, stubSearcher{}, NewInMemoryStore(), nil)
	if _, err := svc.Modify(context.Background(), "nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
