package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/teachmate/teachmate/internal/index"
	"github.com/teachmate/teachmate/internal/ingest"
	"github.com/teachmate/teachmate/internal/session"
	"github.com/teachmate/teachmate/internal/session/inmemory"
	"github.com/teachmate/teachmate/tools/websearch/models"
)

// scriptedProvider routes completions by system prompt so each pipeline
// stage can be scripted independently.
type scriptedProvider struct {
	rewrite      string
	rewriteErr   error
	intent       string
	answer       string
	answerErr    error
	baseline     string
	baselineHang bool
	title        string
	embed        []float32
	composeUser  string
}

func (p *scriptedProvider) Complete(ctx context.Context, system, user string) (string, error) {
	switch system {
	case rewriterPrompt:
		return p.rewrite, p.rewriteErr
	case intentPrompt:
		return p.intent, nil
	case composerPrompt:
		p.composeUser = user
		return p.answer, p.answerErr
	case baselinePrompt:
		if p.baselineHang {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return p.baseline, nil
	case titlePrompt:
		return p.title, nil
	}
	return "", errors.New("unexpected system prompt")
}

func (p *scriptedProvider) DescribeImage(ctx context.Context, mimeType string, data []byte) (string, error) {
	return "", nil
}

func (p *scriptedProvider) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = p.embed
	}
	return out, nil
}

type fakeSearcher struct {
	results []models.Result
	err     error
	calls   int
}

func (f *fakeSearcher) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	f.calls++
	return f.results, f.err
}

func newOrchestrator(p *scriptedProvider, searcher *fakeSearcher, store session.Store, mgr *index.Manager) *Orchestrator {
	gate := index.RelevanceGate{Threshold: 0.75, TopK: 5}
	ing := ingest.NewIngestor(p, mgr, 1<<20, 1000, 200, nil)
	return NewOrchestrator(
		store, session.NewLocker(), mgr, gate, searcher, ing,
		NewRewriter(p, nil), NewIntentDetector(p, nil), NewComposer(p, nil),
		5, 5*time.Second, nil,
	)
}

func TestHandleMessageUsesRelevantDocuments(t *testing.T) {
	p := &scriptedProvider{
		rewrite:  "what is photosynthesis in plants",
		intent:   "no",
		answer:   "photosynthesis converts light into chemical energy",
		baseline: "Based solely on my internal knowledge: ...",
		title:    "Photosynthesis Basics",
		embed:    []float32{1, 0},
	}
	store := inmemory.NewStore()
	mgr := index.NewManager(p, index.MemoryFactory(), nil)
	searcher := &fakeSearcher{}
	o := newOrchestrator(p, searcher, store, mgr)
	ctx := context.Background()

	// identical embeddings give similarity 1.0, above the threshold
	if err := mgr.Upsert(ctx, "fixed", []index.Chunk{{ID: "c0", Document: "bio.pdf", Text: "chlorophyll absorbs light"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// pre-create the session so the upserted namespace matches
	sess := session.NewSession()
	sess.ID = "fixed"
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := o.HandleMessage(ctx, "fixed", "what is photosynthesis", false)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if searcher.calls != 0 {
		t.Fatalf("web search must not run when documents are relevant")
	}
	if res.Content != p.answer {
		t.Fatalf("unexpected answer: %q", res.Content)
	}
	if len(res.Sources) != 1 || res.Sources[0].Type != "document" || res.Sources[0].Name != "bio.pdf" {
		t.Fatalf("expected one document source, got %+v", res.Sources)
	}

	saved, err := store.Load(ctx, "fixed")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(saved.History) != 2 {
		t.Fatalf("expected user+assistant history, got %d", len(saved.History))
	}
	if saved.History[0].Role != session.RoleUser || saved.History[1].Role != session.RoleAssistant {
		t.Fatalf("unexpected roles: %+v", saved.History)
	}
	if saved.UsedWebSearch {
		t.Fatal("UsedWebSearch must be false")
	}
	if saved.Name != "Photosynthesis Basics" {
		t.Fatalf("expected generated title, got %q", saved.Name)
	}
	if saved.Baselines["0"] != p.baseline {
		t.Fatalf("baseline not recorded: %+v", saved.Baselines)
	}
	if saved.LastQuery.Rewritten != p.rewrite {
		t.Fatalf("last query not recorded: %+v", saved.LastQuery)
	}
}

func TestHandleMessageDedupesDocumentSources(t *testing.T) {
	p := &scriptedProvider{
		rewrite:  "what is photosynthesis in plants",
		intent:   "no",
		answer:   "answer",
		baseline: "b",
		title:    "T",
		embed:    []float32{1, 0},
	}
	store := inmemory.NewStore()
	mgr := index.NewManager(p, index.MemoryFactory(), nil)
	o := newOrchestrator(p, &fakeSearcher{}, store, mgr)
	ctx := context.Background()

	// two relevant chunks from the same document
	err := mgr.Upsert(ctx, "fixed", []index.Chunk{
		{ID: "c0", Document: "bio.pdf", Text: "chlorophyll absorbs light"},
		{ID: "c1", Document: "bio.pdf", Text: "light reactions split water"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	sess := session.NewSession()
	sess.ID = "fixed"
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := o.HandleMessage(ctx, "fixed", "what is photosynthesis", false)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(res.Sources) != 2 {
		t.Fatalf("each chunk stays a source, got %+v", res.Sources)
	}
	saved, err := store.Load(ctx, "fixed")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(saved.DocSources) != 1 || saved.DocSources[0] != "bio.pdf" {
		t.Fatalf("doc sources must be deduplicated, got %+v", saved.DocSources)
	}
}

func TestHandleMessageHungBaselineDoesNotDelayAnswer(t *testing.T) {
	p := &scriptedProvider{
		rewrite:      "q",
		intent:       "no",
		answer:       "answer",
		baselineHang: true,
		title:        "T",
		embed:        []float32{1, 0},
	}
	store := inmemory.NewStore()
	mgr := index.NewManager(p, index.MemoryFactory(), nil)
	o := newOrchestrator(p, &fakeSearcher{}, store, mgr)

	oldGrace := baselineGrace
	baselineGrace = 50 * time.Millisecond
	defer func() { baselineGrace = oldGrace }()

	start := time.Now()
	res, err := o.HandleMessage(context.Background(), "", "question", false)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("hung baseline delayed the turn by %v", elapsed)
	}
	if res.BaselineResponse != "" {
		t.Fatalf("expected no baseline, got %q", res.BaselineResponse)
	}
	saved, _ := store.Load(context.Background(), res.SessionID)
	if len(saved.Baselines) != 0 {
		t.Fatalf("expected no recorded baseline, got %+v", saved.Baselines)
	}
	if len(saved.History) != 2 {
		t.Fatalf("turn must still persist, got %d messages", len(saved.History))
	}
}

func TestHandleMessageNoDocumentsNoIntentAnswersPlain(t *testing.T) {
	p := &scriptedProvider{
		rewrite:  "what is a monad",
		intent:   "no",
		answer:   "a monad is...",
		baseline: "b",
		title:    "Monads",
		embed:    []float32{1, 0},
	}
	store := inmemory.NewStore()
	mgr := index.NewManager(p, index.MemoryFactory(), nil)
	searcher := &fakeSearcher{}
	o := newOrchestrator(p, searcher, store, mgr)

	res, err := o.HandleMessage(context.Background(), "", "what is a monad?", false)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if searcher.calls != 0 {
		t.Fatalf("no search intent must mean no search, got %d calls", searcher.calls)
	}
	if len(res.Sources) != 0 {
		t.Fatalf("expected no sources, got %+v", res.Sources)
	}
	want := BuildPrompt("what is a monad?", p.rewrite, "", nil)
	if p.composeUser != want {
		t.Fatalf("compose prompt mismatch:\n got %q\nwant %q", p.composeUser, want)
	}
	saved, err := store.Load(context.Background(), res.SessionID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(saved.History) != 2 {
		t.Fatalf("expected user+assistant history, got %d", len(saved.History))
	}
}

func TestHandleMessageFallsBackToWebSearch(t *testing.T) {
	p := &scriptedProvider{
		rewrite:  "latest mars rover findings 2026",
		intent:   "yes",
		answer:   "according to Google Search the rover found...",
		baseline: "Based solely on my internal knowledge: ...",
		title:    "Mars Rover News",
		embed:    []float32{1, 0},
	}
	store := inmemory.NewStore()
	mgr := index.NewManager(p, index.MemoryFactory(), nil)
	searcher := &fakeSearcher{results: []models.Result{
		{Title: "Rover update", URL: "https://example.com/rover", Snippet: "new findings"},
	}}
	o := newOrchestrator(p, searcher, store, mgr)

	res, err := o.HandleMessage(context.Background(), "", "what did the rover find", false)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if searcher.calls != 1 {
		t.Fatalf("expected one web search, got %d", searcher.calls)
	}
	if res.SessionID == "" {
		t.Fatal("expected generated session id")
	}
	var webSources int
	for _, s := range res.Sources {
		if s.Type == "web" && s.Name == "https://example.com/rover" {
			webSources++
		}
	}
	if webSources != 1 {
		t.Fatalf("expected web source in result, got %+v", res.Sources)
	}

	saved, _ := store.Load(context.Background(), res.SessionID)
	if !saved.UsedWebSearch {
		t.Fatal("UsedWebSearch must be true")
	}
	if len(saved.SearchSources) != 1 || saved.SearchSources[0] != "https://example.com/rover" {
		t.Fatalf("search sources not persisted: %+v", saved.SearchSources)
	}
}

func TestHandleMessageForceWebSearchSkipsRetrieval(t *testing.T) {
	p := &scriptedProvider{
		rewrite:  "anything",
		intent:   "no",
		answer:   "forced answer",
		baseline: "b",
		title:    "T",
		embed:    []float32{1, 0},
	}
	store := inmemory.NewStore()
	mgr := index.NewManager(p, index.MemoryFactory(), nil)
	searcher := &fakeSearcher{results: []models.Result{{Title: "t", URL: "https://x.test", Snippet: "s"}}}
	o := newOrchestrator(p, searcher, store, mgr)

	_, err := o.HandleMessage(context.Background(), "", "question", true)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if searcher.calls != 1 {
		t.Fatalf("force_web_search must trigger search, got %d calls", searcher.calls)
	}
}

func TestHandleMessageSearchFailureDegrades(t *testing.T) {
	p := &scriptedProvider{
		rewrite:  "latest news",
		intent:   "yes",
		answer:   "best effort answer",
		baseline: "b",
		title:    "T",
		embed:    []float32{1, 0},
	}
	store := inmemory.NewStore()
	mgr := index.NewManager(p, index.MemoryFactory(), nil)
	searcher := &fakeSearcher{err: errors.New("search backend down")}
	o := newOrchestrator(p, searcher, store, mgr)

	res, err := o.HandleMessage(context.Background(), "", "whats the latest", false)
	if err != nil {
		t.Fatalf("search failure must not abort the turn: %v", err)
	}
	if res.Content != "best effort answer" {
		t.Fatalf("unexpected answer: %q", res.Content)
	}
	saved, _ := store.Load(context.Background(), res.SessionID)
	if saved.UsedWebSearch {
		t.Fatal("failed search must not mark UsedWebSearch")
	}
}

func TestHandleMessageComposeFailureDiscardsTurn(t *testing.T) {
	p := &scriptedProvider{
		rewrite:   "q",
		intent:    "no",
		answerErr: errors.New("model unavailable"),
		baseline:  "b",
		title:     "T",
		embed:     []float32{1, 0},
	}
	store := inmemory.NewStore()
	mgr := index.NewManager(p, index.MemoryFactory(), nil)
	o := newOrchestrator(p, &fakeSearcher{}, store, mgr)

	sess := session.NewSession()
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := o.HandleMessage(context.Background(), sess.ID, "question", false)
	if err == nil || !strings.Contains(err.Error(), "message processing failed") {
		t.Fatalf("expected wrapped failure, got %v", err)
	}

	saved, _ := store.Load(context.Background(), sess.ID)
	if len(saved.History) != 0 {
		t.Fatalf("failed turn must not persist history, got %d messages", len(saved.History))
	}
}

func TestRewriterFallsBackToOriginal(t *testing.T) {
	p := &scriptedProvider{rewriteErr: errors.New("down")}
	r := NewRewriter(p, nil)
	if got := r.Rewrite(context.Background(), "original question"); got != "original question" {
		t.Fatalf("expected original on failure, got %q", got)
	}

	p = &scriptedProvider{rewrite: "   "}
	r = NewRewriter(p, nil)
	if got := r.Rewrite(context.Background(), "original question"); got != "original question" {
		t.Fatalf("expected original on empty rewrite, got %q", got)
	}
}
