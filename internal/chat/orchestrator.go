package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/teachmate/teachmate/internal/index"
	"github.com/teachmate/teachmate/internal/ingest"
	"github.com/teachmate/teachmate/internal/session"
	"github.com/teachmate/teachmate/tools/websearch"
	"github.com/teachmate/teachmate/utils"
)

// baselineGrace bounds how long a composed answer waits for the
// baseline before the turn is persisted without it.
var baselineGrace = 2 * time.Second

// Source describes where part of an answer came from.
type Source struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	SessionID        string   `json:"session_id"`
	Content          string   `json:"content"`
	Sources          []Source `json:"sources"`
	BaselineResponse string   `json:"baseline_response,omitempty"`
}

// Orchestrator runs the chat pipeline: url ingestion, query rewriting,
// retrieval, conditional web search and response composition, all
// against a persisted session.
type Orchestrator struct {
	store       session.Store
	locker      *session.Locker
	index       *index.Manager
	gate        index.RelevanceGate
	searcher    websearch.WebSearcher
	ingestor    *ingest.Ingestor
	rewriter      *Rewriter
	intent        *IntentDetector
	composer      *Composer
	searchResults int
	turnTimeout   time.Duration
	logger        *log.Logger
}

func NewOrchestrator(
	store session.Store,
	locker *session.Locker,
	idx *index.Manager,
	gate index.RelevanceGate,
	searcher websearch.WebSearcher,
	ingestor *ingest.Ingestor,
	rewriter *Rewriter,
	intent *IntentDetector,
	composer *Composer,
	searchResults int,
	turnTimeout time.Duration,
	logger *log.Logger,
) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	if searchResults <= 0 {
		searchResults = 5
	}
	return &Orchestrator{
		store:         store,
		locker:        locker,
		index:         idx,
		gate:          gate,
		searcher:      searcher,
		ingestor:      ingestor,
		rewriter:      rewriter,
		intent:        intent,
		composer:      composer,
		searchResults: searchResults,
		turnTimeout:   turnTimeout,
		logger:        logger,
	}
}

// HandleMessage runs one full chat turn. All session mutations happen
// on an in-memory copy; a failed turn persists nothing.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, content string, forceWebSearch bool) (*TurnResult, error) {
	if o.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.turnTimeout)
		defer cancel()
	}

	var sess *session.Session
	if sessionID == "" {
		sess = session.NewSession()
		sessionID = sess.ID
	}

	unlock := o.locker.Lock(sessionID)
	defer unlock()

	if sess == nil {
		loaded, err := o.store.Load(ctx, sessionID)
		switch {
		case errors.Is(err, session.ErrNotFound):
			sess = session.NewSession()
			sess.ID = sessionID
		case err != nil:
			return nil, fmt.Errorf("message processing failed: %w", err)
		default:
			sess = loaded
		}
	}

	sess.History = append(sess.History, session.Message{Role: session.RoleUser, Content: content})
	baselineKey := strconv.Itoa(len(sess.History) - 1)

	// Baseline is computed concurrently and collected at the end of the
	// turn. A slow or failing baseline never blocks the answer.
	baselineCh := make(chan string, 1)
	go func() {
		baseline, err := o.composer.Baseline(ctx, content)
		if err != nil {
			o.logger.Printf("baseline response failed for session %s: %v", sessionID, err)
			baselineCh <- ""
			return
		}
		baselineCh <- baseline
	}()

	o.ingestMentionedURLs(ctx, sess, content)

	rewritten := o.rewriter.Rewrite(ctx, content)
	sess.LastQuery = session.RewrittenQuery{Original: content, Rewritten: rewritten}

	var contextText string
	var docSources []index.ScoredChunk
	relevant := false
	if !forceWebSearch && o.index.Enabled() {
		hits, err := o.index.Query(ctx, sessionID, rewritten, o.gate.TopK)
		if err != nil {
			o.logger.Printf("retrieval failed for session %s: %v", sessionID, err)
		} else {
			docSources, relevant = o.gate.Evaluate(hits)
		}
	}
	if relevant {
		parts := make([]string, len(docSources))
		for i, d := range docSources {
			parts[i] = d.Text
		}
		contextText = strings.Join(parts, "\n\n")
	}

	shouldSearch := forceWebSearch || (!relevant && o.intent.Detect(ctx, rewritten))

	var searchLinks []string
	usedWebSearch := false
	if shouldSearch && o.searcher != nil {
		results, err := o.searcher.Discover(ctx, rewritten, o.searchResults)
		if err != nil {
			o.logger.Printf("web search failed for session %s: %v", sessionID, err)
		} else if len(results) > 0 {
			usedWebSearch = true
			var b strings.Builder
			b.WriteString("Google Search Results:\n")
			for _, r := range results {
				fmt.Fprintf(&b, "%s\n%s\n\n", r.Title, r.Snippet)
				searchLinks = append(searchLinks, r.URL)
			}
			if contextText != "" {
				contextText += "\n\n"
			}
			contextText += strings.TrimSpace(b.String())
		}
	}

	answer, err := o.composer.Compose(ctx, content, rewritten, contextText, searchLinks)
	if err != nil {
		return nil, fmt.Errorf("message processing failed: %w", err)
	}

	sess.History = append(sess.History, session.Message{Role: session.RoleAssistant, Content: answer})
	sess.UsedWebSearch = usedWebSearch
	sess.SearchSources = mergeLinks(sess.SearchSources, searchLinks)
	sess.DocSources = nil
	for _, d := range docSources {
		if !containsString(sess.DocSources, d.Document) {
			sess.DocSources = append(sess.DocSources, d.Document)
		}
	}

	var baseline string
	select {
	case baseline = <-baselineCh:
	case <-time.After(baselineGrace):
	case <-ctx.Done():
	}
	if baseline != "" {
		sess.Baselines[baselineKey] = baseline
	}

	if len(sess.History) == 2 && sess.Name == session.DefaultName {
		sess.Name = o.composer.Title(ctx, content)
	}
	sess.UpdatedAt = time.Now().UTC()

	if err := o.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("message processing failed: %w", err)
	}

	result := &TurnResult{
		SessionID:        sessionID,
		Content:          answer,
		BaselineResponse: baseline,
	}
	for _, d := range docSources {
		sourceType := d.SourceType
		if sourceType == "" {
			sourceType = "document"
		}
		result.Sources = append(result.Sources, Source{
			Type:    sourceType,
			Name:    d.Document,
			Content: utils.Excerpt(d.Text, 200),
		})
	}
	for _, link := range searchLinks {
		result.Sources = append(result.Sources, Source{Type: "web", Name: link})
	}
	return result, nil
}

// ingestMentionedURLs pulls links out of the message and indexes any
// not yet part of the session. Failures are logged and skipped.
func (o *Orchestrator) ingestMentionedURLs(ctx context.Context, sess *session.Session, content string) {
	for _, u := range DetectURLs(content) {
		if containsString(sess.Documents, u) {
			continue
		}
		if _, err := o.ingestor.IngestURL(ctx, sess.ID, u); err != nil {
			o.logger.Printf("url ingestion failed for %s: %v", u, err)
			continue
		}
		sess.Documents = append(sess.Documents, u)
	}
}

// mergeLinks appends new links keeping existing ones first and dropping
// duplicates by first occurrence.
func mergeLinks(existing, fresh []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, l := range existing {
		seen[l] = true
	}
	out := existing
	for _, l := range fresh {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
