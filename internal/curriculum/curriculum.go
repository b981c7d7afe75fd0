package curriculum

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/google/uuid"

	"github.com/teachmate/teachmate/provider"
	"github.com/teachmate/teachmate/tools/websearch"
)

// Step is one unit of a study plan.
type Step struct {
	Title         string `json:"title"`
	EstimatedTime string `json:"estimated_time"`
}

// Overview is a generated study plan for a topic.
type Overview struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Overview  string    `json:"overview"`
	Steps     []Step    `json:"steps"`
	TotalTime string    `json:"total_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const generatePrompt = `You are an expert educational curriculum designer.

Your task is to:
1. Review the topic and any provided source material
2. Design a logical sequence of learning steps with realistic time estimates
3. Return ONLY a JSON object without any additional text or explanations, with this structure:
{
  "title": "Curriculum title",
  "overview": "One paragraph summary",
  "steps": [
    {"title": "Step Title", "estimated_time": "X hours/weeks"}
  ],
  "total_time": "X weeks"
}`

const modifyPrompt = `You are an expert educational curriculum designer specializing in modifying existing curricula.

Your task is to:
1. Review the existing curriculum structure
2. Apply the user's requested modifications
3. Ensure the curriculum maintains logical flow and progression
4. Return a modified JSON structure that maintains the original format

Return ONLY the JSON object without any additional text or explanations.`

// Service generates and modifies study plans.
type Service struct {
	llm        provider.Provider
	searcher   websearch.WebSearcher
	store      Store
	httpClient *http.Client
	logger     *log.Logger
}

func NewService(llm provider.Provider, searcher websearch.WebSearcher, store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[CURRICULUM] ", log.LstdFlags)
	}
	return &Service{
		llm:        llm,
		searcher:   searcher,
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Generate builds a study plan for a topic. Source material comes from
// the given URL when present, otherwise from a web search. Generation
// failures degrade to a minimal single-step plan.
func (s *Service) Generate(ctx context.Context, topic, sourceURL, depthLevel string) (*Overview, error) {
	material := s.gatherMaterial(ctx, topic, sourceURL)

	var b strings.Builder
	fmt.Fprintf(&b, "Design a curriculum for '%s'.\n", topic)
	if depthLevel != "" {
		fmt.Fprintf(&b, "Depth level: %s\n", depthLevel)
	} else {
		b.WriteString("No specific depth level provided.\n")
	}
	if material != "" {
		fmt.Fprintf(&b, "\nSource material:\n%s\n", material)
	}

	ov := s.generateFromModel(ctx, topic, b.String(), depthLevel)
	now := time.Now().UTC()
	ov.ID = uuid.NewString()
	ov.CreatedAt = now
	ov.UpdatedAt = now

	if err := s.store.Save(ctx, ov); err != nil {
		return nil, err
	}
	return ov, nil
}

func (s *Service) generateFromModel(ctx context.Context, topic, prompt, depthLevel string) *Overview {
	out, err := s.llm.Complete(ctx, generatePrompt, prompt)
	if err == nil {
		var ov Overview
		if jsonErr := json.Unmarshal([]byte(stripFences(out)), &ov); jsonErr == nil && len(ov.Steps) > 0 {
			return &ov
		}
		s.logger.Printf("curriculum generation returned unparsable JSON for %q", topic)
	} else {
		s.logger.Printf("curriculum generation failed for %q: %v", topic, err)
	}

	totalTime := depthLevel
	if totalTime == "" {
		totalTime = "Not specified"
	}
	return &Overview{
		Title:    fmt.Sprintf("Research on %s", topic),
		Overview: fmt.Sprintf("A comprehensive research covering the key aspects of %s.", topic),
		Steps: []Step{
			{Title: fmt.Sprintf("Introduction to %s", topic), EstimatedTime: "2 weeks"},
		},
		TotalTime: totalTime,
	}
}

// Modify applies a free-form instruction to an existing plan. When the
// model output cannot be parsed the plan is returned unmodified.
func (s *Service) Modify(ctx context.Context, id, instruction string) (*Overview, error) {
	ov, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	stepsJSON, _ := json.Marshal(ov.Steps)
	prompt := fmt.Sprintf(`Here is a curriculum overview:

Title: %s
Overview: %s
Total Time: %s

Current learning steps:
%s

The user wants to modify this curriculum with the following request:
"%s"

Based on this request, update the curriculum steps.
Return only a JSON object with this structure:
{
  "steps": [
    {
      "title": "Step Title",
      "estimated_time": "X hours/weeks"
    }
  ]
}`, ov.Title, ov.Overview, ov.TotalTime, stepsJSON, instruction)

	out, err := s.llm.Complete(ctx, modifyPrompt, prompt)
	if err != nil {
		s.logger.Printf("curriculum modification failed for %s: %v", id, err)
		return ov, nil
	}

	var modified struct {
		Steps []Step `json:"steps"`
	}
	if err := json.Unmarshal([]byte(stripFences(out)), &modified); err != nil || len(modified.Steps) == 0 {
		s.logger.Printf("curriculum modification returned unparsable JSON for %s", id)
		return ov, nil
	}

	ov.Steps = modified.Steps
	ov.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, ov); err != nil {
		return nil, err
	}
	return ov, nil
}

// gatherMaterial extracts article text from the source URL, or falls
// back to search snippets. Either may fail; generation proceeds on the
// topic alone.
func (s *Service) gatherMaterial(ctx context.Context, topic, sourceURL string) string {
	if sourceURL != "" {
		parsed, err := url.Parse(sourceURL)
		if err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") {
			req, _ := http.NewRequestWithContext(ctx, "GET", sourceURL, nil)
			resp, err := s.httpClient.Do(req)
			if err == nil {
				defer resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					if article, err := readability.FromReader(resp.Body, parsed); err == nil {
						return truncate(article.TextContent, 10000)
					}
				}
			}
		}
		s.logger.Printf("source extraction failed for %s, falling back to search", sourceURL)
	}
	if s.searcher == nil {
		return ""
	}
	results, err := s.searcher.Discover(ctx, topic+" research source", 5)
	if err != nil {
		s.logger.Printf("curriculum search failed for %q: %v", topic, err)
		return ""
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s\n%s\n\n", r.Title, r.Snippet)
	}
	return truncate(b.String(), 10000)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
