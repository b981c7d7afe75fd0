package chat

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/teachmate/teachmate/provider"
)

const intentPrompt = `You decide whether a question needs fresh information from a web search.
Answer "yes" when the question asks about current events, recent developments,
live data (prices, weather, scores) or anything likely to have changed after
your training data. Answer "no" when general knowledge or provided documents
can answer it. Respond with exactly one word: yes or no.`

// searchCueWords is the heuristic used when the model is unavailable.
var searchCueWords = []string{
	"latest", "news", "today", "current", "recent", "price", "weather", "score",
}

var yearPattern = regexp.MustCompile(`\b20\d{2}\b`)

// IntentDetector decides whether a query should trigger a web search.
type IntentDetector struct {
	llm    provider.Provider
	logger *log.Logger
}

func NewIntentDetector(llm provider.Provider, logger *log.Logger) *IntentDetector {
	if logger == nil {
		logger = log.New(log.Writer(), "[CHAT] ", log.LstdFlags)
	}
	return &IntentDetector{llm: llm, logger: logger}
}

func (d *IntentDetector) Detect(ctx context.Context, question string) bool {
	out, err := d.llm.Complete(ctx, intentPrompt, question)
	if err != nil {
		d.logger.Printf("intent detection failed, using keyword heuristic: %v", err)
		return keywordIntent(question)
	}
	switch strings.ToLower(strings.TrimSpace(strings.Trim(out, ".!"))) {
	case "yes":
		return true
	case "no":
		return false
	default:
		return keywordIntent(question)
	}
}

func keywordIntent(question string) bool {
	q := strings.ToLower(question)
	for _, w := range searchCueWords {
		if strings.Contains(q, w) {
			return true
		}
	}
	return yearPattern.MatchString(question)
}
