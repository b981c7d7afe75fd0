package chat

import (
	"context"
	"log"
	"strings"

	"github.com/teachmate/teachmate/provider"
)

const rewriterPrompt = `You are an expert at reformulating questions to be more precise and detailed.
Your task is to:
1. Analyze the user's question
2. Rewrite it to be more specific and search-friendly
3. Expand any acronyms or technical terms
4. Return ONLY the rewritten query without any additional text or explanations`

// Rewriter reformulates user questions for retrieval. It never fails:
// when the model is unavailable or returns nothing the original
// question is used as-is.
type Rewriter struct {
	llm    provider.Provider
	logger *log.Logger
}

func NewRewriter(llm provider.Provider, logger *log.Logger) *Rewriter {
	if logger == nil {
		logger = log.New(log.Writer(), "[CHAT] ", log.LstdFlags)
	}
	return &Rewriter{llm: llm, logger: logger}
}

func (r *Rewriter) Rewrite(ctx context.Context, question string) string {
	out, err := r.llm.Complete(ctx, rewriterPrompt, question)
	if err != nil {
		r.logger.Printf("query rewrite failed, using original: %v", err)
		return question
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return question
	}
	return out
}
