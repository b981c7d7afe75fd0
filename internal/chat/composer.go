package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/teachmate/teachmate/provider"
)

const composerPrompt = `You are an Intelligent Agent specializing in providing accurate answers.

When given context from documents:
- Focus on information from the provided documents
- Be precise and cite specific details

When given web search results:
- Clearly indicate that the information comes from Google Search
- Synthesize the information clearly
- Reference the provided source links when possible

Always maintain high accuracy and clarity in your responses.`

const baselinePrompt = `You are an assistant that answers questions using ONLY your internal knowledge.

Important instructions:
- Do NOT reference any external documents, web searches, or other tools
- Begin your response with "Based solely on my internal knowledge:"
- Provide the best information you can, but acknowledge limitations when appropriate
- If you're unsure or don't have enough information, state this clearly
- Do NOT pretend to have current or specialized information you don't possess

Your purpose is to demonstrate how AI responds without access to additional information sources.`

const titlePrompt = `You are an expert at creating short, concise titles.

Your task is to:
1. Read the provided user query
2. Generate a short, descriptive title (4-5 words maximum)
3. Make the title clearly represent the topic or question
4. Return ONLY the title without any additional text or explanations`

// Composer renders the final answer, the context-free baseline and
// session titles.
type Composer struct {
	llm    provider.Provider
	logger *log.Logger
}

func NewComposer(llm provider.Provider, logger *log.Logger) *Composer {
	if logger == nil {
		logger = log.New(log.Writer(), "[CHAT] ", log.LstdFlags)
	}
	return &Composer{llm: llm, logger: logger}
}

// Compose answers the question grounded in retrieved context and search
// links. With no context the model answers from its own knowledge.
func (c *Composer) Compose(ctx context.Context, original, rewritten, contextText string, searchLinks []string) (string, error) {
	return c.llm.Complete(ctx, composerPrompt, BuildPrompt(original, rewritten, contextText, searchLinks))
}

// Baseline answers from model knowledge only, for comparison against
// the grounded answer.
func (c *Composer) Baseline(ctx context.Context, question string) (string, error) {
	return c.llm.Complete(ctx, baselinePrompt, question)
}

// Title generates a short session title for the first user query.
// Falls back to a fixed name when the model is unavailable.
func (c *Composer) Title(ctx context.Context, question string) string {
	title, err := c.llm.Complete(ctx, titlePrompt, fmt.Sprintf("Generate a concise 4-5 word title for this query: %s", question))
	if err != nil || strings.TrimSpace(title) == "" {
		if err != nil {
			c.logger.Printf("title generation failed: %v", err)
		}
		return "Untitled Session"
	}
	return strings.TrimSpace(title)
}

// BuildPrompt assembles the user prompt for the composing model.
func BuildPrompt(original, rewritten, contextText string, searchLinks []string) string {
	if contextText == "" {
		return fmt.Sprintf("Original Question: %s\nRewritten Question: %s", original, rewritten)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Context: %s\n\nOriginal Question: %s\nRewritten Question: %s\n\n", contextText, original, rewritten)
	if len(searchLinks) > 0 {
		b.WriteString("Source Links:\n")
		for _, link := range searchLinks {
			fmt.Fprintf(&b, "- %s\n", link)
		}
		b.WriteString("\n")
	}
	b.WriteString("Please provide a comprehensive answer based on the available information.")
	return b.String()
}
