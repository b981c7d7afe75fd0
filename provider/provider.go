package provider

import (
	"context"
	"errors"
	"time"

	openai_provider "github.com/teachmate/teachmate/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
	Gemini    Client = "gemini"
)

// Options carries the connection settings for a provider client.
type Options struct {
	APIKey          string
	CompletionModel string
	EmbeddingModel  string
	VisionModel     string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
}

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	// Complete runs a single system+user exchange and returns the model text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// CreateEmbedding embeds the given texts.
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	// DescribeImage extracts a textual description of an image for indexing.
	DescribeImage(ctx context.Context, mimeType string, data []byte) (string, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, opts Options) (Provider, error) {
	switch client {
	case OpenAI:
		if opts.APIKey == "" {
			return nil, errors.New("openai api key not set")
		}
		return openai_provider.NewOpenAIClient(
			opts.APIKey,
			opts.CompletionModel,
			opts.EmbeddingModel,
			opts.VisionModel,
			opts.Temperature,
			opts.MaxTokens,
			opts.Timeout,
		), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	case Gemini:
		return nil, errors.New("gemini client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
