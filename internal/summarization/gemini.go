package summarization

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/codebuildervaibhav/audio-summarizer/internal/upstream"
)

// GeminiConfig configures the Gemini summarizer.
type GeminiConfig struct {
	APIKey          string
	Model           string
	MaxOutputTokens int
	Temperature     float32
}

// GeminiClient summarizes with Google Gemini.
type GeminiClient struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGeminiClient creates the underlying genai client once; it is safe for
// concurrent use by every job.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{client: client, cfg: cfg}, nil
}

// Name implements Summarizer.
func (g *GeminiClient) Name() string {
	return "gemini"
}

// Summarize implements Summarizer.
func (g *GeminiClient) Summarize(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.cfg.Temperature),
		MaxOutputTokens: int32(g.cfg.MaxOutputTokens),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), config)
	if err != nil {
		return "", upstream.FromGemini(g.Name(), err)
	}

	// No candidate is an empty summary, not a failure.
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", nil
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}

	return strings.TrimSpace(text.String()), nil
}
