package summarization

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/codebuildervaibhav/audio-summarizer/internal/upstream"
)

const systemPrompt = "You summarize transcripts accurately and never invent facts."

// ChatConfig configures an OpenAI-compatible chat completion endpoint.
type ChatConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	MaxOutputTokens int
	Temperature     float32
}

// ChatClient summarizes with an OpenAI-compatible chat model such as Llama
// served by Groq.
type ChatClient struct {
	client *openai.Client
	cfg    ChatConfig
}

// NewChatClient creates a chat summarizer.
func NewChatClient(cfg ChatConfig) *ChatClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &ChatClient{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

// Name implements Summarizer.
func (c *ChatClient) Name() string {
	return "llama"
}

// Summarize implements Summarizer.
func (c *ChatClient) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxOutputTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", upstream.FromOpenAI(c.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
