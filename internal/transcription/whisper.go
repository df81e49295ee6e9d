// Package transcription validates incoming audio and turns it into text with
// a Whisper-compatible speech-to-text API.
package transcription

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/codebuildervaibhav/audio-summarizer/internal/upstream"
)

// WhisperConfig configures the transcription endpoint. BaseURL defaults to
// the OpenAI API; Groq and other compatible hosts work as well.
type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// WhisperClient transcribes audio files through the audio transcription API.
type WhisperClient struct {
	client *openai.Client
	model  string
}

// NewWhisperClient creates a new transcriber.
func NewWhisperClient(cfg WhisperConfig) *WhisperClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &WhisperClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

// Name is the provider label used for logs and metrics.
func (w *WhisperClient) Name() string {
	return "whisper"
}

// Transcribe uploads the file at audioPath and returns the transcript text.
// language is an ISO-639-1 hint and may be empty.
func (w *WhisperClient) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	req := openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatJSON,
	}
	if language != "" {
		req.Language = language
	}

	resp, err := w.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("whisper transcription failed: %w", upstream.FromOpenAI(w.Name(), err))
	}

	return strings.TrimSpace(resp.Text), nil
}
