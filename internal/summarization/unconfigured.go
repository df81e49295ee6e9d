package summarization

import (
	"context"
	"errors"
	"net/http"

	"github.com/codebuildervaibhav/audio-summarizer/internal/upstream"
)

// ErrNoAPIKey is returned by every call of a provider that has no credentials.
var ErrNoAPIKey = errors.New("no API key configured")

// Unconfigured stands in for a provider whose key is missing so the server
// can still start. Each call fails permanently and the task is marked failed.
type Unconfigured struct {
	name string
}

// NewUnconfigured creates a placeholder for the named provider.
func NewUnconfigured(name string) *Unconfigured {
	return &Unconfigured{name: name}
}

func (u *Unconfigured) Name() string {
	return u.name
}

func (u *Unconfigured) Summarize(ctx context.Context, prompt string) (string, error) {
	return "", upstream.FromStatus(u.name, http.StatusUnauthorized, ErrNoAPIKey)
}
