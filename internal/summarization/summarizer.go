// Package summarization talks to the language-model providers and turns their
// raw output into a Result the formatter can render.
package summarization

import (
	"context"
	"encoding/json"
	"strings"
)

// Summarizer sends one prompt to a provider and returns the raw model output.
// Implementations classify provider failures with the upstream package.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Result formats
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Result is a parsed model output. Fields is set for FormatJSON, Content for
// FormatText.
type Result struct {
	Format  string
	Fields  map[string]any
	Content string
}

// IsStructured reports whether the output parsed as a JSON object.
func (r Result) IsStructured() bool {
	return r.Format == FormatJSON && r.Fields != nil
}

// Value returns what a task exposes as its summary: the object for structured
// results, the text otherwise.
func (r Result) Value() any {
	if r.IsStructured() {
		return r.Fields
	}
	return r.Content
}

// ParseOutput extracts a JSON object from raw model output. Code fences and
// any prose around the object are ignored. Output that does not contain a
// valid object falls back to a text result.
func ParseOutput(raw string) Result {
	text := strings.TrimSpace(raw)
	fallback := Result{Format: FormatText, Content: text}

	body := stripFences(text)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return fallback
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(body[start:end+1]), &fields); err != nil {
		return fallback
	}

	return Result{Format: FormatJSON, Fields: fields}
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
