package summarization

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

const transcriptPlaceholder = "{{transcript}}"

//go:embed prompts.yaml
var defaultPrompts []byte

// Templates maps every content type to its structured prompt, plus the
// narrative prompt used for individual chunks.
type Templates struct {
	Chunk string                       `yaml:"chunk"`
	Types map[types.ContentType]string `yaml:"types"`
}

// LoadTemplates parses a prompt table. The chunk prompt and the general
// prompt are required, and every template must contain the placeholder.
func LoadTemplates(data []byte) (*Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}

	if !strings.Contains(t.Chunk, transcriptPlaceholder) {
		return nil, fmt.Errorf("chunk prompt must contain %s", transcriptPlaceholder)
	}
	if _, ok := t.Types[types.ContentGeneral]; !ok {
		return nil, fmt.Errorf("missing prompt for content type %q", types.ContentGeneral)
	}
	for ct, tmpl := range t.Types {
		if !strings.Contains(tmpl, transcriptPlaceholder) {
			return nil, fmt.Errorf("prompt for %q must contain %s", ct, transcriptPlaceholder)
		}
	}

	return &t, nil
}

var (
	defaultOnce      sync.Once
	defaultTemplates *Templates
)

// DefaultTemplates returns the embedded prompt table.
func DefaultTemplates() *Templates {
	defaultOnce.Do(func() {
		t, err := LoadTemplates(defaultPrompts)
		if err != nil {
			panic(err)
		}
		defaultTemplates = t
	})
	return defaultTemplates
}

// ChunkPrompt builds the narrative prompt for one chunk.
func (t *Templates) ChunkPrompt(text string) string {
	return fill(t.Chunk, text)
}

// Prompt builds the structured prompt for a content type. Unknown types use
// the general template.
func (t *Templates) Prompt(ct types.ContentType, text string) string {
	tmpl, ok := t.Types[ct]
	if !ok {
		tmpl = t.Types[types.ContentGeneral]
	}
	return fill(tmpl, text)
}

func fill(tmpl, text string) string {
	return strings.Replace(tmpl, transcriptPlaceholder, text, 1)
}
