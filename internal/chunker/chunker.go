// Package chunker splits long transcripts into sentence-aligned pieces that
// fit the input limit of a summarization call.
package chunker

import "strings"

// Separator is the sentence boundary. Abbreviations and decimals followed by
// a space are split as well; that is a known limitation of the heuristic.
const Separator = ". "

// DefaultMaxChunkSize is used when a non-positive size is requested.
const DefaultMaxChunkSize = 1000

// Split greedily packs sentences into chunks of at most maxChunkSize bytes.
// A sentence longer than maxChunkSize is kept whole as its own chunk.
// strings.Join(Split(text, n), Separator) always reproduces text.
func Split(text string, maxChunkSize int) []string {
	if text == "" {
		return nil
	}
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}

	var (
		chunks  []string
		current strings.Builder
		open    bool
	)
	for _, sentence := range strings.Split(text, Separator) {
		if !open {
			current.WriteString(sentence)
			open = true
			continue
		}
		if current.Len()+len(Separator)+len(sentence) > maxChunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(sentence)
			continue
		}
		current.WriteString(Separator)
		current.WriteString(sentence)
	}
	if open {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// Join combines per-chunk summaries into one narrative.
func Join(summaries []string) string {
	return strings.Join(summaries, " ")
}

// Normalize collapses newlines and runs of whitespace into single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
