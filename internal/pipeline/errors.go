package pipeline

import "errors"

var (
	// ErrInvalidInput is the root of every ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyTranscript fails a task whose transcript is blank.
	ErrEmptyTranscript = errors.New("transcription empty")
	// ErrNothingToSummarize fails a task whose transcript yields no chunks.
	ErrNothingToSummarize = errors.New("nothing to summarize")
	// ErrSummaryUnavailable fails a task whose summaries came back blank.
	ErrSummaryUnavailable = errors.New("summary unavailable after batch")
)

// Per-chunk placeholders kept in the joined narrative in place of a summary.
const (
	ChunkErrorSentinel       = "Error in summary."
	ChunkUnavailableSentinel = "Summary not available."
)

// ValidationError rejects a submission before any task exists.
type ValidationError struct {
	Code   string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(code, reason string) error {
	return &ValidationError{Code: code, Reason: reason}
}
