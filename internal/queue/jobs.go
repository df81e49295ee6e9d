package queue

import (
	"time"
)

// Job is one accepted submission waiting for a worker. Exactly one of
// AudioPath and VideoURL is set.
type Job struct {
	ID          string
	Source      string
	RequestName string
	AudioPath   string
	VideoURL    string
	WorkDir     string
	CreatedAt   time.Time
}

// DefaultRequestName is used for submissions that carry no name.
const DefaultRequestName = "untitled"

// NewJob creates a new job with default values
func NewJob(id, source, requestName string) *Job {
	if requestName == "" {
		requestName = DefaultRequestName
	}
	return &Job{
		ID:          id,
		Source:      source,
		RequestName: requestName,
		CreatedAt:   time.Now(),
	}
}
