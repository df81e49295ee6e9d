package types

import "time"

// Status is the lifecycle state of a summarization task.
type Status string

// Task status constants
const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	// StatusNotFound is reported for unknown ids and is never stored.
	StatusNotFound Status = "not_found"
)

// Terminal reports whether no further transitions can happen from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Source type constants
const (
	SourceUpload = "upload"
	SourceVideo  = "video"
	SourceStream = "stream"
	SourceInbox  = "inbox"
)

// ContentType is the heuristically detected category of a transcript.
type ContentType string

// Content type labels
const (
	ContentMeeting      ContentType = "meeting"
	ContentDocument     ContentType = "document"
	ContentPresentation ContentType = "presentation"
	ContentInterview    ContentType = "interview"
	ContentLecture      ContentType = "lecture"
	ContentVideo        ContentType = "video"
	ContentGeneral      ContentType = "general"
)

// Summarization strategies recorded in task metadata
const (
	StrategySingle  = "single"
	StrategyChunked = "chunked"
)

// Metadata holds statistics derived once a summary exists.
type Metadata struct {
	TranscriptLength int       `json:"transcriptLength"`
	SummaryLength    int       `json:"summaryLength"`
	CompressionRatio float64   `json:"compressionRatio"`
	ChunkCount       int       `json:"chunkCount"`
	Strategy         string    `json:"strategy"`
	Provider         string    `json:"provider"`
	GeneratedAt      time.Time `json:"generatedAt"`
}

// Task is one submitted summarization job as seen by pollers.
type Task struct {
	ID                 string      `json:"taskId"`
	Status             Status      `json:"status"`
	Source             string      `json:"source,omitempty"`
	Message            string      `json:"message,omitempty"`
	Transcription      string      `json:"transcription,omitempty"`
	Summary            any         `json:"summary,omitempty"`
	FormattedSummary   string      `json:"formattedSummary,omitempty"`
	ContentType        ContentType `json:"contentType,omitempty"`
	Metadata           *Metadata   `json:"metadata,omitempty"`
	Error              string      `json:"error,omitempty"`
	ResultArtifactPath string      `json:"-"`
	DownloadURL        string      `json:"downloadUrl,omitempty"`
	MirrorURL          string      `json:"mirrorUrl,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}
