// Package handlers exposes the summarization pipeline over HTTP and
// websocket.
package handlers

import (
	"context"

	"github.com/codebuildervaibhav/audio-summarizer/internal/pipeline"
	"github.com/codebuildervaibhav/audio-summarizer/internal/storage"
	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

// Service is the part of the orchestrator the handlers use.
type Service interface {
	SubmitUpload(u pipeline.Upload) (string, error)
	SubmitVideo(videoURL, name string) (string, error)
	Get(id string) types.Task
	Delete(ctx context.Context, id string) bool
}

// DocxExporter renders a summary as a Word document and returns its path.
type DocxExporter interface {
	ExportDocx(taskID, title, summary string) (string, error)
}

// HistoryLister lists recently completed summaries.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]storage.HistoryEntry, error)
}
