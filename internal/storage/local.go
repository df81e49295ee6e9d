// Package storage persists summary artifacts on disk, indexes completed
// summaries in SQLite and optionally mirrors them to Google Drive.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage handles saving summaries to the local filesystem
type LocalStorage struct {
	outputDir string
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
	}
}

// SummaryPath is where the text artifact of a task lives.
func (ls *LocalStorage) SummaryPath(taskID string) string {
	return filepath.Join(ls.outputDir, sanitizeFilename(taskID)+"_summary.txt")
}

// DocxPath is where the Word export of a task lives.
func (ls *LocalStorage) DocxPath(taskID string) string {
	return filepath.Join(ls.outputDir, sanitizeFilename(taskID)+"_summary.docx")
}

// SaveSummary writes the summary text of a task and returns its path.
func (ls *LocalStorage) SaveSummary(taskID, summary string) (string, error) {
	if err := os.MkdirAll(ls.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := ls.SummaryPath(taskID)
	if err := os.WriteFile(path, []byte(summary), 0644); err != nil {
		return "", fmt.Errorf("failed to save summary: %w", err)
	}

	return path, nil
}

// RemoveArtifacts deletes every file written for a task. Missing files are
// not an error.
func (ls *LocalStorage) RemoveArtifacts(taskID string) error {
	var errs []error
	for _, path := range []string{ls.SummaryPath(taskID), ls.DocxPath(taskID)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sanitizeFilename replaces characters that are unsafe in file names and
// limits the length.
func sanitizeFilename(name string) string {
	result := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(name))

	if result == "" || result == "." || result == ".." {
		result = "untitled"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
