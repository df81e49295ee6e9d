package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// createdAtLayout has a fixed width so rows sort by their text value.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// HistoryEntry is one completed summary in the history index.
type HistoryEntry struct {
	TaskID           string    `json:"taskId"`
	RequestName      string    `json:"requestName"`
	Source           string    `json:"source"`
	ContentType      string    `json:"contentType"`
	Strategy         string    `json:"strategy"`
	Provider         string    `json:"provider"`
	TranscriptLength int       `json:"transcriptLength"`
	SummaryLength    int       `json:"summaryLength"`
	ArtifactPath     string    `json:"artifactPath"`
	MirrorURL        string    `json:"mirrorUrl,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// HistoryDB indexes completed summaries in SQLite. Task status is never
// read from it.
type HistoryDB struct {
	db *sql.DB
}

// NewHistoryDB opens or creates the database at dbPath.
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL UNIQUE,
		request_name TEXT NOT NULL,
		source TEXT NOT NULL,
		content_type TEXT NOT NULL,
		strategy TEXT NOT NULL,
		provider TEXT NOT NULL,
		transcript_length INTEGER NOT NULL,
		summary_length INTEGER NOT NULL,
		artifact_path TEXT NOT NULL,
		mirror_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_created_at ON summaries(created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &HistoryDB{db: db}, nil
}

// Record stores a completed summary. Recording the same task twice replaces
// the earlier row.
func (h *HistoryDB) Record(ctx context.Context, e HistoryEntry) error {
	query := `
	INSERT OR REPLACE INTO summaries (task_id, request_name, source, content_type, strategy, provider,
		transcript_length, summary_length, artifact_path, mirror_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := h.db.ExecContext(ctx, query, e.TaskID, e.RequestName, e.Source, e.ContentType, e.Strategy,
		e.Provider, e.TranscriptLength, e.SummaryLength, e.ArtifactPath, e.MirrorURL,
		createdAt.UTC().Format(createdAtLayout))
	if err != nil {
		return fmt.Errorf("failed to save summary history: %w", err)
	}

	return nil
}

// List returns the most recent entries, newest first.
func (h *HistoryDB) List(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT task_id, request_name, source, content_type, strategy, provider,
		transcript_length, summary_length, artifact_path, mirror_url, created_at
	FROM summaries ORDER BY created_at DESC, id DESC LIMIT ?
	`

	rows, err := h.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			e         HistoryEntry
			createdAt string
		)
		if err := rows.Scan(&e.TaskID, &e.RequestName, &e.Source, &e.ContentType, &e.Strategy, &e.Provider,
			&e.TranscriptLength, &e.SummaryLength, &e.ArtifactPath, &e.MirrorURL, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		e.CreatedAt, _ = time.Parse(createdAtLayout, createdAt)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Delete removes the entry of a task, if any.
func (h *HistoryDB) Delete(ctx context.Context, taskID string) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM summaries WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("failed to delete summary history: %w", err)
	}
	return nil
}

// Close closes the database connection
func (h *HistoryDB) Close() error {
	return h.db.Close()
}
