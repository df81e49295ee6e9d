package storage

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveAndRemoveSummary(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	ls := NewLocalStorage(dir)

	path, err := ls.SaveSummary("task-1", "ringkasan")
	if err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
	if path != filepath.Join(dir, "task-1_summary.txt") {
		t.Errorf("path = %q", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "ringkasan" {
		t.Errorf("content = %q", data)
	}

	if err := ls.RemoveArtifacts("task-1"); err != nil {
		t.Fatalf("RemoveArtifacts: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("summary file should be gone")
	}
	if err := ls.RemoveArtifacts("task-1"); err != nil {
		t.Errorf("second RemoveArtifacts should be a no-op, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd": ".._.._etc_passwd",
		"a:b*c?":           "a_b_c_",
		"":                 "untitled",
		"..":               "untitled",
		"normal-name":      "normal-name",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
	if got := sanitizeFilename(strings.Repeat("x", 300)); len(got) != 100 {
		t.Errorf("long name length = %d, want 100", len(got))
	}
}

func TestExportDocx(t *testing.T) {
	ls := NewLocalStorage(t.TempDir())
	summary := strings.Join([]string{
		strings.Repeat("=", 60),
		"MEETING SUMMARY",
		strings.Repeat("=", 60),
		"",
		"1. EXECUTIVE SUMMARY",
		"   Tim menyepakati anggaran.",
	}, "\n")

	path, err := ls.ExportDocx("task-1", "Rapat Anggaran", summary)
	if err != nil {
		t.Fatalf("ExportDocx: %v", err)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("docx is not a zip archive: %v", err)
	}
	defer r.Close()

	found := false
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			found = true
		}
	}
	if !found {
		t.Error("docx has no word/document.xml")
	}
}

func TestHistoryDB(t *testing.T) {
	db, err := NewHistoryDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewHistoryDB: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		err := db.Record(ctx, HistoryEntry{
			TaskID:           id,
			RequestName:      id + ".mp3",
			Source:           "upload",
			ContentType:      "meeting",
			Strategy:         "single",
			Provider:         "gemini",
			TranscriptLength: 100 * (i + 1),
			SummaryLength:    10,
			ArtifactPath:     "/tmp/" + id,
			CreatedAt:        base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Record(%s): %v", id, err)
		}
	}

	entries, err := db.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].TaskID != "new" || entries[1].TaskID != "mid" {
		t.Fatalf("List = %+v, want new then mid", entries)
	}
	if !entries[0].CreatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("CreatedAt = %s", entries[0].CreatedAt)
	}

	if err := db.Delete(ctx, "new"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	entries, _ = db.List(ctx, 10)
	if len(entries) != 2 {
		t.Fatalf("after Delete got %d entries, want 2", len(entries))
	}
}

func TestDriveClientRequiresCachedToken(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	_ = os.WriteFile(creds, []byte(`{"installed":{"client_id":"id","client_secret":"s","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`), 0600)

	_, err := NewDriveClient(context.Background(), creds, filepath.Join(dir, "missing-token.json"), "Summaries")
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("error = %v, want ErrNoToken", err)
	}
}

func TestFolderQueryEscapes(t *testing.T) {
	q := folderQuery("Rapat 'Q3'", "parent")
	if !strings.Contains(q, `name='Rapat \'Q3\''`) || !strings.Contains(q, "'parent' in parents") {
		t.Errorf("query = %s", q)
	}
}
