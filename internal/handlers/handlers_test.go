package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/audio-summarizer/internal/logger"
	"github.com/codebuildervaibhav/audio-summarizer/internal/pipeline"
	"github.com/codebuildervaibhav/audio-summarizer/internal/queue"
	"github.com/codebuildervaibhav/audio-summarizer/internal/storage"
	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

type fakeService struct {
	dir       string
	submitErr error
	uploads   []pipeline.Upload
	videos    []string
	tasks     map[string]types.Task
}

func (f *fakeService) SubmitUpload(u pipeline.Upload) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if err := u.Save(filepath.Join(f.dir, u.Filename)); err != nil {
		return "", err
	}
	f.uploads = append(f.uploads, u)
	return "task-upload", nil
}

func (f *fakeService) SubmitVideo(videoURL, name string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.videos = append(f.videos, videoURL)
	return "task-video", nil
}

func (f *fakeService) Get(id string) types.Task {
	if t, ok := f.tasks[id]; ok {
		return t
	}
	return types.Task{ID: id, Status: types.StatusNotFound}
}

func (f *fakeService) Delete(ctx context.Context, id string) bool {
	if _, ok := f.tasks[id]; !ok {
		return false
	}
	delete(f.tasks, id)
	return true
}

type fakeHistory struct {
	limit int
}

func (f *fakeHistory) List(ctx context.Context, limit int) ([]storage.HistoryEntry, error) {
	f.limit = limit
	return []storage.HistoryEntry{{TaskID: "a", ContentType: "meeting"}}, nil
}

func newTestApp(t *testing.T, svc *fakeService, hist HistoryLister) *fiber.App {
	t.Helper()
	log := logger.Discard()
	out := storage.NewLocalStorage(t.TempDir())

	app := fiber.New()
	Register(app, Routes{
		Upload:  NewUploadHandler(svc, log),
		Video:   NewVideoHandler(svc, log),
		Tasks:   NewTaskHandler(svc, out, log),
		History: NewHistoryHandler(hist, log),
		Stream:  NewStreamHandler(svc, 1024, log),
	})
	return app
}

func multipartBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	w.WriteField("name", "weekly sync")
	w.Close()

	return body, w.FormDataContentType()
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestUploadAccepted(t *testing.T) {
	svc := &fakeService{dir: t.TempDir()}
	app := newTestApp(t, svc, nil)

	body, ct := multipartBody(t, "talk.mp3", "audio/mpeg", []byte("ID3 data"))
	req := httptest.NewRequest(http.MethodPost, "/summarize", body)
	req.Header.Set("Content-Type", ct)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	out := decode(t, resp)
	if out["taskId"] != "task-upload" || out["status"] != "processing" {
		t.Errorf("body = %v", out)
	}

	u := svc.uploads[0]
	if u.Filename != "talk.mp3" || u.ContentType != "audio/mpeg" || u.Name != "weekly sync" || u.Size != 8 {
		t.Errorf("upload = %+v", u)
	}
	if data, _ := os.ReadFile(filepath.Join(svc.dir, "talk.mp3")); string(data) != "ID3 data" {
		t.Errorf("saved file = %q", data)
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name      string
		submitErr error
		noFile    bool
		status    int
		code      string
	}{
		{"missing file", nil, true, fiber.StatusBadRequest, "ERR_NO_FILE"},
		{"validation", &pipeline.ValidationError{Code: "ERR_INVALID_FORMAT", Reason: "Unsupported audio format"}, false, fiber.StatusBadRequest, "ERR_INVALID_FORMAT"},
		{"queue full", queue.ErrQueueFull, false, fiber.StatusServiceUnavailable, "ERR_QUEUE_FULL"},
		{"other", errors.New("disk full"), false, fiber.StatusInternalServerError, "ERR_SUBMIT_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{dir: t.TempDir(), submitErr: tt.submitErr}
			app := newTestApp(t, svc, nil)

			var req *http.Request
			if tt.noFile {
				req = httptest.NewRequest(http.MethodPost, "/summarize", strings.NewReader(""))
			} else {
				body, ct := multipartBody(t, "talk.mp3", "audio/mpeg", []byte("x"))
				req = httptest.NewRequest(http.MethodPost, "/summarize", body)
				req.Header.Set("Content-Type", ct)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if out := decode(t, resp); out["code"] != tt.code {
				t.Errorf("code = %v, want %s", out["code"], tt.code)
			}
		})
	}
}

func TestVideo(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(t, svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/summarize/video", strings.NewReader(`{"videoUrl":"https://youtu.be/abc"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusAccepted || decode(t, resp)["taskId"] != "task-video" {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(svc.videos) != 1 || svc.videos[0] != "https://youtu.be/abc" {
		t.Errorf("videos = %v", svc.videos)
	}

	req = httptest.NewRequest(http.MethodPost, "/summarize/video", strings.NewReader(`{bad`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("malformed body status = %d", resp.StatusCode)
	}
}

func TestStatusAndResult(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "done_summary.txt")
	if err := os.WriteFile(artifact, []byte("MEETING SUMMARY"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := &fakeService{tasks: map[string]types.Task{
		"done": {
			ID: "done", Status: types.StatusCompleted, ContentType: types.ContentMeeting,
			FormattedSummary: "MEETING SUMMARY", ResultArtifactPath: artifact,
			DownloadURL: "/summarize/result/done",
		},
		"busy":   {ID: "busy", Status: types.StatusProcessing},
		"broken": {ID: "broken", Status: types.StatusFailed, Error: "transcription empty"},
		"gone":   {ID: "gone", Status: types.StatusCompleted, ResultArtifactPath: filepath.Join(dir, "missing.txt")},
	}}
	app := newTestApp(t, svc, nil)

	get := func(path string) *http.Response {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	resp := get("/summarize/status/done")
	out := decode(t, resp)
	if resp.StatusCode != fiber.StatusOK || out["status"] != "completed" || out["downloadUrl"] != "/summarize/result/done" {
		t.Errorf("status body = %v", out)
	}
	if _, leaked := out["ResultArtifactPath"]; leaked {
		t.Error("artifact path must not be serialized")
	}

	resp = get("/summarize/status/nope")
	if resp.StatusCode != fiber.StatusOK || decode(t, resp)["status"] != "not_found" {
		t.Error("unknown task should be not_found")
	}

	resp = get("/summarize/result/done")
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || string(data) != "MEETING SUMMARY" {
		t.Errorf("result = %d %q", resp.StatusCode, data)
	}
	if !strings.Contains(resp.Header.Get(fiber.HeaderContentDisposition), "done_summary.txt") {
		t.Errorf("disposition = %q", resp.Header.Get(fiber.HeaderContentDisposition))
	}

	resp = get("/summarize/result/done?format=docx")
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(resp.Header.Get(fiber.HeaderContentDisposition), ".docx") {
		t.Errorf("docx result = %d", resp.StatusCode)
	}

	for path, want := range map[string]int{
		"/summarize/result/nope":            fiber.StatusNotFound,
		"/summarize/result/busy":            fiber.StatusConflict,
		"/summarize/result/broken":          fiber.StatusConflict,
		"/summarize/result/gone":            fiber.StatusNotFound,
		"/summarize/result/done?format=pdf": fiber.StatusBadRequest,
	} {
		if resp := get(path); resp.StatusCode != want {
			t.Errorf("GET %s = %d, want %d", path, resp.StatusCode, want)
		}
	}
}

func TestDelete(t *testing.T) {
	svc := &fakeService{tasks: map[string]types.Task{"t1": {ID: "t1", Status: types.StatusCompleted}}}
	app := newTestApp(t, svc, nil)

	resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/summarize/t1", nil))
	if resp.StatusCode != fiber.StatusOK || decode(t, resp)["message"] != "task cleaned up" {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodDelete, "/summarize/t1", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("second delete = %d, want 404", resp.StatusCode)
	}
}

func TestHistoryAndHealth(t *testing.T) {
	hist := &fakeHistory{}
	app := newTestApp(t, &fakeService{}, hist)

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/summaries?limit=5", nil))
	if resp.StatusCode != fiber.StatusOK || hist.limit != 5 {
		t.Errorf("summaries = %d, limit %d", resp.StatusCode, hist.limit)
	}

	disabled := newTestApp(t, &fakeService{}, nil)
	resp, _ = disabled.Test(httptest.NewRequest(http.MethodGet, "/summaries", nil))
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("disabled history = %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if out := decode(t, resp); out["status"] != "healthy" {
		t.Errorf("health = %v", out)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/summarize/stream", nil))
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("plain GET on stream = %d, want 426", resp.StatusCode)
	}
}

func TestStreamSession(t *testing.T) {
	s := &streamSession{maxSize: 8}

	if done, err := s.add(websocket.TextMessage, []byte("call recording")); done || err != nil {
		t.Fatal("name frame should not finish the session")
	}
	s.add(websocket.BinaryMessage, []byte("abcd"))
	s.add(websocket.BinaryMessage, []byte("efgh"))

	if _, err := s.add(websocket.BinaryMessage, []byte("i")); !errors.Is(err, errStreamTooLarge) {
		t.Fatalf("error = %v, want too large", err)
	}
	if done, _ := s.add(websocket.TextMessage, []byte("END")); !done {
		t.Fatal("END should finish the session")
	}

	u := s.upload()
	if u.Name != "call recording" || u.Size != 8 || u.Source != types.SourceStream || u.Filename != "stream.webm" {
		t.Errorf("upload = %+v", u)
	}

	dst := filepath.Join(t.TempDir(), "input.webm")
	if err := u.Save(dst); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(dst); string(data) != "abcdefgh" {
		t.Errorf("saved = %q", data)
	}
}

func TestStreamReply(t *testing.T) {
	if got := streamReply(nil, "id1", nil); got["taskId"] != "id1" || got["status"] != "processing" {
		t.Errorf("success reply = %v", got)
	}
	if got := streamReply(nil, "", &pipeline.ValidationError{Code: "ERR_EMPTY_FILE", Reason: "empty"}); got["code"] != "ERR_EMPTY_FILE" {
		t.Errorf("validation reply = %v", got)
	}
	if got := streamReply(nil, "", queue.ErrQueueFull); got["code"] != "ERR_QUEUE_FULL" {
		t.Errorf("queue reply = %v", got)
	}
}
