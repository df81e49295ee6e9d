package tasks

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

func TestCreateAndGet(t *testing.T) {
	s := NewStore()
	if err := s.Create("a", types.SourceUpload, "queued"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	task, ok := s.Get("a")
	if !ok {
		t.Fatal("task not found")
	}
	if task.Status != types.StatusProcessing || task.Source != types.SourceUpload || task.Message != "queued" {
		t.Errorf("unexpected task %+v", task)
	}
	if task.Summary != nil || task.Error != "" {
		t.Error("processing task must have neither summary nor error")
	}

	if err := s.Create("a", types.SourceUpload, ""); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate Create error = %v, want ErrExists", err)
	}
}

func TestGetUnknown(t *testing.T) {
	if _, ok := NewStore().Get("missing"); ok {
		t.Fatal("unknown id should not be found")
	}
}

func TestCompleteAndFreeze(t *testing.T) {
	s := NewStore()
	_ = s.Create("a", types.SourceVideo, "")

	err := s.Complete("a", func(task *types.Task) {
		task.Summary = "done"
		task.Metadata = &types.Metadata{TranscriptLength: 10}
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	task, _ := s.Get("a")
	if task.Status != types.StatusCompleted || task.Summary != "done" || task.Error != "" {
		t.Errorf("unexpected task %+v", task)
	}

	// Copies do not alias the stored metadata.
	task.Metadata.TranscriptLength = 99
	again, _ := s.Get("a")
	if again.Metadata.TranscriptLength != 10 {
		t.Error("Get must return an independent copy")
	}

	if err := s.Fail("a", "late failure"); !errors.Is(err, ErrTerminal) {
		t.Errorf("Fail after Complete error = %v, want ErrTerminal", err)
	}
}

func TestFailClearsSummary(t *testing.T) {
	s := NewStore()
	_ = s.Create("a", types.SourceUpload, "")
	_ = s.Update("a", func(task *types.Task) { task.Summary = "partial" })

	if err := s.Fail("a", "transcription empty"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	task, _ := s.Get("a")
	if task.Status != types.StatusFailed || task.Error != "transcription empty" || task.Summary != nil {
		t.Errorf("unexpected task %+v", task)
	}
}

func TestUpdateUnknown(t *testing.T) {
	err := NewStore().Update("missing", func(*types.Task) {})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := NewStore()
	_ = s.Create("a", types.SourceUpload, "")

	if _, ok := s.Delete("a"); !ok {
		t.Fatal("Delete should report the removed task")
	}
	if _, ok := s.Delete("a"); ok {
		t.Fatal("second Delete should report nothing removed")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("task-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Create(id, types.SourceUpload, "")
			_ = s.SetMessage(id, "working")
			_, _ = s.Get(id)
			_ = s.Complete(id, func(task *types.Task) { task.Summary = "ok" })
		}()
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Fatalf("Len = %d, want 50", s.Len())
	}
	for i := 0; i < 50; i++ {
		task, _ := s.Get(fmt.Sprintf("task-%d", i))
		if task.Status != types.StatusCompleted {
			t.Errorf("task-%d status = %s", i, task.Status)
		}
	}
}
