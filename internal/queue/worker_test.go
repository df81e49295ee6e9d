package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	pool := NewWorkerPool(3, 10, func(ctx context.Context, job *Job) {
		defer wg.Done()
		mu.Lock()
		seen[job.ID] = true
		mu.Unlock()
	}, nil)
	pool.Start()

	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		if err := pool.Enqueue(NewJob(id, "upload", "")); err != nil {
			t.Fatalf("Enqueue(%s): %v", id, err)
		}
	}
	wg.Wait()

	if len(seen) != 4 {
		t.Fatalf("processed %d jobs, want 4", len(seen))
	}
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	pool := NewWorkerPool(1, 1, func(ctx context.Context, job *Job) {
		started <- struct{}{}
		<-release
	}, nil)
	pool.Start()
	defer func() {
		close(release)
		_ = pool.Stop(context.Background())
	}()

	if err := pool.Enqueue(NewJob("running", "upload", "")); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	<-started

	if err := pool.Enqueue(NewJob("queued", "upload", "")); err != nil {
		t.Fatalf("second Enqueue: %v", err)
	}
	if err := pool.Enqueue(NewJob("rejected", "upload", "")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("third Enqueue error = %v, want ErrQueueFull", err)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	var panicked atomic.Value
	done := make(chan struct{})

	pool := NewWorkerPool(1, 2, func(ctx context.Context, job *Job) {
		if job.ID == "bad" {
			panic("boom")
		}
		close(done)
	}, nil)
	pool.OnPanic(func(job *Job, r any) {
		panicked.Store(job.ID)
	})
	pool.Start()

	_ = pool.Enqueue(NewJob("bad", "upload", ""))
	_ = pool.Enqueue(NewJob("good", "upload", ""))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
	if panicked.Load() != "bad" {
		t.Fatalf("OnPanic saw %v, want bad", panicked.Load())
	}
	_ = pool.Stop(context.Background())
}

func TestStopDrainsAndRejects(t *testing.T) {
	var count atomic.Int32
	pool := NewWorkerPool(2, 10, func(ctx context.Context, job *Job) {
		time.Sleep(5 * time.Millisecond)
		count.Add(1)
	}, nil)
	pool.Start()

	for i := 0; i < 5; i++ {
		_ = pool.Enqueue(NewJob(string(rune('a'+i)), "upload", ""))
	}
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if count.Load() != 5 {
		t.Fatalf("processed %d jobs, want 5", count.Load())
	}
	if err := pool.Enqueue(NewJob("late", "upload", "")); !errors.Is(err, ErrStopped) {
		t.Fatalf("Enqueue after Stop error = %v, want ErrStopped", err)
	}
}

func TestNewJobDefaults(t *testing.T) {
	job := NewJob("id", "video", "")
	if job.RequestName != DefaultRequestName || job.CreatedAt.IsZero() {
		t.Fatalf("unexpected defaults %+v", job)
	}
}
