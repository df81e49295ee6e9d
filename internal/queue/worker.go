// Package queue runs accepted jobs on a fixed number of background workers
// fed by a bounded queue.
package queue

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/audio-summarizer/internal/metrics"
)

var (
	// ErrQueueFull is returned when every queue slot is taken.
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned for jobs submitted after Stop.
	ErrStopped = errors.New("worker pool stopped")
)

// Handler processes one job.
type Handler func(ctx context.Context, job *Job)

// PanicHandler is called after a handler panic has been recovered.
type PanicHandler func(job *Job, recovered any)

// WorkerPool manages a pool of workers processing jobs
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	handler     Handler
	onPanic     PanicHandler
	log         *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount, queueSize int, handler Handler, log *logrus.Entry) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobQueue:    make(chan *Job, queueSize),
		workerCount: workerCount,
		handler:     handler,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// OnPanic registers fn to be called when a handler panics.
func (wp *WorkerPool) OnPanic(fn PanicHandler) {
	wp.onPanic = fn
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	wp.log.WithField("workers", wp.workerCount).Info("Starting worker pool")
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Enqueue adds a job to the queue without blocking.
func (wp *WorkerPool) Enqueue(job *Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrStopped
	}

	select {
	case wp.jobQueue <- job:
		metrics.QueueDepth.Set(float64(len(wp.jobQueue)))
		wp.log.WithFields(logrus.Fields{
			"task_id": job.ID,
			"source":  job.Source,
			"name":    job.RequestName,
		}).Debug("Job enqueued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of jobs waiting for a worker.
func (wp *WorkerPool) Pending() int {
	return len(wp.jobQueue)
}

// Stop stops accepting jobs and waits for queued and running jobs to finish.
// If ctx expires first, running handlers see their context cancelled.
func (wp *WorkerPool) Stop(ctx context.Context) error {
	wp.mu.Lock()
	if !wp.stopped {
		wp.stopped = true
		close(wp.jobQueue)
	}
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		return nil
	case <-ctx.Done():
		wp.cancel()
		<-done
		return ctx.Err()
	}
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.WithField("worker", id)
	log.Debug("Worker started")

	for job := range wp.jobQueue {
		metrics.QueueDepth.Set(float64(len(wp.jobQueue)))
		wp.process(log, job)
	}
}

func (wp *WorkerPool) process(log *logrus.Entry, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"task_id": job.ID,
				"panic":   r,
				"stack":   string(debug.Stack()),
			}).Error("PANIC processing job")
			if wp.onPanic != nil {
				wp.onPanic(job, r)
			}
		}
	}()

	wp.handler(wp.ctx, job)
}
