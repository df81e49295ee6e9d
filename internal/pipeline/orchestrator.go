// Package pipeline drives a task from submission to a terminal state:
// fetch, transcribe, classify, summarize and persist, with the temp files of
// the task removed whatever the outcome.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/audio-summarizer/internal/fetcher"
	"github.com/codebuildervaibhav/audio-summarizer/internal/metrics"
	"github.com/codebuildervaibhav/audio-summarizer/internal/queue"
	"github.com/codebuildervaibhav/audio-summarizer/internal/ratelimit"
	"github.com/codebuildervaibhav/audio-summarizer/internal/storage"
	"github.com/codebuildervaibhav/audio-summarizer/internal/summarization"
	"github.com/codebuildervaibhav/audio-summarizer/internal/tasks"
	"github.com/codebuildervaibhav/audio-summarizer/internal/transcription"
	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

// Transcriber turns a local audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
	Name() string
}

// AudioFetcher materializes the audio of a video URL inside destDir.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, sourceURL, destDir string) (string, error)
}

// TitleResolver looks up a human readable name for a video URL.
type TitleResolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// History indexes completed summaries.
type History interface {
	Record(ctx context.Context, e storage.HistoryEntry) error
	Delete(ctx context.Context, taskID string) error
}

// Mirror copies a finished summary to remote storage.
type Mirror interface {
	Upload(ctx context.Context, name, content string) (string, error)
}

// Dependencies are the collaborators of an Orchestrator. Titles, History and
// Mirror are optional.
type Dependencies struct {
	Store             *tasks.Store
	Transcriber       Transcriber
	TranscribeLimiter *ratelimit.Limiter
	Summarizer        summarization.Summarizer
	SummarizeLimiter  *ratelimit.Limiter
	Templates         *summarization.Templates
	Fetcher           AudioFetcher
	Titles            TitleResolver
	Storage           *storage.LocalStorage
	History           History
	Mirror            Mirror
	Logger            *logrus.Entry
}

// Options tune validation, summarization and scheduling.
type Options struct {
	TempDir             string
	Language            string
	ChunkSize           int
	SingleCallThreshold int
	MaxAttempts         int
	InitialDelay        time.Duration
	TranscribeTimeout   time.Duration
	SummarizeTimeout    time.Duration
	MirrorTimeout       time.Duration
	MaxFileSize         int64
	AllowedExtensions   []string
	AllowedContentTypes []string
	Workers             int
	QueueSize           int
	ResultURLPrefix     string
}

func (o *Options) applyDefaults() {
	if o.TempDir == "" {
		o.TempDir = "temp"
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 1000
	}
	if o.SingleCallThreshold <= 0 {
		o.SingleCallThreshold = 12000
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 5 * time.Second
	}
	if o.TranscribeTimeout <= 0 {
		o.TranscribeTimeout = 5 * time.Minute
	}
	if o.SummarizeTimeout <= 0 {
		o.SummarizeTimeout = 60 * time.Second
	}
	if o.MirrorTimeout <= 0 {
		o.MirrorTimeout = 60 * time.Second
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = 50 * 1024 * 1024
	}
	if len(o.AllowedExtensions) == 0 {
		o.AllowedExtensions = transcription.DefaultExtensions
	}
	if len(o.AllowedContentTypes) == 0 {
		o.AllowedContentTypes = transcription.DefaultContentTypes
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 100
	}
	if o.ResultURLPrefix == "" {
		o.ResultURLPrefix = "/summarize/result/"
	}
}

// Orchestrator accepts submissions and runs their pipelines on a worker pool.
type Orchestrator struct {
	deps  Dependencies
	opts  Options
	pool  *queue.WorkerPool
	log   *logrus.Entry
	now   func() time.Time
	newID func() string
}

// New wires an orchestrator. Call Start before submitting.
func New(deps Dependencies, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("pipeline: task store is required")
	case deps.Transcriber == nil:
		return nil, fmt.Errorf("pipeline: transcriber is required")
	case deps.Summarizer == nil:
		return nil, fmt.Errorf("pipeline: summarizer is required")
	case deps.Storage == nil:
		return nil, fmt.Errorf("pipeline: storage is required")
	}

	opts.applyDefaults()
	if deps.Logger == nil {
		deps.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if deps.Templates == nil {
		deps.Templates = summarization.DefaultTemplates()
	}
	if deps.TranscribeLimiter == nil {
		deps.TranscribeLimiter = ratelimit.NewLimiter(deps.Transcriber.Name(), ratelimit.Budget{}, deps.Logger)
	}
	if deps.SummarizeLimiter == nil {
		deps.SummarizeLimiter = ratelimit.NewLimiter(deps.Summarizer.Name(), ratelimit.Budget{}, deps.Logger)
	}

	if err := os.MkdirAll(opts.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("pipeline: create temp dir: %w", err)
	}

	o := &Orchestrator{
		deps:  deps,
		opts:  opts,
		log:   deps.Logger.WithField("component", "pipeline"),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}

	o.pool = queue.NewWorkerPool(opts.Workers, opts.QueueSize, o.run, o.log)
	o.pool.OnPanic(o.recoverJob)

	return o, nil
}

// Start launches the workers.
func (o *Orchestrator) Start() {
	o.pool.Start()
}

// Stop stops accepting submissions and waits for running tasks.
func (o *Orchestrator) Stop(ctx context.Context) error {
	return o.pool.Stop(ctx)
}

// Get returns the task record, or a synthetic not_found record.
func (o *Orchestrator) Get(id string) types.Task {
	t, ok := o.deps.Store.Get(id)
	if !ok {
		return types.Task{ID: id, Status: types.StatusNotFound}
	}
	return t
}

// Delete removes a task record and its artifacts. It reports whether the
// task existed.
func (o *Orchestrator) Delete(ctx context.Context, id string) bool {
	t, ok := o.deps.Store.Delete(id)
	if !ok {
		return false
	}

	log := o.log.WithField("task_id", id)
	if err := o.deps.Storage.RemoveArtifacts(id); err != nil {
		log.WithField("error", err.Error()).Warn("Failed to remove summary artifacts")
	}
	if o.deps.History != nil && t.Status == types.StatusCompleted {
		if err := o.deps.History.Delete(ctx, id); err != nil {
			log.WithField("error", err.Error()).Warn("Failed to remove history entry")
		}
	}

	log.Info("Task cleaned up")
	return true
}

// InUse reports whether name is the work directory of a running task.
func (o *Orchestrator) InUse(name string) bool {
	t, ok := o.deps.Store.Get(name)
	return ok && t.Status == types.StatusProcessing
}

// Provider is the name of the configured summarizer.
func (o *Orchestrator) Provider() string {
	return o.deps.Summarizer.Name()
}

// Upload describes an audio file submission. Save writes the received bytes
// to dst.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Name        string
	Source      string
	Save        func(dst string) error
}

// ValidateUpload checks an upload against the allow-lists and size ceiling.
func (o *Orchestrator) ValidateUpload(u Upload) error {
	switch {
	case u.Filename == "":
		return invalid("ERR_NO_FILE", "No file uploaded")
	case !transcription.ValidateAudioFormat(u.Filename, o.opts.AllowedExtensions):
		return invalid("ERR_INVALID_FORMAT", "Unsupported audio format")
	case !transcription.ValidateContentType(u.ContentType, o.opts.AllowedContentTypes):
		return invalid("ERR_INVALID_CONTENT_TYPE", fmt.Sprintf("Unsupported content type %q", u.ContentType))
	case u.Size <= 0:
		return invalid("ERR_EMPTY_FILE", "Uploaded file is empty")
	case u.Size > o.opts.MaxFileSize:
		return invalid("ERR_FILE_TOO_LARGE", fmt.Sprintf("File too large (max %dMB)", o.opts.MaxFileSize/(1024*1024)))
	}
	return nil
}

// SubmitUpload validates and stores an upload, then schedules its pipeline.
// The returned id is pollable as soon as SubmitUpload returns.
func (o *Orchestrator) SubmitUpload(u Upload) (string, error) {
	if err := o.ValidateUpload(u); err != nil {
		return "", err
	}
	if u.Source == "" {
		u.Source = types.SourceUpload
	}
	if u.Name == "" {
		u.Name = u.Filename
	}

	id := o.newID()
	workDir := filepath.Join(o.opts.TempDir, id)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}

	audioPath := filepath.Join(workDir, "input"+filepath.Ext(u.Filename))
	if err := u.Save(audioPath); err != nil {
		o.removeWorkDir(o.log.WithField("task_id", id), workDir)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	job := queue.NewJob(id, u.Source, u.Name)
	job.AudioPath = audioPath
	job.WorkDir = workDir

	return id, o.enqueue(job, "Transcription in progress...")
}

// SubmitVideo validates a video URL and schedules its pipeline.
func (o *Orchestrator) SubmitVideo(videoURL, name string) (string, error) {
	if videoURL == "" {
		return "", invalid("ERR_NO_URL", "videoUrl is required")
	}
	if !fetcher.ValidateVideoURL(videoURL) {
		return "", invalid("ERR_INVALID_URL", "Unsupported video URL")
	}
	if o.deps.Fetcher == nil {
		return "", invalid("ERR_VIDEO_DISABLED", "Video submissions are not enabled")
	}

	id := o.newID()
	job := queue.NewJob(id, types.SourceVideo, name)
	job.VideoURL = videoURL
	job.WorkDir = filepath.Join(o.opts.TempDir, id)

	return id, o.enqueue(job, "Downloading audio...")
}

// enqueue creates the task record before the job becomes visible to a
// worker. A rejected job leaves no record behind.
func (o *Orchestrator) enqueue(job *queue.Job, message string) error {
	if err := o.deps.Store.Create(job.ID, job.Source, message); err != nil {
		o.removeWorkDir(o.log.WithField("task_id", job.ID), job.WorkDir)
		return err
	}

	if err := o.pool.Enqueue(job); err != nil {
		o.deps.Store.Delete(job.ID)
		o.removeWorkDir(o.log.WithField("task_id", job.ID), job.WorkDir)
		metrics.TasksTotal.WithLabelValues(job.Source, "rejected").Inc()
		return err
	}

	metrics.TasksTotal.WithLabelValues(job.Source, "submitted").Inc()
	o.log.WithFields(logrus.Fields{
		"task_id": job.ID,
		"source":  job.Source,
		"name":    job.RequestName,
	}).Info("Task accepted")
	return nil
}

func (o *Orchestrator) recoverJob(job *queue.Job, recovered any) {
	log := o.log.WithField("task_id", job.ID)
	o.fail(log, job, fmt.Errorf("internal error: %v", recovered))
	o.removeWorkDir(log, job.WorkDir)
}

func (o *Orchestrator) removeWorkDir(log *logrus.Entry, dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		log.WithFields(logrus.Fields{"path": dir, "error": err.Error()}).Warn("Failed to cleanup temp files")
	}
}
