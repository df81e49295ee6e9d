package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/audio-summarizer/internal/chunker"
	"github.com/codebuildervaibhav/audio-summarizer/internal/classifier"
	"github.com/codebuildervaibhav/audio-summarizer/internal/formatter"
	"github.com/codebuildervaibhav/audio-summarizer/internal/metrics"
	"github.com/codebuildervaibhav/audio-summarizer/internal/queue"
	"github.com/codebuildervaibhav/audio-summarizer/internal/ratelimit"
	"github.com/codebuildervaibhav/audio-summarizer/internal/storage"
	"github.com/codebuildervaibhav/audio-summarizer/internal/summarization"
	"github.com/codebuildervaibhav/audio-summarizer/internal/tasks"
	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

// summary is the output of the summarize stage.
type summary struct {
	value      any
	text       string
	chunkCount int
	strategy   string
}

// run is the worker handler for one job.
func (o *Orchestrator) run(ctx context.Context, job *queue.Job) {
	log := o.log.WithFields(logrus.Fields{"task_id": job.ID, "source": job.Source})
	defer o.removeWorkDir(log, job.WorkDir)

	start := time.Now()
	if err := o.process(ctx, log, job); err != nil {
		if errors.Is(err, tasks.ErrNotFound) {
			log.Info("Task was deleted while processing")
			return
		}
		o.fail(log, job, err)
		return
	}

	metrics.TasksTotal.WithLabelValues(job.Source, "completed").Inc()
	log.WithField("duration", time.Since(start).Round(time.Millisecond).String()).Info("Task completed")
}

func (o *Orchestrator) process(ctx context.Context, log *logrus.Entry, job *queue.Job) error {
	audioPath := job.AudioPath
	name := job.RequestName

	if job.VideoURL != "" {
		path, err := o.fetch(ctx, log, job)
		if err != nil {
			return err
		}
		audioPath = path

		if name == queue.DefaultRequestName && o.deps.Titles != nil {
			if title, err := o.deps.Titles.Resolve(ctx, job.VideoURL); err != nil {
				log.WithField("error", err.Error()).Warn("Failed to resolve video title")
			} else if title != "" {
				name = title
			}
		}
	}

	transcript, err := o.transcribe(ctx, log, job, audioPath)
	if err != nil {
		return err
	}

	ct := classifier.Classify(transcript)
	log.WithFields(logrus.Fields{"stage": "classify", "content_type": ct}).Info("Transcript classified")
	o.setMessage(log, job.ID, "Transcription complete, summarizing...")

	sum, err := o.summarize(ctx, log, transcript, ct)
	if err != nil {
		return err
	}

	return o.persist(ctx, log, job, name, transcript, ct, sum)
}

func (o *Orchestrator) fetch(ctx context.Context, log *logrus.Entry, job *queue.Job) (string, error) {
	log = log.WithField("stage", "fetch")
	log.Info("Downloading audio")

	start := time.Now()
	path, err := o.deps.Fetcher.FetchAudio(ctx, job.VideoURL, job.WorkDir)
	metrics.ObserveStage("fetch", start, err)
	if err != nil {
		return "", fmt.Errorf("audio download failed: %w", err)
	}

	log.WithField("path", path).Info("Audio downloaded")
	o.setMessage(log, job.ID, "Transcription in progress...")
	return path, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, log *logrus.Entry, job *queue.Job, audioPath string) (string, error) {
	log = log.WithField("stage", "transcribe")
	log.Info("Starting transcription")

	var transcript string
	start := time.Now()
	err := o.deps.TranscribeLimiter.CallWithRetry(ctx, o.opts.MaxAttempts, o.opts.InitialDelay, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, o.opts.TranscribeTimeout)
		defer cancel()

		text, err := o.deps.Transcriber.Transcribe(callCtx, audioPath, o.opts.Language)
		if err != nil {
			return err
		}
		transcript = text
		return nil
	})
	metrics.ObserveStage("transcribe", start, err)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	if strings.TrimSpace(transcript) == "" {
		return "", ErrEmptyTranscript
	}

	log.WithField("chars", len(transcript)).Info("Transcription complete")
	return transcript, nil
}

// summarize picks the single structured call for transcripts up to the
// threshold and chunked narrative summaries beyond it.
func (o *Orchestrator) summarize(ctx context.Context, log *logrus.Entry, transcript string, ct types.ContentType) (summary, error) {
	log = log.WithField("stage", "summarize")
	start := time.Now()

	var (
		sum summary
		err error
	)
	if len(transcript) <= o.opts.SingleCallThreshold {
		sum, err = o.summarizeSingle(ctx, transcript, ct)
	} else {
		sum, err = o.summarizeChunked(ctx, log, transcript)
	}
	metrics.ObserveStage("summarize", start, err)
	if err != nil {
		return summary{}, err
	}

	log.WithFields(logrus.Fields{
		"strategy": sum.strategy,
		"chunks":   sum.chunkCount,
	}).Info("Summary generated")
	return sum, nil
}

func (o *Orchestrator) summarizeSingle(ctx context.Context, transcript string, ct types.ContentType) (summary, error) {
	raw, err := o.callSummarizer(ctx, o.deps.Templates.Prompt(ct, transcript))
	if err != nil {
		return summary{}, fmt.Errorf("summarization failed: %w", err)
	}

	result := summarization.ParseOutput(raw)
	if !result.IsStructured() && result.Content == "" {
		return summary{}, ErrSummaryUnavailable
	}

	return summary{
		value:      result.Value(),
		text:       formatter.Format(result, transcript, ct, o.now()),
		chunkCount: 1,
		strategy:   types.StrategySingle,
	}, nil
}

// summarizeChunked summarizes each chunk in order. A chunk that fails for a
// reason other than throttling keeps a placeholder and the rest continue;
// exhausted retries fail the whole stage.
func (o *Orchestrator) summarizeChunked(ctx context.Context, log *logrus.Entry, transcript string) (summary, error) {
	chunks := chunker.Split(transcript, o.opts.ChunkSize)
	if len(chunks) == 0 {
		return summary{}, ErrNothingToSummarize
	}

	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		raw, err := o.callSummarizer(ctx, o.deps.Templates.ChunkPrompt(chunk))
		switch {
		case err == nil:
			text := chunker.Normalize(raw)
			if text == "" {
				text = ChunkUnavailableSentinel
			}
			parts = append(parts, text)
		case errors.Is(err, ratelimit.ErrRetriesExhausted) || ctx.Err() != nil:
			return summary{}, fmt.Errorf("summarization failed at chunk %d/%d: %w", i+1, len(chunks), err)
		default:
			log.WithFields(logrus.Fields{
				"chunk": i + 1,
				"error": err.Error(),
			}).Error("Error summarizing chunk")
			parts = append(parts, ChunkErrorSentinel)
		}
	}

	joined := chunker.Join(parts)
	if strings.TrimSpace(joined) == "" {
		return summary{}, ErrSummaryUnavailable
	}

	return summary{
		value:      joined,
		text:       joined,
		chunkCount: len(chunks),
		strategy:   types.StrategyChunked,
	}, nil
}

// callSummarizer sends one prompt through the shared limiter and records its
// token usage against the per-minute budget.
func (o *Orchestrator) callSummarizer(ctx context.Context, prompt string) (string, error) {
	var out string
	err := o.deps.SummarizeLimiter.CallWithRetry(ctx, o.opts.MaxAttempts, o.opts.InitialDelay, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, o.opts.SummarizeTimeout)
		defer cancel()

		raw, err := o.deps.Summarizer.Summarize(callCtx, prompt)
		if err != nil {
			return err
		}
		out = raw
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := o.deps.SummarizeLimiter.RecordUsage(ctx, ratelimit.EstimateTokens(prompt)); err != nil {
		return "", err
	}
	return out, nil
}

func (o *Orchestrator) persist(ctx context.Context, log *logrus.Entry, job *queue.Job, name, transcript string, ct types.ContentType, sum summary) error {
	log = log.WithField("stage", "persist")
	start := time.Now()

	path, err := o.deps.Storage.SaveSummary(job.ID, sum.text)
	metrics.ObserveStage("persist", start, err)
	if err != nil {
		return err
	}

	generatedAt := o.now()
	md := &types.Metadata{
		TranscriptLength: len(transcript),
		SummaryLength:    len(sum.text),
		CompressionRatio: compressionRatio(len(sum.text), len(transcript)),
		ChunkCount:       sum.chunkCount,
		Strategy:         sum.strategy,
		Provider:         o.deps.Summarizer.Name(),
		GeneratedAt:      generatedAt,
	}

	if _, ok := o.deps.Store.Get(job.ID); !ok {
		o.discard(ctx, log, job.ID)
		return tasks.ErrNotFound
	}

	var mirrorURL string
	if o.deps.Mirror != nil {
		mirrorURL = o.mirror(ctx, log, filepath.Base(path), sum.text)
	}

	if o.deps.History != nil {
		err := o.deps.History.Record(ctx, storage.HistoryEntry{
			TaskID:           job.ID,
			RequestName:      name,
			Source:           job.Source,
			ContentType:      string(ct),
			Strategy:         md.Strategy,
			Provider:         md.Provider,
			TranscriptLength: md.TranscriptLength,
			SummaryLength:    md.SummaryLength,
			ArtifactPath:     path,
			MirrorURL:        mirrorURL,
			CreatedAt:        generatedAt,
		})
		if err != nil {
			log.WithField("error", err.Error()).Warn("Failed to record summary history")
		}
	}

	err = o.deps.Store.Complete(job.ID, func(t *types.Task) {
		t.Transcription = transcript
		t.Summary = sum.value
		t.FormattedSummary = sum.text
		t.ContentType = ct
		t.Metadata = md
		t.ResultArtifactPath = path
		t.DownloadURL = o.opts.ResultURLPrefix + job.ID
		t.MirrorURL = mirrorURL
	})
	if errors.Is(err, tasks.ErrNotFound) {
		o.discard(ctx, log, job.ID)
	}
	return err
}

// discard removes what persist wrote for a task deleted while it ran.
func (o *Orchestrator) discard(ctx context.Context, log *logrus.Entry, id string) {
	if err := o.deps.Storage.RemoveArtifacts(id); err != nil {
		log.WithField("error", err.Error()).Warn("Failed to remove summary artifacts")
	}
	if o.deps.History != nil {
		if err := o.deps.History.Delete(ctx, id); err != nil {
			log.WithField("error", err.Error()).Warn("Failed to remove history entry")
		}
	}
}

// mirror uploads the summary with a few attempts. Failures only get logged.
func (o *Orchestrator) mirror(ctx context.Context, log *logrus.Entry, name, content string) string {
	for attempt := 1; attempt <= 3; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.opts.MirrorTimeout)
		url, err := o.deps.Mirror.Upload(callCtx, name, content)
		cancel()
		if err == nil {
			return url
		}

		log.WithFields(logrus.Fields{"attempt": attempt, "error": err.Error()}).Warn("Summary mirror upload failed")
		if attempt < 3 {
			select {
			case <-ctx.Done():
				return ""
			case <-time.After(time.Duration(attempt*attempt) * time.Second):
			}
		}
	}

	log.Warn("Summary mirror upload failed after 3 attempts, continuing with local copy only")
	return ""
}

func (o *Orchestrator) fail(log *logrus.Entry, job *queue.Job, err error) {
	log.WithField("error", err.Error()).Error("Task failed")
	metrics.TasksTotal.WithLabelValues(job.Source, "failed").Inc()

	if ferr := o.deps.Store.Fail(job.ID, err.Error()); ferr != nil {
		log.WithField("error", ferr.Error()).Debug("Could not record task failure")
	}
}

func (o *Orchestrator) setMessage(log *logrus.Entry, id, message string) {
	if err := o.deps.Store.SetMessage(id, message); err != nil {
		log.WithField("error", err.Error()).Debug("Could not update task message")
	}
}

func compressionRatio(summaryLen, transcriptLen int) float64 {
	if transcriptLen == 0 {
		return 0
	}
	return math.Round(float64(summaryLen)/float64(transcriptLen)*10000) / 10000
}
