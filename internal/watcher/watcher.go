// Package watcher turns audio files dropped into an inbox folder into
// summarization tasks.
package watcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/audio-summarizer/internal/pipeline"
	"github.com/codebuildervaibhav/audio-summarizer/internal/transcription"
	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

// Submitter accepts an upload and returns its task id.
type Submitter interface {
	SubmitUpload(u pipeline.Upload) (string, error)
}

// Inbox watches one directory for new audio files.
type Inbox struct {
	dir        string
	extensions []string
	settle     time.Duration
	submit     Submitter
	log        *logrus.Entry
	watcher    *fsnotify.Watcher
}

// New creates the inbox directory if needed and starts watching it. Call
// Run to consume events.
func New(dir string, extensions []string, submit Submitter, log *logrus.Entry) (*Inbox, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if len(extensions) == 0 {
		extensions = transcription.DefaultExtensions
	}

	return &Inbox{
		dir:        dir,
		extensions: extensions,
		settle:     500 * time.Millisecond,
		submit:     submit,
		log:        log.WithField("component", "inbox"),
		watcher:    w,
	}, nil
}

// Run handles events until ctx is cancelled or the watcher is closed.
func (in *Inbox) Run(ctx context.Context) error {
	in.log.WithField("dir", in.dir).Info("Inbox watcher started")

	for {
		select {
		case <-ctx.Done():
			in.log.Info("Inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-in.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !transcription.ValidateAudioFormat(event.Name, in.extensions) {
				in.log.WithField("path", event.Name).Debug("Ignoring non-audio file")
				continue
			}

			// Give the writer a moment to finish.
			select {
			case <-time.After(in.settle):
			case <-ctx.Done():
				return ctx.Err()
			}
			in.handle(event.Name)

		case err, ok := <-in.watcher.Errors:
			if !ok {
				return nil
			}
			in.log.WithField("error", err.Error()).Error("Watcher error")
		}
	}
}

// Close stops watching.
func (in *Inbox) Close() error {
	return in.watcher.Close()
}

func (in *Inbox) handle(path string) {
	log := in.log.WithField("path", path)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	name := filepath.Base(path)
	id, err := in.submit.SubmitUpload(pipeline.Upload{
		Filename:    name,
		ContentType: transcription.ContentTypeForExtension(name),
		Size:        info.Size(),
		Name:        strings.TrimSuffix(name, filepath.Ext(name)),
		Source:      types.SourceInbox,
		Save:        func(dst string) error { return moveFile(path, dst) },
	})
	if err != nil {
		log.WithField("error", err.Error()).Error("Failed to submit inbox file")
		return
	}

	log.WithField("task_id", id).Info("Inbox file submitted")
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	in.Close()
	return os.Remove(src)
}
