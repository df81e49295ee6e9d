// Package fetcher materializes the audio track of an online video as a local
// file by running yt-dlp.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// ErrNoArtifact is returned when the downloader exits cleanly but leaves no
// usable audio file behind.
var ErrNoArtifact = errors.New("no audio file produced")

const outputTemplate = "audio.%(ext)s"

var videoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/watch\?(.*&)?v=[\w-]+`),
	regexp.MustCompile(`^https?://m\.youtube\.com/watch\?(.*&)?v=[\w-]+`),
	regexp.MustCompile(`^https?://music\.youtube\.com/watch\?(.*&)?v=[\w-]+`),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/shorts/[\w-]+`),
	regexp.MustCompile(`^https?://youtu\.be/[\w-]+`),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/embed/[\w-]+`),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/v/[\w-]+`),
}

// ValidateVideoURL reports whether rawURL points at a supported video host.
func ValidateVideoURL(rawURL string) bool {
	for _, p := range videoURLPatterns {
		if p.MatchString(rawURL) {
			return true
		}
	}
	return false
}

type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// YTDLP downloads audio with the yt-dlp binary.
type YTDLP struct {
	binary      string
	audioFormat string
	timeout     time.Duration
	runner      commandRunner
}

// NewYTDLP creates a fetcher. A zero timeout means ten minutes.
func NewYTDLP(binary, audioFormat string, timeout time.Duration) *YTDLP {
	if binary == "" {
		binary = "yt-dlp"
	}
	if audioFormat == "" {
		audioFormat = "mp3"
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &YTDLP{
		binary:      binary,
		audioFormat: audioFormat,
		timeout:     timeout,
		runner:      execRunner{},
	}
}

// FetchAudio downloads the audio of sourceURL into destDir and returns the
// path of the resulting file.
func (y *YTDLP) FetchAudio(ctx context.Context, sourceURL, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	output, err := y.runner.Run(ctx, y.binary,
		"-x",
		"--audio-format", y.audioFormat,
		"--no-playlist",
		"-o", filepath.Join(destDir, outputTemplate),
		sourceURL,
	)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("yt-dlp timed out after %s", y.timeout)
	}
	if err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w\nOutput: %s", err, tail(output, 500))
	}

	return findArtifact(destDir)
}

func findArtifact(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "audio.*"))
	if err != nil {
		return "", fmt.Errorf("scan download dir: %w", err)
	}
	sort.Strings(matches)

	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
			continue
		}
		// yt-dlp leaves .part files behind on interrupted downloads.
		if filepath.Ext(m) == ".part" {
			continue
		}
		return m, nil
	}

	return "", ErrNoArtifact
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return "..." + string(b[len(b)-n:])
}
