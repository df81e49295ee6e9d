// Package cleanup sweeps leftovers from the temp directory that a crashed or
// interrupted job never removed.
package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler handles cleanup of temporary files
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	inUse    func(name string) bool
	log      *logrus.Entry

	stopChan chan struct{}
	stopOnce sync.Once
}

// Defaults for non-positive scheduler settings
const (
	DefaultInterval = 30 * time.Minute
	DefaultMaxAge   = 2 * time.Hour
)

// NewScheduler creates a new cleanup scheduler
func NewScheduler(tempDir string, interval, maxAge time.Duration, log *logrus.Entry) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{
		tempDir:  tempDir,
		interval: interval,
		maxAge:   maxAge,
		log:      log.WithField("component", "cleanup"),
		stopChan: make(chan struct{}),
	}
}

// SkipInUse registers a check for top-level entries that belong to a task
// still being processed. Such entries are never removed.
func (s *Scheduler) SkipInUse(fn func(name string) bool) {
	s.inUse = fn
}

// Start runs one sweep immediately and then one per interval.
func (s *Scheduler) Start() {
	s.log.Info("Running initial temp file cleanup...")
	s.Sweep(time.Now())

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				s.Sweep(now)
			case <-s.stopChan:
				return
			}
		}
	}()

	s.log.WithFields(logrus.Fields{
		"interval": s.interval.String(),
		"max_age":  s.maxAge.String(),
	}).Info("Cleanup scheduler started")
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.log.Info("Cleanup scheduler stopped")
	})
}

// Sweep removes top-level entries of the temp directory last modified more
// than maxAge before now. It returns the number of entries removed.
func (s *Scheduler) Sweep(now time.Time) int {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithField("error", err.Error()).Warn("Error reading temp directory")
		}
		return 0
	}

	var deletedCount int
	var deletedSize int64

	for _, entry := range entries {
		if s.inUse != nil && s.inUse(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			continue
		}

		path := filepath.Join(s.tempDir, entry.Name())
		size := diskUsage(path)
		if err := os.RemoveAll(path); err != nil {
			s.log.WithFields(logrus.Fields{"path": path, "error": err.Error()}).Warn("Failed to delete old temp entry")
			continue
		}

		deletedCount++
		deletedSize += size
		s.log.WithFields(logrus.Fields{
			"name":    entry.Name(),
			"age":     age.Round(time.Minute).String(),
			"size_kb": size / 1024,
		}).Debug("Deleted old temp entry")
	}

	if deletedCount > 0 {
		s.log.Infof("Cleanup complete: %d entries deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
	return deletedCount
}

func diskUsage(path string) int64 {
	var total int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// EnsureDir creates dir if it doesn't exist
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
