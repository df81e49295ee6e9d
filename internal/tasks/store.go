// Package tasks keeps the in-memory record of every submitted task. State
// lives for the lifetime of the process only.
package tasks

import (
	"errors"
	"sync"
	"time"

	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

var (
	// ErrNotFound is returned for ids the store does not hold.
	ErrNotFound = errors.New("task not found")
	// ErrExists is returned when an id is created twice.
	ErrExists = errors.New("task already exists")
	// ErrTerminal is returned when a completed or failed task is updated.
	ErrTerminal = errors.New("task already in a terminal state")
)

// Store maps task ids to their current record.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*types.Task
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		tasks: make(map[string]*types.Task),
		now:   time.Now,
	}
}

// Create registers id in the processing state.
func (s *Store) Create(id, source, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; ok {
		return ErrExists
	}

	now := s.now()
	s.tasks[id] = &types.Task{
		ID:        id,
		Status:    types.StatusProcessing,
		Source:    source,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Update applies fn to the record under the write lock. Records in a
// terminal state are frozen.
func (s *Store) Update(id string, fn func(t *types.Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status.Terminal() {
		return ErrTerminal
	}

	fn(t)
	t.ID = id
	t.UpdatedAt = s.now()
	return nil
}

// SetMessage updates the progress note of a processing task.
func (s *Store) SetMessage(id, message string) error {
	return s.Update(id, func(t *types.Task) {
		t.Message = message
	})
}

// Complete moves a task to completed. fn fills in the result fields.
func (s *Store) Complete(id string, fn func(t *types.Task)) error {
	return s.Update(id, func(t *types.Task) {
		fn(t)
		t.Status = types.StatusCompleted
		t.Error = ""
		t.Message = ""
	})
}

// Fail moves a task to failed with reason as its error.
func (s *Store) Fail(id, reason string) error {
	return s.Update(id, func(t *types.Task) {
		t.Status = types.StatusFailed
		t.Error = reason
		t.Summary = nil
		t.FormattedSummary = ""
		t.Message = ""
	})
}

// Get returns a copy of the record.
func (s *Store) Get(id string) (types.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return types.Task{}, false
	}
	return clone(t), true
}

// Delete removes the record and returns what was stored.
func (s *Store) Delete(id string) (types.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return types.Task{}, false
	}
	delete(s.tasks, id)
	return clone(t), true
}

// Len returns the number of tracked tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func clone(t *types.Task) types.Task {
	c := *t
	if t.Metadata != nil {
		md := *t.Metadata
		c.Metadata = &md
	}
	return c
}
