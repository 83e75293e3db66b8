// Package memory holds validation runs for the HTTP surface. Runs live
// only as long as the process; nothing is persisted between restarts.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/retailtools/catalogcheck/internal/validator"
)

// ErrNotFound is returned for unknown run IDs.
var ErrNotFound = errors.New("run not found")

// RunStore is an in-memory run registry.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]validator.Run
	rows map[string][]validator.Result
}

// NewRunStore constructs a RunStore.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]validator.Run),
		rows: make(map[string][]validator.Result),
	}
}

// CreateRun stores a new run in queued status.
func (s *RunStore) CreateRun(_ context.Context, run validator.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return errors.New("run already exists")
	}
	s.runs[run.ID] = run
	return nil
}

// UpdateRun replaces a run's metadata.
func (s *RunStore) UpdateRun(_ context.Context, run validator.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return ErrNotFound
	}
	s.runs[run.ID] = run
	return nil
}

// AppendRow records one completed identifier for a run and keeps the
// run's counters in step.
func (s *RunStore) AppendRow(_ context.Context, runID string, row validator.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}
	s.rows[runID] = append(s.rows[runID], row)
	run.Counters.Processed++
	if row.Cataloged {
		run.Counters.Cataloged++
	} else {
		run.Counters.NotCataloged++
	}
	s.runs[runID] = run
	return nil
}

// GetRun fetches a run by ID.
func (s *RunStore) GetRun(_ context.Context, runID string) (validator.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return validator.Run{}, ErrNotFound
	}
	return run, nil
}

// ListRows returns a copy of all rows recorded for a run so far.
func (s *RunStore) ListRows(_ context.Context, runID string) ([]validator.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.runs[runID]; !ok {
		return nil, ErrNotFound
	}
	rows := s.rows[runID]
	out := make([]validator.Result, len(rows))
	copy(out, rows)
	return out, nil
}
