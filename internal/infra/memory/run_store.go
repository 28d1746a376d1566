package memory

import (
	"sync"

	"practice-engine/internal/app"
)

// RunStore is an in-memory implementation of app.RunRepository.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*app.Run
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*app.Run),
	}
}

func (s *RunStore) Put(run *app.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID()] = run
}

func (s *RunStore) Get(runID string) (*app.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	return run, ok
}

func (s *RunStore) Delete(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
}

// Len reports how many runs are live.
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
