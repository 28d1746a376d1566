package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"practice-engine/internal/app"
)

// RunStore is a Redis-aware implementation of app.RunRepository.
// Runs stay in a local map because their timers and subscribers are in-process;
// Redis only carries a liveness marker per run so operators can count open runs.
type RunStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	runs   map[string]*app.Run
}

func NewRunStore(client *redis.Client, ttl time.Duration) *RunStore {
	return &RunStore{
		client: client,
		ttl:    ttl,
		runs:   make(map[string]*app.Run),
	}
}

func (s *RunStore) Put(run *app.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID()] = run
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(run.ID()), run.Scenario().ID, s.markerTTL(run)).Err()
}

// Get also pushes the marker's expiry out, so a run in use never drops from the count.
func (s *RunStore) Get(runID string) (*app.Run, bool) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if ok && s.ttl > 0 {
		_ = s.client.Expire(context.Background(), s.key(runID), s.markerTTL(run)).Err()
	}
	return run, ok
}

func (s *RunStore) Delete(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; !ok {
		return
	}
	delete(s.runs, runID)
	_ = s.client.Del(context.Background(), s.key(runID)).Err()
}

// markerTTL covers the scenario's whole time budget plus the idle allowance.
// A non-positive ttl keeps markers until Delete.
func (s *RunStore) markerTTL(run *app.Run) time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	return s.ttl + run.Scenario().TimeBudget()
}

func (s *RunStore) key(runID string) string {
	return "practice:run:" + runID
}
