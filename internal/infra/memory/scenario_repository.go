package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"practice-engine/internal/domain"
)

// ScenarioLoader fetches scenario content from a backing store (practice API, Postgres).
type ScenarioLoader interface {
	LoadScenario(ctx context.Context, scenarioID string) (domain.Scenario, error)
}

// ScenarioRepository caches scenarios with TTL to avoid repeated backend hits.
// Failed loads are not cached, so "Try Again" reaches the backend.
type ScenarioRepository struct {
	loader ScenarioLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedScenario
}

type cachedScenario struct {
	scenario  domain.Scenario
	expiresAt time.Time
}

func NewScenarioRepository(loader ScenarioLoader, ttl time.Duration) *ScenarioRepository {
	return &ScenarioRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedScenario),
	}
}

func (r *ScenarioRepository) GetScenario(ctx context.Context, scenarioID string) (domain.Scenario, error) {
	if s, ok := r.lookup(scenarioID); ok {
		return s, nil
	}

	result, err, _ := r.sf.Do(scenarioID, func() (interface{}, error) {
		if s, ok := r.lookup(scenarioID); ok {
			return s, nil
		}

		scenario, err := r.loader.LoadScenario(ctx, scenarioID)
		if err != nil {
			return domain.Scenario{}, err
		}

		if ttl := r.ttlWithJitter(); ttl > 0 {
			r.mu.Lock()
			r.cache[scenarioID] = cachedScenario{
				scenario:  scenario,
				expiresAt: r.clock().Add(ttl),
			}
			r.mu.Unlock()
		}
		return scenario, nil
	})
	if err != nil {
		return domain.Scenario{}, err
	}
	return result.(domain.Scenario), nil
}

func (r *ScenarioRepository) lookup(scenarioID string) (domain.Scenario, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[scenarioID]; ok && entry.expiresAt.After(now) {
		return entry.scenario, true
	}
	return domain.Scenario{}, false
}

func (r *ScenarioRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticScenarioLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticScenarioLoader struct {
	scenarios map[string]domain.Scenario
}

func NewStaticScenarioLoader(scenarios map[string]domain.Scenario) *StaticScenarioLoader {
	return &StaticScenarioLoader{scenarios: scenarios}
}

func (l *StaticScenarioLoader) LoadScenario(_ context.Context, scenarioID string) (domain.Scenario, error) {
	if s, ok := l.scenarios[scenarioID]; ok {
		return s, nil
	}
	return domain.Scenario{}, domain.ErrScenarioNotFound
}
