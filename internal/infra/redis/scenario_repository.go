package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"practice-engine/internal/domain"
	"practice-engine/internal/infra/memory"
)

// ScenarioRepository caches scenarios in Redis and falls back to a loader on cache miss.
// Scenarios are stored as JSON: SET scenario:{scenarioID} {json} EX ttl
// Loader failures are never cached.
type ScenarioRepository struct {
	client *redis.Client
	loader memory.ScenarioLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewScenarioRepository(client *redis.Client, loader memory.ScenarioLoader, ttl time.Duration) *ScenarioRepository {
	return &ScenarioRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ScenarioRepository) GetScenario(ctx context.Context, scenarioID string) (domain.Scenario, error) {
	if s, ok := r.cached(ctx, scenarioID); ok {
		return s, nil
	}

	result, err, _ := r.sf.Do(scenarioID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if s, ok := r.cached(ctx, scenarioID); ok {
			return s, nil
		}

		scenario, err := r.loader.LoadScenario(ctx, scenarioID)
		if err != nil {
			return domain.Scenario{}, err
		}

		if raw, err := json.Marshal(scenario); err == nil {
			_ = r.client.Set(ctx, r.key(scenarioID), raw, r.ttlWithJitter()).Err()
		}
		return scenario, nil
	})
	if err != nil {
		return domain.Scenario{}, err
	}
	return result.(domain.Scenario), nil
}

// Invalidate drops the cached copy so the next read reaches the loader.
func (r *ScenarioRepository) Invalidate(ctx context.Context, scenarioID string) error {
	return r.client.Del(ctx, r.key(scenarioID)).Err()
}

func (r *ScenarioRepository) cached(ctx context.Context, scenarioID string) (domain.Scenario, bool) {
	raw, err := r.client.Get(ctx, r.key(scenarioID)).Bytes()
	if err != nil {
		return domain.Scenario{}, false
	}
	var scenario domain.Scenario
	if err := json.Unmarshal(raw, &scenario); err != nil {
		return domain.Scenario{}, false
	}
	return scenario, true
}

func (r *ScenarioRepository) key(scenarioID string) string {
	return "scenario:" + scenarioID
}

func (r *ScenarioRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
