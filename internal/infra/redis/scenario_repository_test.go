package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"practice-engine/internal/domain"
	"practice-engine/internal/infra/memory"
)

func TestScenarioRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		ScenarioLoader: memory.NewStaticScenarioLoader(map[string]domain.Scenario{
			"sc-1": sampleScenario(),
		}),
	}
	repo := NewScenarioRepository(client, loader, time.Minute)

	if _, err := repo.GetScenario(context.Background(), "sc-1"); err != nil {
		t.Fatalf("get scenario: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("scenario:sc-1") {
		t.Fatalf("expected scenario json cached")
	}

	// Second call should hit cache, loader not incremented.
	got, err := repo.GetScenario(context.Background(), "sc-1")
	if err != nil {
		t.Fatalf("get scenario 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(got.Questions) != 2 || got.Questions[1].CorrectAnswer != "53" || got.TimeLimitMinutes != 5 {
		t.Fatalf("cached scenario lost fields: %+v", got)
	}

	if err := repo.Invalidate(context.Background(), "sc-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetScenario(context.Background(), "sc-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestScenarioRepositoryDoesNotCacheFailures(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{ScenarioLoader: memory.NewStaticScenarioLoader(nil)}
	repo := NewScenarioRepository(newClient(mr), loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetScenario(context.Background(), "missing"); !errors.Is(err, domain.ErrScenarioNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if loader.calls != 2 || mr.Exists("scenario:missing") {
		t.Fatalf("expected misses to bypass the cache, calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.ScenarioLoader
	calls int
}

func (l *countingLoader) LoadScenario(ctx context.Context, scenarioID string) (domain.Scenario, error) {
	l.calls++
	return l.ScenarioLoader.LoadScenario(ctx, scenarioID)
}

func sampleScenario() domain.Scenario {
	return domain.Scenario{
		ID:               "sc-1",
		Title:            "Ports",
		Difficulty:       domain.DifficultyEasy,
		TimeLimitMinutes: 5,
		Questions: []domain.Question{
			{Prompt: "SSH port?", CorrectAnswer: "22", Points: 10},
			{Prompt: "DNS port?", CorrectAnswer: "53", Points: 20},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
