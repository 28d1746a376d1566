package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"practice-engine/internal/domain"
)

func TestScenarioRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		ScenarioLoader: NewStaticScenarioLoader(map[string]domain.Scenario{
			"sc-1": sampleScenario(),
		}),
	}
	repo := NewScenarioRepository(loader, time.Minute)

	if _, err := repo.GetScenario(context.Background(), "sc-1"); err != nil {
		t.Fatalf("get scenario: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	got, err := repo.GetScenario(context.Background(), "sc-1")
	if err != nil {
		t.Fatalf("get scenario 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if got.TotalPoints() != 30 {
		t.Fatalf("expected cached scenario intact, got %+v", got)
	}
}

func TestScenarioRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		ScenarioLoader: NewStaticScenarioLoader(map[string]domain.Scenario{"sc-1": sampleScenario()}),
	}
	repo := NewScenarioRepository(loader, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetScenario(context.Background(), "sc-1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetScenario(context.Background(), "sc-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, got %d calls", loader.calls)
	}
}

func TestScenarioRepositoryDoesNotCacheMisses(t *testing.T) {
	loader := &countingLoader{ScenarioLoader: NewStaticScenarioLoader(nil)}
	repo := NewScenarioRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetScenario(context.Background(), "missing"); !errors.Is(err, domain.ErrScenarioNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected every miss to reach the loader, got %d", loader.calls)
	}
}

func TestStaticToolScenariosGroupsByTool(t *testing.T) {
	src := NewStaticToolScenarios([]domain.ToolScenario{
		{ID: "1", ToolName: "nmap"},
		{ID: "2", ToolName: "sqlmap"},
		{ID: "3", ToolName: "nmap"},
	})
	list, err := src.ListToolScenarios(context.Background(), "nmap")
	if err != nil || len(list) != 2 || list[1].ID != "3" {
		t.Fatalf("unexpected nmap scenarios %+v %v", list, err)
	}
	if _, err := src.ListToolScenarios(context.Background(), "hydra"); !errors.Is(err, domain.ErrNoToolScenarios) {
		t.Fatalf("expected no scenarios, got %v", err)
	}
}

type countingLoader struct {
	ScenarioLoader
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
		TimeLimitMinutes: 5,
		Questions: []domain.Question{
			{Prompt: "SSH port?", CorrectAnswer: "22", Points: 10},
			{Prompt: "DNS port?", CorrectAnswer: "53", Points: 20},
		},
	}
}
