package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"practice-engine/internal/app"
	"practice-engine/internal/domain"
	"practice-engine/internal/infra/memory"
)

func TestPlayerRunsScenarioToCompletion(t *testing.T) {
	service := newPlayService()
	in := strings.NewReader("nmap\n:next\nwrong\n443\n")
	var out bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := newPlayer(service, in, &out).Play(ctx, "sc-1", "u1"); err != nil {
		t.Fatalf("play: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Recon basics",
		"Q1/2",
		"Q2/2",
		"Incorrect, try again.",
		"All questions solved!",
		"score: 100% (30/30 points)",
		"progress saved",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestPlayerQuitLeavesRunUnscored(t *testing.T) {
	service := newPlayService()
	var out bytes.Buffer
	if err := newPlayer(service, strings.NewReader(":goto 2\n:finish\n:quit\n"), &out).Play(context.Background(), "sc-1", "u1"); err != nil {
		t.Fatalf("play: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "finish is available on the last question") {
		t.Fatalf("expected finish refusal:\n%s", text)
	}
	if strings.Contains(text, "score:") {
		t.Fatalf("quit must not score the run:\n%s", text)
	}
}

func TestPlayerUnknownScenario(t *testing.T) {
	err := newPlayer(newPlayService(), strings.NewReader(""), io.Discard).Play(context.Background(), "missing", "u1")
	if !errors.Is(err, domain.ErrScenarioNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func newPlayService() *app.PracticeService {
	loader := memory.NewStaticScenarioLoader(map[string]domain.Scenario{
		"sc-1": {
			ID:               "sc-1",
			Title:            "Recon basics",
			Difficulty:       domain.DifficultyEasy,
			TimeLimitMinutes: 5,
			Questions: []domain.Question{
				{Prompt: "Which tool maps open ports?", CorrectAnswer: "nmap", Points: 10},
				{Prompt: "Default HTTPS port?", CorrectAnswer: "443", Points: 20, Hint: "think TLS"},
			},
		},
	})
	return app.NewPracticeService(memory.NewRunStore(), memory.NewScenarioRepository(loader, time.Minute),
		app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		app.WithRunOptions(app.WithAutoFinishDelay(0)),
	)
}
