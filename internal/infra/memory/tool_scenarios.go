package memory

import (
	"context"
	"fmt"
	"strings"

	"practice-engine/internal/domain"
)

// StaticToolScenarios serves tool-practice scenarios from memory, keyed by tool name.
type StaticToolScenarios struct {
	byTool map[string][]domain.ToolScenario
}

func NewStaticToolScenarios(scenarios []domain.ToolScenario) *StaticToolScenarios {
	byTool := make(map[string][]domain.ToolScenario)
	for _, s := range scenarios {
		byTool[s.ToolName] = append(byTool[s.ToolName], s)
	}
	return &StaticToolScenarios{byTool: byTool}
}

func (s *StaticToolScenarios) ListToolScenarios(_ context.Context, tool string) ([]domain.ToolScenario, error) {
	list := s.byTool[tool]
	if len(list) == 0 {
		return nil, domain.ErrNoToolScenarios
	}
	return append([]domain.ToolScenario(nil), list...), nil
}

// StaticCommandChecker judges commands against known solutions. Runs of whitespace are
// insignificant; everything else must match exactly.
type StaticCommandChecker struct {
	solutions    map[string]string
	explanations map[string]string
}

func NewStaticCommandChecker() *StaticCommandChecker {
	return &StaticCommandChecker{
		solutions:    make(map[string]string),
		explanations: make(map[string]string),
	}
}

// Add registers the solution of a scenario.
func (c *StaticCommandChecker) Add(scenarioID, command, explanation string) {
	c.solutions[scenarioID] = normalizeCommand(command)
	c.explanations[scenarioID] = explanation
}

func (c *StaticCommandChecker) CheckCommand(_ context.Context, scenarioID, command string) (domain.CheckResult, error) {
	want, ok := c.solutions[scenarioID]
	if !ok {
		return domain.CheckResult{}, fmt.Errorf("no solution for tool scenario %s", scenarioID)
	}
	correct := normalizeCommand(command) == want
	explanation := c.explanations[scenarioID]
	if !correct {
		explanation = "That command does not solve the task yet."
	}
	return domain.CheckResult{
		ScenarioID:  scenarioID,
		Command:     command,
		IsCorrect:   correct,
		Explanation: explanation,
	}, nil
}

func normalizeCommand(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
