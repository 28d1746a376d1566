package memory

import (
	"encoding/json"
	"fmt"
	"os"

	"practice-engine/internal/domain"
)

// Catalog is a file-backed set of practice content for offline demos.
type Catalog struct {
	Scenarios     []domain.Scenario `json:"scenarios"`
	ToolScenarios []catalogTool     `json:"tool_scenarios"`
}

type catalogTool struct {
	domain.ToolScenario
	Solution    string `json:"solution"`
	Explanation string `json:"explanation"`
}

// LoadCatalog reads a JSON catalog from path.
func LoadCatalog(path string) (Catalog, error) {
	var c Catalog
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read catalog: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

func (c Catalog) ScenarioLoader() *StaticScenarioLoader {
	byID := make(map[string]domain.Scenario, len(c.Scenarios))
	for _, s := range c.Scenarios {
		byID[s.ID] = s
	}
	return NewStaticScenarioLoader(byID)
}

func (c Catalog) ToolSource() *StaticToolScenarios {
	list := make([]domain.ToolScenario, 0, len(c.ToolScenarios))
	for _, t := range c.ToolScenarios {
		list = append(list, t.ToolScenario)
	}
	return NewStaticToolScenarios(list)
}

func (c Catalog) Checker() *StaticCommandChecker {
	checker := NewStaticCommandChecker()
	for _, t := range c.ToolScenarios {
		checker.Add(t.ID, t.Solution, t.Explanation)
	}
	return checker
}
