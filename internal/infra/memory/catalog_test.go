package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	data := []byte(`{
	  "scenarios": [{"id":"sc-1","title":"Recon","difficulty":"Easy","time_limit":5,
	    "questions":[{"question":"Port scanner?","correct_answer":"nmap","points":10}]}],
	  "tool_scenarios": [{"id":"t1","tool_name":"nmap","title":"SYN","command_pieces":["nmap","-sS","host"],
	    "solution":"nmap -sS host","explanation":"half-open scan"}]
	}`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s, err := c.ScenarioLoader().LoadScenario(context.Background(), "sc-1")
	if err != nil || s.Questions[0].CorrectAnswer != "nmap" || s.TimeLimitMinutes != 5 {
		t.Fatalf("unexpected scenario %+v %v", s, err)
	}
	tools, err := c.ToolSource().ListToolScenarios(context.Background(), "nmap")
	if err != nil || len(tools) != 1 || len(tools[0].CommandPieces) != 3 {
		t.Fatalf("unexpected tools %+v %v", tools, err)
	}
	res, err := c.Checker().CheckCommand(context.Background(), "t1", "nmap -sS host")
	if err != nil || !res.IsCorrect {
		t.Fatalf("expected correct, got %+v %v", res, err)
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error")
	}
}
