package client

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"practice-engine/internal/domain"
)

// envelope is the backend's {success, data, message} wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (e envelope) empty() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) == 0 || bytes.Equal(d, []byte("null"))
}

// flexID accepts ids encoded as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// flexInt accepts integers encoded as JSON numbers or numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*f = flexInt(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*f = flexInt(n)
	}
	return nil
}

type scenarioDTO struct {
	ID          flexID        `json:"id"`
	Title       string        `json:"title"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	Difficulty  string        `json:"difficulty"`
	TimeLimit   flexInt       `json:"time_limit"`
	Questions   []questionDTO `json:"questions"`
	Resources   []resourceDTO `json:"resources"`
}

type questionDTO struct {
	ID            flexID  `json:"id"`
	Question      string  `json:"question"`
	CorrectAnswer string  `json:"correct_answer"`
	Points        flexInt `json:"points"`
	Explanation   string  `json:"explanation"`
	Hint          string  `json:"hint"`
}

type resourceDTO struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (s scenarioDTO) toDomain() domain.Scenario {
	out := domain.Scenario{
		ID:               string(s.ID),
		Title:            s.Title,
		Category:         s.Category,
		Description:      s.Description,
		Difficulty:       domain.ParseDifficulty(s.Difficulty),
		TimeLimitMinutes: int(s.TimeLimit),
		Questions:        make([]domain.Question, 0, len(s.Questions)),
	}
	for _, q := range s.Questions {
		out.Questions = append(out.Questions, domain.Question{
			ID:            string(q.ID),
			Prompt:        q.Question,
			CorrectAnswer: q.CorrectAnswer,
			Points:        int(q.Points),
			Explanation:   q.Explanation,
			Hint:          q.Hint,
		})
	}
	for _, r := range s.Resources {
		out.Resources = append(out.Resources, domain.Resource{
			Type:        domain.ParseResourceType(r.Type),
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		})
	}
	return out
}

type progressDTO struct {
	ScenarioID  flexID     `json:"scenario_id"`
	Score       flexInt    `json:"score"`
	IsCompleted bool       `json:"is_completed"`
	TimeTaken   flexInt    `json:"time_taken"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (p progressDTO) toDomain() domain.ProgressEntry {
	return domain.ProgressEntry{
		ScenarioID:  string(p.ScenarioID),
		Score:       int(p.Score),
		IsCompleted: p.IsCompleted,
		TimeTaken:   int(p.TimeTaken),
		CompletedAt: p.CompletedAt,
	}
}

type toolScenarioDTO struct {
	ID            flexID   `json:"id"`
	ToolName      string   `json:"tool_name"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	CommandPieces []string `json:"command_pieces"`
	Hint          string   `json:"hint"`
	Difficulty    string   `json:"difficulty"`
}

func (t toolScenarioDTO) toDomain() domain.ToolScenario {
	return domain.ToolScenario{
		ID:            string(t.ID),
		ToolName:      t.ToolName,
		Title:         t.Title,
		Task:          t.Description,
		CommandPieces: t.CommandPieces,
		Hint:          t.Hint,
		Difficulty:    domain.ParseDifficulty(t.Difficulty),
	}
}

type submitAnswersRequest struct {
	ScenarioID string   `json:"scenarioId"`
	Answers    []string `json:"answers"`
}

type checkCommandRequest struct {
	ScenarioID       string `json:"scenarioId"`
	SubmittedCommand string `json:"submittedCommand"`
}

type checkCommandResponse struct {
	Success     bool   `json:"success"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation"`
	Message     string `json:"message"`
}
