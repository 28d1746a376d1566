package domain

import (
	"strings"
	"time"
)

// Difficulty grades a scenario.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty maps loose backend spellings onto the enum; unknown values become Medium.
func ParseDifficulty(raw string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "easy", "beginner":
		return DifficultyEasy
	case "hard", "advanced":
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// ResourceType classifies a learning resource attached to a scenario.
type ResourceType string

const (
	ResourceArticle       ResourceType = "article"
	ResourceVideo         ResourceType = "video"
	ResourceTool          ResourceType = "tool"
	ResourceDocumentation ResourceType = "documentation"
	ResourceCourse        ResourceType = "course"
	ResourceOther         ResourceType = "other"
)

// ParseResourceType falls back to ResourceOther for anything it does not know.
func ParseResourceType(raw string) ResourceType {
	switch t := ResourceType(strings.ToLower(strings.TrimSpace(raw))); t {
	case ResourceArticle, ResourceVideo, ResourceTool, ResourceDocumentation, ResourceCourse:
		return t
	case "docs", "doc":
		return ResourceDocumentation
	default:
		return ResourceOther
	}
}

// Resource is a link offered next to a scenario.
type Resource struct {
	Type        ResourceType `json:"type"`
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Description string       `json:"description,omitempty"`
}

// Question is one prompt of a scenario. Its position in Scenario.Questions is its index.
type Question struct {
	ID            string `json:"id,omitempty"`
	Prompt        string `json:"question"`
	CorrectAnswer string `json:"correct_answer"`
	Points        int    `json:"points"`
	Explanation   string `json:"explanation,omitempty"`
	Hint          string `json:"hint,omitempty"`
}

// Scenario is a timed bundle of questions. It is treated as immutable once a run holds it.
type Scenario struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Category         string     `json:"category"`
	Description      string     `json:"description,omitempty"`
	Difficulty       Difficulty `json:"difficulty"`
	TimeLimitMinutes int        `json:"time_limit"`
	Questions        []Question `json:"questions"`
	Resources        []Resource `json:"resources,omitempty"`
}

// TotalPoints sums the point values of all questions.
func (s Scenario) TotalPoints() int {
	total := 0
	for _, q := range s.Questions {
		total += q.Points
	}
	return total
}

// TimeBudget is the countdown length for a run; zero means untimed.
func (s Scenario) TimeBudget() time.Duration {
	if s.TimeLimitMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TimeLimitMinutes) * time.Minute
}

// ToolScenario is one command-building exercise of the tool-practice game.
type ToolScenario struct {
	ID            string     `json:"id"`
	ToolName      string     `json:"tool_name"`
	Title         string     `json:"title"`
	Task          string     `json:"description"`
	CommandPieces []string   `json:"command_pieces"`
	Hint          string     `json:"hint,omitempty"`
	Difficulty    Difficulty `json:"difficulty,omitempty"`
}

// CheckResult is the server's verdict on an assembled command.
type CheckResult struct {
	ScenarioID  string `json:"scenarioId"`
	Command     string `json:"command"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation"`
	// TimeTaken is in whole seconds since the scenario was shown.
	TimeTaken   int    `json:"timeTaken"`
}

// ProgressEntry is a previously stored completion of a scenario.
type ProgressEntry struct {
	ScenarioID  string     `json:"scenario_id"`
	Score       int        `json:"score"`
	IsCompleted bool       `json:"is_completed"`
	TimeTaken   int        `json:"time_taken"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Phase is the lifecycle state of a run.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseActive     Phase = "active"
	PhasePaused     Phase = "paused"
	PhaseFinished   Phase = "finished"
)

// FinishReason records which path ended a run.
type FinishReason string

const (
	FinishManual     FinishReason = "manual"
	FinishTimeout    FinishReason = "timeout"
	FinishAllCorrect FinishReason = "all_correct"
	FinishAborted    FinishReason = "aborted"
)

// SaveStatus tracks delivery of a finished run to the progress store.
type SaveStatus string

const (
	SaveNone    SaveStatus = ""
	SavePending SaveStatus = "pending"
	SaveSaved   SaveStatus = "saved"
	SaveFailed  SaveStatus = "failed"
)

// AnswerRecord is the latest submission for one question.
type AnswerRecord struct {
	UserAnswer  string    `json:"userAnswer"`
	IsCorrect   bool      `json:"isCorrect"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Evaluation is the feedback for a single submission.
type Evaluation struct {
	QuestionIndex int    `json:"questionIndex"`
	IsCorrect     bool   `json:"isCorrect"`
	Message       string `json:"message"`
	Explanation   string `json:"explanation,omitempty"`
	AllCorrect    bool   `json:"allCorrect"`
}

// QuestionScore is the point attribution of one question.
type QuestionScore struct {
	Index   int  `json:"index"`
	Earned  int  `json:"earned"`
	Max     int  `json:"max"`
	Correct bool `json:"correct"`
}

// ScoreResult is the final score of a run.
type ScoreResult struct {
	Percentage  int             `json:"percentage"`
	Earned      int             `json:"earned"`
	Max         int             `json:"max"`
	PerQuestion []QuestionScore `json:"perQuestion"`
}

// RunSnapshot is a consistent, serializable view of a run.
type RunSnapshot struct {
	RunID            string               `json:"runId"`
	ScenarioID       string               `json:"scenarioId"`
	UserID           string               `json:"userId,omitempty"`
	Phase            Phase                `json:"phase"`
	CurrentIndex     int                  `json:"currentIndex"`
	QuestionCount    int                  `json:"questionCount"`
	Answers          map[int]AnswerRecord `json:"answers"`
	RemainingSeconds int                  `json:"remainingSeconds"`
	ElapsedSeconds   int                  `json:"elapsedSeconds"`
	Timed            bool                 `json:"timed"`
	FinishReason     FinishReason         `json:"finishReason,omitempty"`
	Score            *ScoreResult         `json:"score,omitempty"`
	SaveStatus       SaveStatus           `json:"saveStatus,omitempty"`
	SaveError        string               `json:"saveError,omitempty"`
	StartedAt        time.Time            `json:"startedAt,omitempty"`
	FinishedAt       time.Time            `json:"finishedAt,omitempty"`
}

// RunResult is what a finished run hands to the progress store.
type RunResult struct {
	RunID      string       `json:"runId"`
	ScenarioID string       `json:"scenarioId"`
	UserID     string       `json:"userId"`
	Reason     FinishReason `json:"reason"`
	Score      ScoreResult  `json:"score"`
	// Answers is positional; unanswered questions are empty strings.
	Answers    []string  `json:"answers"`
	TimeTaken  int       `json:"timeTaken"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// ToolGameState is a view of the tool-practice game for front-ends.
type ToolGameState struct {
	Tool          string        `json:"tool"`
	ScenarioIndex int           `json:"scenarioIndex"`
	Total         int           `json:"total"`
	Scenario      *ToolScenario `json:"scenario,omitempty"`
	Available     []string      `json:"available"`
	Placed        []string      `json:"placed"`
	Command       string        `json:"command"`
	CorrectCount  int           `json:"correctCount"`
	LastResult    *CheckResult  `json:"lastResult,omitempty"`
	Checking      bool          `json:"checking"`
	Finished      bool          `json:"finished"`
}
