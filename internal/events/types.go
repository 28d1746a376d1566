package events

import (
	"time"

	"github.com/google/uuid"
	"practice-engine/internal/domain"
)

type EventType string

const (
	EventTypeRunFinished EventType = "practice.run.finished"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

type RunFinishedEvent struct {
	BaseEvent
	RunID      string `json:"run_id"`
	ScenarioID string `json:"scenario_id"`
	UserID     string `json:"user_id"`
	Reason     string `json:"reason"`
	Score      int    `json:"score"`
	Earned     int    `json:"earned"`
	MaxPoints  int    `json:"max_points"`
	TimeTaken  int    `json:"time_taken"`
}

func NewRunFinishedEvent(result domain.RunResult, now time.Time) *RunFinishedEvent {
	return &RunFinishedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypeRunFinished,
			Timestamp: now.Unix(),
			Version:   "1.0",
		},
		RunID:      result.RunID,
		ScenarioID: result.ScenarioID,
		UserID:     result.UserID,
		Reason:     string(result.Reason),
		Score:      result.Score.Percentage,
		Earned:     result.Score.Earned,
		MaxPoints:  result.Score.Max,
		TimeTaken:  result.TimeTaken,
	}
}
