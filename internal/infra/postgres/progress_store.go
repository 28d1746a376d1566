package postgres

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"practice-engine/internal/domain"
)

type progressRow struct {
	bun.BaseModel `bun:"table:practice_progress"`

	ID          int64     `bun:"id,pk,autoincrement"`
	RunID       string    `bun:"run_id,notnull,unique"`
	UserID      string    `bun:"user_id,notnull"`
	ScenarioID  string    `bun:"scenario_id,notnull"`
	Reason      string    `bun:"reason,notnull"`
	Score       int       `bun:"score,notnull"`
	Earned      int       `bun:"earned,notnull"`
	MaxPoints   int       `bun:"max_points,notnull"`
	IsCompleted bool      `bun:"is_completed,notnull"`
	TimeTaken   int       `bun:"time_taken,notnull"`
	Answers     []string  `bun:"answers,type:jsonb"`
	CompletedAt time.Time `bun:"completed_at,notnull"`
}

// ProgressStore keeps finished runs in the practice_progress table.
type ProgressStore struct {
	db *bun.DB
}

func NewProgressStore(db *bun.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// RecordRun inserts one row per run; recording the same run twice is a no-op.
// Database failures are reported as network errors so the caller may retry.
func (s *ProgressStore) RecordRun(ctx context.Context, result domain.RunResult) error {
	row := &progressRow{
		RunID:       result.RunID,
		UserID:      result.UserID,
		ScenarioID:  result.ScenarioID,
		Reason:      string(result.Reason),
		Score:       result.Score.Percentage,
		Earned:      result.Score.Earned,
		MaxPoints:   result.Score.Max,
		IsCompleted: result.Reason != domain.FinishAborted,
		TimeTaken:   result.TimeTaken,
		Answers:     result.Answers,
		CompletedAt: result.FinishedAt,
	}
	if row.CompletedAt.IsZero() {
		row.CompletedAt = time.Now()
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (run_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return &domain.NetworkError{Op: "record run", Err: err}
	}
	return nil
}

// ListProgress returns the user's runs, newest first.
func (s *ProgressStore) ListProgress(ctx context.Context, userID string) ([]domain.ProgressEntry, error) {
	var rows []progressRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("completed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, &domain.NetworkError{Op: "list progress", Err: err}
	}
	entries := make([]domain.ProgressEntry, 0, len(rows))
	for _, r := range rows {
		completedAt := r.CompletedAt
		entries = append(entries, domain.ProgressEntry{
			ScenarioID:  r.ScenarioID,
			Score:       r.Score,
			IsCompleted: r.IsCompleted,
			TimeTaken:   r.TimeTaken,
			CompletedAt: &completedAt,
		})
	}
	return entries, nil
}
