package app

import (
	"fmt"
	"math"

	"practice-engine/internal/domain"
)

// ComputeScore attributes each question's points when its stored answer is correct and
// returns round(100 * earned / max). A scenario worth zero points scores 0.
func ComputeScore(scenario domain.Scenario, answers map[int]domain.AnswerRecord) (domain.ScoreResult, error) {
	n := len(scenario.Questions)
	for idx := range answers {
		if idx < 0 || idx >= n {
			return domain.ScoreResult{}, fmt.Errorf("score answer %d: %w", idx, domain.ErrQuestionOutOfRange)
		}
	}

	result := domain.ScoreResult{PerQuestion: make([]domain.QuestionScore, 0, n)}
	for i, q := range scenario.Questions {
		points := q.Points
		if points < 0 {
			points = 0
		}
		qs := domain.QuestionScore{Index: i, Max: points}
		if answers[i].IsCorrect {
			qs.Correct = true
			qs.Earned = points
		}
		result.Earned += qs.Earned
		result.Max += qs.Max
		result.PerQuestion = append(result.PerQuestion, qs)
	}

	if result.Max > 0 {
		result.Percentage = int(math.Round(100 * float64(result.Earned) / float64(result.Max)))
	}
	return result, nil
}
