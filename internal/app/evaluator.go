package app

import (
	"fmt"
	"strings"

	"practice-engine/internal/domain"
)

// AnswerEvaluator judges a free-text answer locally against the question's canonical answer.
// Tool-practice commands are judged remotely through CommandChecker instead.
type AnswerEvaluator interface {
	Evaluate(q domain.Question, answer string) bool
}

// TextEvaluator is an exact-match evaluator that ignores case and surrounding whitespace.
// There is no partial credit and no fuzzy matching.
type TextEvaluator struct{}

func (TextEvaluator) Evaluate(q domain.Question, answer string) bool {
	return NormalizeAnswer(answer) == NormalizeAnswer(q.CorrectAnswer)
}

// NormalizeAnswer trims surrounding whitespace and lower-cases.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func safeEvaluate(e AnswerEvaluator, q domain.Question, answer string) (correct bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("evaluator panic: %v", p)
		}
	}()
	return e.Evaluate(q, answer), nil
}

func feedback(q domain.Question, correct bool) (string, string) {
	if correct {
		return "Correct!", q.Explanation
	}
	return "Incorrect, try again.", q.Hint
}
