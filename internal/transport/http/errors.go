package http

import (
	"errors"

	"practice-engine/internal/domain"
)

// Stable error codes sent to front-ends.
const (
	codeNotFound       = "not_found"
	codeNetwork        = "network"
	codeNoQuestions    = "no_questions"
	codeRunNotActive   = "run_not_active"
	codeQuestionLocked = "question_locked"
	codeInvalidRequest = "invalid_request"
	codeInternal       = "internal"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrScenarioNotFound), errors.Is(err, domain.ErrRunNotFound):
		return codeNotFound
	case errors.Is(err, domain.ErrNetwork):
		return codeNetwork
	case errors.Is(err, domain.ErrNoQuestions), errors.Is(err, domain.ErrNoToolScenarios):
		return codeNoQuestions
	case errors.Is(err, domain.ErrRunNotActive), errors.Is(err, domain.ErrRunFinished),
		errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrGameFinished):
		return codeRunNotActive
	case errors.Is(err, domain.ErrQuestionLocked):
		return codeQuestionLocked
	case errors.Is(err, domain.ErrQuestionOutOfRange), errors.Is(err, domain.ErrEmptyAnswer),
		errors.Is(err, domain.ErrRunIncomplete), errors.Is(err, domain.ErrPieceOutOfRange),
		errors.Is(err, domain.ErrPieceMismatch), errors.Is(err, domain.ErrEmptyCommand),
		errors.Is(err, domain.ErrCheckInFlight):
		return codeInvalidRequest
	default:
		return codeInternal
	}
}

func toErrorPayload(err error) errorPayload {
	code := errorCode(err)
	switch code {
	case codeInternal:
		return errorPayload{Code: code, Message: "internal error"}
	case codeNetwork:
		return errorPayload{Code: code, Message: "could not reach the practice service, try again"}
	}
	return errorPayload{Code: code, Message: err.Error()}
}
