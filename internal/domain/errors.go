package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrScenarioNotFound is returned when no scenario backs the requested id.
	ErrScenarioNotFound = errors.New("scenario not found")
	// ErrNetwork marks failures the user can retry: transport errors and non-2xx replies.
	ErrNetwork = errors.New("practice api unavailable")
	// ErrNoQuestions indicates a scenario loaded fine but has nothing to answer.
	ErrNoQuestions = errors.New("scenario has no questions")
	// ErrNoToolScenarios indicates the tool has no command-building exercises.
	ErrNoToolScenarios = errors.New("no tool scenarios available")

	// ErrRunNotFound is returned when a run id is unknown to the store.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunNotActive is returned for actions that need an active run.
	ErrRunNotActive = errors.New("run is not active")
	// ErrRunFinished is returned once a run has reached its terminal phase.
	ErrRunFinished = errors.New("run already finished")
	// ErrRunIncomplete rejects a manual finish before every question is solved.
	ErrRunIncomplete = errors.New("all questions must be answered correctly before finishing")
	// ErrInvalidTransition is returned for a phase change the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid run transition")

	// ErrQuestionOutOfRange indicates a question index outside the scenario.
	ErrQuestionOutOfRange = errors.New("question index out of range")
	// ErrQuestionLocked is returned when a solved question is submitted again.
	ErrQuestionLocked = errors.New("question already answered correctly")
	// ErrEmptyAnswer rejects blank submissions.
	ErrEmptyAnswer = errors.New("answer is required")

	// ErrPieceOutOfRange indicates a token index outside its pool.
	ErrPieceOutOfRange = errors.New("command piece index out of range")
	// ErrPieceMismatch indicates the piece at the index is not the one the caller expected.
	ErrPieceMismatch = errors.New("command piece does not match index")
	// ErrEmptyCommand rejects submitting an empty assembly.
	ErrEmptyCommand = errors.New("assemble a command before submitting")
	// ErrCheckInFlight rejects a submit while a previous check is still running.
	ErrCheckInFlight = errors.New("command check already in progress")
	// ErrGameFinished is returned once all tool scenarios have been played.
	ErrGameFinished = errors.New("tool practice already completed")
)

// NetworkError describes a failed call to the practice API.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is lets callers match any NetworkError with errors.Is(err, ErrNetwork).
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }
