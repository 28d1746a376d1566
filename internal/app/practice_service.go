package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"practice-engine/internal/domain"
)

// RunRepository abstracts where live runs are kept (in-memory, Redis-marked, etc).
type RunRepository interface {
	Put(run *Run)
	Get(runID string) (*Run, bool)
	Delete(runID string)
}

// ScenarioRepository loads scenario content (from cache/backing store).
type ScenarioRepository interface {
	GetScenario(ctx context.Context, scenarioID string) (domain.Scenario, error)
}

// ToolScenarioSource lists the command-building scenarios of a tool.
type ToolScenarioSource interface {
	ListToolScenarios(ctx context.Context, tool string) ([]domain.ToolScenario, error)
}

// ProgressRecorder persists a finished run.
type ProgressRecorder interface {
	RecordRun(ctx context.Context, result domain.RunResult) error
}

// ProgressReader returns the user's earlier completions.
type ProgressReader interface {
	ListProgress(ctx context.Context, userID string) ([]domain.ProgressEntry, error)
}

// RunPublisher announces finished runs to other services.
type RunPublisher interface {
	PublishRunFinished(ctx context.Context, result domain.RunResult) error
}

// Observer receives counters about engine activity.
type Observer interface {
	RunStarted()
	RunFinished(reason domain.FinishReason)
	AnswerEvaluated(correct bool)
	CommandChecked(correct bool)
	SaveFailed()
}

type nopObserver struct{}

func (nopObserver) RunStarted() {}
func (nopObserver) RunFinished(domain.FinishReason) {}
func (nopObserver) AnswerEvaluated(bool) {}
func (nopObserver) CommandChecked(bool) {}
func (nopObserver) SaveFailed() {}

// ServiceOption customizes a PracticeService.
type ServiceOption func(*PracticeService)

func WithToolPractice(source ToolScenarioSource, checker CommandChecker) ServiceOption {
	return func(s *PracticeService) {
		s.tools = source
		s.checker = checker
	}
}

func WithProgress(recorder ProgressRecorder, reader ProgressReader) ServiceOption {
	return func(s *PracticeService) {
		s.recorder = recorder
		s.progress = reader
	}
}

func WithPublisher(p RunPublisher) ServiceOption {
	return func(s *PracticeService) { s.publisher = p }
}

func WithObserver(o Observer) ServiceOption {
	return func(s *PracticeService) { s.observer = o }
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *PracticeService) { s.logger = l }
}

// WithSaveRetry sets how many times a finished run is offered to the recorder and the
// backoff between attempts.
func WithSaveRetry(attempts int, policy func() backoff.BackOff) ServiceOption {
	return func(s *PracticeService) {
		if attempts > 0 {
			s.saveAttempts = attempts
		}
		if policy != nil {
			s.backoff = policy
		}
	}
}

func WithSaveTimeout(d time.Duration) ServiceOption {
	return func(s *PracticeService) { s.saveTimeout = d }
}

// WithRunOptions applies opts to every run the service creates.
func WithRunOptions(opts ...RunOption) ServiceOption {
	return func(s *PracticeService) { s.runOpts = append(s.runOpts, opts...) }
}

// PracticeService contains the practice use cases: hosting runs and tool games.
type PracticeService struct {
	runs      RunRepository
	scenarios ScenarioRepository
	tools     ToolScenarioSource
	checker   CommandChecker
	recorder  ProgressRecorder
	progress  ProgressReader
	publisher RunPublisher
	observer  Observer
	logger    *slog.Logger

	saveAttempts int
	saveTimeout  time.Duration
	backoff      func() backoff.BackOff
	runOpts      []RunOption
	newID        func() string
}

func NewPracticeService(runs RunRepository, scenarios ScenarioRepository, opts ...ServiceOption) *PracticeService {
	s := &PracticeService{
		runs:         runs,
		scenarios:    scenarios,
		observer:     nopObserver{},
		logger:       slog.Default(),
		saveAttempts: 3,
		saveTimeout:  10 * time.Second,
		backoff:      func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRun loads the scenario and registers a not-yet-started run for the user, together
// with the user's earlier progress on that scenario. Values carried by ctx (such as the
// user's API session) are kept for persisting the result.
func (s *PracticeService) CreateRun(ctx context.Context, scenarioID, userID string) (domain.RunSnapshot, []domain.ProgressEntry, error) {
	scenario, err := s.scenarios.GetScenario(ctx, scenarioID)
	if err != nil {
		return domain.RunSnapshot{}, nil, err
	}
	if len(scenario.Questions) == 0 {
		return domain.RunSnapshot{}, nil, domain.ErrNoQuestions
	}

	prior := s.priorProgress(ctx, userID, scenario.ID)

	opts := append([]RunOption{WithUser(userID)}, s.runOpts...)
	run := NewRun(s.newID(), scenario, opts...)
	persistCtx := context.WithoutCancel(ctx)
	run.OnFinish(func(result domain.RunResult) {
		s.observer.RunFinished(result.Reason)
		go s.persist(persistCtx, run, result)
	})
	s.runs.Put(run)

	s.logger.Info("run created", "run_id", run.ID(), "scenario_id", scenario.ID, "user_id", userID)
	return run.Snapshot(), prior, nil
}

// Scenario returns the scenario a run is playing.
func (s *PracticeService) Scenario(runID string) (domain.Scenario, error) {
	run, err := s.run(runID)
	if err != nil {
		return domain.Scenario{}, err
	}
	return run.Scenario(), nil
}

// StartRun starts the countdown. The ticker stops when ctx is done.
func (s *PracticeService) StartRun(ctx context.Context, runID string) (domain.RunSnapshot, error) {
	run, err := s.run(runID)
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	if err := run.Start(ctx); err != nil {
		return run.Snapshot(), err
	}
	s.observer.RunStarted()
	return run.Snapshot(), nil
}

// SubmitAnswer evaluates an answer for a question of the run.
func (s *PracticeService) SubmitAnswer(_ context.Context, runID string, questionIndex int, answer string) (domain.Evaluation, error) {
	run, err := s.run(runID)
	if err != nil {
		return domain.Evaluation{}, err
	}
	eval, err := run.Submit(questionIndex, answer)
	if err != nil {
		if fault := run.Err(); fault != nil {
			s.logger.Error("run aborted", "run_id", runID, "error", fault)
			s.observer.RunFinished(domain.FinishAborted)
		}
		return eval, err
	}
	s.observer.AnswerEvaluated(eval.IsCorrect)
	return eval, nil
}

func (s *PracticeService) Next(runID string) (domain.RunSnapshot, error) {
	run, err := s.run(runID)
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	run.Next()
	return run.Snapshot(), nil
}

func (s *PracticeService) Previous(runID string) (domain.RunSnapshot, error) {
	run, err := s.run(runID)
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	run.Previous()
	return run.Snapshot(), nil
}

func (s *PracticeService) GoTo(runID string, index int) (domain.RunSnapshot, error) {
	run, err := s.run(runID)
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	_, err = run.GoTo(index)
	return run.Snapshot(), err
}

func (s *PracticeService) Pause(runID string) (domain.RunSnapshot, error) {
	run, err := s.run(runID)
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	err = run.Pause()
	return run.Snapshot(), err
}

func (s *PracticeService) Resume(runID string) (domain.RunSnapshot, error) {
	run, err := s.run(runID)
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	err = run.Resume()
	return run.Snapshot(), err
}

// Finish is the user's explicit finish on the last question.
func (s *PracticeService) Finish(runID string) (domain.RunSnapshot, error) {
	run, err := s.run(runID)
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	err = run.Finish()
	return run.Snapshot(), err
}

func (s *PracticeService) Snapshot(runID string) (domain.RunSnapshot, error) {
	run, err := s.run(runID)
	if err != nil {
		return domain.RunSnapshot{}, err
	}
	return run.Snapshot(), nil
}

// Subscribe returns a channel that receives run snapshots.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *PracticeService) Subscribe(runID string) (<-chan domain.RunSnapshot, func(), error) {
	run, err := s.run(runID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := run.Subscribe()
	return ch, cancel, nil
}

// CloseRun tears a run down when its front-end goes away. A finished run keeps saving in
// the background.
func (s *PracticeService) CloseRun(runID string) {
	run, ok := s.runs.Get(runID)
	if !ok {
		return
	}
	run.Close()
	s.runs.Delete(runID)
}

// StartToolGame loads the tool's scenarios and returns a fresh game. opts let the host add
// its own completion callback next to the service's.
func (s *PracticeService) StartToolGame(ctx context.Context, tool string, opts ...ToolGameOption) (*ToolGame, error) {
	if s.tools == nil || s.checker == nil {
		return nil, domain.ErrNoToolScenarios
	}
	scenarios, err := s.tools.ListToolScenarios(ctx, tool)
	if err != nil {
		return nil, err
	}
	logger := s.logger
	base := []ToolGameOption{
		OnComplete(func(correct, total int) {
			logger.Info("tool practice completed", "tool", tool, "correct", correct, "total", total)
		}),
	}
	return NewToolGame(tool, scenarios, observedChecker{s.checker, s.observer}, append(base, opts...)...)
}

func (s *PracticeService) run(runID string) (*Run, error) {
	run, ok := s.runs.Get(runID)
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}

func (s *PracticeService) priorProgress(ctx context.Context, userID, scenarioID string) []domain.ProgressEntry {
	if s.progress == nil {
		return nil
	}
	entries, err := s.progress.ListProgress(ctx, userID)
	if err != nil {
		s.logger.Warn("load progress failed", "user_id", userID, "error", err)
		return nil
	}
	out := make([]domain.ProgressEntry, 0, 1)
	for _, e := range entries {
		if e.ScenarioID == scenarioID {
			out = append(out, e)
		}
	}
	return out
}

// persist delivers the result with retries and reports the outcome on the run, so a lost
// score is visible to the user instead of only in the logs.
func (s *PracticeService) persist(ctx context.Context, run *Run, result domain.RunResult) {
	if s.recorder == nil {
		run.MarkSaved(nil)
		return
	}

	attempts := s.saveAttempts
	policy := backoff.WithContext(backoff.WithMaxRetries(s.backoff(), uint64(attempts-1)), ctx)
	err := backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.saveTimeout)
		defer cancel()
		err := s.recorder.RecordRun(attemptCtx, result)
		if err != nil && !errors.Is(err, domain.ErrNetwork) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)

	run.MarkSaved(err)
	if err != nil {
		s.observer.SaveFailed()
		s.logger.Error("save run failed", "run_id", result.RunID, "scenario_id", result.ScenarioID, "error", err)
		return
	}
	s.logger.Info("run saved", "run_id", result.RunID, "scenario_id", result.ScenarioID,
		"score", result.Score.Percentage, "reason", result.Reason)

	if s.publisher != nil {
		if err := s.publisher.PublishRunFinished(ctx, result); err != nil {
			s.logger.Warn("publish run finished failed", "run_id", result.RunID, "error", err)
		}
	}
}

type observedChecker struct {
	CommandChecker
	observer Observer
}

func (c observedChecker) CheckCommand(ctx context.Context, scenarioID, command string) (domain.CheckResult, error) {
	res, err := c.CommandChecker.CheckCommand(ctx, scenarioID, command)
	if err == nil {
		c.observer.CommandChecked(res.IsCorrect)
	}
	return res, err
}
