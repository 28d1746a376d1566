package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"practice-engine/internal/domain"
)

// DefaultAutoFinishDelay leaves the last "Correct!" on screen before the results replace it.
const DefaultAutoFinishDelay = time.Second

// TickerFunc starts a periodic ticker and returns its channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// RunOption customizes a Run.
type RunOption func(*Run)

// WithClock replaces time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) RunOption {
	return func(r *Run) { r.now = now }
}

// WithTicker replaces the 1-second wall clock ticker.
func WithTicker(f TickerFunc) RunOption {
	return func(r *Run) { r.newTicker = f }
}

// WithAutoFinishDelay sets the grace period between the last correct answer and auto-finish.
// Zero finishes inside the submitting call.
func WithAutoFinishDelay(d time.Duration) RunOption {
	return func(r *Run) { r.autoFinishDelay = d }
}

func WithEvaluator(e AnswerEvaluator) RunOption {
	return func(r *Run) { r.evaluator = e }
}

func WithUser(userID string) RunOption {
	return func(r *Run) { r.userID = userID }
}

// Run is one user's attempt at a scenario. Timer ticks and user actions are serialized
// by mu; the finish hook runs outside the lock exactly once.
type Run struct {
	id       string
	userID   string
	scenario domain.Scenario

	now             func() time.Time
	newTicker       TickerFunc
	evaluator       AnswerEvaluator
	autoFinishDelay time.Duration

	mu          sync.Mutex
	phase       domain.Phase
	current     int
	answers     map[int]domain.AnswerRecord
	timed       bool
	remaining   int
	elapsed     int
	startedAt   time.Time
	finishedAt  time.Time
	reason      domain.FinishReason
	score       *domain.ScoreResult
	fault       error
	saveStatus  domain.SaveStatus
	saveError   string
	timerCtx    context.Context
	timerGen    int
	stopTimer   context.CancelFunc
	autoFinish  *time.Timer
	onFinish    func(domain.RunResult)
	subscribers map[chan domain.RunSnapshot]struct{}
}

func NewRun(id string, scenario domain.Scenario, opts ...RunOption) *Run {
	r := &Run{
		id:              id,
		scenario:        scenario,
		now:             time.Now,
		newTicker:       realTicker,
		evaluator:       TextEvaluator{},
		autoFinishDelay: DefaultAutoFinishDelay,
		phase:           domain.PhaseNotStarted,
		answers:         make(map[int]domain.AnswerRecord),
		subscribers:     make(map[chan domain.RunSnapshot]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Run) ID() string { return r.id }

func (r *Run) Scenario() domain.Scenario { return r.scenario }

// OnFinish registers the hook that receives the scored result. It is not called for
// aborted or closed runs.
func (r *Run) OnFinish(fn func(domain.RunResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFinish = fn
}

// Start moves NotStarted to Active, sets the countdown from the scenario's time limit and
// starts ticking until ctx is done or the run finishes.
func (r *Run) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.phase {
	case domain.PhaseNotStarted:
	case domain.PhaseFinished:
		return domain.ErrRunFinished
	default:
		return domain.ErrInvalidTransition
	}
	if len(r.scenario.Questions) == 0 {
		return domain.ErrNoQuestions
	}

	budget := r.scenario.TimeBudget()
	r.phase = domain.PhaseActive
	r.startedAt = r.now()
	r.timed = budget > 0
	r.remaining = int(budget / time.Second)
	r.timerCtx = ctx
	r.startTickerLocked()

	r.broadcastLocked()
	return nil
}

// startTickerLocked starts a fresh ticker, so a resumed run gets a full second before its
// next tick. Ticks from an older ticker are dropped.
func (r *Run) startTickerLocked() {
	r.timerGen++
	ctx, cancel := context.WithCancel(r.timerCtx)
	r.stopTimer = cancel
	ticks, stop := r.newTicker(time.Second)
	go r.runTimer(ctx, r.timerGen, ticks, stop)
}

func (r *Run) stopTickerLocked() {
	if r.stopTimer != nil {
		r.stopTimer()
		r.stopTimer = nil
	}
}

func (r *Run) runTimer(ctx context.Context, gen int, ticks <-chan time.Time, stop func()) {
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if r.tick(gen) {
				return
			}
		}
	}
}

const anyTicker = -1

// Tick advances the clock by one second and reports whether the run is over.
// Ticks are ignored unless the run is active.
func (r *Run) Tick() bool { return r.tick(anyTicker) }

func (r *Run) tick(gen int) bool {
	r.mu.Lock()
	if gen != anyTicker && gen != r.timerGen {
		r.mu.Unlock()
		return true
	}
	if r.phase == domain.PhaseFinished {
		r.mu.Unlock()
		return true
	}
	if r.phase != domain.PhaseActive {
		r.mu.Unlock()
		return false
	}

	r.elapsed++
	if r.timed {
		r.remaining--
		if r.remaining <= 0 {
			r.remaining = 0
			result, ok := r.finishLocked(domain.FinishTimeout)
			hook := r.onFinish
			r.mu.Unlock()
			if ok && hook != nil {
				hook(result)
			}
			return true
		}
	}
	r.broadcastLocked()
	r.mu.Unlock()
	return false
}

func (r *Run) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.phase {
	case domain.PhaseActive:
		r.phase = domain.PhasePaused
		r.stopTickerLocked()
		r.broadcastLocked()
		return nil
	case domain.PhaseFinished:
		return domain.ErrRunFinished
	default:
		return domain.ErrInvalidTransition
	}
}

func (r *Run) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.phase {
	case domain.PhasePaused:
		r.phase = domain.PhaseActive
		r.startTickerLocked()
		r.broadcastLocked()
		return nil
	case domain.PhaseFinished:
		return domain.ErrRunFinished
	default:
		return domain.ErrInvalidTransition
	}
}

// Next moves the cursor forward; it stays put on the last question.
func (r *Run) Next() int { return r.move(1) }

// Previous moves the cursor back; it stays put on the first question.
func (r *Run) Previous() int { return r.move(-1) }

// GoTo jumps the cursor to index.
func (r *Run) GoTo(index int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.scenario.Questions) {
		return r.current, domain.ErrQuestionOutOfRange
	}
	if r.phase == domain.PhaseActive || r.phase == domain.PhasePaused {
		r.current = index
		r.broadcastLocked()
	}
	return r.current, nil
}

func (r *Run) move(delta int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != domain.PhaseActive && r.phase != domain.PhasePaused {
		return r.current
	}
	target := r.current + delta
	if target < 0 || target >= len(r.scenario.Questions) {
		return r.current
	}
	r.current = target
	r.broadcastLocked()
	return r.current
}

// Submit evaluates answer for question index. A solved question is locked and rejects
// further submissions. When the last open question is solved the run finishes on its own
// after the auto-finish delay.
func (r *Run) Submit(index int, answer string) (domain.Evaluation, error) {
	r.mu.Lock()

	switch r.phase {
	case domain.PhaseActive:
	case domain.PhaseFinished:
		r.mu.Unlock()
		return domain.Evaluation{}, domain.ErrRunFinished
	default:
		r.mu.Unlock()
		return domain.Evaluation{}, domain.ErrRunNotActive
	}
	if index < 0 || index >= len(r.scenario.Questions) {
		r.mu.Unlock()
		return domain.Evaluation{}, domain.ErrQuestionOutOfRange
	}
	if r.answers[index].IsCorrect {
		r.mu.Unlock()
		return domain.Evaluation{}, domain.ErrQuestionLocked
	}
	if strings.TrimSpace(answer) == "" {
		r.mu.Unlock()
		return domain.Evaluation{}, domain.ErrEmptyAnswer
	}

	q := r.scenario.Questions[index]
	correct, err := safeEvaluate(r.evaluator, q, answer)
	if err != nil {
		r.abortLocked(err)
		r.mu.Unlock()
		return domain.Evaluation{}, fmt.Errorf("evaluate question %d: %w", index, err)
	}

	r.answers[index] = domain.AnswerRecord{
		UserAnswer:  answer,
		IsCorrect:   correct,
		SubmittedAt: r.now(),
	}
	msg, detail := feedback(q, correct)
	eval := domain.Evaluation{
		QuestionIndex: index,
		IsCorrect:     correct,
		Message:       msg,
		Explanation:   detail,
		AllCorrect:    correct && r.allCorrectLocked(),
	}

	if !eval.AllCorrect {
		r.broadcastLocked()
		r.mu.Unlock()
		return eval, nil
	}

	if r.autoFinishDelay > 0 {
		if r.autoFinish == nil {
			r.autoFinish = time.AfterFunc(r.autoFinishDelay, func() {
				r.finish(domain.FinishAllCorrect)
			})
		}
		r.broadcastLocked()
		r.mu.Unlock()
		return eval, nil
	}

	result, ok := r.finishLocked(domain.FinishAllCorrect)
	hook := r.onFinish
	r.mu.Unlock()
	if ok && hook != nil {
		hook(result)
	}
	return eval, nil
}

// Finish is the user's explicit finish. It is accepted only on the last question once every
// question is solved.
func (r *Run) Finish() error {
	r.mu.Lock()
	switch r.phase {
	case domain.PhaseActive, domain.PhasePaused:
	case domain.PhaseFinished:
		r.mu.Unlock()
		return domain.ErrRunFinished
	default:
		r.mu.Unlock()
		return domain.ErrRunNotActive
	}
	if r.current != len(r.scenario.Questions)-1 || !r.allCorrectLocked() {
		r.mu.Unlock()
		return domain.ErrRunIncomplete
	}

	result, ok := r.finishLocked(domain.FinishManual)
	hook := r.onFinish
	fault := r.fault
	r.mu.Unlock()

	if !ok {
		if fault != nil {
			return fault
		}
		return domain.ErrRunFinished
	}
	if hook != nil {
		hook(result)
	}
	return nil
}

func (r *Run) finish(reason domain.FinishReason) bool {
	r.mu.Lock()
	result, ok := r.finishLocked(reason)
	hook := r.onFinish
	r.mu.Unlock()
	if ok && hook != nil {
		hook(result)
	}
	return ok
}

// finishLocked is the single transition into Finished. Only its first caller gets ok=true.
func (r *Run) finishLocked(reason domain.FinishReason) (domain.RunResult, bool) {
	if r.phase == domain.PhaseFinished || r.phase == domain.PhaseNotStarted {
		return domain.RunResult{}, false
	}
	r.stopTimersLocked()

	score, err := ComputeScore(r.scenario, r.answers)
	if err != nil {
		r.abortLocked(err)
		return domain.RunResult{}, false
	}

	r.phase = domain.PhaseFinished
	r.finishedAt = r.now()
	r.reason = reason
	r.score = &score
	if r.onFinish != nil {
		r.saveStatus = domain.SavePending
	}
	r.broadcastLocked()
	return r.resultLocked(), true
}

// Abort ends the run without scoring after an unrecoverable fault.
func (r *Run) Abort(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abortLocked(err)
}

func (r *Run) abortLocked(err error) {
	if r.phase == domain.PhaseFinished {
		return
	}
	r.stopTimersLocked()
	r.phase = domain.PhaseFinished
	r.finishedAt = r.now()
	r.reason = domain.FinishAborted
	r.fault = err
	r.broadcastLocked()
}

// Err returns the fault that aborted the run, if any.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fault
}

// Close tears the run down and cancels its ticker. An unfinished run is not scored, except
// one whose every question is solved and is only waiting out the auto-finish delay: that
// run finishes now so the score is kept. A finished run is left as is.
func (r *Run) Close() {
	r.mu.Lock()
	if r.autoFinish != nil && r.allCorrectLocked() {
		result, ok := r.finishLocked(domain.FinishAllCorrect)
		hook := r.onFinish
		r.mu.Unlock()
		if ok && hook != nil {
			hook(result)
		}
		return
	}
	r.stopTimersLocked()
	r.mu.Unlock()
}

func (r *Run) stopTimersLocked() {
	r.stopTickerLocked()
	if r.autoFinish != nil {
		r.autoFinish.Stop()
		r.autoFinish = nil
	}
}

// MarkSaved records the outcome of persisting the finished run.
func (r *Run) MarkSaved(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.saveStatus = domain.SaveFailed
		r.saveError = err.Error()
	} else {
		r.saveStatus = domain.SaveSaved
		r.saveError = ""
	}
	r.broadcastLocked()
}

func (r *Run) Snapshot() domain.RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every change, starting with the
// current one. The caller must invoke cancel.
func (r *Run) Subscribe() (<-chan domain.RunSnapshot, func()) {
	ch := make(chan domain.RunSnapshot, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	ch <- r.snapshotLocked()
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Run) broadcastLocked() {
	if len(r.subscribers) == 0 {
		return
	}
	snap := r.snapshotLocked()
	for ch := range r.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the oldest update so a slow reader never blocks the run
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (r *Run) allCorrectLocked() bool {
	for i := range r.scenario.Questions {
		if !r.answers[i].IsCorrect {
			return false
		}
	}
	return len(r.scenario.Questions) > 0
}

func (r *Run) snapshotLocked() domain.RunSnapshot {
	answers := make(map[int]domain.AnswerRecord, len(r.answers))
	for i, a := range r.answers {
		answers[i] = a
	}
	snap := domain.RunSnapshot{
		RunID:            r.id,
		ScenarioID:       r.scenario.ID,
		UserID:           r.userID,
		Phase:            r.phase,
		CurrentIndex:     r.current,
		QuestionCount:    len(r.scenario.Questions),
		Answers:          answers,
		RemainingSeconds: r.remaining,
		ElapsedSeconds:   r.elapsed,
		Timed:            r.timed,
		FinishReason:     r.reason,
		SaveStatus:       r.saveStatus,
		SaveError:        r.saveError,
		StartedAt:        r.startedAt,
		FinishedAt:       r.finishedAt,
	}
	if r.score != nil {
		score := *r.score
		snap.Score = &score
	}
	return snap
}

func (r *Run) resultLocked() domain.RunResult {
	answers := make([]string, len(r.scenario.Questions))
	for i := range answers {
		answers[i] = r.answers[i].UserAnswer
	}
	return domain.RunResult{
		RunID:      r.id,
		ScenarioID: r.scenario.ID,
		UserID:     r.userID,
		Reason:     r.reason,
		Score:      *r.score,
		Answers:    answers,
		TimeTaken:  r.elapsed,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
	}
}
