package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"practice-engine/internal/domain"
)

// CommandChecker asks the backend whether an assembled command solves a tool scenario.
type CommandChecker interface {
	CheckCommand(ctx context.Context, scenarioID, command string) (domain.CheckResult, error)
}

// ToolGameOption customizes a ToolGame.
type ToolGameOption func(*ToolGame)

func WithToolClock(now func() time.Time) ToolGameOption {
	return func(g *ToolGame) { g.now = now }
}

// OnComplete registers a callback that receives the number of correctly solved scenarios
// once the last one is passed. Callbacks run in registration order, outside the game's lock.
func OnComplete(fn func(correct, total int)) ToolGameOption {
	return func(g *ToolGame) { g.onComplete = append(g.onComplete, fn) }
}

// ToolGame walks a user through a tool's command-building scenarios.
type ToolGame struct {
	tool      string
	scenarios []domain.ToolScenario
	checker   CommandChecker
	now       func() time.Time

	mu         sync.Mutex
	index      int
	assembler  *Assembler
	started    time.Time
	correct    int
	solved     map[int]bool
	last       *domain.CheckResult
	checking   bool
	finished   bool
	onComplete []func(correct, total int)
}

func NewToolGame(tool string, scenarios []domain.ToolScenario, checker CommandChecker, opts ...ToolGameOption) (*ToolGame, error) {
	if len(scenarios) == 0 {
		return nil, domain.ErrNoToolScenarios
	}
	g := &ToolGame{
		tool:      tool,
		scenarios: scenarios,
		checker:   checker,
		now:       time.Now,
		solved:    make(map[int]bool),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.assembler = NewAssembler(scenarios[0].CommandPieces)
	g.started = g.now()
	return g, nil
}

// Place moves a token from the available pool onto the end of the command.
func (g *ToolGame) Place(piece string, from int) (domain.ToolGameState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.editableLocked(); err != nil {
		return g.stateLocked(), err
	}
	err := g.assembler.Place(piece, from)
	return g.stateLocked(), err
}

// Unplace moves a token from the command back to the available pool.
func (g *ToolGame) Unplace(at int) (domain.ToolGameState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.editableLocked(); err != nil {
		return g.stateLocked(), err
	}
	err := g.assembler.Unplace(at)
	return g.stateLocked(), err
}

// Reset puts every token of the current scenario back into the available pool.
func (g *ToolGame) Reset() (domain.ToolGameState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.editableLocked(); err != nil {
		return g.stateLocked(), err
	}
	g.assembler.Reset(g.scenarios[g.index].CommandPieces)
	return g.stateLocked(), nil
}

// Retry clears the last verdict and the assembly so the current scenario can be tried again.
func (g *ToolGame) Retry() (domain.ToolGameState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.editableLocked(); err != nil {
		return g.stateLocked(), err
	}
	g.last = nil
	g.assembler.Reset(g.scenarios[g.index].CommandPieces)
	return g.stateLocked(), nil
}

// Skip moves on without credit for the current scenario.
func (g *ToolGame) Skip() (domain.ToolGameState, error) {
	g.mu.Lock()
	if err := g.editableLocked(); err != nil {
		state := g.stateLocked()
		g.mu.Unlock()
		return state, err
	}
	g.last = nil
	done := g.advanceLocked()
	state := g.stateLocked()
	correct := g.correct
	g.mu.Unlock()

	if done {
		g.complete(correct)
	}
	return state, nil
}

// Submit sends the assembled command to the checker. The lock is not held during the call.
// A correct command advances to the next scenario; an incorrect one keeps the assembly for
// another attempt.
func (g *ToolGame) Submit(ctx context.Context) (domain.CheckResult, domain.ToolGameState, error) {
	g.mu.Lock()
	if err := g.editableLocked(); err != nil {
		state := g.stateLocked()
		g.mu.Unlock()
		return domain.CheckResult{}, state, err
	}
	command := g.assembler.Command()
	if strings.TrimSpace(command) == "" {
		state := g.stateLocked()
		g.mu.Unlock()
		return domain.CheckResult{}, state, domain.ErrEmptyCommand
	}
	index := g.index
	scenario := g.scenarios[index]
	started := g.started
	g.checking = true
	g.mu.Unlock()

	result, err := g.checker.CheckCommand(ctx, scenario.ID, command)

	g.mu.Lock()
	g.checking = false
	if err != nil {
		state := g.stateLocked()
		g.mu.Unlock()
		return domain.CheckResult{}, state, fmt.Errorf("check command for scenario %s: %w", scenario.ID, err)
	}

	result.ScenarioID = scenario.ID
	result.Command = command
	result.TimeTaken = int(g.now().Sub(started) / time.Second)
	g.last = &result

	done := false
	if result.IsCorrect {
		if !g.solved[index] {
			g.solved[index] = true
			g.correct++
		}
		done = g.advanceLocked()
	}
	state := g.stateLocked()
	correct := g.correct
	g.mu.Unlock()

	if done {
		g.complete(correct)
	}
	return result, state, nil
}

func (g *ToolGame) complete(correct int) {
	for _, fn := range g.onComplete {
		fn(correct, len(g.scenarios))
	}
}

func (g *ToolGame) State() domain.ToolGameState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked()
}

func (g *ToolGame) editableLocked() error {
	if g.finished {
		return domain.ErrGameFinished
	}
	if g.checking {
		return domain.ErrCheckInFlight
	}
	return nil
}

func (g *ToolGame) advanceLocked() bool {
	g.index++
	if g.index >= len(g.scenarios) {
		g.index = len(g.scenarios)
		g.finished = true
		g.assembler.Reset(nil)
		return true
	}
	g.assembler.Reset(g.scenarios[g.index].CommandPieces)
	g.started = g.now()
	return false
}

func (g *ToolGame) stateLocked() domain.ToolGameState {
	state := domain.ToolGameState{
		Tool:          g.tool,
		ScenarioIndex: g.index,
		Total:         len(g.scenarios),
		Available:     g.assembler.Available(),
		Placed:        g.assembler.Placed(),
		Command:       g.assembler.Command(),
		CorrectCount:  g.correct,
		Checking:      g.checking,
		Finished:      g.finished,
	}
	if !g.finished {
		sc := g.scenarios[g.index]
		state.Scenario = &sc
	}
	if g.last != nil {
		last := *g.last
		state.LastResult = &last
	}
	return state
}
