package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"practice-engine/internal/app"
	"practice-engine/internal/config"
	"practice-engine/internal/domain"
)

// NewPlayCmd runs a scenario in the terminal against the same engine the run host uses.
func NewPlayCmd(configPath *string) *cobra.Command {
	var scenarioID, userID string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a practice scenario in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			st, err := buildStack(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()
			return newPlayer(st.service, cmd.InOrStdin(), cmd.OutOrStdout()).Play(cmd.Context(), scenarioID, userID)
		},
	}
	cmd.Flags().StringVar(&scenarioID, "scenario", "", "scenario id to play")
	cmd.Flags().StringVar(&userID, "user", "local", "user id recorded with the result")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

type player struct {
	service *app.PracticeService
	in      io.Reader
	out     io.Writer

	scenario domain.Scenario
	runID    string
	finished bool
}

func newPlayer(service *app.PracticeService, in io.Reader, out io.Writer) *player {
	return &player{service: service, in: in, out: out}
}

// Play drives one run: text lines are answers to the current question, lines starting with
// a colon are commands. It returns once the run is finished and its result settled, or on :quit.
func (p *player) Play(ctx context.Context, scenarioID, userID string) error {
	snap, prior, err := p.service.CreateRun(ctx, scenarioID, userID)
	if err != nil {
		return err
	}
	p.runID = snap.RunID
	defer p.service.CloseRun(p.runID)

	if p.scenario, err = p.service.Scenario(p.runID); err != nil {
		return err
	}
	updates, unsubscribe, err := p.service.Subscribe(p.runID)
	if err != nil {
		return err
	}
	defer unsubscribe()

	p.printIntro(prior)
	if snap, err = p.service.StartRun(ctx, p.runID); err != nil {
		return err
	}
	p.printQuestion(snap.CurrentIndex)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(p.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			if p.observe(snap) {
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				snap, err := p.service.Snapshot(p.runID)
				if err != nil || p.observe(snap) || snap.Phase != domain.PhaseFinished {
					return nil
				}
				continue
			}
			if quit := p.handle(line); quit {
				return nil
			}
		}
	}
}

func (p *player) handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, ":") {
		p.answer(line)
		return false
	}

	fields := strings.Fields(line)
	var (
		snap domain.RunSnapshot
		err  error
	)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Fprintln(p.out, "commands: :next :prev :goto N :pause :resume :finish :quit")
		return false
	case ":next":
		snap, err = p.service.Next(p.runID)
	case ":prev":
		snap, err = p.service.Previous(p.runID)
	case ":goto":
		if len(fields) != 2 {
			fmt.Fprintln(p.out, "usage: :goto N")
			return false
		}
		n, convErr := strconv.Atoi(fields[1])
		if convErr != nil {
			fmt.Fprintln(p.out, "usage: :goto N")
			return false
		}
		snap, err = p.service.GoTo(p.runID, n-1)
	case ":pause":
		if snap, err = p.service.Pause(p.runID); err == nil {
			fmt.Fprintln(p.out, "paused, :resume to continue")
		}
		return p.report(err)
	case ":resume":
		if snap, err = p.service.Resume(p.runID); err == nil {
			fmt.Fprintln(p.out, "resumed")
		}
		return p.report(err)
	case ":finish":
		_, err = p.service.Finish(p.runID)
		return p.report(err)
	default:
		fmt.Fprintf(p.out, "unknown command %s, try :help\n", fields[0])
		return false
	}
	if p.report(err) {
		return true
	}
	p.printQuestion(snap.CurrentIndex)
	return false
}

func (p *player) answer(text string) {
	snap, err := p.service.Snapshot(p.runID)
	if err != nil {
		p.report(err)
		return
	}
	eval, err := p.service.SubmitAnswer(context.Background(), p.runID, snap.CurrentIndex, text)
	if p.report(err) {
		return
	}
	fmt.Fprintln(p.out, eval.Message)
	if eval.Explanation != "" {
		fmt.Fprintln(p.out, "  "+eval.Explanation)
	}
	if eval.AllCorrect {
		fmt.Fprintln(p.out, "All questions solved!")
	}
}

// report prints err and says whether the session has to end.
func (p *player) report(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, domain.ErrRunNotFound):
		fmt.Fprintln(p.out, "run is gone")
		return true
	case errors.Is(err, domain.ErrRunIncomplete):
		fmt.Fprintln(p.out, "finish is available on the last question once every answer is correct")
	default:
		fmt.Fprintf(p.out, "error: %v\n", err)
	}
	return false
}

// observe prints finish and save outcomes and reports whether the session is over.
func (p *player) observe(snap domain.RunSnapshot) bool {
	if snap.Phase != domain.PhaseFinished {
		if snap.Timed && snap.Phase == domain.PhaseActive && (snap.RemainingSeconds == 60 || snap.RemainingSeconds == 10) {
			fmt.Fprintf(p.out, "%d seconds left\n", snap.RemainingSeconds)
		}
		return false
	}
	if !p.finished {
		p.finished = true
		p.printResult(snap)
	}
	switch snap.SaveStatus {
	case domain.SavePending:
		return false
	case domain.SaveSaved:
		fmt.Fprintln(p.out, "progress saved")
	case domain.SaveFailed:
		fmt.Fprintf(p.out, "progress could not be saved: %s\n", snap.SaveError)
	}
	return true
}

func (p *player) printIntro(prior []domain.ProgressEntry) {
	s := p.scenario
	fmt.Fprintf(p.out, "%s [%s] %d questions, %d points\n", s.Title, s.Difficulty, len(s.Questions), s.TotalPoints())
	if budget := s.TimeBudget(); budget > 0 {
		fmt.Fprintf(p.out, "time limit: %s\n", budget)
	}
	best := -1
	for _, e := range prior {
		if e.Score > best {
			best = e.Score
		}
	}
	if best >= 0 {
		fmt.Fprintf(p.out, "your best so far: %d%%\n", best)
	}
	fmt.Fprintln(p.out, "type an answer, or :help")
}

func (p *player) printQuestion(index int) {
	q := p.scenario.Questions[index]
	fmt.Fprintf(p.out, "\nQ%d/%d (%d pts) %s\n", index+1, len(p.scenario.Questions), q.Points, q.Prompt)
}

func (p *player) printResult(snap domain.RunSnapshot) {
	switch snap.FinishReason {
	case domain.FinishTimeout:
		fmt.Fprintln(p.out, "\ntime is up")
	case domain.FinishAborted:
		fmt.Fprintln(p.out, "\nthe run was aborted")
	default:
		fmt.Fprintln(p.out, "\nrun finished")
	}
	if snap.Score != nil {
		fmt.Fprintf(p.out, "score: %d%% (%d/%d points) in %ds\n",
			snap.Score.Percentage, snap.Score.Earned, snap.Score.Max, snap.ElapsedSeconds)
	}
}
