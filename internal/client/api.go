package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"practice-engine/internal/domain"
)

// API talks to the practice backend over its JSON contract.
type API struct {
	baseURL string
	http    *http.Client
}

type Option func(*API)

func WithHTTPClient(c *http.Client) Option {
	return func(a *API) {
		if c != nil {
			a.http = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(a *API) {
		if d > 0 {
			a.http.Timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) *API {
	a := &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LoadScenario fetches one scenario. A 404, success:false or an empty payload all mean
// the scenario does not exist.
func (a *API) LoadScenario(ctx context.Context, scenarioID string) (domain.Scenario, error) {
	const op = "load scenario"
	env, status, err := a.getEnvelope(ctx, op, "/api/practice/scenarios/"+url.PathEscape(scenarioID))
	if status == http.StatusNotFound {
		return domain.Scenario{}, domain.ErrScenarioNotFound
	}
	if err != nil {
		return domain.Scenario{}, err
	}
	if !env.Success || env.empty() {
		return domain.Scenario{}, domain.ErrScenarioNotFound
	}
	var dto scenarioDTO
	if err := json.Unmarshal(env.Data, &dto); err != nil {
		return domain.Scenario{}, fmt.Errorf("%s: decode: %w", op, err)
	}
	scenario := dto.toDomain()
	if scenario.ID == "" {
		scenario.ID = scenarioID
	}
	return scenario, nil
}

// ListProgress returns the progress of the user owning the forwarded session.
func (a *API) ListProgress(ctx context.Context, _ string) ([]domain.ProgressEntry, error) {
	const op = "list progress"
	env, _, err := a.getEnvelope(ctx, op, "/api/practice/progress")
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &domain.NetworkError{Op: op, Err: errors.New(env.Message)}
	}
	if env.empty() {
		return nil, nil
	}
	var dtos []progressDTO
	if err := json.Unmarshal(env.Data, &dtos); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	out := make([]domain.ProgressEntry, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// RecordRun submits the positional answers of a finished run.
func (a *API) RecordRun(ctx context.Context, result domain.RunResult) error {
	const op = "submit answers"
	body := submitAnswersRequest{ScenarioID: result.ScenarioID, Answers: result.Answers}
	if body.Answers == nil {
		body.Answers = []string{}
	}
	var env envelope
	if _, err := a.do(ctx, op, http.MethodPost, "/api/practice/submit-answers", body, &env); err != nil {
		return err
	}
	if !env.Success {
		return &domain.NetworkError{Op: op, Err: errors.New(env.Message)}
	}
	return nil
}

// ListToolScenarios returns the command-building exercises for one tool.
func (a *API) ListToolScenarios(ctx context.Context, tool string) ([]domain.ToolScenario, error) {
	const op = "list tool scenarios"
	env, _, err := a.getEnvelope(ctx, op, "/api/tool-practice/scenarios?tool_name="+url.QueryEscape(tool))
	if err != nil {
		return nil, err
	}
	if !env.Success || env.empty() {
		return nil, domain.ErrNoToolScenarios
	}
	var dtos []toolScenarioDTO
	if err := json.Unmarshal(env.Data, &dtos); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	if len(dtos) == 0 {
		return nil, domain.ErrNoToolScenarios
	}
	out := make([]domain.ToolScenario, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// CheckCommand asks the backend to judge an assembled command.
func (a *API) CheckCommand(ctx context.Context, scenarioID, command string) (domain.CheckResult, error) {
	const op = "check command"
	var resp checkCommandResponse
	req := checkCommandRequest{ScenarioID: scenarioID, SubmittedCommand: command}
	if _, err := a.do(ctx, op, http.MethodPost, "/api/tool-practice/check", req, &resp); err != nil {
		return domain.CheckResult{}, err
	}
	if !resp.Success {
		return domain.CheckResult{}, &domain.NetworkError{Op: op, Err: errors.New(resp.Message)}
	}
	return domain.CheckResult{
		ScenarioID:  scenarioID,
		Command:     command,
		IsCorrect:   resp.IsCorrect,
		Explanation: resp.Explanation,
	}, nil
}

func (a *API) getEnvelope(ctx context.Context, op, path string) (envelope, int, error) {
	var env envelope
	status, err := a.do(ctx, op, http.MethodGet, path, nil, &env)
	return env, status, err
}

// do performs one request and decodes a 2xx body into out. Transport failures and non-2xx
// statuses come back as *domain.NetworkError along with the status code (0 when none).
func (a *API) do(ctx context.Context, op, method, path string, in, out interface{}) (int, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie := SessionFromContext(ctx); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return 0, &domain.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, &domain.NetworkError{Op: op, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, fmt.Errorf("%s: decode: %w", op, err)
	}
	return resp.StatusCode, nil
}
