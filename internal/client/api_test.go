package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"practice-engine/internal/domain"
)

func TestLoadScenarioMapsPayload(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		if r.URL.Path != "/api/practice/scenarios/7" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{
			"id":7,"title":"Recon","category":"network","difficulty":"beginner","time_limit":"10",
			"questions":[{"id":1,"question":"Scanner?","correct_answer":"nmap","points":20,"hint":"starts with n"}],
			"resources":[{"type":"video","title":"Intro","url":"https://x"},{"type":"podcast","title":"P","url":"https://y"}]}}`))
	}))
	defer srv.Close()

	api := New(srv.URL)
	ctx := WithSession(context.Background(), "sid=abc")
	s, err := api.LoadScenario(ctx, "7")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotCookie != "sid=abc" {
		t.Fatalf("expected session cookie forwarded, got %q", gotCookie)
	}
	if s.ID != "7" || s.TimeLimitMinutes != 10 || s.Difficulty != domain.DifficultyEasy {
		t.Fatalf("unexpected scenario %+v", s)
	}
	if len(s.Questions) != 1 || s.Questions[0].CorrectAnswer != "nmap" || s.Questions[0].Points != 20 || s.Questions[0].ID != "1" {
		t.Fatalf("unexpected questions %+v", s.Questions)
	}
	if s.Resources[0].Type != domain.ResourceVideo || s.Resources[1].Type != domain.ResourceOther {
		t.Fatalf("unexpected resources %+v", s.Resources)
	}
}

func TestLoadScenarioErrors(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		notFound bool
	}{
		{name: "404", status: http.StatusNotFound, body: `{}`, notFound: true},
		{name: "success false", status: http.StatusOK, body: `{"success":false,"message":"nope"}`, notFound: true},
		{name: "empty data", status: http.StatusOK, body: `{"success":true,"data":null}`, notFound: true},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "forbidden", status: http.StatusForbidden, body: `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).LoadScenario(context.Background(), "1")
			if tc.notFound {
				if !errors.Is(err, domain.ErrScenarioNotFound) {
					t.Fatalf("expected not found, got %v", err)
				}
				return
			}
			var netErr *domain.NetworkError
			if !errors.As(err, &netErr) || netErr.StatusCode != tc.status {
				t.Fatalf("expected network error with status %d, got %v", tc.status, err)
			}
		})
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL).LoadScenario(context.Background(), "1")
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestRecordRunPostsPositionalAnswers(t *testing.T) {
	var got submitAnswersRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/practice/submit-answers" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	err := New(srv.URL).RecordRun(context.Background(), domain.RunResult{
		ScenarioID: "sc-1",
		Answers:    []string{"nmap", "", "sqli"},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if got.ScenarioID != "sc-1" || len(got.Answers) != 3 || got.Answers[1] != "" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestListProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[{"scenario_id":3,"score":70,"is_completed":true,"time_taken":95}]}`))
	}))
	defer srv.Close()

	entries, err := New(srv.URL).ListProgress(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].ScenarioID != "3" || entries[0].Score != 70 || entries[0].TimeTaken != 95 {
		t.Fatalf("unexpected progress %+v", entries)
	}
}

func TestToolPracticeEndpoints(t *testing.T) {
	var check checkCommandRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tool-practice/scenarios":
			if r.URL.Query().Get("tool_name") != "nmap" {
				_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":[{"id":1,"tool_name":"nmap","title":"SYN","description":"scan","command_pieces":["nmap","-sS"]}]}`))
		case "/api/tool-practice/check":
			_ = json.NewDecoder(r.Body).Decode(&check)
			_, _ = w.Write([]byte(`{"success":true,"isCorrect":true,"explanation":"SYN scan"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	api := New(srv.URL)
	list, err := api.ListToolScenarios(context.Background(), "nmap")
	if err != nil {
		t.Fatalf("list tool scenarios: %v", err)
	}
	if len(list) != 1 || list[0].Task != "scan" || len(list[0].CommandPieces) != 2 {
		t.Fatalf("unexpected tool scenarios %+v", list)
	}
	if _, err := api.ListToolScenarios(context.Background(), "hydra"); !errors.Is(err, domain.ErrNoToolScenarios) {
		t.Fatalf("expected no scenarios, got %v", err)
	}

	res, err := api.CheckCommand(context.Background(), "1", "nmap -sS")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.IsCorrect || res.Explanation != "SYN scan" || res.Command != "nmap -sS" {
		t.Fatalf("unexpected check result %+v", res)
	}
	if check.ScenarioID != "1" || check.SubmittedCommand != "nmap -sS" {
		t.Fatalf("unexpected check body %+v", check)
	}
}
