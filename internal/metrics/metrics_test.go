package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"practice-engine/internal/domain"
)

func TestCollectorsCount(t *testing.T) {
	c := New()
	c.RunStarted()
	c.RunStarted()
	c.RunFinished(domain.FinishTimeout)
	c.AnswerEvaluated(true)
	c.AnswerEvaluated(false)
	c.AnswerEvaluated(false)
	c.CommandChecked(true)
	c.SaveFailed()

	if got := testutil.ToFloat64(c.runsStarted); got != 2 {
		t.Fatalf("runs started = %v", got)
	}
	if got := testutil.ToFloat64(c.runsFinished.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("runs finished by timeout = %v", got)
	}
	if got := testutil.ToFloat64(c.answers.WithLabelValues("false")); got != 2 {
		t.Fatalf("wrong answers = %v", got)
	}
	if got := testutil.ToFloat64(c.saveFailures); got != 1 {
		t.Fatalf("save failures = %v", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	c := New()
	c.CommandChecked(false)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `practice_command_checks_total{correct="false"} 1`) {
		t.Fatalf("metric missing from output:\n%s", body)
	}
}
