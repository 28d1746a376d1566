package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"practice-engine/internal/domain"
)

// Collectors records practice activity. It satisfies app.Observer.
type Collectors struct {
	registry *prometheus.Registry

	runsStarted   prometheus.Counter
	runsFinished  *prometheus.CounterVec
	answers       *prometheus.CounterVec
	commandChecks *prometheus.CounterVec
	saveFailures  prometheus.Counter
}

func New() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collectors{
		registry: reg,
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "practice_runs_started_total",
			Help: "Total number of practice runs started",
		}),
		runsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "practice_runs_finished_total",
			Help: "Total number of practice runs finished",
		}, []string{"reason"}), // manual/timeout/all_correct/aborted
		answers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "practice_answers_total",
			Help: "Total number of evaluated answers",
		}, []string{"correct"}),
		commandChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "practice_command_checks_total",
			Help: "Total number of tool-practice command checks",
		}, []string{"correct"}),
		saveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "practice_progress_save_failures_total",
			Help: "Total number of finished runs whose progress could not be saved",
		}),
	}
}

func (c *Collectors) RunStarted() { c.runsStarted.Inc() }

func (c *Collectors) RunFinished(reason domain.FinishReason) {
	c.runsFinished.WithLabelValues(string(reason)).Inc()
}

func (c *Collectors) AnswerEvaluated(correct bool) {
	c.answers.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func (c *Collectors) CommandChecked(correct bool) {
	c.commandChecks.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func (c *Collectors) SaveFailed() { c.saveFailures.Inc() }

// Handler exposes the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
