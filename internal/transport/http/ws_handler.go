package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"practice-engine/internal/app"
	"practice-engine/internal/client"
	"practice-engine/internal/domain"
)

// WSHandler drives one practice run per connection.
type WSHandler struct {
	service  *app.PracticeService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWSHandler(service *app.PracticeService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service:  service,
		upgrader: newUpgrader(),
		logger:   logger,
	}
}

type answerPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type questionView struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Prompt string `json:"question"`
	Points int    `json:"points"`
}

// scenarioView is the scenario as shown to the player; answers never leave the server.
type scenarioView struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Category         string            `json:"category"`
	Description      string            `json:"description,omitempty"`
	Difficulty       domain.Difficulty `json:"difficulty"`
	TimeLimitMinutes int               `json:"timeLimit"`
	TotalPoints      int               `json:"totalPoints"`
	Questions        []questionView    `json:"questions"`
	Resources        []domain.Resource `json:"resources,omitempty"`
}

type joinedPayload struct {
	Run      domain.RunSnapshot     `json:"run"`
	Scenario scenarioView           `json:"scenario"`
	Progress []domain.ProgressEntry `json:"progress"`
}

func newScenarioView(s domain.Scenario) scenarioView {
	v := scenarioView{
		ID:               s.ID,
		Title:            s.Title,
		Category:         s.Category,
		Description:      s.Description,
		Difficulty:       s.Difficulty,
		TimeLimitMinutes: s.TimeLimitMinutes,
		TotalPoints:      s.TotalPoints(),
		Questions:        make([]questionView, 0, len(s.Questions)),
		Resources:        s.Resources,
	}
	for i, q := range s.Questions {
		v.Questions = append(v.Questions, questionView{Index: i, ID: q.ID, Prompt: q.Prompt, Points: q.Points})
	}
	return v
}

// ServeWS upgrades HTTP requests to websockets and wires them into the practice run use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	scenarioID := r.URL.Query().Get("scenarioId")
	userID := r.URL.Query().Get("userId")
	if scenarioID == "" || userID == "" {
		http.Error(w, "missing scenarioId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(client.WithSession(r.Context(), r.Header.Get("Cookie")))
	defer cancel()

	snapshot, progress, err := h.service.CreateRun(ctx, scenarioID, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	runID := snapshot.RunID
	defer h.service.CloseRun(runID)

	scenario, err := h.service.Scenario(runID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: toErrorPayload(err)})
		return
	}

	updates, unsubscribe, err := h.service.Subscribe(runID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	defer unsubscribe()

	out := newWSWriter(conn, h.logger)
	closeSignals := make(chan struct{})
	updatesDone := make(chan struct{})

	out.push("joined", joinedPayload{Run: snapshot, Scenario: newScenarioView(scenario), Progress: progress})

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				out.push("state", update)
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, runID, inbound, out)
	}

	close(closeSignals)
	<-updatesDone
	out.close()
}

func (h *WSHandler) dispatch(ctx context.Context, runID string, inbound inboundMessage, out *wsWriter) {
	var err error
	switch inbound.Type {
	case "start":
		_, err = h.service.StartRun(ctx, runID)
	case "answer":
		var payload answerPayload
		if jsonErr := json.Unmarshal(inbound.Payload, &payload); jsonErr != nil {
			out.push("error", errorPayload{Code: codeInvalidRequest, Message: "invalid answer payload"})
			return
		}
		var eval domain.Evaluation
		eval, err = h.service.SubmitAnswer(ctx, runID, payload.QuestionIndex, payload.Answer)
		if err == nil {
			out.push("answerResult", eval)
		}
	case "next":
		_, err = h.service.Next(runID)
	case "previous":
		_, err = h.service.Previous(runID)
	case "goto":
		var payload gotoPayload
		if jsonErr := json.Unmarshal(inbound.Payload, &payload); jsonErr != nil {
			out.push("error", errorPayload{Code: codeInvalidRequest, Message: "invalid goto payload"})
			return
		}
		_, err = h.service.GoTo(runID, payload.Index)
	case "pause":
		_, err = h.service.Pause(runID)
	case "resume":
		_, err = h.service.Resume(runID)
	case "finish":
		_, err = h.service.Finish(runID)
	default:
		out.push("error", errorPayload{Code: codeInvalidRequest, Message: "unsupported message type"})
		return
	}
	if err != nil {
		out.pushError(err)
	}
}
