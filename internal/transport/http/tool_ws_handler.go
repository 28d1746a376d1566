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

// ToolWSHandler drives one tool-practice game per connection.
type ToolWSHandler struct {
	service  *app.PracticeService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewToolWSHandler(service *app.PracticeService, logger *slog.Logger) *ToolWSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolWSHandler{
		service:  service,
		upgrader: newUpgrader(),
		logger:   logger,
	}
}

type placePayload struct {
	Piece string `json:"piece"`
	Index int    `json:"index"`
}

type unplacePayload struct {
	Index int `json:"index"`
}

type completePayload struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

func (h *ToolWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tool := r.URL.Query().Get("tool")
	if tool == "" {
		http.Error(w, "missing tool", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := client.WithSession(r.Context(), r.Header.Get("Cookie"))
	session := &toolSession{}
	game, err := h.service.StartToolGame(ctx, tool, app.OnComplete(session.completed))
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: toErrorPayload(err)})
		return
	}

	out := newWSWriter(conn, h.logger)
	defer out.close()

	out.push("state", game.State())
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		h.dispatch(ctx, game, session, inbound, out)
	}
}

// toolSession holds the completion reported by the game until the final state is sent.
// The game calls back from inside Submit or Skip on the connection's read loop.
type toolSession struct {
	done *completePayload
}

func (s *toolSession) completed(correct, total int) {
	s.done = &completePayload{Correct: correct, Total: total}
}

func (h *ToolWSHandler) dispatch(ctx context.Context, game *app.ToolGame, session *toolSession, inbound inboundMessage, out *wsWriter) {
	var (
		state domain.ToolGameState
		err   error
	)
	switch inbound.Type {
	case "place":
		var payload placePayload
		if jsonErr := json.Unmarshal(inbound.Payload, &payload); jsonErr != nil {
			out.push("error", errorPayload{Code: codeInvalidRequest, Message: "invalid place payload"})
			return
		}
		state, err = game.Place(payload.Piece, payload.Index)
	case "unplace":
		var payload unplacePayload
		if jsonErr := json.Unmarshal(inbound.Payload, &payload); jsonErr != nil {
			out.push("error", errorPayload{Code: codeInvalidRequest, Message: "invalid unplace payload"})
			return
		}
		state, err = game.Unplace(payload.Index)
	case "reset":
		state, err = game.Reset()
	case "retry":
		state, err = game.Retry()
	case "skip":
		state, err = game.Skip()
	case "submit":
		var result domain.CheckResult
		result, state, err = game.Submit(ctx)
		if err == nil {
			out.push("checkResult", result)
		}
	default:
		out.push("error", errorPayload{Code: codeInvalidRequest, Message: "unsupported message type"})
		return
	}
	if err != nil {
		out.pushError(err)
		return
	}
	out.push("state", state)
	if session.done != nil {
		out.push("complete", *session.done)
		session.done = nil
	}
}
