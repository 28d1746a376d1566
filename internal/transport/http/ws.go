package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// wsWriter owns all writes to a connection; gorilla connections allow one writer at a time.
type wsWriter struct {
	send chan outboundMessage
	done chan struct{}
}

func newWSWriter(conn *websocket.Conn, logger *slog.Logger) *wsWriter {
	w := &wsWriter{
		send: make(chan outboundMessage, 16),
		done: make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		for msg := range w.send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("ws write error", "error", err)
				return
			}
		}
	}()
	return w
}

// push queues a message; it gives up once the writer has stopped.
func (w *wsWriter) push(typ string, payload any) {
	select {
	case w.send <- outboundMessage{Type: typ, Payload: payload}:
	case <-w.done:
	}
}

func (w *wsWriter) pushError(err error) {
	w.push("error", toErrorPayload(err))
}

func (w *wsWriter) close() {
	close(w.send)
	<-w.done
}
