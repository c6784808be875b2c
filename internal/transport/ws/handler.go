// Package ws exposes the conversation engine over websockets. It exists for
// local development and automated end-to-end tests; the same engine turns that
// the chat transport drives can be exercised from a plain websocket client.
package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/app"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
)

type inboundFrame struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Action string `json:"action,omitempty"`
}

type buttonFrame struct {
	Action string `json:"action"`
	Label  string `json:"label"`
}

type outboundFrame struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Buttons [][]buttonFrame `json:"buttons,omitempty"`
}

// Handler upgrades connections and feeds frames to the engine one turn at a
// time. It also keeps a connection registry so deadline reminders can be
// pushed to actors that are still connected.
type Handler struct {
	engine   *app.Engine
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[int64]chan outboundFrame
}

func NewHandler(engine *app.Engine) *Handler {
	return &Handler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[int64]chan outboundFrame),
	}
}

// Notify pushes a reminder text to the actor's open connection, if any.
// Actors without a live connection cannot receive pushes over this transport.
func (h *Handler) Notify(ctx context.Context, actorID int64, text string) error {
	h.mu.RLock()
	send, ok := h.conns[actorID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("actor %d not connected", actorID)
	}
	select {
	case send <- outboundFrame{Type: "prompt", Text: text}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeWS upgrades the request and runs the read loop until the client hangs
// up. The actor identity comes from query parameters.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundFrame, 16)
	writerDone := make(chan struct{})

	// Single writer goroutine so engine replies and reminder pushes never
	// write to the connection concurrently.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	h.register(actor.ID, send)
	defer func() {
		h.unregister(actor.ID)
		close(send)
		<-writerDone
	}()

	for {
		var in inboundFrame
		if err := conn.ReadJSON(&in); err != nil {
			return
		}

		var prompts []app.Prompt
		switch in.Type {
		case "text":
			prompts, err = h.engine.HandleText(r.Context(), actor, in.Text)
		case "action":
			prompts, err = h.engine.HandleAction(r.Context(), actor, in.Action)
		default:
			send <- outboundFrame{Type: "error", Text: "unsupported frame type"}
			continue
		}
		if err != nil {
			log.Printf("ws turn failed for actor %d: %v", actor.ID, err)
			send <- outboundFrame{Type: "error", Text: "Something went wrong, please try again."}
			continue
		}
		for _, p := range prompts {
			send <- toFrame(p)
		}
	}
}

func (h *Handler) register(actorID int64, send chan outboundFrame) {
	h.mu.Lock()
	h.conns[actorID] = send
	h.mu.Unlock()
}

func (h *Handler) unregister(actorID int64) {
	h.mu.Lock()
	delete(h.conns, actorID)
	h.mu.Unlock()
}

func actorFromQuery(r *http.Request) (domain.Participant, error) {
	rawID := r.URL.Query().Get("userId")
	name := r.URL.Query().Get("name")
	if rawID == "" || name == "" {
		return domain.Participant{}, fmt.Errorf("missing userId or name")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("bad userId: %w", err)
	}
	return domain.Participant{
		ID:          id,
		DisplayName: name,
		Username:    r.URL.Query().Get("username"),
	}, nil
}

func toFrame(p app.Prompt) outboundFrame {
	out := outboundFrame{Type: "prompt", Text: p.Text}
	for _, row := range p.Buttons {
		frameRow := make([]buttonFrame, 0, len(row))
		for _, b := range row {
			frameRow = append(frameRow, buttonFrame{Action: b.Action, Label: b.Label})
		}
		out.Buttons = append(out.Buttons, frameRow)
	}
	return out
}
