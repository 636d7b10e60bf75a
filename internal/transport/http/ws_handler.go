package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

// WSHandler streams game events and accepts answers over a websocket.
type WSHandler struct {
	answers  *app.AnswerService
	hub      *app.Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(answers *app.AnswerService, hub *app.Hub, log *slog.Logger) *WSHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WSHandler{
		answers: answers,
		hub:     hub,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request. Public events reach every client; tier-up
// events only reach the client whose userId matches.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "err", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if !visibleTo(event, userID) {
					continue
				}
				select {
				case send <- outboundMessage[any]{Type: string(event.Type), Payload: event.Payload}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// push reports false once the writer has stopped draining send.
	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}
	pushError := func(msg string) bool {
		return push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}})
	}

	alive := push(outboundMessage[any]{Type: "connected", Payload: map[string]string{"userId": userID}})
	for alive {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			if userID == "" {
				alive = pushError("userId required to answer")
				continue
			}
			var req answerRequest
			if err := json.Unmarshal(inbound.Payload, &req); err != nil {
				alive = pushError("invalid answer payload")
				continue
			}
			req.UserID = userID
			outcome, err := h.answers.SubmitAnswer(r.Context(), req.submission())
			if err != nil {
				alive = pushError(h.errorMessage(r, userID, err))
				continue
			}
			alive = push(outboundMessage[any]{Type: "answerResult", Payload: outcome})
		default:
			alive = pushError("unsupported message type")
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// errorMessage hides internal failures from the client the same way the HTTP
// handlers do.
func (h *WSHandler) errorMessage(r *http.Request, userID string, err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "ws answer failed", "user", userID, "err", err)
		return "internal error"
	}
	return err.Error()
}

func visibleTo(event domain.Event, userID string) bool {
	if event.Type != domain.EventTierUp {
		return true
	}
	change, ok := event.Payload.(domain.TierChange)
	return ok && change.UserID == userID
}
