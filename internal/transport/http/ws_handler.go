package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 8 << 10
)

// WSHandler gives a host screen a persistent command channel for one session.
// Every inbound message gets exactly one reply; nothing is pushed unasked.
type WSHandler struct {
	service  *app.GameService
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type actionPayload struct {
	Action        string   `json:"action"`
	PlayerName    string   `json:"playerName"`
	QuestionIndex *int     `json:"questionIndex"`
	Answer        *int     `json:"answer"`
	TimeSpent     *float64 `json:"timeSpent"`
}

type outboundMessage struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades GET /ws/host?pin= and serves fetch, status and action requests.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	pin := strings.TrimSpace(r.URL.Query().Get("pin"))
	if _, err := h.service.Status(r.Context(), pin); err != nil {
		writeError(w, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).WithField("pin", pin).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.WithField("pin", pin)
	log.Debug("host connected")

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	// Single writer: gorilla connections allow one concurrent writer.
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-send:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					log.WithError(err).Debug("ws write failed")
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("ws read failed")
			}
			break
		}
		reply := h.dispatch(r, pin, inbound)
		reply.ID = inbound.ID
		select {
		case send <- reply:
		case <-writerDone:
		}
	}

	close(send)
	<-writerDone
	log.Debug("host disconnected")
}

func (h *WSHandler) dispatch(r *http.Request, pin string, msg inboundMessage) outboundMessage {
	ctx := r.Context()
	switch msg.Type {
	case "fetch":
		detail, err := h.service.GetSession(ctx, pin)
		if err != nil {
			return errorMessageFor(err)
		}
		return outboundMessage{Type: "session", Payload: detail}
	case "status":
		summary, err := h.service.Status(ctx, pin)
		if err != nil {
			return errorMessageFor(err)
		}
		return outboundMessage{Type: "status", Payload: summary}
	case "action":
		var payload actionPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return errorMessageFor(fmt.Errorf("%w: invalid action payload", domain.ErrPreconditionFailed))
		}
		req := mutateRequest{
			Action:        payload.Action,
			GamePin:       pin,
			PlayerName:    payload.PlayerName,
			QuestionIndex: payload.QuestionIndex,
			Answer:        payload.Answer,
			TimeSpent:     payload.TimeSpent,
		}
		cmd, err := app.ParseCommand(req.actionRequest())
		if err != nil {
			return errorMessageFor(err)
		}
		detail, err := h.service.Mutate(ctx, pin, cmd)
		if err != nil {
			return errorMessageFor(err)
		}
		return outboundMessage{Type: "session", Payload: detail}
	default:
		return outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}

func errorMessageFor(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: errorMessage(statusFor(err), err)}}
}
