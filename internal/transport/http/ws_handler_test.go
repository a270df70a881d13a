package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"live-quiz-service/internal/domain"
)

func dialHost(t *testing.T, serverURL, pin string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws/host?pin=" + pin
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wsReply struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func request(t *testing.T, conn *websocket.Conn, msg map[string]any) wsReply {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply wsReply
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return reply
}

func TestHostChannelCommands(t *testing.T) {
	server := newTestServer(t)
	pin := createGame(t, server.URL).GamePin
	mutate(t, server.URL, map[string]any{"action": "join", "gamePin": pin, "playerName": "Ann"})

	conn := dialHost(t, server.URL, pin)

	reply := request(t, conn, map[string]any{"id": "1", "type": "status"})
	if reply.ID != "1" || reply.Type != "status" {
		t.Fatalf("unexpected status reply: %+v", reply)
	}
	if got := reply.Payload["playerCount"]; got != float64(1) {
		t.Fatalf("expected playerCount 1, got %v", got)
	}

	reply = request(t, conn, map[string]any{"id": "2", "type": "action", "payload": map[string]any{"action": "start"}})
	if reply.ID != "2" || reply.Type != "session" {
		t.Fatalf("unexpected action reply: %+v", reply)
	}
	if got := reply.Payload["status"]; got != string(domain.StatusActive) {
		t.Fatalf("expected active session, got %v", got)
	}

	reply = request(t, conn, map[string]any{"id": "3", "type": "fetch"})
	if reply.Type != "session" || reply.Payload["gamePin"] != pin {
		t.Fatalf("unexpected fetch reply: %+v", reply)
	}

	reply = request(t, conn, map[string]any{"id": "4", "type": "action", "payload": map[string]any{"action": "dance"}})
	if reply.ID != "4" || reply.Type != "error" {
		t.Fatalf("expected error reply, got %+v", reply)
	}

	reply = request(t, conn, map[string]any{"type": "subscribe"})
	if reply.Type != "error" || reply.Payload["message"] != "unsupported message type" {
		t.Fatalf("expected unsupported type error, got %+v", reply)
	}
}

func TestHostChannelRejectsUnknownPin(t *testing.T) {
	server := newTestServer(t)
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/host?pin=000000"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response, got %v", resp)
	}
}
