package app

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"
)

func dialWS(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?access_token=" + userID
	conn, err := websocket.Dial(url, "", server.URL)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frameType, requestID string, payload any) {
	t.Helper()

	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	frame := wsFrame{Type: frameType, RequestID: requestID, Payload: encoded}
	if err := json.NewEncoder(conn).Encode(frame); err != nil {
		t.Fatalf("send %s: %v", frameType, err)
	}
}

// readFrame decodes the next frame, failing the test if none arrives in
// time.
func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	var frame wsFrame
	if err := json.NewDecoder(conn).Decode(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

// waitForFrame reads frames until one of the wanted type arrives.
func waitForFrame(t *testing.T, conn *websocket.Conn, frameType string) wsFrame {
	t.Helper()

	for i := 0; i < 10; i++ {
		frame := readFrame(t, conn)
		if frame.Type == frameType {
			return frame
		}
	}
	t.Fatalf("no %s frame arrived", frameType)
	return wsFrame{}
}

func TestWebSocketRequiresAuth(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
	if _, err := websocket.Dial(url, "", httpServer.URL); err == nil {
		t.Fatal("expected handshake rejection without credentials")
	}
}

func TestWebSocketJoinSendAndReceive(t *testing.T) {
	t.Parallel()

	server, app := newTestServer(t)
	chat := createGroupChat(t, app, "alice", "bob")

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	alice := dialWS(t, httpServer, "alice")
	bob := dialWS(t, httpServer, "bob")

	sendFrame(t, alice, "chat.join", "req-1", wsJoinPayload{ChatID: chat.ID})
	joined := waitForFrame(t, alice, "chat.joined")
	if joined.RequestID != "req-1" {
		t.Fatalf("joined request id = %q, want req-1", joined.RequestID)
	}
	sendFrame(t, bob, "chat.join", "req-2", wsJoinPayload{ChatID: chat.ID})
	waitForFrame(t, bob, "chat.joined")

	sendFrame(t, alice, "chat.send", "req-3", wsSendPayload{
		ChatID:          chat.ID,
		Content:         "anyone around?",
		ClientMessageID: "client-ws-1",
	})
	ack := waitForFrame(t, alice, "chat.ack")
	var acked wsAckPayload
	if err := json.Unmarshal(ack.Payload, &acked); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if acked.Status != "ok" || acked.MessageID == "" {
		t.Fatalf("ack = %+v, want ok with a message id", acked)
	}

	event := waitForFrame(t, bob, "chat.event")
	var received wsEventPayload
	if err := json.Unmarshal(event.Payload, &received); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if received.Event != "message.created" || received.Message == nil {
		t.Fatalf("event = %+v, want message.created with payload", received)
	}
	if received.Message.Content != "anyone around?" || received.Message.AuthorID != "alice" {
		t.Fatalf("message = %+v, want alice's text", received.Message)
	}
}

func TestWebSocketSendRequiresJoin(t *testing.T) {
	t.Parallel()

	server, app := newTestServer(t)
	chat := createGroupChat(t, app, "alice")

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	alice := dialWS(t, httpServer, "alice")
	sendFrame(t, alice, "chat.send", "req-1", wsSendPayload{
		ChatID:          chat.ID,
		Content:         "premature",
		ClientMessageID: "client-ws-2",
	})
	errFrame := waitForFrame(t, alice, "chat.error")
	if errFrame.RequestID != "req-1" {
		t.Fatalf("error request id = %q, want req-1", errFrame.RequestID)
	}
}

func TestWebSocketNonMemberCannotJoin(t *testing.T) {
	t.Parallel()

	server, app := newTestServer(t)
	chat := createGroupChat(t, app, "alice")

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	mallory := dialWS(t, httpServer, "mallory")
	sendFrame(t, mallory, "chat.join", "req-1", wsJoinPayload{ChatID: chat.ID})
	waitForFrame(t, mallory, "chat.error")
}

func TestWebSocketHistoryReplay(t *testing.T) {
	t.Parallel()

	server, app := newTestServer(t)
	chat := createGroupChat(t, app, "alice")
	for _, content := range []string{"first", "second", "third"} {
		if _, err := app.SendMessage(t.Context(), SendMessageRequest{
			ChatID:   chat.ID,
			AuthorID: "alice",
			Content:  content,
		}); err != nil {
			t.Fatalf("seed %s: %v", content, err)
		}
	}

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	alice := dialWS(t, httpServer, "alice")
	sendFrame(t, alice, "chat.history.before", "req-1", wsHistoryPayload{ChatID: chat.ID})

	var contents []string
	for {
		frame := readFrame(t, alice)
		if frame.Type == "chat.ack" {
			break
		}
		if frame.Type != "chat.event" {
			t.Fatalf("unexpected frame %s", frame.Type)
		}
		var event wsEventPayload
		if err := json.Unmarshal(frame.Payload, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		contents = append(contents, event.Message.Content)
	}
	want := []string{"first", "second", "third"}
	if len(contents) != len(want) {
		t.Fatalf("history = %v, want %v", contents, want)
	}
	for i := range want {
		if contents[i] != want[i] {
			t.Fatalf("history = %v, want %v", contents, want)
		}
	}
}
