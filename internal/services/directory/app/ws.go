package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/net/websocket"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
	"github.com/parleyhq/parley/internal/services/directory/domain"
	"github.com/parleyhq/parley/internal/services/directory/fanout"
)

const (
	maxFramePayloadBytes    = 16 * 1024
	maxFramesPerSecond      = 20
	maxDecodeErrorsPerConn  = 5
	maxClientMessageIDRunes = 128
	maxMessageContentRunes  = 4000
)

// wsFrame is the envelope for every websocket message, inbound and
// outbound.
type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// wsSession tracks one connection's chat subscriptions.
type wsSession struct {
	userID string
	peer   *wsPeer

	mu   sync.Mutex
	subs map[string]func()
}

func newWSSession(userID string, peer *wsPeer) *wsSession {
	return &wsSession{userID: userID, peer: peer, subs: make(map[string]func())}
}

func (s *wsSession) track(chatID string, cancel func()) {
	s.mu.Lock()
	previous := s.subs[chatID]
	s.subs[chatID] = cancel
	s.mu.Unlock()
	if previous != nil {
		previous()
	}
}

func (s *wsSession) drop(chatID string) bool {
	s.mu.Lock()
	cancel, ok := s.subs[chatID]
	delete(s.subs, chatID)
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *wsSession) joined(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[chatID]
	return ok
}

func (s *wsSession) dropAll() {
	s.mu.Lock()
	cancels := make([]func(), 0, len(s.subs))
	for _, cancel := range s.subs {
		cancels = append(cancels, cancel)
	}
	s.subs = make(map[string]func())
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (s *Server) wsHandler() http.Handler {
	inner := websocket.Handler(func(conn *websocket.Conn) {
		s.handleWSConn(conn)
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		userID, err := s.auth.Authenticate(r)
		if err != nil {
			log.Printf("websocket unauthorized: remote=%s err=%v", r.RemoteAddr, err)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), wsUserIDContextKey{}, userID)
		inner.ServeHTTP(w, r.WithContext(ctx))
	})
}

type wsUserIDContextKey struct{}

func (s *Server) handleWSConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	userID := ""
	if request := conn.Request(); request != nil {
		if resolved, ok := request.Context().Value(wsUserIDContextKey{}).(string); ok {
			userID = strings.TrimSpace(resolved)
		}
	}
	if userID == "" {
		return
	}

	decoder := json.NewDecoder(conn)
	session := newWSSession(userID, newWSPeer(json.NewEncoder(conn)))
	defer session.dropAll()

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			decodeErrors++
			if writeErr := writeWSError(session.peer, "", apperrors.New(apperrors.CodeValidation, "invalid frame payload")); writeErr != nil {
				return
			}
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "payload too large"))
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "rate limit exceeded"))
			return
		}

		ctx := context.Background()
		if request := conn.Request(); request != nil {
			ctx = request.Context()
		}

		switch frame.Type {
		case "chat.join":
			s.handleJoinFrame(ctx, session, frame)
		case "chat.leave":
			s.handleLeaveFrame(session, frame)
		case "chat.send":
			s.handleSendFrame(ctx, session, frame)
		case "chat.history.before":
			s.handleHistoryFrame(ctx, session, frame)
		default:
			_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "unsupported frame type"))
		}
	}
}

type wsJoinPayload struct {
	ChatID string `json:"chat_id"`
}

type wsJoinedPayload struct {
	ChatID     string `json:"chat_id"`
	ServerTime string `json:"server_time"`
}

type wsEventPayload struct {
	Event       string           `json:"event"`
	ChatID      string           `json:"chat_id"`
	ActorID     string           `json:"actor_id,omitempty"`
	Message     *messageJSON     `json:"message,omitempty"`
	Participant *participantJSON `json:"participant,omitempty"`
	OccurredAt  string           `json:"occurred_at"`
}

type wsAckPayload struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id,omitempty"`
	Count     int    `json:"count,omitempty"`
}

func (s *Server) handleJoinFrame(ctx context.Context, session *wsSession, frame wsFrame) {
	var payload wsJoinPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "invalid join payload"))
		return
	}
	chatID := strings.TrimSpace(payload.ChatID)
	if chatID == "" {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "chat_id is required"))
		return
	}

	// Subscribing requires the same authorization as reading history.
	capabilities, err := s.app.Authorize(ctx, chatID, session.userID)
	if err != nil {
		_ = writeWSError(session.peer, frame.RequestID, err)
		return
	}
	if !capabilities.CanPost {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeParticipantBanned, "participant is banned from this chat"))
		return
	}

	events, cancelSub := s.app.Hub().Subscribe(chatID)
	done := make(chan struct{})
	cancel := func() {
		cancelSub()
		<-done
	}
	go func() {
		defer close(done)
		for event := range events {
			_ = session.peer.writeFrame(wsFrame{
				Type:    "chat.event",
				Payload: mustJSON(toWSEventPayload(event)),
			})
		}
	}()
	session.track(chatID, cancel)

	_ = session.peer.writeFrame(wsFrame{
		Type:      "chat.joined",
		RequestID: frame.RequestID,
		Payload: mustJSON(wsJoinedPayload{
			ChatID:     chatID,
			ServerTime: time.Now().UTC().Format(time.RFC3339),
		}),
	})
}

func (s *Server) handleLeaveFrame(session *wsSession, frame wsFrame) {
	var payload wsJoinPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "invalid leave payload"))
		return
	}
	session.drop(strings.TrimSpace(payload.ChatID))
	_ = session.peer.writeFrame(wsFrame{
		Type:      "chat.ack",
		RequestID: frame.RequestID,
		Payload:   mustJSON(wsAckPayload{Status: "ok"}),
	})
}

type wsSendPayload struct {
	ChatID          string `json:"chat_id"`
	Content         string `json:"content"`
	Type            string `json:"type"`
	ClientMessageID string `json:"client_message_id"`
}

func (s *Server) handleSendFrame(ctx context.Context, session *wsSession, frame wsFrame) {
	var payload wsSendPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "invalid send payload"))
		return
	}
	chatID := strings.TrimSpace(payload.ChatID)
	if chatID == "" {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "chat_id is required"))
		return
	}
	if !session.joined(chatID) {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeForbidden, "join the chat before sending"))
		return
	}
	clientMessageID := strings.TrimSpace(payload.ClientMessageID)
	if clientMessageID == "" {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "client_message_id is required"))
		return
	}
	if utf8.RuneCountInString(clientMessageID) > maxClientMessageIDRunes {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "client_message_id is too long"))
		return
	}
	if utf8.RuneCountInString(payload.Content) > maxMessageContentRunes {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "content is too long"))
		return
	}

	msgType := domain.MessageTypeText
	if strings.TrimSpace(payload.Type) != "" {
		msgType = domain.MessageTypeFromLabel(payload.Type)
	}
	msg, err := s.app.SendMessage(ctx, SendMessageRequest{
		ChatID:          chatID,
		AuthorID:        session.userID,
		Content:         payload.Content,
		Type:            msgType,
		ClientMessageID: clientMessageID,
	})
	if err != nil {
		_ = writeWSError(session.peer, frame.RequestID, err)
		return
	}

	_ = session.peer.writeFrame(wsFrame{
		Type:      "chat.ack",
		RequestID: frame.RequestID,
		Payload:   mustJSON(wsAckPayload{Status: "ok", MessageID: msg.ID}),
	})
}

type wsHistoryPayload struct {
	ChatID   string `json:"chat_id"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

func (s *Server) handleHistoryFrame(ctx context.Context, session *wsSession, frame wsFrame) {
	var payload wsHistoryPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "invalid history payload"))
		return
	}
	chatID := strings.TrimSpace(payload.ChatID)
	if chatID == "" {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.New(apperrors.CodeValidation, "chat_id is required"))
		return
	}

	page, err := s.app.ListMessages(ctx, chatID, session.userID, payload.Page, payload.PageSize)
	if err != nil {
		_ = writeWSError(session.peer, frame.RequestID, err)
		return
	}
	for _, msg := range page.Messages {
		wire := toMessageJSON(msg)
		_ = session.peer.writeFrame(wsFrame{
			Type: "chat.event",
			Payload: mustJSON(wsEventPayload{
				Event:      string(fanout.EventMessageCreated),
				ChatID:     chatID,
				ActorID:    msg.AuthorID,
				Message:    &wire,
				OccurredAt: msg.CreatedAt.Format(time.RFC3339),
			}),
		})
	}
	_ = session.peer.writeFrame(wsFrame{
		Type:      "chat.ack",
		RequestID: frame.RequestID,
		Payload:   mustJSON(wsAckPayload{Status: "ok", Count: len(page.Messages)}),
	})
}

func toWSEventPayload(event fanout.Event) wsEventPayload {
	payload := wsEventPayload{
		Event:      string(event.Type),
		ChatID:     event.ChatID,
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt.Format(time.RFC3339),
	}
	if event.Message != nil {
		wire := toMessageJSON(*event.Message)
		payload.Message = &wire
	}
	if event.Participant != nil {
		wire := toParticipantJSON(*event.Participant)
		payload.Participant = &wire
	}
	return payload
}

type wsErrorEnvelope struct {
	Error apperrors.HTTPError `json:"error"`
}

func writeWSError(peer *wsPeer, requestID string, err error) error {
	_, body := apperrors.ToHTTP(err, apperrors.DefaultLocale)
	return peer.writeFrame(wsFrame{
		Type:      "chat.error",
		RequestID: requestID,
		Payload:   mustJSON(wsErrorEnvelope{Error: body}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("marshal websocket payload: %v", err)
		return nil
	}
	return b
}
