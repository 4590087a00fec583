package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
	"github.com/parleyhq/parley/internal/platform/timeouts"
)

// Server exposes the directory operations over HTTP JSON plus the /ws
// realtime endpoint.
type Server struct {
	app  *App
	auth Authenticator
	mux  *http.ServeMux
}

// NewServer wires routes for an App behind an Authenticator.
func NewServer(app *App, auth Authenticator) (*Server, error) {
	if app == nil {
		return nil, errors.New("app is required")
	}
	if auth == nil {
		return nil, errors.New("authenticator is required")
	}
	s := &Server{app: app, auth: auth, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.mux.Handle("POST /v1/chats", s.authed(s.handleCreateChat))
	s.mux.Handle("GET /v1/chats", s.authed(s.handleListChats))
	s.mux.Handle("GET /v1/chats/{chatID}", s.authed(s.handleGetChat))
	s.mux.Handle("PATCH /v1/chats/{chatID}", s.authed(s.handleUpdateChat))
	s.mux.Handle("DELETE /v1/chats/{chatID}", s.authed(s.handleDeleteChat))
	s.mux.Handle("GET /v1/chats/{chatID}/capabilities", s.authed(s.handleCapabilities))

	s.mux.Handle("GET /v1/chats/{chatID}/participants", s.authed(s.handleListParticipants))
	s.mux.Handle("POST /v1/chats/{chatID}/participants", s.authed(s.handleAddParticipant))
	s.mux.Handle("DELETE /v1/chats/{chatID}/participants/{userID}", s.authed(s.handleRemoveParticipant))
	s.mux.Handle("PUT /v1/chats/{chatID}/participants/{userID}/role", s.authed(s.handleUpdateRole))
	s.mux.Handle("POST /v1/chats/{chatID}/participants/{userID}/ban", s.authed(s.handleBanUser))
	s.mux.Handle("POST /v1/chats/{chatID}/participants/{userID}/unban", s.authed(s.handleUnbanUser))

	s.mux.Handle("POST /v1/chats/{chatID}/messages", s.authed(s.handleSendMessage))
	s.mux.Handle("GET /v1/chats/{chatID}/messages", s.authed(s.handleListMessages))
	s.mux.Handle("GET /v1/chats/{chatID}/messages/pinned", s.authed(s.handleListPinned))
	s.mux.Handle("PATCH /v1/messages/{messageID}", s.authed(s.handleEditMessage))
	s.mux.Handle("DELETE /v1/messages/{messageID}", s.authed(s.handleDeleteMessage))
	s.mux.Handle("POST /v1/chats/{chatID}/messages/{messageID}/pin", s.authed(s.handlePinMessage))
	s.mux.Handle("DELETE /v1/chats/{chatID}/messages/{messageID}/pin", s.authed(s.handleUnpinMessage))
	s.mux.Handle("POST /v1/chats/{chatID}/messages/{messageID}/moderate", s.authed(s.handleModerateMessage))
	s.mux.Handle("GET /v1/chats/{chatID}/admin-actions", s.authed(s.handleListAdminActions))

	s.mux.Handle("POST /v1/chats/{chatID}/invites", s.authed(s.handleCreateInvite))
	s.mux.Handle("GET /v1/invites", s.authed(s.handleListInvites))
	s.mux.Handle("GET /v1/invites/{inviteID}", s.authed(s.handleGetInvite))
	s.mux.Handle("POST /v1/invites/{inviteID}/respond", s.authed(s.handleRespondToInvite))
	s.mux.Handle("DELETE /v1/invites/{inviteID}", s.authed(s.handleRemoveInvite))

	s.mux.Handle("GET /v1/search", s.authed(s.handleSearchGlobal))
	s.mux.Handle("GET /v1/chats/{chatID}/search", s.authed(s.handleSearchInChat))

	s.mux.Handle("/ws", s.wsHandler())
}

// authedHandler receives the authenticated acting user alongside the
// request.
type authedHandler func(w http.ResponseWriter, r *http.Request, actingUserID string)

func (s *Server) authed(next authedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actingUserID, err := s.auth.Authenticate(r)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Request)
		defer cancel()
		next(w, r.WithContext(ctx), actingUserID)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := apperrors.ToHTTP(err, apperrors.DefaultLocale)
	if status >= http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	writeJSON(w, status, body)
}

func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, fmt.Sprintf("invalid request body: %v", err), err)
	}
	return nil
}
