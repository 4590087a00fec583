package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
)

// headerAuth resolves the acting user from a plain header so transport
// tests skip token minting.
type headerAuth struct{}

func (headerAuth) Authenticate(r *http.Request) (string, error) {
	if user := strings.TrimSpace(r.Header.Get("X-Test-User")); user != "" {
		return user, nil
	}
	if user := strings.TrimSpace(r.URL.Query().Get("access_token")); user != "" {
		return user, nil
	}
	return "", apperrors.New(apperrors.CodeUnauthenticated, "bearer token is required")
}

func newTestServer(t *testing.T) (*Server, *App) {
	t.Helper()

	app, _ := newTestApp(t)
	server, err := NewServer(app, headerAuth{})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return server, app
}

func doJSON(t *testing.T, handler http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = bytes.NewBuffer(encoded)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	rec := doJSON(t, server.Handler(), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	rec := doJSON(t, server.Handler(), http.MethodGet, "/v1/chats", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body apperrors.HTTPError
	decodeJSON(t, rec, &body)
	if body.Code != string(apperrors.CodeUnauthenticated) {
		t.Fatalf("error code = %q, want %s", body.Code, apperrors.CodeUnauthenticated)
	}
}

func TestChatLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/chats", "alice", map[string]any{
		"name": "Trip Planning",
		"kind": "group",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create chat status = %d body = %s", rec.Code, rec.Body.String())
	}
	var chat chatJSON
	decodeJSON(t, rec, &chat)
	if chat.ID == "" || chat.Kind != "group" || chat.CreatorID != "alice" {
		t.Fatalf("chat = %+v, want group created by alice", chat)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/chats/"+chat.ID+"/participants", "alice", map[string]any{
		"userId": "bob",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add participant status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/chats/"+chat.ID+"/messages", "bob", map[string]any{
		"content": "when do we leave?",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send message status = %d body = %s", rec.Code, rec.Body.String())
	}
	var sent messageJSON
	decodeJSON(t, rec, &sent)
	if sent.AuthorID != "bob" || sent.Type != "text" {
		t.Fatalf("message = %+v, want text from bob", sent)
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/chats/"+chat.ID+"/messages", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list messages status = %d body = %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Messages []messageJSON `json:"messages"`
		HasMore  bool          `json:"hasMore"`
	}
	decodeJSON(t, rec, &page)
	if len(page.Messages) != 1 || page.Messages[0].ID != sent.ID {
		t.Fatalf("messages = %+v, want the sent message", page.Messages)
	}
}

func TestForbiddenErrorsCarryDomainCodes(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/chats", "alice", map[string]any{
		"name": "Members Only",
		"kind": "group",
	})
	var chat chatJSON
	decodeJSON(t, rec, &chat)

	rec = doJSON(t, handler, http.MethodGet, "/v1/chats/"+chat.ID+"/messages", "mallory", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var body apperrors.HTTPError
	decodeJSON(t, rec, &body)
	if body.Code != string(apperrors.CodeParticipantNotMember) {
		t.Fatalf("error code = %q, want %s", body.Code, apperrors.CodeParticipantNotMember)
	}
}

func TestUnknownBodyFieldsRejected(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	rec := doJSON(t, server.Handler(), http.MethodPost, "/v1/chats", "alice", map[string]any{
		"name":     "Strict",
		"kind":     "group",
		"surprise": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchOverHTTP(t *testing.T) {
	t.Parallel()

	server, app := newTestServer(t)
	handler := server.Handler()

	chat := createGroupChat(t, app, "alice")
	rec := doJSON(t, handler, http.MethodPost, "/v1/chats/"+chat.ID+"/messages", "alice", map[string]any{
		"content": "deploy window opens at noon",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/v1/chats/%s/search?q=deploy", chat.ID), "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d body = %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Results []searchHitJSON `json:"results"`
	}
	decodeJSON(t, rec, &page)
	if len(page.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(page.Results))
	}
	if len(page.Results[0].Spans) == 0 {
		t.Fatal("expected highlight spans on the hit")
	}
}
