package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
	"github.com/parleyhq/parley/internal/services/directory/domain"
)

func queryInt(r *http.Request, key string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return value
}

func queryTime(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.WithMetadata(apperrors.CodeValidation, "timestamps must be RFC 3339", map[string]string{"Field": key})
	}
	return value, nil
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request, actingUserID string) {
	var body struct {
		Name          string `json:"name"`
		Description   string `json:"description"`
		Kind          string `json:"kind"`
		CounterpartID string `json:"counterpartId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	chat, err := s.app.CreateChat(r.Context(), CreateChatRequest{
		Name:          body.Name,
		Description:   body.Description,
		Kind:          domain.KindFromLabel(body.Kind),
		CreatorID:     actingUserID,
		CounterpartID: body.CounterpartID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChatJSON(chat))
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request, actingUserID string) {
	page, err := s.app.ListChatsForUser(r.Context(), actingUserID, queryInt(r, "page"), queryInt(r, "pageSize"))
	if err != nil {
		writeError(w, err)
		return
	}
	chats := make([]chatJSON, 0, len(page.Chats))
	for _, chat := range page.Chats {
		chats = append(chats, toChatJSON(chat))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chats":    chats,
		"page":     page.Page,
		"pageSize": page.PageSize,
		"hasMore":  page.HasMore,
	})
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request, actingUserID string) {
	chat, err := s.app.GetChat(r.Context(), r.PathValue("chatID"), actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatJSON(chat))
}

func (s *Server) handleUpdateChat(w http.ResponseWriter, r *http.Request, actingUserID string) {
	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	chat, err := s.app.UpdateChat(r.Context(), UpdateChatRequest{
		ChatID:       r.PathValue("chatID"),
		ActingUserID: actingUserID,
		Name:         body.Name,
		Description:  body.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatJSON(chat))
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request, actingUserID string) {
	if err := s.app.DeleteChat(r.Context(), r.PathValue("chatID"), actingUserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request, actingUserID string) {
	capabilities, err := s.app.Authorize(r.Context(), r.PathValue("chatID"), actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{
		"canPost":        capabilities.CanPost,
		"canInvite":      capabilities.CanInvite,
		"canModerate":    capabilities.CanModerate,
		"canManageRoles": capabilities.CanManageRoles,
		"canDeleteChat":  capabilities.CanDeleteChat,
	})
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request, actingUserID string) {
	participants, err := s.app.ListParticipants(r.Context(), r.PathValue("chatID"), actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]participantJSON, 0, len(participants))
	for _, participant := range participants {
		out = append(out, toParticipantJSON(participant))
	}
	writeJSON(w, http.StatusOK, map[string]any{"participants": out})
}

func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request, actingUserID string) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	participant, err := s.app.AddParticipant(r.Context(), r.PathValue("chatID"), body.UserID, actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toParticipantJSON(participant))
}

func (s *Server) handleRemoveParticipant(w http.ResponseWriter, r *http.Request, actingUserID string) {
	if err := s.app.RemoveParticipant(r.Context(), r.PathValue("chatID"), r.PathValue("userID"), actingUserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request, actingUserID string) {
	var body struct {
		Role string `json:"role"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	participant, err := s.app.UpdateRole(r.Context(), r.PathValue("chatID"), r.PathValue("userID"), domain.RoleFromLabel(body.Role), actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipantJSON(participant))
}

func (s *Server) handleBanUser(w http.ResponseWriter, r *http.Request, actingUserID string) {
	var body struct {
		Reason string     `json:"reason"`
		Until  *time.Time `json:"until"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	participant, err := s.app.BanUser(r.Context(), r.PathValue("chatID"), r.PathValue("userID"), body.Reason, body.Until, actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipantJSON(participant))
}

func (s *Server) handleUnbanUser(w http.ResponseWriter, r *http.Request, actingUserID string) {
	participant, err := s.app.UnbanUser(r.Context(), r.PathValue("chatID"), r.PathValue("userID"), actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipantJSON(participant))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, actingUserID string) {
	var body struct {
		Content         string    `json:"content"`
		Type            string    `json:"type"`
		ClientMessageID string    `json:"clientMessageId"`
		File            *fileJSON `json:"file"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req := SendMessageRequest{
		ChatID:          r.PathValue("chatID"),
		AuthorID:        actingUserID,
		Content:         body.Content,
		Type:            domain.MessageTypeFromLabel(body.Type),
		ClientMessageID: body.ClientMessageID,
	}
	if body.Type == "" {
		req.Type = domain.MessageTypeText
	}
	if body.File != nil {
		req.File = &domain.FileMetadata{
			URL:      body.File.URL,
			Name:     body.File.Name,
			Size:     body.File.Size,
			MimeType: body.File.MimeType,
		}
	}
	msg, err := s.app.SendMessage(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageJSON(msg))
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request, actingUserID string) {
	page, err := s.app.ListMessages(r.Context(), r.PathValue("chatID"), actingUserID, queryInt(r, "page"), queryInt(r, "pageSize"))
	if err != nil {
		writeError(w, err)
		return
	}
	messages := make([]messageJSON, 0, len(page.Messages))
	for _, msg := range page.Messages {
		messages = append(messages, toMessageJSON(msg))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"page":     page.Page,
		"pageSize": page.PageSize,
		"hasMore":  page.HasMore,
	})
}

func (s *Server) handleListPinned(w http.ResponseWriter, r *http.Request, actingUserID string) {
	pinned, err := s.app.ListPinnedMessages(r.Context(), r.PathValue("chatID"), actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	messages := make([]messageJSON, 0, len(pinned))
	for _, msg := range pinned {
		messages = append(messages, toMessageJSON(msg))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleEditMessage(w http.ResponseWriter, r *http.Request, actingUserID string) {
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	msg, err := s.app.EditMessage(r.Context(), r.PathValue("messageID"), body.Content, actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageJSON(msg))
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request, actingUserID string) {
	if err := s.app.DeleteMessage(r.Context(), r.PathValue("messageID"), actingUserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePinMessage(w http.ResponseWriter, r *http.Request, actingUserID string) {
	msg, err := s.app.PinMessage(r.Context(), r.PathValue("chatID"), r.PathValue("messageID"), actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageJSON(msg))
}

func (s *Server) handleUnpinMessage(w http.ResponseWriter, r *http.Request, actingUserID string) {
	msg, err := s.app.UnpinMessage(r.Context(), r.PathValue("chatID"), r.PathValue("messageID"), actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageJSON(msg))
}

func (s *Server) handleModerateMessage(w http.ResponseWriter, r *http.Request, actingUserID string) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := s.app.ModerateMessage(r.Context(), r.PathValue("chatID"), r.PathValue("messageID"), body.Reason, actingUserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAdminActions(w http.ResponseWriter, r *http.Request, actingUserID string) {
	actions, err := s.app.ListAdminActions(r.Context(), r.PathValue("chatID"), actingUserID, queryInt(r, "page"), queryInt(r, "pageSize"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]adminActionJSON, 0, len(actions))
	for _, action := range actions {
		out = append(out, toAdminActionJSON(action))
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": out})
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request, actingUserID string) {
	var body struct {
		InviteeID string     `json:"inviteeId"`
		ExpiresAt *time.Time `json:"expiresAt"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	var expiresAt time.Time
	if body.ExpiresAt != nil {
		expiresAt = *body.ExpiresAt
	}
	invite, err := s.app.CreateInvite(r.Context(), r.PathValue("chatID"), actingUserID, body.InviteeID, expiresAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInviteJSON(invite))
}

func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request, actingUserID string) {
	invites, err := s.app.ListInvitesForUser(r.Context(), actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]inviteJSON, 0, len(invites))
	for _, invite := range invites {
		out = append(out, toInviteJSON(invite))
	}
	writeJSON(w, http.StatusOK, map[string]any{"invites": out})
}

func (s *Server) handleGetInvite(w http.ResponseWriter, r *http.Request, actingUserID string) {
	invite, err := s.app.GetInvite(r.Context(), r.PathValue("inviteID"), actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInviteJSON(invite))
}

func (s *Server) handleRespondToInvite(w http.ResponseWriter, r *http.Request, actingUserID string) {
	var body struct {
		Accept bool `json:"accept"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	invite, err := s.app.RespondToInvite(r.Context(), r.PathValue("inviteID"), body.Accept, actingUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInviteJSON(invite))
}

func (s *Server) handleRemoveInvite(w http.ResponseWriter, r *http.Request, actingUserID string) {
	if err := s.app.RemoveInvite(r.Context(), r.PathValue("inviteID"), actingUserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func searchFiltersFromQuery(r *http.Request) (SearchFilters, error) {
	from, err := queryTime(r, "from")
	if err != nil {
		return SearchFilters{}, err
	}
	to, err := queryTime(r, "to")
	if err != nil {
		return SearchFilters{}, err
	}
	return SearchFilters{
		AuthorID: strings.TrimSpace(r.URL.Query().Get("authorId")),
		Type:     domain.MessageTypeFromLabel(r.URL.Query().Get("type")),
		From:     from,
		To:       to,
	}, nil
}

func (s *Server) handleSearchGlobal(w http.ResponseWriter, r *http.Request, actingUserID string) {
	filters, err := searchFiltersFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := s.app.SearchGlobal(r.Context(), actingUserID, r.URL.Query().Get("q"), filters, queryInt(r, "page"), queryInt(r, "pageSize"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":  toSearchHitsJSON(page.Results),
		"page":     page.Page,
		"pageSize": page.PageSize,
		"hasMore":  page.HasMore,
	})
}

func (s *Server) handleSearchInChat(w http.ResponseWriter, r *http.Request, actingUserID string) {
	filters, err := searchFiltersFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := s.app.SearchInChat(r.Context(), r.PathValue("chatID"), actingUserID, r.URL.Query().Get("q"), filters, queryInt(r, "page"), queryInt(r, "pageSize"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":  toSearchHitsJSON(page.Results),
		"page":     page.Page,
		"pageSize": page.PageSize,
		"hasMore":  page.HasMore,
	})
}
