package app

import (
	"time"

	"github.com/parleyhq/parley/internal/services/directory/domain"
	"github.com/parleyhq/parley/internal/services/directory/search"
)

// Wire shapes for the HTTP JSON API. Enum fields travel as labels, never
// as internal integer values.

type chatJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Kind        string    `json:"kind"`
	CreatorID   string    `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toChatJSON(c domain.Chat) chatJSON {
	return chatJSON{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Kind:        domain.KindLabel(c.Kind),
		CreatorID:   c.CreatorID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type participantJSON struct {
	ChatID      string     `json:"chatId"`
	UserID      string     `json:"userId"`
	Role        string     `json:"role"`
	JoinedAt    time.Time  `json:"joinedAt"`
	BannedAt    *time.Time `json:"bannedAt,omitempty"`
	BannedUntil *time.Time `json:"bannedUntil,omitempty"`
	BanReason   string     `json:"banReason,omitempty"`
}

func toParticipantJSON(p domain.Participant) participantJSON {
	return participantJSON{
		ChatID:      p.ChatID,
		UserID:      p.UserID,
		Role:        domain.RoleLabel(p.Role),
		JoinedAt:    p.JoinedAt,
		BannedAt:    p.BannedAt,
		BannedUntil: p.BannedUntil,
		BanReason:   p.BanReason,
	}
}

type fileJSON struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

type messageJSON struct {
	ID        string     `json:"id"`
	ChatID    string     `json:"chatId"`
	AuthorID  string     `json:"authorId"`
	Content   string     `json:"content"`
	Type      string     `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
	Deleted   bool       `json:"deleted,omitempty"`
	Pinned    bool       `json:"pinned,omitempty"`
	File      *fileJSON  `json:"file,omitempty"`
}

func toMessageJSON(m domain.Message) messageJSON {
	out := messageJSON{
		ID:        m.ID,
		ChatID:    m.ChatID,
		AuthorID:  m.AuthorID,
		Content:   m.Content,
		Type:      domain.MessageTypeLabel(m.Type),
		CreatedAt: m.CreatedAt,
		EditedAt:  m.EditedAt,
		Deleted:   m.Deleted(),
		Pinned:    m.Pinned,
	}
	if m.File != nil {
		out.File = &fileJSON{
			URL:      m.File.URL,
			Name:     m.File.Name,
			Size:     m.File.Size,
			MimeType: m.File.MimeType,
		}
	}
	return out
}

type inviteJSON struct {
	ID        string     `json:"id"`
	ChatID    string     `json:"chatId"`
	InviterID string     `json:"inviterId"`
	InviteeID string     `json:"inviteeId"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toInviteJSON(inv domain.Invite) inviteJSON {
	out := inviteJSON{
		ID:        inv.ID,
		ChatID:    inv.ChatID,
		InviterID: inv.InviterID,
		InviteeID: inv.InviteeID,
		Status:    domain.InviteStatusLabel(inv.Status),
		CreatedAt: inv.CreatedAt,
	}
	if !inv.ExpiresAt.IsZero() {
		expires := inv.ExpiresAt
		out.ExpiresAt = &expires
	}
	return out
}

type adminActionJSON struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chatId"`
	AdminID    string    `json:"adminId"`
	Action     string    `json:"action"`
	TargetType string    `json:"targetType"`
	TargetID   string    `json:"targetId"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toAdminActionJSON(a domain.AdminAction) adminActionJSON {
	return adminActionJSON{
		ID:         a.ID,
		ChatID:     a.ChatID,
		AdminID:    a.AdminID,
		Action:     string(a.Action),
		TargetType: string(a.TargetType),
		TargetID:   a.TargetID,
		Reason:     a.Reason,
		CreatedAt:  a.CreatedAt,
	}
}

type searchHitJSON struct {
	Message messageJSON   `json:"message"`
	Spans   []search.Span `json:"spans"`
}

func toSearchHitsJSON(results []search.Result) []searchHitJSON {
	hits := make([]searchHitJSON, 0, len(results))
	for _, result := range results {
		hits = append(hits, searchHitJSON{
			Message: toMessageJSON(result.Message),
			Spans:   result.Spans,
		})
	}
	return hits
}
