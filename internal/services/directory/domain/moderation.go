package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/platform/id"
)

// ActionType identifies a privileged action recorded in the audit trail.
type ActionType string

const (
	// ActionRoleChange records a participant role transition.
	ActionRoleChange ActionType = "role_change"
	// ActionBan records a participant ban.
	ActionBan ActionType = "ban"
	// ActionUnban records a ban being lifted.
	ActionUnban ActionType = "unban"
	// ActionMessageModerated records a message hidden or flagged by a moderator.
	ActionMessageModerated ActionType = "message_moderated"
	// ActionParticipantRemoved records a kick.
	ActionParticipantRemoved ActionType = "participant_removed"
	// ActionChatDeleted records a chat deletion.
	ActionChatDeleted ActionType = "chat_deleted"
)

// TargetType identifies what an admin action was applied to.
type TargetType string

const (
	// TargetParticipant marks actions against a chat member.
	TargetParticipant TargetType = "participant"
	// TargetMessage marks actions against a message.
	TargetMessage TargetType = "message"
	// TargetChat marks actions against the chat itself.
	TargetChat TargetType = "chat"
)

// AdminAction is one append-only audit trail entry. Entries are never
// mutated after they are written.
type AdminAction struct {
	ID         string
	ChatID     string
	AdminID    string
	Action     ActionType
	TargetType TargetType
	TargetID   string
	Reason     string
	CreatedAt  time.Time
}

// NewAdminAction builds an audit entry with a generated ID and timestamp.
func NewAdminAction(chatID, adminID string, action ActionType, targetType TargetType, targetID, reason string, now func() time.Time, idGenerator func() (string, error)) (AdminAction, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	actionID, err := idGenerator()
	if err != nil {
		return AdminAction{}, fmt.Errorf("generate admin action id: %w", err)
	}

	return AdminAction{
		ID:         actionID,
		ChatID:     strings.TrimSpace(chatID),
		AdminID:    strings.TrimSpace(adminID),
		Action:     action,
		TargetType: targetType,
		TargetID:   strings.TrimSpace(targetID),
		Reason:     strings.TrimSpace(reason),
		CreatedAt:  now().UTC(),
	}, nil
}
