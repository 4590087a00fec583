package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
	"github.com/parleyhq/parley/internal/platform/id"
)

// InviteStatus represents the lifecycle status of a chat invite.
type InviteStatus int

const (
	// InviteStatusUnspecified represents an invalid invite status.
	InviteStatusUnspecified InviteStatus = iota
	// InviteStatusPending indicates an invite awaiting the invitee's response.
	InviteStatusPending
	// InviteStatusAccepted indicates the invitee joined the chat.
	InviteStatusAccepted
	// InviteStatusDeclined indicates the invitee refused.
	InviteStatusDeclined
	// InviteStatusExpired indicates the invite lapsed before a response.
	InviteStatusExpired
)

// Invite is a pending offer of chat membership. Transitions run
// pending -> accepted|declined|expired and are irreversible.
type Invite struct {
	ID        string
	ChatID    string
	InviterID string
	InviteeID string
	Status    InviteStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether a pending invite has lapsed at the given instant.
// A zero ExpiresAt never expires.
func (i Invite) Expired(now time.Time) bool {
	if i.ExpiresAt.IsZero() {
		return false
	}
	return now.After(i.ExpiresAt)
}

// CreateInviteInput describes the metadata needed to create an invite.
type CreateInviteInput struct {
	ChatID    string
	InviterID string
	InviteeID string
	ExpiresAt time.Time
}

// CreateInvite creates a new pending invite with a generated ID and timestamps.
func CreateInvite(input CreateInviteInput, now func() time.Time, idGenerator func() (string, error)) (Invite, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateInviteInput(input)
	if err != nil {
		return Invite{}, err
	}

	inviteID, err := idGenerator()
	if err != nil {
		return Invite{}, fmt.Errorf("generate invite id: %w", err)
	}

	createdAt := now().UTC()
	return Invite{
		ID:        inviteID,
		ChatID:    normalized.ChatID,
		InviterID: normalized.InviterID,
		InviteeID: normalized.InviteeID,
		Status:    InviteStatusPending,
		ExpiresAt: normalized.ExpiresAt,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}

// NormalizeCreateInviteInput trims and validates invite input metadata.
func NormalizeCreateInviteInput(input CreateInviteInput) (CreateInviteInput, error) {
	input.ChatID = strings.TrimSpace(input.ChatID)
	if input.ChatID == "" {
		return CreateInviteInput{}, apperrors.New(apperrors.CodeInviteEmptyChatID, "chat id is required")
	}
	input.InviterID = strings.TrimSpace(input.InviterID)
	if input.InviterID == "" {
		return CreateInviteInput{}, apperrors.New(apperrors.CodeParticipantEmptyUserID, "inviter user id is required")
	}
	input.InviteeID = strings.TrimSpace(input.InviteeID)
	if input.InviteeID == "" {
		return CreateInviteInput{}, apperrors.New(apperrors.CodeInviteEmptyInviteeID, "invitee user id is required")
	}
	if !input.ExpiresAt.IsZero() {
		input.ExpiresAt = input.ExpiresAt.UTC()
	}
	return input, nil
}

// InviteStatusLabel returns the string label for an invite status.
func InviteStatusLabel(status InviteStatus) string {
	switch status {
	case InviteStatusPending:
		return "pending"
	case InviteStatusAccepted:
		return "accepted"
	case InviteStatusDeclined:
		return "declined"
	case InviteStatusExpired:
		return "expired"
	default:
		return "unspecified"
	}
}

// InviteStatusFromLabel converts a status label to an InviteStatus value.
func InviteStatusFromLabel(label string) InviteStatus {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "pending":
		return InviteStatusPending
	case "accepted":
		return InviteStatusAccepted
	case "declined":
		return InviteStatusDeclined
	case "expired":
		return InviteStatusExpired
	default:
		return InviteStatusUnspecified
	}
}
