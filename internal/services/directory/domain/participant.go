package domain

import (
	"strings"
	"time"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
)

// Role describes a participant's privilege level within a group chat.
type Role int

const (
	// RoleUnspecified represents an invalid role value.
	RoleUnspecified Role = iota
	// RoleMember is an ordinary participant.
	RoleMember
	// RoleAdmin can moderate members and messages.
	RoleAdmin
	// RoleOwner is the single participant with full control of a group chat.
	RoleOwner
)

// Outranks reports whether r is strictly higher than other.
func (r Role) Outranks(other Role) bool {
	return r > other
}

// Moderator reports whether the role can take moderation actions.
func (r Role) Moderator() bool {
	return r == RoleAdmin || r == RoleOwner
}

// Participant binds a user to a chat, carrying role and ban state.
type Participant struct {
	ChatID      string
	UserID      string
	Role        Role
	JoinedAt    time.Time
	UpdatedAt   time.Time
	BannedAt    *time.Time
	BannedUntil *time.Time
	BanReason   string
}

// Banned reports whether the participant is banned at the given instant.
// A ban without BannedUntil is indefinite and holds until an explicit unban.
func (p Participant) Banned(now time.Time) bool {
	if p.BannedAt == nil {
		return false
	}
	if p.BannedUntil == nil {
		return true
	}
	return now.Before(*p.BannedUntil)
}

// JoinParticipantInput describes the metadata needed to add a participant.
type JoinParticipantInput struct {
	ChatID string
	UserID string
	Role   Role
}

// JoinParticipant creates a new participant row with timestamps.
func JoinParticipant(input JoinParticipantInput, now func() time.Time) (Participant, error) {
	if now == nil {
		now = time.Now
	}

	input.ChatID = strings.TrimSpace(input.ChatID)
	if input.ChatID == "" {
		return Participant{}, apperrors.New(apperrors.CodeParticipantEmptyChatID, "chat id is required")
	}
	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return Participant{}, apperrors.New(apperrors.CodeParticipantEmptyUserID, "user id is required")
	}
	if input.Role == RoleUnspecified {
		input.Role = RoleMember
	}
	if input.Role != RoleMember && input.Role != RoleAdmin && input.Role != RoleOwner {
		return Participant{}, apperrors.New(apperrors.CodeParticipantInvalidRole, "participant role is invalid")
	}

	joinedAt := now().UTC()
	return Participant{
		ChatID:    input.ChatID,
		UserID:    input.UserID,
		Role:      input.Role,
		JoinedAt:  joinedAt,
		UpdatedAt: joinedAt,
	}, nil
}

// Capabilities is the capability set resolved for a participant.
type Capabilities struct {
	CanPost        bool
	CanInvite      bool
	CanModerate    bool
	CanManageRoles bool
	CanDeleteChat  bool
}

// CapabilitiesFor resolves what a participant may do in a chat of the given
// kind at the given instant. Private chats have no role hierarchy: both
// participants can post and either may delete the conversation.
func CapabilitiesFor(p Participant, kind Kind, now time.Time) Capabilities {
	if p.Banned(now) {
		return Capabilities{}
	}
	if kind == KindPrivate {
		return Capabilities{
			CanPost:       true,
			CanDeleteChat: true,
		}
	}
	return Capabilities{
		CanPost:        true,
		CanInvite:      true,
		CanModerate:    p.Role.Moderator(),
		CanManageRoles: p.Role == RoleOwner,
		CanDeleteChat:  p.Role == RoleOwner,
	}
}

// CanRemoveParticipant reports whether an actor may kick a target.
// Self-removal is always allowed; removing others requires a moderator role
// strictly above the target's.
func CanRemoveParticipant(actor, target Participant) bool {
	if actor.ChatID == target.ChatID && actor.UserID == target.UserID {
		return true
	}
	return actor.Role.Moderator() && actor.Role.Outranks(target.Role)
}

// CanBanParticipant reports whether an actor may ban a target.
// Equal or higher roles are protected from each other.
func CanBanParticipant(actor, target Participant) bool {
	if actor.UserID == target.UserID {
		return false
	}
	return actor.Role.Moderator() && actor.Role.Outranks(target.Role)
}

// CheckRoleChange validates a role transition requested by an actor.
// Only the owner may promote to or demote from admin, and only the owner may
// transfer ownership. Demoting the owner directly is rejected; ownership
// moves only through a transfer, which keeps exactly one owner per chat.
func CheckRoleChange(actor Participant, current Participant, next Role) error {
	if next != RoleMember && next != RoleAdmin && next != RoleOwner {
		return apperrors.New(apperrors.CodeParticipantInvalidRole, "participant role is invalid")
	}
	if !actor.Role.Moderator() {
		return apperrors.New(apperrors.CodeParticipantRoleForbidden, "role changes require admin or owner")
	}
	if current.Role == RoleOwner {
		return apperrors.New(apperrors.CodeParticipantLastOwner, "ownership changes only through transfer")
	}
	if current.Role == RoleAdmin || next == RoleAdmin {
		if actor.Role != RoleOwner {
			return apperrors.New(apperrors.CodeParticipantRoleForbidden, "only the owner may change admin roles")
		}
	}
	if next == RoleOwner && actor.Role != RoleOwner {
		return apperrors.New(apperrors.CodeParticipantRoleForbidden, "only the owner may transfer ownership")
	}
	return nil
}

// RoleLabel returns the string label for a participant role.
func RoleLabel(role Role) string {
	switch role {
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	case RoleOwner:
		return "owner"
	default:
		return "unspecified"
	}
}

// RoleFromLabel converts a role label to a Role value.
func RoleFromLabel(label string) Role {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "member":
		return RoleMember
	case "admin":
		return RoleAdmin
	case "owner":
		return RoleOwner
	default:
		return RoleUnspecified
	}
}
