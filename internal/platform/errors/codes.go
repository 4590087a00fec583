// Package errors provides structured error handling with i18n support.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Generic storage/authorization errors
	CodeNotFound        Code = "NOT_FOUND"
	CodeForbidden       Code = "FORBIDDEN"
	CodeConflict        Code = "CONFLICT"
	CodeValidation      Code = "VALIDATION"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// Chat errors
	CodeChatNameEmpty          Code = "CHAT_NAME_EMPTY"
	CodeChatInvalidKind        Code = "CHAT_INVALID_KIND"
	CodeChatPrivateMemberLimit Code = "CHAT_PRIVATE_MEMBER_LIMIT"
	CodeChatOwnerOnly          Code = "CHAT_OWNER_ONLY"

	// Participant errors
	CodeParticipantAlreadyMember Code = "PARTICIPANT_ALREADY_MEMBER"
	CodeParticipantNotMember     Code = "PARTICIPANT_NOT_MEMBER"
	CodeParticipantBanned        Code = "PARTICIPANT_BANNED"
	CodeParticipantInvalidRole   Code = "PARTICIPANT_INVALID_ROLE"
	CodeParticipantRoleForbidden Code = "PARTICIPANT_ROLE_FORBIDDEN"
	CodeParticipantLastOwner     Code = "PARTICIPANT_LAST_OWNER"
	CodeParticipantEmptyChatID   Code = "PARTICIPANT_EMPTY_CHAT_ID"
	CodeParticipantEmptyUserID   Code = "PARTICIPANT_EMPTY_USER_ID"

	// Message errors
	CodeMessageEmptyContent Code = "MESSAGE_EMPTY_CONTENT"
	CodeMessageInvalidType  Code = "MESSAGE_INVALID_TYPE"
	CodeMessageDeleted      Code = "MESSAGE_DELETED"
	CodeMessageAuthorOnly   Code = "MESSAGE_AUTHOR_ONLY"

	// Invite errors
	CodeInviteDuplicatePending Code = "INVITE_DUPLICATE_PENDING"
	CodeInviteNotPending       Code = "INVITE_NOT_PENDING"
	CodeInviteExpired          Code = "INVITE_EXPIRED"
	CodeInviteInviteeOnly      Code = "INVITE_INVITEE_ONLY"
	CodeInviteEmptyChatID      Code = "INVITE_EMPTY_CHAT_ID"
	CodeInviteEmptyInviteeID   Code = "INVITE_EMPTY_INVITEE_ID"

	// Auth token errors
	CodeAuthTokenInvalid Code = "AUTH_TOKEN_INVALID"
	CodeAuthTokenExpired Code = "AUTH_TOKEN_EXPIRED"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeValidation,
		CodeChatNameEmpty,
		CodeChatInvalidKind,
		CodeParticipantInvalidRole,
		CodeParticipantEmptyChatID,
		CodeParticipantEmptyUserID,
		CodeMessageEmptyContent,
		CodeMessageInvalidType,
		CodeInviteEmptyChatID,
		CodeInviteEmptyInviteeID:
		return http.StatusBadRequest

	// Unauthorized - missing or unusable identity
	case CodeUnauthenticated,
		CodeAuthTokenInvalid,
		CodeAuthTokenExpired:
		return http.StatusUnauthorized

	// Forbidden - insufficient role, banned, not a participant
	case CodeForbidden,
		CodeChatOwnerOnly,
		CodeParticipantNotMember,
		CodeParticipantBanned,
		CodeParticipantRoleForbidden,
		CodeMessageAuthorOnly,
		CodeInviteInviteeOnly:
		return http.StatusForbidden

	// Not found - entity absent or soft-deleted
	case CodeNotFound,
		CodeMessageDeleted:
		return http.StatusNotFound

	// Conflict - duplicates and state machines rejecting the transition
	case CodeConflict,
		CodeChatPrivateMemberLimit,
		CodeParticipantAlreadyMember,
		CodeParticipantLastOwner,
		CodeInviteDuplicatePending,
		CodeInviteNotPending,
		CodeInviteExpired:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
