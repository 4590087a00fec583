package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
var enUSMessages = map[Code]string{
	"UNKNOWN":         "An unexpected error occurred.",
	"NOT_FOUND":       "The requested resource was not found.",
	"FORBIDDEN":       "You do not have permission to perform this action.",
	"CONFLICT":        "The request conflicts with the current state.",
	"VALIDATION":      "The request is invalid.",
	"INVALID_STATE":   "The resource is not in a state that allows this action.",
	"UNAUTHENTICATED": "Authentication is required.",

	"CHAT_NAME_EMPTY":           "A chat name is required.",
	"CHAT_INVALID_KIND":         "The chat kind must be private or group.",
	"CHAT_PRIVATE_MEMBER_LIMIT": "A private chat holds exactly two participants.",
	"CHAT_OWNER_ONLY":           "Only the chat owner can perform this action.",

	"PARTICIPANT_ALREADY_MEMBER": "{{.UserID}} is already a member of this chat.",
	"PARTICIPANT_NOT_MEMBER":     "You are not a participant of this chat.",
	"PARTICIPANT_BANNED":         "You are banned from this chat.",
	"PARTICIPANT_INVALID_ROLE":   "The participant role is invalid.",
	"PARTICIPANT_ROLE_FORBIDDEN": "Your role does not allow this action.",
	"PARTICIPANT_LAST_OWNER":     "A group chat must keep exactly one owner.",
	"PARTICIPANT_EMPTY_CHAT_ID":  "A chat id is required.",
	"PARTICIPANT_EMPTY_USER_ID":  "A user id is required.",

	"MESSAGE_EMPTY_CONTENT": "A message needs text content or a file attachment.",
	"MESSAGE_INVALID_TYPE":  "The message type is invalid.",
	"MESSAGE_DELETED":       "This message has been deleted.",
	"MESSAGE_AUTHOR_ONLY":   "Only the message author can perform this action.",

	"INVITE_DUPLICATE_PENDING": "An invite for this user is already pending.",
	"INVITE_NOT_PENDING":       "This invite has already been responded to.",
	"INVITE_EXPIRED":           "This invite has expired.",
	"INVITE_INVITEE_ONLY":      "Only the invited user can respond to this invite.",
	"INVITE_EMPTY_CHAT_ID":     "A chat id is required.",
	"INVITE_EMPTY_INVITEE_ID":  "An invitee id is required.",

	"AUTH_TOKEN_INVALID": "The access token is invalid.",
	"AUTH_TOKEN_EXPIRED": "The access token has expired.",
}
