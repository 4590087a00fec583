// Package storage defines persistence interfaces for the chat directory.
package storage

import (
	"context"
	"time"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
	"github.com/parleyhq/parley/internal/services/directory/domain"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity"
// states and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrDuplicatePendingInvite indicates a second pending invite was attempted
// for the same (chat, invitee) pair, which the schema forbids.
var ErrDuplicatePendingInvite = apperrors.New(apperrors.CodeInviteDuplicatePending, "pending invite already exists for invitee")

// ChatStore owns chat containers.
type ChatStore interface {
	PutChat(ctx context.Context, c domain.Chat) error
	GetChat(ctx context.Context, chatID string) (domain.Chat, error)
	// DeleteChat removes the chat row; participants cascade, messages are
	// retained for audit.
	DeleteChat(ctx context.Context, chatID string) error
	// ListChatsForUser returns a page of chats where the user participates,
	// newest first.
	ListChatsForUser(ctx context.Context, userID string, pageSize, offset int) (ChatPage, error)
}

// ChatPage describes a page of chat records.
type ChatPage struct {
	Chats   []domain.Chat
	HasMore bool
}

// ParticipantStore owns membership state, including roles and bans.
type ParticipantStore interface {
	// PutParticipant inserts or replaces a participant row.
	PutParticipant(ctx context.Context, p domain.Participant) error
	GetParticipant(ctx context.Context, chatID, userID string) (domain.Participant, error)
	DeleteParticipant(ctx context.Context, chatID, userID string) error
	ListParticipantsByChat(ctx context.Context, chatID string) ([]domain.Participant, error)
	ListChatIDsByUser(ctx context.Context, userID string) ([]string, error)
	CountParticipants(ctx context.Context, chatID string) (int, error)
}

// MessageStore owns message rows. Mutations are whole-row puts so edit,
// soft-delete, and pin flow through one code path.
type MessageStore interface {
	PutMessage(ctx context.Context, m domain.Message) error
	GetMessage(ctx context.Context, messageID string) (domain.Message, error)
	// GetMessageByClientID resolves a client-supplied idempotency token.
	GetMessageByClientID(ctx context.Context, chatID, clientMessageID string) (domain.Message, error)
	// ListMessages returns a page ordered by (created_at, id) ascending,
	// soft-deleted rows included so tombstones keep offsets stable.
	ListMessages(ctx context.Context, chatID string, pageSize, offset int) (MessagePage, error)
	ListPinnedMessages(ctx context.Context, chatID string) ([]domain.Message, error)
	// ClearPins unmarks all pinned messages of a chat. Used when a chat is
	// deleted: messages are retained, pin markers are not.
	ClearPins(ctx context.Context, chatID string) error
}

// MessagePage describes a page of message records.
type MessagePage struct {
	Messages []domain.Message
	HasMore  bool
}

// InviteStore owns invite lifecycle data.
type InviteStore interface {
	PutInvite(ctx context.Context, inv domain.Invite) error
	GetInvite(ctx context.Context, inviteID string) (domain.Invite, error)
	DeleteInvite(ctx context.Context, inviteID string) error
	ListInvitesForInvitee(ctx context.Context, userID string) ([]domain.Invite, error)
	ListInvitesByChat(ctx context.Context, chatID string) ([]domain.Invite, error)
	// ExpirePendingInvites marks past-due pending invites expired and
	// returns how many rows changed.
	ExpirePendingInvites(ctx context.Context, now time.Time) (int64, error)
}

// ModerationStore owns the append-only admin action log.
type ModerationStore interface {
	AppendAdminAction(ctx context.Context, action domain.AdminAction) error
	ListAdminActions(ctx context.Context, chatID string, pageSize, offset int) ([]domain.AdminAction, error)
}

// SearchQuery scopes a full-text candidate lookup.
type SearchQuery struct {
	ChatIDs []string
	// Needles are lowercased substrings used to prefilter candidates; a row
	// qualifies when any needle matches. Ranking happens above the store.
	Needles  []string
	AuthorID string
	Type     domain.MessageType
	From     time.Time
	To       time.Time
	Limit    int
}

// SearchStore serves candidate rows for message search.
type SearchStore interface {
	// SearchMessages returns non-deleted messages matching the query,
	// newest first, capped at Limit.
	SearchMessages(ctx context.Context, q SearchQuery) ([]domain.Message, error)
}

// Store aggregates every persistence concern of the directory service.
type Store interface {
	ChatStore
	ParticipantStore
	MessageStore
	InviteStore
	ModerationStore
	SearchStore

	// InTx runs fn against a transactional view of the store. Authorization
	// checks and the writes they guard share one transaction so concurrent
	// moderation cannot race a mutation.
	InTx(ctx context.Context, fn func(Store) error) error

	Close() error
}
