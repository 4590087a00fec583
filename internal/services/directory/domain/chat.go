package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
	"github.com/parleyhq/parley/internal/platform/id"
)

// Kind describes the membership shape of a chat.
type Kind int

const (
	// KindUnspecified represents an invalid chat kind.
	KindUnspecified Kind = iota
	// KindPrivate is a two-party conversation with no role hierarchy.
	KindPrivate
	// KindGroup is a multi-party conversation with owner/admin/member roles.
	KindGroup
)

// PrivateChatMembers is the exact participant count of a private chat.
const PrivateChatMembers = 2

// Chat represents a conversation container.
type Chat struct {
	ID          string
	Name        string
	Description string
	Kind        Kind
	CreatorID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateChatInput describes the metadata needed to create a chat.
type CreateChatInput struct {
	Name        string
	Description string
	Kind        Kind
	CreatorID   string
}

// CreateChat creates a new chat with a generated ID and timestamps.
func CreateChat(input CreateChatInput, now func() time.Time, idGenerator func() (string, error)) (Chat, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateChatInput(input)
	if err != nil {
		return Chat{}, err
	}

	chatID, err := idGenerator()
	if err != nil {
		return Chat{}, fmt.Errorf("generate chat id: %w", err)
	}

	createdAt := now().UTC()
	return Chat{
		ID:          chatID,
		Name:        normalized.Name,
		Description: normalized.Description,
		Kind:        normalized.Kind,
		CreatorID:   normalized.CreatorID,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NormalizeCreateChatInput trims and validates chat input metadata.
func NormalizeCreateChatInput(input CreateChatInput) (CreateChatInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return CreateChatInput{}, apperrors.New(apperrors.CodeChatNameEmpty, "chat name is required")
	}
	if input.Kind != KindPrivate && input.Kind != KindGroup {
		return CreateChatInput{}, apperrors.New(apperrors.CodeChatInvalidKind, "chat kind must be private or group")
	}
	input.CreatorID = strings.TrimSpace(input.CreatorID)
	if input.CreatorID == "" {
		return CreateChatInput{}, apperrors.New(apperrors.CodeParticipantEmptyUserID, "creator user id is required")
	}
	input.Description = strings.TrimSpace(input.Description)
	return input, nil
}

// KindLabel returns the string label for a chat kind.
func KindLabel(kind Kind) string {
	switch kind {
	case KindPrivate:
		return "private"
	case KindGroup:
		return "group"
	default:
		return "unspecified"
	}
}

// KindFromLabel converts a kind label to a Kind value.
func KindFromLabel(label string) Kind {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "private":
		return KindPrivate
	case "group":
		return KindGroup
	default:
		return KindUnspecified
	}
}
