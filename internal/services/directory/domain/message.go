package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
	"github.com/parleyhq/parley/internal/platform/id"
)

// MessageType describes the payload carried by a message.
type MessageType int

const (
	// MessageTypeUnspecified represents an invalid message type.
	MessageTypeUnspecified MessageType = iota
	// MessageTypeText is a plain text message.
	MessageTypeText
	// MessageTypeImage references an uploaded image.
	MessageTypeImage
	// MessageTypeFile references an uploaded file.
	MessageTypeFile
	// MessageTypeVoice references an uploaded voice note.
	MessageTypeVoice
	// MessageTypeVideo references an uploaded video.
	MessageTypeVideo
)

// FileMetadata describes an already-uploaded attachment. Upload and storage
// happen upstream; the directory only records the reference.
type FileMetadata struct {
	URL      string
	Name     string
	Size     int64
	MimeType string
}

// Message is a chat message. Deletion is a soft delete: DeletedAt set means
// clients see only a tombstone.
type Message struct {
	ID              string
	ChatID          string
	AuthorID        string
	Content         string
	Type            MessageType
	CreatedAt       time.Time
	EditedAt        *time.Time
	DeletedAt       *time.Time
	Pinned          bool
	File            *FileMetadata
	ClientMessageID string
}

// Deleted reports whether the message has been soft-deleted.
func (m Message) Deleted() bool {
	return m.DeletedAt != nil
}

// Tombstone strips content and attachment data for client delivery while
// keeping identity and ordering fields intact so pagination stays stable.
func (m Message) Tombstone() Message {
	m.Content = ""
	m.File = nil
	m.Pinned = false
	return m
}

// CreateMessageInput describes the metadata needed to create a message.
type CreateMessageInput struct {
	ChatID          string
	AuthorID        string
	Content         string
	Type            MessageType
	File            *FileMetadata
	ClientMessageID string
}

// CreateMessage creates a new message with a generated ID and timestamp.
// Content may be empty only when a file attachment is present.
func CreateMessage(input CreateMessageInput, now func() time.Time, idGenerator func() (string, error)) (Message, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateMessageInput(input)
	if err != nil {
		return Message{}, err
	}

	messageID, err := idGenerator()
	if err != nil {
		return Message{}, fmt.Errorf("generate message id: %w", err)
	}

	return Message{
		ID:              messageID,
		ChatID:          normalized.ChatID,
		AuthorID:        normalized.AuthorID,
		Content:         normalized.Content,
		Type:            normalized.Type,
		CreatedAt:       now().UTC(),
		File:            normalized.File,
		ClientMessageID: normalized.ClientMessageID,
	}, nil
}

// NormalizeCreateMessageInput trims and validates message input metadata.
func NormalizeCreateMessageInput(input CreateMessageInput) (CreateMessageInput, error) {
	input.ChatID = strings.TrimSpace(input.ChatID)
	if input.ChatID == "" {
		return CreateMessageInput{}, apperrors.New(apperrors.CodeParticipantEmptyChatID, "chat id is required")
	}
	input.AuthorID = strings.TrimSpace(input.AuthorID)
	if input.AuthorID == "" {
		return CreateMessageInput{}, apperrors.New(apperrors.CodeParticipantEmptyUserID, "author user id is required")
	}
	input.Content = strings.TrimSpace(input.Content)
	if input.Content == "" && input.File == nil {
		return CreateMessageInput{}, apperrors.New(apperrors.CodeMessageEmptyContent, "message content or file attachment is required")
	}
	if input.Type == MessageTypeUnspecified {
		input.Type = MessageTypeText
	}
	if MessageTypeLabel(input.Type) == "unspecified" {
		return CreateMessageInput{}, apperrors.New(apperrors.CodeMessageInvalidType, "message type is invalid")
	}
	input.ClientMessageID = strings.TrimSpace(input.ClientMessageID)
	return input, nil
}

// MessageTypeLabel returns the string label for a message type.
func MessageTypeLabel(t MessageType) string {
	switch t {
	case MessageTypeText:
		return "text"
	case MessageTypeImage:
		return "image"
	case MessageTypeFile:
		return "file"
	case MessageTypeVoice:
		return "voice"
	case MessageTypeVideo:
		return "video"
	default:
		return "unspecified"
	}
}

// MessageTypeFromLabel converts a message type label to its value.
func MessageTypeFromLabel(label string) MessageType {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "text":
		return MessageTypeText
	case "image":
		return MessageTypeImage
	case "file":
		return MessageTypeFile
	case "voice":
		return MessageTypeVoice
	case "video":
		return MessageTypeVideo
	default:
		return MessageTypeUnspecified
	}
}
