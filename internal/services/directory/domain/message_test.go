package domain

import (
	"testing"
	"time"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
)

func TestCreateMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	msg, err := CreateMessage(CreateMessageInput{
		ChatID:   "chat-1",
		AuthorID: "user-1",
		Content:  "  hello  ",
	}, fixedClock(now), staticID("msg-1"))
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if msg.Content != "hello" {
		t.Fatalf("content = %q", msg.Content)
	}
	if msg.Type != MessageTypeText {
		t.Fatalf("expected default text type, got %v", msg.Type)
	}
	if !msg.CreatedAt.Equal(now) {
		t.Fatal("expected created at from clock")
	}
}

func TestCreateMessageRequiresContentOrFile(t *testing.T) {
	_, err := CreateMessage(CreateMessageInput{ChatID: "c", AuthorID: "a", Content: "   "}, nil, nil)
	if !apperrors.IsCode(err, apperrors.CodeMessageEmptyContent) {
		t.Fatalf("err = %v", err)
	}

	msg, err := CreateMessage(CreateMessageInput{
		ChatID:   "c",
		AuthorID: "a",
		Type:     MessageTypeImage,
		File: &FileMetadata{
			URL:      "https://cdn.example.com/pic.png",
			Name:     "pic.png",
			Size:     2048,
			MimeType: "image/png",
		},
	}, nil, staticID("msg-2"))
	if err != nil {
		t.Fatalf("file-only message: %v", err)
	}
	if msg.File == nil || msg.File.Name != "pic.png" {
		t.Fatal("expected file metadata to persist")
	}
}

func TestCreateMessageRejectsInvalidType(t *testing.T) {
	_, err := CreateMessage(CreateMessageInput{ChatID: "c", AuthorID: "a", Content: "x", Type: MessageType(42)}, nil, nil)
	if !apperrors.IsCode(err, apperrors.CodeMessageInvalidType) {
		t.Fatalf("err = %v", err)
	}
}

func TestTombstone(t *testing.T) {
	deletedAt := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	msg := Message{
		ID:        "msg-1",
		ChatID:    "chat-1",
		AuthorID:  "user-1",
		Content:   "secret",
		Type:      MessageTypeText,
		DeletedAt: &deletedAt,
		Pinned:    true,
		File:      &FileMetadata{URL: "https://cdn.example.com/f"},
	}

	tomb := msg.Tombstone()
	if tomb.Content != "" || tomb.File != nil || tomb.Pinned {
		t.Fatalf("tombstone leaked content: %+v", tomb)
	}
	if tomb.ID != msg.ID || tomb.ChatID != msg.ChatID || !tomb.CreatedAt.Equal(msg.CreatedAt) {
		t.Fatal("tombstone must keep identity and ordering fields")
	}
	if !tomb.Deleted() {
		t.Fatal("tombstone must stay marked deleted")
	}
}

func TestMessageTypeLabelRoundTrip(t *testing.T) {
	for _, mt := range []MessageType{MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeVoice, MessageTypeVideo} {
		if got := MessageTypeFromLabel(MessageTypeLabel(mt)); got != mt {
			t.Fatalf("round trip for %v returned %v", mt, got)
		}
	}
}
