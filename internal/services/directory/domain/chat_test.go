package domain

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func staticID(id string) func() (string, error) {
	return func() (string, error) { return id, nil }
}

func TestCreateChat(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	chat, err := CreateChat(CreateChatInput{
		Name:      "  Design Crew  ",
		Kind:      KindGroup,
		CreatorID: "user-1",
	}, fixedClock(now), staticID("chat-1"))
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if chat.ID != "chat-1" {
		t.Fatalf("id = %q", chat.ID)
	}
	if chat.Name != "Design Crew" {
		t.Fatalf("expected trimmed name, got %q", chat.Name)
	}
	if !chat.CreatedAt.Equal(now) || !chat.UpdatedAt.Equal(now) {
		t.Fatal("expected timestamps from injected clock")
	}
}

func TestCreateChatValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateChatInput
		code  apperrors.Code
	}{
		{"empty name", CreateChatInput{Kind: KindGroup, CreatorID: "u"}, apperrors.CodeChatNameEmpty},
		{"bad kind", CreateChatInput{Name: "x", CreatorID: "u"}, apperrors.CodeChatInvalidKind},
		{"empty creator", CreateChatInput{Name: "x", Kind: KindPrivate}, apperrors.CodeParticipantEmptyUserID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateChat(tt.input, nil, nil)
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestKindLabelRoundTrip(t *testing.T) {
	for _, kind := range []Kind{KindPrivate, KindGroup} {
		if got := KindFromLabel(KindLabel(kind)); got != kind {
			t.Fatalf("round trip for %v returned %v", kind, got)
		}
	}
	if KindFromLabel("channel") != KindUnspecified {
		t.Fatal("expected unknown label to map to unspecified")
	}
}

func TestCreateChatIDGeneratorFailure(t *testing.T) {
	boom := errors.New("entropy exhausted")
	_, err := CreateChat(CreateChatInput{Name: "x", Kind: KindGroup, CreatorID: "u"}, nil, func() (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped generator error, got %v", err)
	}
}
