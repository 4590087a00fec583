package domain

import (
	"testing"
	"time"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
)

func TestCreateInvite(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)

	inv, err := CreateInvite(CreateInviteInput{
		ChatID:    "chat-1",
		InviterID: "user-1",
		InviteeID: "user-2",
		ExpiresAt: expires,
	}, fixedClock(now), staticID("inv-1"))
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if inv.Status != InviteStatusPending {
		t.Fatalf("status = %v, want pending", inv.Status)
	}
	if !inv.ExpiresAt.Equal(expires) {
		t.Fatal("expected expiry preserved")
	}
}

func TestCreateInviteValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateInviteInput
		code  apperrors.Code
	}{
		{"empty chat", CreateInviteInput{InviterID: "a", InviteeID: "b"}, apperrors.CodeInviteEmptyChatID},
		{"empty inviter", CreateInviteInput{ChatID: "c", InviteeID: "b"}, apperrors.CodeParticipantEmptyUserID},
		{"empty invitee", CreateInviteInput{ChatID: "c", InviterID: "a"}, apperrors.CodeInviteEmptyInviteeID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateInvite(tt.input, nil, nil)
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestInviteExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	open := Invite{ExpiresAt: now.Add(time.Minute)}
	if open.Expired(now) {
		t.Fatal("future expiry must not be expired")
	}
	lapsed := Invite{ExpiresAt: now.Add(-time.Minute)}
	if !lapsed.Expired(now) {
		t.Fatal("past expiry must be expired")
	}
	forever := Invite{}
	if forever.Expired(now) {
		t.Fatal("zero expiry never expires")
	}
}

func TestInviteStatusLabelRoundTrip(t *testing.T) {
	for _, status := range []InviteStatus{InviteStatusPending, InviteStatusAccepted, InviteStatusDeclined, InviteStatusExpired} {
		if got := InviteStatusFromLabel(InviteStatusLabel(status)); got != status {
			t.Fatalf("round trip for %v returned %v", status, got)
		}
	}
}
