package domain

import (
	"testing"
	"time"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
)

func participant(role Role) Participant {
	return Participant{ChatID: "chat-1", UserID: "user-" + RoleLabel(role), Role: role}
}

func TestBanned(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bannedAt := now.Add(-time.Hour)
	until := now.Add(time.Hour)
	lapsed := now.Add(-time.Minute)

	tests := []struct {
		name string
		p    Participant
		want bool
	}{
		{"not banned", Participant{}, false},
		{"indefinite ban", Participant{BannedAt: &bannedAt}, true},
		{"timed ban active", Participant{BannedAt: &bannedAt, BannedUntil: &until}, true},
		{"timed ban lapsed", Participant{BannedAt: &bannedAt, BannedUntil: &lapsed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Banned(now); got != tt.want {
				t.Fatalf("Banned = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanRemoveParticipant(t *testing.T) {
	owner := participant(RoleOwner)
	admin := participant(RoleAdmin)
	member := participant(RoleMember)

	if !CanRemoveParticipant(member, member) {
		t.Fatal("self-removal must always be allowed")
	}
	if !CanRemoveParticipant(owner, admin) {
		t.Fatal("owner removes admin")
	}
	if !CanRemoveParticipant(admin, member) {
		t.Fatal("admin removes member")
	}
	if CanRemoveParticipant(admin, admin2()) {
		t.Fatal("admin must not remove an equal admin")
	}
	if CanRemoveParticipant(member, admin) {
		t.Fatal("member must not remove admin")
	}
	if CanRemoveParticipant(admin, owner) {
		t.Fatal("admin must not remove owner")
	}
}

func admin2() Participant {
	p := participant(RoleAdmin)
	p.UserID = "user-admin-2"
	return p
}

func TestCanBanParticipant(t *testing.T) {
	owner := participant(RoleOwner)
	admin := participant(RoleAdmin)
	member := participant(RoleMember)

	if !CanBanParticipant(admin, member) {
		t.Fatal("admin bans member")
	}
	if !CanBanParticipant(owner, admin) {
		t.Fatal("owner bans admin")
	}
	if CanBanParticipant(admin, admin2()) {
		t.Fatal("equal roles are protected")
	}
	if CanBanParticipant(member, member) {
		t.Fatal("self ban rejected")
	}
	if CanBanParticipant(admin, owner) {
		t.Fatal("admin must not ban owner")
	}
}

func TestCheckRoleChange(t *testing.T) {
	owner := participant(RoleOwner)
	admin := participant(RoleAdmin)
	member := participant(RoleMember)

	tests := []struct {
		name    string
		actor   Participant
		current Participant
		next    Role
		code    apperrors.Code
	}{
		{"owner promotes member to admin", owner, member, RoleAdmin, ""},
		{"owner demotes admin", owner, admin, RoleMember, ""},
		{"owner transfers ownership", owner, member, RoleOwner, ""},
		{"admin promotes to admin", admin, member, RoleAdmin, apperrors.CodeParticipantRoleForbidden},
		{"admin demotes admin", admin, admin2(), RoleMember, apperrors.CodeParticipantRoleForbidden},
		{"member changes role", member, member, RoleAdmin, apperrors.CodeParticipantRoleForbidden},
		{"admin grants ownership", admin, member, RoleOwner, apperrors.CodeParticipantRoleForbidden},
		{"demote owner directly", owner, owner, RoleMember, apperrors.CodeParticipantLastOwner},
		{"invalid role", owner, member, RoleUnspecified, apperrors.CodeParticipantInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRoleChange(tt.actor, tt.current, tt.next)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestCapabilitiesFor(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	member := participant(RoleMember)
	caps := CapabilitiesFor(member, KindGroup, now)
	if !caps.CanPost || !caps.CanInvite || caps.CanModerate || caps.CanManageRoles {
		t.Fatalf("member capabilities = %+v", caps)
	}

	admin := participant(RoleAdmin)
	caps = CapabilitiesFor(admin, KindGroup, now)
	if !caps.CanModerate || caps.CanManageRoles || caps.CanDeleteChat {
		t.Fatalf("admin capabilities = %+v", caps)
	}

	owner := participant(RoleOwner)
	caps = CapabilitiesFor(owner, KindGroup, now)
	if !caps.CanModerate || !caps.CanManageRoles || !caps.CanDeleteChat {
		t.Fatalf("owner capabilities = %+v", caps)
	}

	bannedAt := now.Add(-time.Hour)
	banned := participant(RoleAdmin)
	banned.BannedAt = &bannedAt
	caps = CapabilitiesFor(banned, KindGroup, now)
	if caps != (Capabilities{}) {
		t.Fatalf("banned capabilities = %+v, want none", caps)
	}

	private := participant(RoleMember)
	caps = CapabilitiesFor(private, KindPrivate, now)
	if !caps.CanPost || !caps.CanDeleteChat || caps.CanInvite || caps.CanModerate {
		t.Fatalf("private chat capabilities = %+v", caps)
	}
}

func TestJoinParticipantDefaultsRole(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p, err := JoinParticipant(JoinParticipantInput{ChatID: "chat-1", UserID: "user-1"}, fixedClock(now))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p.Role != RoleMember {
		t.Fatalf("role = %v, want member", p.Role)
	}
	if !p.JoinedAt.Equal(now) {
		t.Fatal("expected joined at from clock")
	}
}

func TestJoinParticipantValidation(t *testing.T) {
	if _, err := JoinParticipant(JoinParticipantInput{UserID: "u"}, nil); !apperrors.IsCode(err, apperrors.CodeParticipantEmptyChatID) {
		t.Fatalf("err = %v", err)
	}
	if _, err := JoinParticipant(JoinParticipantInput{ChatID: "c"}, nil); !apperrors.IsCode(err, apperrors.CodeParticipantEmptyUserID) {
		t.Fatalf("err = %v", err)
	}
}
