package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
	"github.com/parleyhq/parley/internal/services/directory/domain"
	"github.com/parleyhq/parley/internal/services/directory/fanout"
	"github.com/parleyhq/parley/internal/services/directory/storage"
)

// CreateInvite offers chat membership to a user. Any active participant
// of a group chat may invite; at most one pending invite exists per
// (chat, invitee) pair.
func (a *App) CreateInvite(ctx context.Context, chatID, inviterID, inviteeID string, expiresAt time.Time) (domain.Invite, error) {
	var invite domain.Invite
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		chat, err := getChat(ctx, tx, chatID)
		if err != nil {
			return err
		}
		if chat.Kind == domain.KindPrivate {
			return apperrors.New(apperrors.CodeChatPrivateMemberLimit, "private chats hold exactly two participants")
		}
		if _, err := requireActiveParticipant(ctx, tx, chatID, inviterID, a.now()); err != nil {
			return err
		}
		existing, err := tx.GetParticipant(ctx, chatID, inviteeID)
		switch {
		case err == nil:
			if !existing.Banned(a.now()) {
				return apperrors.WithMetadata(apperrors.CodeParticipantAlreadyMember, "user is already a member of this chat", map[string]string{"UserID": inviteeID})
			}
			return apperrors.WithMetadata(apperrors.CodeParticipantBanned, "participant is banned from this chat", map[string]string{"UserID": inviteeID, "ChatID": chatID})
		case !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("get participant: %w", err)
		}

		created, err := domain.CreateInvite(domain.CreateInviteInput{
			ChatID:    chatID,
			InviterID: inviterID,
			InviteeID: inviteeID,
			ExpiresAt: expiresAt,
		}, a.now, a.newID)
		if err != nil {
			return err
		}
		if err := tx.PutInvite(ctx, created); err != nil {
			return err
		}
		invite = created
		return nil
	})
	if err != nil {
		return domain.Invite{}, err
	}
	return invite, nil
}

// expireOnRead flips a past-due pending invite to expired and persists
// the transition before the caller inspects status.
func (a *App) expireOnRead(ctx context.Context, store storage.Store, invite domain.Invite) (domain.Invite, error) {
	if invite.Status != domain.InviteStatusPending || !invite.Expired(a.now()) {
		return invite, nil
	}
	invite.Status = domain.InviteStatusExpired
	invite.UpdatedAt = a.now().UTC()
	if err := store.PutInvite(ctx, invite); err != nil {
		return domain.Invite{}, fmt.Errorf("expire invite: %w", err)
	}
	return invite, nil
}

func getInvite(ctx context.Context, store storage.Store, inviteID string) (domain.Invite, error) {
	invite, err := store.GetInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Invite{}, apperrors.WithMetadata(apperrors.CodeNotFound, "invite not found", map[string]string{"InviteID": inviteID})
		}
		return domain.Invite{}, fmt.Errorf("get invite: %w", err)
	}
	return invite, nil
}

// isChatModerator reports whether the user holds admin or owner in the
// chat, tolerating non-membership.
func isChatModerator(ctx context.Context, store storage.Store, chatID, userID string) (bool, error) {
	participant, err := store.GetParticipant(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get participant: %w", err)
	}
	return participant.Role.Moderator(), nil
}

// GetInvite returns one invite, visible to the invitee, the inviter, and
// chat moderators. Past-due pending invites expire on read.
func (a *App) GetInvite(ctx context.Context, inviteID, actingUserID string) (domain.Invite, error) {
	var invite domain.Invite
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		found, err := getInvite(ctx, tx, inviteID)
		if err != nil {
			return err
		}
		if found.InviteeID != actingUserID && found.InviterID != actingUserID {
			moderator, err := isChatModerator(ctx, tx, found.ChatID, actingUserID)
			if err != nil {
				return err
			}
			if !moderator {
				return apperrors.New(apperrors.CodeForbidden, "invites are visible to the invitee, the inviter, and chat admins")
			}
		}
		invite, err = a.expireOnRead(ctx, tx, found)
		return err
	})
	if err != nil {
		return domain.Invite{}, err
	}
	return invite, nil
}

// ListInvitesForUser returns every invite addressed to the acting user,
// expiring past-due pending ones on read.
func (a *App) ListInvitesForUser(ctx context.Context, actingUserID string) ([]domain.Invite, error) {
	var invites []domain.Invite
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		found, err := tx.ListInvitesForInvitee(ctx, actingUserID)
		if err != nil {
			return fmt.Errorf("list invites: %w", err)
		}
		invites = make([]domain.Invite, 0, len(found))
		for _, invite := range found {
			invite, err := a.expireOnRead(ctx, tx, invite)
			if err != nil {
				return err
			}
			invites = append(invites, invite)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invites, nil
}

// RespondToInvite accepts or declines a pending invite. Only the invitee
// may respond, and only once; accepting adds them as a member.
func (a *App) RespondToInvite(ctx context.Context, inviteID string, accept bool, actingUserID string) (domain.Invite, error) {
	var (
		invite domain.Invite
		joined *domain.Participant
	)
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		found, err := getInvite(ctx, tx, inviteID)
		if err != nil {
			return err
		}
		if found.InviteeID != actingUserID {
			return apperrors.New(apperrors.CodeInviteInviteeOnly, "only the invitee may respond to an invite")
		}
		found, err = a.expireOnRead(ctx, tx, found)
		if err != nil {
			return err
		}
		if found.Status == domain.InviteStatusExpired {
			return apperrors.WithMetadata(apperrors.CodeInviteExpired, "invite has expired", map[string]string{"InviteID": inviteID})
		}
		if found.Status != domain.InviteStatusPending {
			return apperrors.WithMetadata(apperrors.CodeInviteNotPending, "invite was already responded to", map[string]string{"InviteID": inviteID, "Status": domain.InviteStatusLabel(found.Status)})
		}

		respondedAt := a.now().UTC()
		if !accept {
			found.Status = domain.InviteStatusDeclined
			found.UpdatedAt = respondedAt
			if err := tx.PutInvite(ctx, found); err != nil {
				return fmt.Errorf("decline invite: %w", err)
			}
			invite = found
			return nil
		}

		existing, err := tx.GetParticipant(ctx, found.ChatID, found.InviteeID)
		switch {
		case err == nil:
			if existing.Banned(a.now()) {
				return apperrors.WithMetadata(apperrors.CodeParticipantBanned, "participant is banned from this chat", map[string]string{"UserID": found.InviteeID, "ChatID": found.ChatID})
			}
			return apperrors.WithMetadata(apperrors.CodeParticipantAlreadyMember, "user is already a member of this chat", map[string]string{"UserID": found.InviteeID})
		case !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("get participant: %w", err)
		}

		member, err := domain.JoinParticipant(domain.JoinParticipantInput{
			ChatID: found.ChatID,
			UserID: found.InviteeID,
			Role:   domain.RoleMember,
		}, a.now)
		if err != nil {
			return err
		}
		if err := tx.PutParticipant(ctx, member); err != nil {
			return fmt.Errorf("put participant: %w", err)
		}
		found.Status = domain.InviteStatusAccepted
		found.UpdatedAt = respondedAt
		if err := tx.PutInvite(ctx, found); err != nil {
			return fmt.Errorf("accept invite: %w", err)
		}
		invite = found
		joined = &member
		return nil
	})
	if err != nil {
		return domain.Invite{}, err
	}

	if joined != nil {
		a.hub.Publish(fanout.Event{
			Type:        fanout.EventParticipantJoined,
			ChatID:      invite.ChatID,
			ActorID:     actingUserID,
			Participant: joined,
			OccurredAt:  a.now().UTC(),
		})
	}
	return invite, nil
}

// RemoveInvite hard-deletes an invite. Allowed for the inviter and chat
// moderators.
func (a *App) RemoveInvite(ctx context.Context, inviteID, actingUserID string) error {
	return a.store.InTx(ctx, func(tx storage.Store) error {
		invite, err := getInvite(ctx, tx, inviteID)
		if err != nil {
			return err
		}
		if invite.InviterID != actingUserID {
			moderator, err := isChatModerator(ctx, tx, invite.ChatID, actingUserID)
			if err != nil {
				return err
			}
			if !moderator {
				return apperrors.New(apperrors.CodeForbidden, "removing an invite requires the inviter or a chat admin")
			}
		}
		if err := tx.DeleteInvite(ctx, inviteID); err != nil {
			return fmt.Errorf("delete invite: %w", err)
		}
		return nil
	})
}
