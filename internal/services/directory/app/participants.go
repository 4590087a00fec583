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

// getChat resolves a chat or reports NotFound.
func getChat(ctx context.Context, store storage.Store, chatID string) (domain.Chat, error) {
	chat, err := store.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Chat{}, apperrors.WithMetadata(apperrors.CodeNotFound, "chat not found", map[string]string{"ChatID": chatID})
		}
		return domain.Chat{}, fmt.Errorf("get chat: %w", err)
	}
	return chat, nil
}

// requireParticipant resolves a membership row or reports Forbidden.
func requireParticipant(ctx context.Context, store storage.Store, chatID, userID string) (domain.Participant, error) {
	participant, err := store.GetParticipant(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Participant{}, apperrors.WithMetadata(apperrors.CodeParticipantNotMember, "user is not a participant of this chat", map[string]string{"UserID": userID, "ChatID": chatID})
		}
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return participant, nil
}

// requireActiveParticipant additionally rejects banned members.
func requireActiveParticipant(ctx context.Context, store storage.Store, chatID, userID string, now time.Time) (domain.Participant, error) {
	participant, err := requireParticipant(ctx, store, chatID, userID)
	if err != nil {
		return domain.Participant{}, err
	}
	if participant.Banned(now) {
		return domain.Participant{}, apperrors.WithMetadata(apperrors.CodeParticipantBanned, "participant is banned from this chat", map[string]string{"UserID": userID, "ChatID": chatID})
	}
	return participant, nil
}

func (a *App) appendAudit(ctx context.Context, store storage.Store, chatID, adminID string, action domain.ActionType, targetType domain.TargetType, targetID, reason string) error {
	entry, err := domain.NewAdminAction(chatID, adminID, action, targetType, targetID, reason, a.now, a.newID)
	if err != nil {
		return err
	}
	if err := store.AppendAdminAction(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// AddParticipant inserts a new member on behalf of a moderator. Private
// chats are sealed at two members.
func (a *App) AddParticipant(ctx context.Context, chatID, userID, actingUserID string) (domain.Participant, error) {
	var added domain.Participant
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		chat, err := getChat(ctx, tx, chatID)
		if err != nil {
			return err
		}
		actor, err := requireActiveParticipant(ctx, tx, chatID, actingUserID, a.now())
		if err != nil {
			return err
		}
		if chat.Kind == domain.KindPrivate {
			return apperrors.New(apperrors.CodeChatPrivateMemberLimit, "private chats hold exactly two participants")
		}
		if !actor.Role.Moderator() {
			return apperrors.New(apperrors.CodeForbidden, "adding participants requires admin or owner")
		}

		existing, err := tx.GetParticipant(ctx, chatID, userID)
		switch {
		case err == nil:
			if existing.Banned(a.now()) {
				return apperrors.WithMetadata(apperrors.CodeParticipantBanned, "participant is banned from this chat", map[string]string{"UserID": userID, "ChatID": chatID})
			}
			return apperrors.WithMetadata(apperrors.CodeParticipantAlreadyMember, "user is already a member of this chat", map[string]string{"UserID": userID})
		case !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("get participant: %w", err)
		}

		added, err = domain.JoinParticipant(domain.JoinParticipantInput{
			ChatID: chatID,
			UserID: userID,
			Role:   domain.RoleMember,
		}, a.now)
		if err != nil {
			return err
		}
		return tx.PutParticipant(ctx, added)
	})
	if err != nil {
		return domain.Participant{}, err
	}

	a.hub.Publish(fanout.Event{
		Type:        fanout.EventParticipantJoined,
		ChatID:      chatID,
		ActorID:     actingUserID,
		Participant: &added,
		OccurredAt:  a.now().UTC(),
	})
	return added, nil
}

// RemoveParticipant handles both voluntary leave and kicks. Kicks are
// audited; self-removal is not a privileged action.
func (a *App) RemoveParticipant(ctx context.Context, chatID, userID, actingUserID string) error {
	var removed domain.Participant
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := getChat(ctx, tx, chatID); err != nil {
			return err
		}
		actor, err := requireParticipant(ctx, tx, chatID, actingUserID)
		if err != nil {
			return err
		}
		target, err := requireParticipant(ctx, tx, chatID, userID)
		if err != nil {
			return err
		}
		if !domain.CanRemoveParticipant(actor, target) {
			return apperrors.New(apperrors.CodeForbidden, "removing this participant requires a strictly higher role")
		}
		if target.Role == domain.RoleOwner {
			count, err := tx.CountParticipants(ctx, chatID)
			if err != nil {
				return fmt.Errorf("count participants: %w", err)
			}
			if count > 1 {
				return apperrors.New(apperrors.CodeParticipantLastOwner, "the owner must transfer ownership before leaving")
			}
		}

		if err := tx.DeleteParticipant(ctx, chatID, userID); err != nil {
			return fmt.Errorf("delete participant: %w", err)
		}
		removed = target
		if actor.UserID != target.UserID {
			if err := a.appendAudit(ctx, tx, chatID, actingUserID, domain.ActionParticipantRemoved, domain.TargetParticipant, userID, ""); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.hub.Publish(fanout.Event{
		Type:        fanout.EventParticipantRemoved,
		ChatID:      chatID,
		ActorID:     actingUserID,
		Participant: &removed,
		OccurredAt:  a.now().UTC(),
	})
	return nil
}

// UpdateRole applies a role transition. Transferring ownership demotes
// the previous owner to admin in the same transaction so the chat keeps
// exactly one owner.
func (a *App) UpdateRole(ctx context.Context, chatID, userID string, newRole domain.Role, actingUserID string) (domain.Participant, error) {
	var updated domain.Participant
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		chat, err := getChat(ctx, tx, chatID)
		if err != nil {
			return err
		}
		if chat.Kind == domain.KindPrivate {
			return apperrors.New(apperrors.CodeForbidden, "private chats have no role hierarchy")
		}
		actor, err := requireActiveParticipant(ctx, tx, chatID, actingUserID, a.now())
		if err != nil {
			return err
		}
		target, err := requireParticipant(ctx, tx, chatID, userID)
		if err != nil {
			return err
		}
		if err := domain.CheckRoleChange(actor, target, newRole); err != nil {
			return err
		}

		updatedAt := a.now().UTC()
		if newRole == domain.RoleOwner {
			actor.Role = domain.RoleAdmin
			actor.UpdatedAt = updatedAt
			if err := tx.PutParticipant(ctx, actor); err != nil {
				return fmt.Errorf("demote previous owner: %w", err)
			}
		}

		target.Role = newRole
		target.UpdatedAt = updatedAt
		if err := tx.PutParticipant(ctx, target); err != nil {
			return fmt.Errorf("put participant: %w", err)
		}
		updated = target
		return a.appendAudit(ctx, tx, chatID, actingUserID, domain.ActionRoleChange, domain.TargetParticipant, userID, domain.RoleLabel(newRole))
	})
	if err != nil {
		return domain.Participant{}, err
	}

	a.hub.Publish(fanout.Event{
		Type:        fanout.EventRoleChanged,
		ChatID:      chatID,
		ActorID:     actingUserID,
		Participant: &updated,
		OccurredAt:  a.now().UTC(),
	})
	return updated, nil
}

// BanUser bans a participant. Until is optional; a zero value bans until
// an explicit unban.
func (a *App) BanUser(ctx context.Context, chatID, userID, reason string, until *time.Time, actingUserID string) (domain.Participant, error) {
	var banned domain.Participant
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		chat, err := getChat(ctx, tx, chatID)
		if err != nil {
			return err
		}
		if chat.Kind == domain.KindPrivate {
			return apperrors.New(apperrors.CodeForbidden, "private chats have no moderation actions")
		}
		actor, err := requireActiveParticipant(ctx, tx, chatID, actingUserID, a.now())
		if err != nil {
			return err
		}
		target, err := requireParticipant(ctx, tx, chatID, userID)
		if err != nil {
			return err
		}
		if !domain.CanBanParticipant(actor, target) {
			return apperrors.New(apperrors.CodeForbidden, "banning this participant requires a strictly higher role")
		}

		bannedAt := a.now().UTC()
		target.BannedAt = &bannedAt
		target.BannedUntil = until
		target.BanReason = reason
		target.UpdatedAt = bannedAt
		if err := tx.PutParticipant(ctx, target); err != nil {
			return fmt.Errorf("put participant: %w", err)
		}
		banned = target
		return a.appendAudit(ctx, tx, chatID, actingUserID, domain.ActionBan, domain.TargetParticipant, userID, reason)
	})
	if err != nil {
		return domain.Participant{}, err
	}

	a.hub.Publish(fanout.Event{
		Type:        fanout.EventParticipantBanned,
		ChatID:      chatID,
		ActorID:     actingUserID,
		Participant: &banned,
		OccurredAt:  a.now().UTC(),
	})
	return banned, nil
}

// UnbanUser lifts a ban.
func (a *App) UnbanUser(ctx context.Context, chatID, userID, actingUserID string) (domain.Participant, error) {
	var unbanned domain.Participant
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := getChat(ctx, tx, chatID); err != nil {
			return err
		}
		actor, err := requireActiveParticipant(ctx, tx, chatID, actingUserID, a.now())
		if err != nil {
			return err
		}
		if !actor.Role.Moderator() {
			return apperrors.New(apperrors.CodeForbidden, "lifting a ban requires admin or owner")
		}
		target, err := requireParticipant(ctx, tx, chatID, userID)
		if err != nil {
			return err
		}
		if target.BannedAt == nil {
			return apperrors.WithMetadata(apperrors.CodeInvalidState, "participant is not banned", map[string]string{"UserID": userID})
		}

		target.BannedAt = nil
		target.BannedUntil = nil
		target.BanReason = ""
		target.UpdatedAt = a.now().UTC()
		if err := tx.PutParticipant(ctx, target); err != nil {
			return fmt.Errorf("put participant: %w", err)
		}
		unbanned = target
		return a.appendAudit(ctx, tx, chatID, actingUserID, domain.ActionUnban, domain.TargetParticipant, userID, "")
	})
	if err != nil {
		return domain.Participant{}, err
	}

	a.hub.Publish(fanout.Event{
		Type:        fanout.EventParticipantUnbanned,
		ChatID:      chatID,
		ActorID:     actingUserID,
		Participant: &unbanned,
		OccurredAt:  a.now().UTC(),
	})
	return unbanned, nil
}

// Authorize resolves the capability set of a user in a chat without
// mutating anything.
func (a *App) Authorize(ctx context.Context, chatID, userID string) (domain.Capabilities, error) {
	chat, err := getChat(ctx, a.store, chatID)
	if err != nil {
		return domain.Capabilities{}, err
	}
	participant, err := requireParticipant(ctx, a.store, chatID, userID)
	if err != nil {
		return domain.Capabilities{}, err
	}
	return domain.CapabilitiesFor(participant, chat.Kind, a.now()), nil
}

// ListParticipants returns the membership of a chat, visible to any
// participant.
func (a *App) ListParticipants(ctx context.Context, chatID, actingUserID string) ([]domain.Participant, error) {
	if _, err := getChat(ctx, a.store, chatID); err != nil {
		return nil, err
	}
	if _, err := requireParticipant(ctx, a.store, chatID, actingUserID); err != nil {
		return nil, err
	}
	return a.store.ListParticipantsByChat(ctx, chatID)
}
