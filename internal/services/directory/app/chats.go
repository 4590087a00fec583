package app

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
	"github.com/parleyhq/parley/internal/platform/pagination"
	"github.com/parleyhq/parley/internal/services/directory/domain"
	"github.com/parleyhq/parley/internal/services/directory/fanout"
	"github.com/parleyhq/parley/internal/services/directory/storage"
)

// CreateChatRequest carries chat creation input. CounterpartID names the
// second participant of a private chat and must be empty for group chats.
type CreateChatRequest struct {
	Name          string
	Description   string
	Kind          domain.Kind
	CreatorID     string
	CounterpartID string
}

// CreateChat creates a chat and seeds its membership. The creator of a
// group chat becomes its owner; private chats hold the creator and the
// counterpart with no role hierarchy.
func (a *App) CreateChat(ctx context.Context, req CreateChatRequest) (domain.Chat, error) {
	req.CounterpartID = strings.TrimSpace(req.CounterpartID)
	switch req.Kind {
	case domain.KindPrivate:
		if req.CounterpartID == "" {
			return domain.Chat{}, apperrors.New(apperrors.CodeChatPrivateMemberLimit, "private chats require exactly one counterpart participant")
		}
		if req.CounterpartID == strings.TrimSpace(req.CreatorID) {
			return domain.Chat{}, apperrors.New(apperrors.CodeChatPrivateMemberLimit, "a private chat needs two distinct participants")
		}
	case domain.KindGroup:
		if req.CounterpartID != "" {
			return domain.Chat{}, apperrors.New(apperrors.CodeValidation, "group chats add participants through invites, not at creation")
		}
	}

	chat, err := domain.CreateChat(domain.CreateChatInput{
		Name:        req.Name,
		Description: req.Description,
		Kind:        req.Kind,
		CreatorID:   req.CreatorID,
	}, a.now, a.newID)
	if err != nil {
		return domain.Chat{}, err
	}

	creatorRole := domain.RoleOwner
	if chat.Kind == domain.KindPrivate {
		creatorRole = domain.RoleMember
	}

	err = a.store.InTx(ctx, func(tx storage.Store) error {
		if err := tx.PutChat(ctx, chat); err != nil {
			return fmt.Errorf("put chat: %w", err)
		}
		creator, err := domain.JoinParticipant(domain.JoinParticipantInput{
			ChatID: chat.ID,
			UserID: chat.CreatorID,
			Role:   creatorRole,
		}, a.now)
		if err != nil {
			return err
		}
		if err := tx.PutParticipant(ctx, creator); err != nil {
			return fmt.Errorf("put creator participant: %w", err)
		}
		if chat.Kind != domain.KindPrivate {
			return nil
		}
		counterpart, err := domain.JoinParticipant(domain.JoinParticipantInput{
			ChatID: chat.ID,
			UserID: req.CounterpartID,
			Role:   domain.RoleMember,
		}, a.now)
		if err != nil {
			return err
		}
		if err := tx.PutParticipant(ctx, counterpart); err != nil {
			return fmt.Errorf("put counterpart participant: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

// GetChat returns chat metadata to one of its participants.
func (a *App) GetChat(ctx context.Context, chatID, actingUserID string) (domain.Chat, error) {
	chat, err := getChat(ctx, a.store, chatID)
	if err != nil {
		return domain.Chat{}, err
	}
	if _, err := requireParticipant(ctx, a.store, chatID, actingUserID); err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

// ChatPage is a page of chats for a user.
type ChatPage struct {
	Chats    []domain.Chat
	Page     int
	PageSize int
	HasMore  bool
}

// ListChatsForUser returns the chats the user belongs to, most recently
// updated first.
func (a *App) ListChatsForUser(ctx context.Context, userID string, page, pageSize int) (ChatPage, error) {
	page = pagination.ClampPage(page)
	pageSize = pagination.ClampPageSize(pageSize, chatPageSizes)
	stored, err := a.store.ListChatsForUser(ctx, userID, pageSize, pagination.Offset(page, pageSize))
	if err != nil {
		return ChatPage{}, fmt.Errorf("list chats: %w", err)
	}
	return ChatPage{
		Chats:    stored.Chats,
		Page:     page,
		PageSize: pageSize,
		HasMore:  stored.HasMore,
	}, nil
}

// UpdateChatRequest carries a metadata update. Nil fields are left
// untouched.
type UpdateChatRequest struct {
	ChatID       string
	ActingUserID string
	Name         *string
	Description  *string
}

// UpdateChat renames or re-describes a chat, moderator only.
func (a *App) UpdateChat(ctx context.Context, req UpdateChatRequest) (domain.Chat, error) {
	var updated domain.Chat
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		chat, err := getChat(ctx, tx, req.ChatID)
		if err != nil {
			return err
		}
		actor, err := requireActiveParticipant(ctx, tx, req.ChatID, req.ActingUserID, a.now())
		if err != nil {
			return err
		}
		if chat.Kind == domain.KindGroup && !actor.Role.Moderator() {
			return apperrors.New(apperrors.CodeForbidden, "updating chat metadata requires admin or owner")
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperrors.New(apperrors.CodeChatNameEmpty, "chat name is required")
			}
			chat.Name = name
		}
		if req.Description != nil {
			chat.Description = strings.TrimSpace(*req.Description)
		}
		chat.UpdatedAt = a.now().UTC()
		if err := tx.PutChat(ctx, chat); err != nil {
			return fmt.Errorf("put chat: %w", err)
		}
		updated = chat
		return nil
	})
	if err != nil {
		return domain.Chat{}, err
	}
	return updated, nil
}

// DeleteChat removes a chat. Group chats are deleted only by their owner;
// either side may delete a private conversation. Participant rows and pin
// markers cascade, messages are retained for audit.
func (a *App) DeleteChat(ctx context.Context, chatID, actingUserID string) error {
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		chat, err := getChat(ctx, tx, chatID)
		if err != nil {
			return err
		}
		actor, err := requireActiveParticipant(ctx, tx, chatID, actingUserID, a.now())
		if err != nil {
			return err
		}
		capabilities := domain.CapabilitiesFor(actor, chat.Kind, a.now())
		if !capabilities.CanDeleteChat {
			return apperrors.New(apperrors.CodeChatOwnerOnly, "only the owner may delete a group chat")
		}

		if err := tx.ClearPins(ctx, chatID); err != nil {
			return err
		}
		if err := tx.DeleteChat(ctx, chatID); err != nil {
			return fmt.Errorf("delete chat: %w", err)
		}
		if chat.Kind == domain.KindGroup {
			return a.appendAudit(ctx, tx, chatID, actingUserID, domain.ActionChatDeleted, domain.TargetChat, chatID, "")
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.hub.Publish(fanout.Event{
		Type:       fanout.EventChatDeleted,
		ChatID:     chatID,
		ActorID:    actingUserID,
		OccurredAt: a.now().UTC(),
	})
	return nil
}
