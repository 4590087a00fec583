package app

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
	"github.com/parleyhq/parley/internal/platform/pagination"
	"github.com/parleyhq/parley/internal/services/directory/domain"
	"github.com/parleyhq/parley/internal/services/directory/fanout"
	"github.com/parleyhq/parley/internal/services/directory/storage"
)

// SendMessageRequest carries one message send.
type SendMessageRequest struct {
	ChatID   string
	AuthorID string
	Content  string
	Type     domain.MessageType
	File     *domain.FileMetadata
	// ClientMessageID deduplicates retried sends. A repeated token returns
	// the original message instead of creating a duplicate.
	ClientMessageID string
}

// SendMessage persists a new message and publishes MessageCreated.
func (a *App) SendMessage(ctx context.Context, req SendMessageRequest) (domain.Message, error) {
	var msg domain.Message
	var replayed bool
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := getChat(ctx, tx, req.ChatID); err != nil {
			return err
		}
		if _, err := requireActiveParticipant(ctx, tx, req.ChatID, req.AuthorID, a.now()); err != nil {
			return err
		}

		if req.ClientMessageID != "" {
			existing, err := tx.GetMessageByClientID(ctx, req.ChatID, req.ClientMessageID)
			switch {
			case err == nil:
				msg = existing
				replayed = true
				return nil
			case !errors.Is(err, storage.ErrNotFound):
				return fmt.Errorf("get message by client id: %w", err)
			}
		}

		created, err := domain.CreateMessage(domain.CreateMessageInput{
			ChatID:          req.ChatID,
			AuthorID:        req.AuthorID,
			Content:         req.Content,
			Type:            req.Type,
			File:            req.File,
			ClientMessageID: req.ClientMessageID,
		}, a.now, a.newID)
		if err != nil {
			return err
		}
		if err := tx.PutMessage(ctx, created); err != nil {
			return fmt.Errorf("put message: %w", err)
		}
		msg = created
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}

	if !replayed {
		a.hub.Publish(fanout.Event{
			Type:       fanout.EventMessageCreated,
			ChatID:     msg.ChatID,
			ActorID:    msg.AuthorID,
			Message:    &msg,
			OccurredAt: a.now().UTC(),
		})
	}
	return msg, nil
}

// getLiveMessage resolves a non-deleted message or reports NotFound.
func getLiveMessage(ctx context.Context, store storage.Store, messageID string) (domain.Message, error) {
	msg, err := store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Message{}, apperrors.WithMetadata(apperrors.CodeNotFound, "message not found", map[string]string{"MessageID": messageID})
		}
		return domain.Message{}, fmt.Errorf("get message: %w", err)
	}
	if msg.Deleted() {
		return domain.Message{}, apperrors.WithMetadata(apperrors.CodeNotFound, "message not found", map[string]string{"MessageID": messageID})
	}
	return msg, nil
}

// EditMessage rewrites content. Only the original author may edit.
func (a *App) EditMessage(ctx context.Context, messageID, newContent, actingUserID string) (domain.Message, error) {
	var edited domain.Message
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		msg, err := getLiveMessage(ctx, tx, messageID)
		if err != nil {
			return err
		}
		if msg.AuthorID != actingUserID {
			return apperrors.New(apperrors.CodeMessageAuthorOnly, "only the author may edit a message")
		}
		if _, err := requireActiveParticipant(ctx, tx, msg.ChatID, actingUserID, a.now()); err != nil {
			return err
		}
		normalized, err := domain.NormalizeCreateMessageInput(domain.CreateMessageInput{
			ChatID:   msg.ChatID,
			AuthorID: msg.AuthorID,
			Content:  newContent,
			Type:     msg.Type,
			File:     msg.File,
		})
		if err != nil {
			return err
		}

		editedAt := a.now().UTC()
		msg.Content = normalized.Content
		msg.EditedAt = &editedAt
		if err := tx.PutMessage(ctx, msg); err != nil {
			return fmt.Errorf("put message: %w", err)
		}
		edited = msg
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}

	a.hub.Publish(fanout.Event{
		Type:       fanout.EventMessageEdited,
		ChatID:     edited.ChatID,
		ActorID:    actingUserID,
		Message:    &edited,
		OccurredAt: a.now().UTC(),
	})
	return edited, nil
}

// DeleteMessage soft-deletes. The author may delete their own message;
// moderators may delete any, which is audited.
func (a *App) DeleteMessage(ctx context.Context, messageID, actingUserID string) error {
	var deleted domain.Message
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		msg, err := getLiveMessage(ctx, tx, messageID)
		if err != nil {
			return err
		}
		actor, err := requireActiveParticipant(ctx, tx, msg.ChatID, actingUserID, a.now())
		if err != nil {
			return err
		}
		moderating := actor.UserID != msg.AuthorID
		if moderating && !actor.Role.Moderator() {
			return apperrors.New(apperrors.CodeForbidden, "deleting another author's message requires admin or owner")
		}

		deletedAt := a.now().UTC()
		msg.DeletedAt = &deletedAt
		msg.Pinned = false
		if err := tx.PutMessage(ctx, msg); err != nil {
			return fmt.Errorf("put message: %w", err)
		}
		deleted = msg
		if moderating {
			return a.appendAudit(ctx, tx, msg.ChatID, actingUserID, domain.ActionMessageModerated, domain.TargetMessage, messageID, "deleted")
		}
		return nil
	})
	if err != nil {
		return err
	}

	tombstone := deleted.Tombstone()
	a.hub.Publish(fanout.Event{
		Type:       fanout.EventMessageDeleted,
		ChatID:     deleted.ChatID,
		ActorID:    actingUserID,
		Message:    &tombstone,
		OccurredAt: a.now().UTC(),
	})
	return nil
}

func (a *App) setPinned(ctx context.Context, chatID, messageID, actingUserID string, pinned bool) (domain.Message, error) {
	var msg domain.Message
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := getChat(ctx, tx, chatID); err != nil {
			return err
		}
		actor, err := requireActiveParticipant(ctx, tx, chatID, actingUserID, a.now())
		if err != nil {
			return err
		}
		if !actor.Role.Moderator() {
			return apperrors.New(apperrors.CodeForbidden, "pinning requires admin or owner")
		}
		current, err := getLiveMessage(ctx, tx, messageID)
		if err != nil {
			return err
		}
		if current.ChatID != chatID {
			return apperrors.WithMetadata(apperrors.CodeNotFound, "message not found", map[string]string{"MessageID": messageID})
		}
		if current.Pinned == pinned {
			msg = current
			return nil
		}

		current.Pinned = pinned
		if err := tx.PutMessage(ctx, current); err != nil {
			return fmt.Errorf("put message: %w", err)
		}
		msg = current
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}

	eventType := fanout.EventMessagePinned
	if !pinned {
		eventType = fanout.EventMessageUnpinned
	}
	a.hub.Publish(fanout.Event{
		Type:       eventType,
		ChatID:     chatID,
		ActorID:    actingUserID,
		Message:    &msg,
		OccurredAt: a.now().UTC(),
	})
	return msg, nil
}

// PinMessage marks a message pinned.
func (a *App) PinMessage(ctx context.Context, chatID, messageID, actingUserID string) (domain.Message, error) {
	return a.setPinned(ctx, chatID, messageID, actingUserID, true)
}

// UnpinMessage clears a pin.
func (a *App) UnpinMessage(ctx context.Context, chatID, messageID, actingUserID string) (domain.Message, error) {
	return a.setPinned(ctx, chatID, messageID, actingUserID, false)
}

// MessagePage is a page of messages with tombstones in place of deleted
// rows.
type MessagePage struct {
	Messages []domain.Message
	Page     int
	PageSize int
	HasMore  bool
}

// ListMessages returns a page of a chat's history in stable
// (createdAt, id) order. Soft-deleted rows appear as tombstones so
// offsets never shift.
func (a *App) ListMessages(ctx context.Context, chatID, actingUserID string, page, pageSize int) (MessagePage, error) {
	if _, err := getChat(ctx, a.store, chatID); err != nil {
		return MessagePage{}, err
	}
	if _, err := requireActiveParticipant(ctx, a.store, chatID, actingUserID, a.now()); err != nil {
		return MessagePage{}, err
	}

	page = pagination.ClampPage(page)
	pageSize = pagination.ClampPageSize(pageSize, messagePageSizes)
	stored, err := a.store.ListMessages(ctx, chatID, pageSize, pagination.Offset(page, pageSize))
	if err != nil {
		return MessagePage{}, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]domain.Message, 0, len(stored.Messages))
	for _, msg := range stored.Messages {
		if msg.Deleted() {
			msg = msg.Tombstone()
		}
		messages = append(messages, msg)
	}
	return MessagePage{
		Messages: messages,
		Page:     page,
		PageSize: pageSize,
		HasMore:  stored.HasMore,
	}, nil
}

// ListPinnedMessages returns a chat's pinned messages, oldest first.
func (a *App) ListPinnedMessages(ctx context.Context, chatID, actingUserID string) ([]domain.Message, error) {
	if _, err := getChat(ctx, a.store, chatID); err != nil {
		return nil, err
	}
	if _, err := requireActiveParticipant(ctx, a.store, chatID, actingUserID, a.now()); err != nil {
		return nil, err
	}
	return a.store.ListPinnedMessages(ctx, chatID)
}

// ModerateMessage hides a message on moderator authority and records the
// action with a reason.
func (a *App) ModerateMessage(ctx context.Context, chatID, messageID, reason, actingUserID string) error {
	var moderated domain.Message
	err := a.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := getChat(ctx, tx, chatID); err != nil {
			return err
		}
		actor, err := requireActiveParticipant(ctx, tx, chatID, actingUserID, a.now())
		if err != nil {
			return err
		}
		if !actor.Role.Moderator() {
			return apperrors.New(apperrors.CodeForbidden, "moderating messages requires admin or owner")
		}
		msg, err := getLiveMessage(ctx, tx, messageID)
		if err != nil {
			return err
		}
		if msg.ChatID != chatID {
			return apperrors.WithMetadata(apperrors.CodeNotFound, "message not found", map[string]string{"MessageID": messageID})
		}

		deletedAt := a.now().UTC()
		msg.DeletedAt = &deletedAt
		msg.Pinned = false
		if err := tx.PutMessage(ctx, msg); err != nil {
			return fmt.Errorf("put message: %w", err)
		}
		moderated = msg
		return a.appendAudit(ctx, tx, chatID, actingUserID, domain.ActionMessageModerated, domain.TargetMessage, messageID, reason)
	})
	if err != nil {
		return err
	}

	tombstone := moderated.Tombstone()
	a.hub.Publish(fanout.Event{
		Type:       fanout.EventMessageDeleted,
		ChatID:     chatID,
		ActorID:    actingUserID,
		Message:    &tombstone,
		OccurredAt: a.now().UTC(),
	})
	return nil
}

// ListAdminActions returns a page of a chat's moderation log, moderator
// only.
func (a *App) ListAdminActions(ctx context.Context, chatID, actingUserID string, page, pageSize int) ([]domain.AdminAction, error) {
	if _, err := getChat(ctx, a.store, chatID); err != nil {
		return nil, err
	}
	actor, err := requireActiveParticipant(ctx, a.store, chatID, actingUserID, a.now())
	if err != nil {
		return nil, err
	}
	if !actor.Role.Moderator() {
		return nil, apperrors.New(apperrors.CodeForbidden, "reading the moderation log requires admin or owner")
	}

	page = pagination.ClampPage(page)
	pageSize = pagination.ClampPageSize(pageSize, auditPageSizes)
	return a.store.ListAdminActions(ctx, chatID, pageSize, pagination.Offset(page, pageSize))
}
