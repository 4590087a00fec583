package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/internal/services/directory/domain"
	"github.com/parleyhq/parley/internal/services/directory/storage"
)

// PutChat inserts or replaces a chat row.
func (s *Store) PutChat(ctx context.Context, c domain.Chat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("chat id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("chat name is required")
	}
	if strings.TrimSpace(c.CreatorID) == "" {
		return fmt.Errorf("creator id is required")
	}

	_, err := s.q().ExecContext(ctx, `
INSERT INTO chats (
	id, name, description, kind, creator_id, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	description = excluded.description,
	kind = excluded.kind,
	updated_at = excluded.updated_at
`,
		c.ID,
		c.Name,
		c.Description,
		int(c.Kind),
		c.CreatorID,
		toMillis(c.CreatedAt),
		toMillis(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put chat: %w", err)
	}
	return nil
}

// GetChat fetches a chat by ID.
func (s *Store) GetChat(ctx context.Context, chatID string) (domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return domain.Chat{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Chat{}, err
	}
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return domain.Chat{}, fmt.Errorf("chat id is required")
	}

	row := s.q().QueryRowContext(ctx, `
SELECT id, name, description, kind, creator_id, created_at, updated_at
FROM chats
WHERE id = ?
`, chatID)

	var (
		c         domain.Chat
		kind      int
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &kind, &c.CreatorID, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Chat{}, storage.ErrNotFound
		}
		return domain.Chat{}, fmt.Errorf("get chat: %w", err)
	}
	c.Kind = domain.Kind(kind)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

// DeleteChat removes a chat row. Participant rows cascade through the
// foreign key; message rows are retained.
func (s *Store) DeleteChat(ctx context.Context, chatID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return fmt.Errorf("chat id is required")
	}

	res, err := s.q().ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete chat rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListChatsForUser returns a page of chats where the user participates,
// most recently updated first.
func (s *Store) ListChatsForUser(ctx context.Context, userID string, pageSize, offset int) (storage.ChatPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ChatPage{}, err
	}
	if err := s.ready(); err != nil {
		return storage.ChatPage{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.ChatPage{}, fmt.Errorf("user id is required")
	}
	if pageSize <= 0 {
		return storage.ChatPage{}, fmt.Errorf("page size must be greater than zero")
	}
	if offset < 0 {
		return storage.ChatPage{}, fmt.Errorf("offset must not be negative")
	}

	rows, err := s.q().QueryContext(ctx, `
SELECT c.id, c.name, c.description, c.kind, c.creator_id, c.created_at, c.updated_at
FROM chats c
JOIN participants p ON p.chat_id = c.id
WHERE p.user_id = ?
ORDER BY c.updated_at DESC, c.id
LIMIT ? OFFSET ?
`, userID, pageSize+1, offset)
	if err != nil {
		return storage.ChatPage{}, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	page := storage.ChatPage{Chats: make([]domain.Chat, 0, pageSize)}
	for rows.Next() {
		var (
			c         domain.Chat
			kind      int
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &kind, &c.CreatorID, &createdAt, &updatedAt); err != nil {
			return storage.ChatPage{}, fmt.Errorf("scan chat row: %w", err)
		}
		c.Kind = domain.Kind(kind)
		c.CreatedAt = fromMillis(createdAt)
		c.UpdatedAt = fromMillis(updatedAt)
		page.Chats = append(page.Chats, c)
	}
	if err := rows.Err(); err != nil {
		return storage.ChatPage{}, fmt.Errorf("iterate chat rows: %w", err)
	}

	if len(page.Chats) > pageSize {
		page.Chats = page.Chats[:pageSize]
		page.HasMore = true
	}
	return page, nil
}
