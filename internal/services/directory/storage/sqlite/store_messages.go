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

const messageColumns = `id, chat_id, author_id, content, msg_type, created_at, edited_at, deleted_at, pinned, client_message_id, file_url, file_name, file_size, file_mime`

// PutMessage inserts or replaces a message row. Edits, soft deletes, and
// pin flips all flow through this single write path.
func (s *Store) PutMessage(ctx context.Context, m domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("message id is required")
	}
	if strings.TrimSpace(m.ChatID) == "" {
		return fmt.Errorf("chat id is required")
	}
	if strings.TrimSpace(m.AuthorID) == "" {
		return fmt.Errorf("author id is required")
	}

	var fileURL, fileName, fileMime sql.NullString
	var fileSize sql.NullInt64
	if m.File != nil {
		fileURL = sql.NullString{String: m.File.URL, Valid: true}
		fileName = sql.NullString{String: m.File.Name, Valid: true}
		fileSize = sql.NullInt64{Int64: m.File.Size, Valid: true}
		fileMime = sql.NullString{String: m.File.MimeType, Valid: true}
	}

	_, err := s.q().ExecContext(ctx, `
INSERT INTO messages (
	id, chat_id, author_id, content, msg_type, created_at, edited_at, deleted_at, pinned, client_message_id, file_url, file_name, file_size, file_mime
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content = excluded.content,
	msg_type = excluded.msg_type,
	edited_at = excluded.edited_at,
	deleted_at = excluded.deleted_at,
	pinned = excluded.pinned,
	file_url = excluded.file_url,
	file_name = excluded.file_name,
	file_size = excluded.file_size,
	file_mime = excluded.file_mime
`,
		m.ID,
		m.ChatID,
		m.AuthorID,
		m.Content,
		int(m.Type),
		toMillis(m.CreatedAt),
		nullMillis(m.EditedAt),
		nullMillis(m.DeletedAt),
		m.Pinned,
		nullString(strings.TrimSpace(m.ClientMessageID)),
		fileURL,
		fileName,
		fileSize,
		fileMime,
	)
	if err != nil {
		return fmt.Errorf("put message: %w", err)
	}
	return nil
}

func scanMessage(scan func(dest ...any) error) (domain.Message, error) {
	var (
		m               domain.Message
		msgType         int
		createdAt       int64
		editedAt        sql.NullInt64
		deletedAt       sql.NullInt64
		clientMessageID sql.NullString
		fileURL         sql.NullString
		fileName        sql.NullString
		fileSize        sql.NullInt64
		fileMime        sql.NullString
	)
	if err := scan(
		&m.ID,
		&m.ChatID,
		&m.AuthorID,
		&m.Content,
		&msgType,
		&createdAt,
		&editedAt,
		&deletedAt,
		&m.Pinned,
		&clientMessageID,
		&fileURL,
		&fileName,
		&fileSize,
		&fileMime,
	); err != nil {
		return domain.Message{}, err
	}
	m.Type = domain.MessageType(msgType)
	m.CreatedAt = fromMillis(createdAt)
	m.EditedAt = millisPtr(editedAt)
	m.DeletedAt = millisPtr(deletedAt)
	m.ClientMessageID = clientMessageID.String
	if fileURL.Valid {
		m.File = &domain.FileMetadata{
			URL:      fileURL.String,
			Name:     fileName.String,
			Size:     fileSize.Int64,
			MimeType: fileMime.String,
		}
	}
	return m, nil
}

// GetMessage fetches a message by ID.
func (s *Store) GetMessage(ctx context.Context, messageID string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Message{}, err
	}
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return domain.Message{}, fmt.Errorf("message id is required")
	}

	row := s.q().QueryRowContext(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE id = ?
`, messageID)

	m, err := scanMessage(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Message{}, storage.ErrNotFound
		}
		return domain.Message{}, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// GetMessageByClientID resolves a client-supplied idempotency token to the
// message it already produced.
func (s *Store) GetMessageByClientID(ctx context.Context, chatID, clientMessageID string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Message{}, err
	}
	chatID = strings.TrimSpace(chatID)
	clientMessageID = strings.TrimSpace(clientMessageID)
	if chatID == "" {
		return domain.Message{}, fmt.Errorf("chat id is required")
	}
	if clientMessageID == "" {
		return domain.Message{}, fmt.Errorf("client message id is required")
	}

	row := s.q().QueryRowContext(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE chat_id = ? AND client_message_id = ?
`, chatID, clientMessageID)

	m, err := scanMessage(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Message{}, storage.ErrNotFound
		}
		return domain.Message{}, fmt.Errorf("get message by client id: %w", err)
	}
	return m, nil
}

// ListMessages returns a page of messages ordered by (created_at, id)
// ascending. Soft-deleted rows are included so page offsets stay stable;
// callers render them as tombstones.
func (s *Store) ListMessages(ctx context.Context, chatID string, pageSize, offset int) (storage.MessagePage, error) {
	if err := ctx.Err(); err != nil {
		return storage.MessagePage{}, err
	}
	if err := s.ready(); err != nil {
		return storage.MessagePage{}, err
	}
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return storage.MessagePage{}, fmt.Errorf("chat id is required")
	}
	if pageSize <= 0 {
		return storage.MessagePage{}, fmt.Errorf("page size must be greater than zero")
	}
	if offset < 0 {
		return storage.MessagePage{}, fmt.Errorf("offset must not be negative")
	}

	rows, err := s.q().QueryContext(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE chat_id = ?
ORDER BY created_at, id
LIMIT ? OFFSET ?
`, chatID, pageSize+1, offset)
	if err != nil {
		return storage.MessagePage{}, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	page := storage.MessagePage{Messages: make([]domain.Message, 0, pageSize)}
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return storage.MessagePage{}, fmt.Errorf("scan message row: %w", err)
		}
		page.Messages = append(page.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return storage.MessagePage{}, fmt.Errorf("iterate message rows: %w", err)
	}

	if len(page.Messages) > pageSize {
		page.Messages = page.Messages[:pageSize]
		page.HasMore = true
	}
	return page, nil
}

// ListPinnedMessages returns the pinned, non-deleted messages of a chat in
// chronological order.
func (s *Store) ListPinnedMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("chat id is required")
	}

	rows, err := s.q().QueryContext(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE chat_id = ? AND pinned = 1 AND deleted_at IS NULL
ORDER BY created_at, id
`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list pinned messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan pinned message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pinned message rows: %w", err)
	}
	return messages, nil
}

// ClearPins unmarks every pinned message of a chat.
func (s *Store) ClearPins(ctx context.Context, chatID string) error {
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

	_, err := s.q().ExecContext(ctx, `
UPDATE messages
SET pinned = 0
WHERE chat_id = ? AND pinned = 1
`, chatID)
	if err != nil {
		return fmt.Errorf("clear pins: %w", err)
	}
	return nil
}
