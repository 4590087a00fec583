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

// PutParticipant inserts or replaces a participant row.
func (s *Store) PutParticipant(ctx context.Context, p domain.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(p.ChatID) == "" {
		return fmt.Errorf("chat id is required")
	}
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("user id is required")
	}

	_, err := s.q().ExecContext(ctx, `
INSERT INTO participants (
	chat_id, user_id, role, joined_at, updated_at, banned_at, banned_until, ban_reason
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(chat_id, user_id) DO UPDATE SET
	role = excluded.role,
	updated_at = excluded.updated_at,
	banned_at = excluded.banned_at,
	banned_until = excluded.banned_until,
	ban_reason = excluded.ban_reason
`,
		p.ChatID,
		p.UserID,
		int(p.Role),
		toMillis(p.JoinedAt),
		toMillis(p.UpdatedAt),
		nullMillis(p.BannedAt),
		nullMillis(p.BannedUntil),
		p.BanReason,
	)
	if err != nil {
		return fmt.Errorf("put participant: %w", err)
	}
	return nil
}

func scanParticipant(scan func(dest ...any) error) (domain.Participant, error) {
	var (
		p           domain.Participant
		role        int
		joinedAt    int64
		updatedAt   int64
		bannedAt    sql.NullInt64
		bannedUntil sql.NullInt64
	)
	if err := scan(&p.ChatID, &p.UserID, &role, &joinedAt, &updatedAt, &bannedAt, &bannedUntil, &p.BanReason); err != nil {
		return domain.Participant{}, err
	}
	p.Role = domain.Role(role)
	p.JoinedAt = fromMillis(joinedAt)
	p.UpdatedAt = fromMillis(updatedAt)
	p.BannedAt = millisPtr(bannedAt)
	p.BannedUntil = millisPtr(bannedUntil)
	return p, nil
}

// GetParticipant fetches one membership row.
func (s *Store) GetParticipant(ctx context.Context, chatID, userID string) (domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Participant{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Participant{}, err
	}
	chatID = strings.TrimSpace(chatID)
	userID = strings.TrimSpace(userID)
	if chatID == "" {
		return domain.Participant{}, fmt.Errorf("chat id is required")
	}
	if userID == "" {
		return domain.Participant{}, fmt.Errorf("user id is required")
	}

	row := s.q().QueryRowContext(ctx, `
SELECT chat_id, user_id, role, joined_at, updated_at, banned_at, banned_until, ban_reason
FROM participants
WHERE chat_id = ? AND user_id = ?
`, chatID, userID)

	p, err := scanParticipant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Participant{}, storage.ErrNotFound
		}
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

// DeleteParticipant removes one membership row.
func (s *Store) DeleteParticipant(ctx context.Context, chatID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	chatID = strings.TrimSpace(chatID)
	userID = strings.TrimSpace(userID)
	if chatID == "" {
		return fmt.Errorf("chat id is required")
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	res, err := s.q().ExecContext(ctx, `
DELETE FROM participants
WHERE chat_id = ? AND user_id = ?
`, chatID, userID)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete participant rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListParticipantsByChat returns every membership row of a chat, owners
// first, then by join time.
func (s *Store) ListParticipantsByChat(ctx context.Context, chatID string) ([]domain.Participant, error) {
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
SELECT chat_id, user_id, role, joined_at, updated_at, banned_at, banned_until, ban_reason
FROM participants
WHERE chat_id = ?
ORDER BY role DESC, joined_at, user_id
`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan participant row: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participant rows: %w", err)
	}
	return participants, nil
}

// ListChatIDsByUser returns the IDs of every chat the user belongs to.
func (s *Store) ListChatIDsByUser(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.q().QueryContext(ctx, `
SELECT chat_id
FROM participants
WHERE user_id = ?
ORDER BY chat_id
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat ids: %w", err)
	}
	defer rows.Close()

	var chatIDs []string
	for rows.Next() {
		var chatID string
		if err := rows.Scan(&chatID); err != nil {
			return nil, fmt.Errorf("scan chat id row: %w", err)
		}
		chatIDs = append(chatIDs, chatID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat id rows: %w", err)
	}
	return chatIDs, nil
}

// CountParticipants returns how many membership rows a chat has.
func (s *Store) CountParticipants(ctx context.Context, chatID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return 0, fmt.Errorf("chat id is required")
	}

	row := s.q().QueryRowContext(ctx, `
SELECT COUNT(*)
FROM participants
WHERE chat_id = ?
`, chatID)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}
