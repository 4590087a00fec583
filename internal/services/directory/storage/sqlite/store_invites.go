package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/services/directory/domain"
	"github.com/parleyhq/parley/internal/services/directory/storage"
)

const inviteColumns = `id, chat_id, inviter_id, invitee_id, status, expires_at, created_at, updated_at`

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed")
}

// PutInvite inserts or replaces an invite row. The schema keeps at most one
// pending invite per (chat, invitee) pair.
func (s *Store) PutInvite(ctx context.Context, inv domain.Invite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(inv.ID) == "" {
		return fmt.Errorf("invite id is required")
	}
	if strings.TrimSpace(inv.ChatID) == "" {
		return fmt.Errorf("chat id is required")
	}
	if strings.TrimSpace(inv.InviterID) == "" {
		return fmt.Errorf("inviter id is required")
	}
	if strings.TrimSpace(inv.InviteeID) == "" {
		return fmt.Errorf("invitee id is required")
	}

	var expiresAt sql.NullInt64
	if !inv.ExpiresAt.IsZero() {
		expiresAt = sql.NullInt64{Int64: toMillis(inv.ExpiresAt), Valid: true}
	}

	_, err := s.q().ExecContext(ctx, `
INSERT INTO invites (
	id, chat_id, inviter_id, invitee_id, status, expires_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status = excluded.status,
	expires_at = excluded.expires_at,
	updated_at = excluded.updated_at
`,
		inv.ID,
		inv.ChatID,
		inv.InviterID,
		inv.InviteeID,
		int(inv.Status),
		expiresAt,
		toMillis(inv.CreatedAt),
		toMillis(inv.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrDuplicatePendingInvite
		}
		return fmt.Errorf("put invite: %w", err)
	}
	return nil
}

func scanInvite(scan func(dest ...any) error) (domain.Invite, error) {
	var (
		inv       domain.Invite
		status    int
		expiresAt sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	if err := scan(&inv.ID, &inv.ChatID, &inv.InviterID, &inv.InviteeID, &status, &expiresAt, &createdAt, &updatedAt); err != nil {
		return domain.Invite{}, err
	}
	inv.Status = domain.InviteStatus(status)
	if expiresAt.Valid {
		inv.ExpiresAt = fromMillis(expiresAt.Int64)
	}
	inv.CreatedAt = fromMillis(createdAt)
	inv.UpdatedAt = fromMillis(updatedAt)
	return inv, nil
}

// GetInvite fetches an invite by ID.
func (s *Store) GetInvite(ctx context.Context, inviteID string) (domain.Invite, error) {
	if err := ctx.Err(); err != nil {
		return domain.Invite{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Invite{}, err
	}
	inviteID = strings.TrimSpace(inviteID)
	if inviteID == "" {
		return domain.Invite{}, fmt.Errorf("invite id is required")
	}

	row := s.q().QueryRowContext(ctx, `
SELECT `+inviteColumns+`
FROM invites
WHERE id = ?
`, inviteID)

	inv, err := scanInvite(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Invite{}, storage.ErrNotFound
		}
		return domain.Invite{}, fmt.Errorf("get invite: %w", err)
	}
	return inv, nil
}

// DeleteInvite hard-deletes an invite row.
func (s *Store) DeleteInvite(ctx context.Context, inviteID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	inviteID = strings.TrimSpace(inviteID)
	if inviteID == "" {
		return fmt.Errorf("invite id is required")
	}

	res, err := s.q().ExecContext(ctx, `DELETE FROM invites WHERE id = ?`, inviteID)
	if err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete invite rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListInvitesForInvitee returns every invite addressed to a user, newest
// first.
func (s *Store) ListInvitesForInvitee(ctx context.Context, userID string) ([]domain.Invite, error) {
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
SELECT `+inviteColumns+`
FROM invites
WHERE invitee_id = ?
ORDER BY created_at DESC, id
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list invites for invitee: %w", err)
	}
	defer rows.Close()

	var invites []domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan invite row: %w", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invite rows: %w", err)
	}
	return invites, nil
}

// ListInvitesByChat returns every invite of a chat, newest first.
func (s *Store) ListInvitesByChat(ctx context.Context, chatID string) ([]domain.Invite, error) {
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
SELECT `+inviteColumns+`
FROM invites
WHERE chat_id = ?
ORDER BY created_at DESC, id
`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list invites by chat: %w", err)
	}
	defer rows.Close()

	var invites []domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan invite row: %w", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invite rows: %w", err)
	}
	return invites, nil
}

// ExpirePendingInvites flips past-due pending invites to expired and
// returns how many rows changed.
func (s *Store) ExpirePendingInvites(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}

	res, err := s.q().ExecContext(ctx, `
UPDATE invites
SET status = ?, updated_at = ?
WHERE status = ? AND expires_at IS NOT NULL AND expires_at <= ?
`,
		int(domain.InviteStatusExpired),
		toMillis(now),
		int(domain.InviteStatusPending),
		toMillis(now),
	)
	if err != nil {
		return 0, fmt.Errorf("expire pending invites: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire pending invites rows affected: %w", err)
	}
	return affected, nil
}
