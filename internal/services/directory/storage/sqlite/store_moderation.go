package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/internal/services/directory/domain"
)

// AppendAdminAction writes one audit entry. The log is append-only; there
// is no update or delete path.
func (s *Store) AppendAdminAction(ctx context.Context, action domain.AdminAction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(action.ID) == "" {
		return fmt.Errorf("action id is required")
	}
	if strings.TrimSpace(action.ChatID) == "" {
		return fmt.Errorf("chat id is required")
	}
	if strings.TrimSpace(action.AdminID) == "" {
		return fmt.Errorf("admin id is required")
	}
	if strings.TrimSpace(string(action.Action)) == "" {
		return fmt.Errorf("action type is required")
	}
	if strings.TrimSpace(string(action.TargetType)) == "" {
		return fmt.Errorf("target type is required")
	}
	if strings.TrimSpace(action.TargetID) == "" {
		return fmt.Errorf("target id is required")
	}

	_, err := s.q().ExecContext(ctx, `
INSERT INTO admin_actions (
	id, chat_id, admin_id, action_type, target_type, target_id, reason, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		action.ID,
		action.ChatID,
		action.AdminID,
		string(action.Action),
		string(action.TargetType),
		action.TargetID,
		action.Reason,
		toMillis(action.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append admin action: %w", err)
	}
	return nil
}

// ListAdminActions returns a page of a chat's audit log, oldest first.
func (s *Store) ListAdminActions(ctx context.Context, chatID string, pageSize, offset int) ([]domain.AdminAction, error) {
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
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be greater than zero")
	}
	if offset < 0 {
		return nil, fmt.Errorf("offset must not be negative")
	}

	rows, err := s.q().QueryContext(ctx, `
SELECT id, chat_id, admin_id, action_type, target_type, target_id, reason, created_at
FROM admin_actions
WHERE chat_id = ?
ORDER BY created_at, id
LIMIT ? OFFSET ?
`, chatID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list admin actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.AdminAction
	for rows.Next() {
		var (
			action     domain.AdminAction
			actionType string
			targetType string
			createdAt  int64
		)
		if err := rows.Scan(
			&action.ID,
			&action.ChatID,
			&action.AdminID,
			&actionType,
			&targetType,
			&action.TargetID,
			&action.Reason,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan admin action row: %w", err)
		}
		action.Action = domain.ActionType(actionType)
		action.TargetType = domain.TargetType(targetType)
		action.CreatedAt = fromMillis(createdAt)
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin action rows: %w", err)
	}
	return actions, nil
}
