package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/internal/services/directory/domain"
	"github.com/parleyhq/parley/internal/services/directory/storage"
)

const searchCandidateCap = 500

// SearchMessages returns non-deleted candidate messages matching the query
// prefilter, newest first. Ranking and highlighting happen above the store.
func (s *Store) SearchMessages(ctx context.Context, q storage.SearchQuery) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(q.ChatIDs) == 0 {
		return nil, nil
	}
	needles := make([]string, 0, len(q.Needles))
	for _, needle := range q.Needles {
		if needle = strings.TrimSpace(needle); needle != "" {
			needles = append(needles, needle)
		}
	}
	if len(needles) == 0 {
		return nil, fmt.Errorf("at least one search needle is required")
	}
	limit := q.Limit
	if limit <= 0 || limit > searchCandidateCap {
		limit = searchCandidateCap
	}

	var sb strings.Builder
	args := make([]any, 0, len(q.ChatIDs)+6)
	sb.WriteString(`
SELECT ` + messageColumns + `
FROM messages
WHERE deleted_at IS NULL
AND chat_id IN (`)
	for i, chatID := range q.ChatIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("?")
		args = append(args, chatID)
	}
	sb.WriteString(")")

	// ESCAPE so literal % and _ in user queries do not widen the match.
	sb.WriteString(" AND (")
	for i, needle := range needles {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString("lower(content) LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(strings.ToLower(needle))+"%")
	}
	sb.WriteString(")")

	if author := strings.TrimSpace(q.AuthorID); author != "" {
		sb.WriteString(" AND author_id = ?")
		args = append(args, author)
	}
	if q.Type != domain.MessageTypeUnspecified {
		sb.WriteString(" AND msg_type = ?")
		args = append(args, int(q.Type))
	}
	if !q.From.IsZero() {
		sb.WriteString(" AND created_at >= ?")
		args = append(args, toMillis(q.From))
	}
	if !q.To.IsZero() {
		sb.WriteString(" AND created_at <= ?")
		args = append(args, toMillis(q.To))
	}

	sb.WriteString(" ORDER BY created_at DESC, id LIMIT ?")
	args = append(args, limit)

	rows, err := s.q().QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return messages, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
