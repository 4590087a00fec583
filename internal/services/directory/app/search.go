package app

import (
	"context"
	"fmt"
	"time"

	"github.com/parleyhq/parley/internal/platform/pagination"
	"github.com/parleyhq/parley/internal/services/directory/domain"
	"github.com/parleyhq/parley/internal/services/directory/search"
	"github.com/parleyhq/parley/internal/services/directory/storage"
)

// SearchFilters narrows a message search.
type SearchFilters struct {
	AuthorID string
	Type     domain.MessageType
	From     time.Time
	To       time.Time
}

// SearchResultPage is a ranked page of search hits with highlight spans.
type SearchResultPage struct {
	Results  []search.Result
	Page     int
	PageSize int
	HasMore  bool
}

func (a *App) searchChats(ctx context.Context, chatIDs []string, query string, filters SearchFilters, page, pageSize int) (SearchResultPage, error) {
	page = pagination.ClampPage(page)
	pageSize = pagination.ClampPageSize(pageSize, searchPageSizes)
	empty := SearchResultPage{Page: page, PageSize: pageSize}

	// Short queries return empty rather than erroring so client-side
	// incremental search stays quiet.
	if search.TooShort(query) {
		return empty, nil
	}
	tokens := search.Tokens(query)
	if len(tokens) == 0 || len(chatIDs) == 0 {
		return empty, nil
	}

	candidates, err := a.store.SearchMessages(ctx, storage.SearchQuery{
		ChatIDs:  chatIDs,
		Needles:  tokens,
		AuthorID: filters.AuthorID,
		Type:     filters.Type,
		From:     filters.From,
		To:       filters.To,
	})
	if err != nil {
		return SearchResultPage{}, fmt.Errorf("search messages: %w", err)
	}

	ranked := search.Rank(candidates, tokens)
	offset := pagination.Offset(page, pageSize)
	if offset >= len(ranked) {
		return empty, nil
	}
	end := offset + pageSize
	hasMore := end < len(ranked)
	if !hasMore {
		end = len(ranked)
	}
	return SearchResultPage{
		Results:  ranked[offset:end],
		Page:     page,
		PageSize: pageSize,
		HasMore:  hasMore,
	}, nil
}

// SearchGlobal searches every chat where the user is an active, non-banned
// participant.
func (a *App) SearchGlobal(ctx context.Context, userID, query string, filters SearchFilters, page, pageSize int) (SearchResultPage, error) {
	chatIDs, err := a.store.ListChatIDsByUser(ctx, userID)
	if err != nil {
		return SearchResultPage{}, fmt.Errorf("list chat ids: %w", err)
	}

	active := make([]string, 0, len(chatIDs))
	for _, chatID := range chatIDs {
		participant, err := a.store.GetParticipant(ctx, chatID, userID)
		if err != nil {
			return SearchResultPage{}, fmt.Errorf("get participant: %w", err)
		}
		if !participant.Banned(a.now()) {
			active = append(active, chatID)
		}
	}
	return a.searchChats(ctx, active, query, filters, page, pageSize)
}

// SearchInChat searches one chat; Forbidden for non-participants.
func (a *App) SearchInChat(ctx context.Context, chatID, userID, query string, filters SearchFilters, page, pageSize int) (SearchResultPage, error) {
	if _, err := getChat(ctx, a.store, chatID); err != nil {
		return SearchResultPage{}, err
	}
	if _, err := requireActiveParticipant(ctx, a.store, chatID, userID, a.now()); err != nil {
		return SearchResultPage{}, err
	}
	return a.searchChats(ctx, []string{chatID}, query, filters, page, pageSize)
}
