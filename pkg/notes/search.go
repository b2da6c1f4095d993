package notes

import (
	"context"
	"database/sql"
	"time"
)

const (
	searchByDateRangeStatement = `
	SELECT id, group_id, content, image_uri, is_deleted, created_at, updated_at
	FROM memos
	WHERE group_id = ? AND is_deleted = 0 AND created_at >= ? AND created_at <= ?
	ORDER BY created_at ASC
	`

	// instr over lowered text instead of LIKE: matching must not depend on
	// the store's collation or escape handling of user input.
	searchByTextStatement = `
	SELECT id, group_id, content, image_uri, is_deleted, created_at, updated_at
	FROM memos
	WHERE group_id = ? AND is_deleted = 0
	      AND content IS NOT NULL AND instr(lower(content), lower(?)) > 0
	ORDER BY created_at ASC
	`
)

// SearchMemosByDateRange returns the group's visible memos created within
// [start, end], in chronological order.
func SearchMemosByDateRange(ctx context.Context, db *sql.DB, groupID string, start, end time.Time) ([]Memo, error) {
	return queryMemos(ctx, db, searchByDateRangeStatement, groupID, start.UnixMilli(), end.UnixMilli())
}

// SearchMemosByText returns the group's visible memos whose content contains
// the query as a substring. Matching is case-insensitive.
func SearchMemosByText(ctx context.Context, db *sql.DB, groupID, query string) ([]Memo, error) {
	if query == "" {
		return []Memo{}, nil
	}
	return queryMemos(ctx, db, searchByTextStatement, groupID, query)
}
