package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMemoNotFound = errors.New("memo not found")
)

const defaultMemoPageSize = 50

const (
	createMemoStatement = `
	INSERT INTO memos (id, group_id, content, image_uri, created_at, updated_at, is_deleted)
	VALUES (?, ?, ?, ?, ?, ?, 0)
	`

	touchGroupStatement = `
	UPDATE groups
	SET updated_at = ?
	WHERE id = ?
	`

	getMemoStatement = `
	SELECT id, group_id, content, image_uri, is_deleted, created_at, updated_at
	FROM memos
	WHERE id = ? AND is_deleted = 0
	`

	listMemosStatement = `
	SELECT id, group_id, content, image_uri, is_deleted, created_at, updated_at
	FROM memos
	WHERE group_id = ? AND is_deleted = 0
	ORDER BY created_at ASC
	LIMIT ? OFFSET ?
	`

	latestMemoStatement = `
	SELECT id, group_id, content, image_uri, is_deleted, created_at, updated_at
	FROM memos
	WHERE group_id = ? AND is_deleted = 0
	ORDER BY created_at DESC
	LIMIT 1
	`

	allMemosForExportStatement = `
	SELECT id, group_id, content, image_uri, is_deleted, created_at, updated_at
	FROM memos
	ORDER BY created_at ASC
	`

	updateMemoContentStatement = `
	UPDATE memos
	SET content = ?, updated_at = ?
	WHERE id = ? AND is_deleted = 0
	`

	softDeleteMemoStatement = `
	UPDATE memos
	SET is_deleted = 1, updated_at = ?
	WHERE id = ? AND is_deleted = 0
	`

	hardDeleteMemoStatement = `
	DELETE FROM memos
	WHERE id = ?
	`

	countMemosStatement = `
	SELECT COUNT(*) FROM memos
	WHERE group_id = ? AND is_deleted = 0
	`

	cleanDeletedMemosStatement = `
	DELETE FROM memos
	WHERE group_id = ? AND is_deleted = 1
	`

	countImageMemosStatement = `
	SELECT COUNT(*) FROM memos
	WHERE image_uri IS NOT NULL
	`
)

func scanMemo(row groupScanner) (Memo, error) {
	var (
		m                  Memo
		content, imageURI  sql.NullString
		createdAt, updated int64
	)
	err := row.Scan(&m.ID, &m.GroupID, &content, &imageURI, &m.IsDeleted, &createdAt, &updated)
	if err != nil {
		return Memo{}, err
	}
	m.Content = content.String
	m.ImageURI = imageURI.String
	m.CreatedAt = time.UnixMilli(createdAt)
	m.UpdatedAt = time.UnixMilli(updated)
	return m, nil
}

// CreateMemo inserts the memo and advances the parent group's updated_at in
// one transaction. Neither write is ever observable without the other; the
// group's recency indicator can not go stale relative to its newest memo.
func CreateMemo(ctx context.Context, db *sql.DB, input CreateMemoInput) (Memo, error) {
	id := uuid.NewString()
	now := time.Now().UnixMilli()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Memo{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, touchGroupStatement, now, input.GroupID)
	if err != nil {
		return Memo{}, err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return Memo{}, err
	}
	if rowsAffected == 0 {
		return Memo{}, ErrGroupNotFound
	}

	_, err = tx.ExecContext(
		ctx,
		createMemoStatement,
		id,
		input.GroupID,
		nullable(input.Content),
		nullable(input.ImageURI),
		now,
		now,
	)
	if err != nil {
		return Memo{}, fmt.Errorf("failed to create memo: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Memo{}, err
	}

	return GetMemo(ctx, db, id)
}

// GetMemo returns the memo with the given id. Soft-deleted memos are not
// addressable here; they only surface as tombstones in audit views.
func GetMemo(ctx context.Context, db *sql.DB, id string) (Memo, error) {
	m, err := scanMemo(db.QueryRowContext(ctx, getMemoStatement, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Memo{}, ErrMemoNotFound
		}
		return Memo{}, err
	}
	return m, nil
}

// ListMemos returns a page of the group's visible memos in chronological
// chat order. A non-positive limit falls back to the default page size.
func ListMemos(ctx context.Context, db *sql.DB, groupID string, limit, offset int) ([]Memo, error) {
	if limit <= 0 {
		limit = defaultMemoPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return queryMemos(ctx, db, listMemosStatement, groupID, limit, offset)
}

// AllMemosForExport returns every memo unfiltered, tombstones included.
func AllMemosForExport(ctx context.Context, db *sql.DB) ([]Memo, error) {
	return queryMemos(ctx, db, allMemosForExportStatement)
}

func queryMemos(ctx context.Context, db *sql.DB, query string, args ...any) ([]Memo, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memos []Memo
	for rows.Next() {
		m, err := scanMemo(rows)
		if err != nil {
			return nil, err
		}
		memos = append(memos, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return memos, nil
}

// UpdateMemoContent edits a memo's content in place and bumps updated_at.
// Tombstoned memos can not be edited.
func UpdateMemoContent(ctx context.Context, db *sql.DB, id, content string) (Memo, error) {
	res, err := db.ExecContext(ctx, updateMemoContentStatement, nullable(content), time.Now().UnixMilli(), id)
	if err != nil {
		return Memo{}, err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return Memo{}, err
	}
	if rowsAffected == 0 {
		return Memo{}, ErrMemoNotFound
	}

	return GetMemo(ctx, db, id)
}

// SoftDeleteMemo marks the memo as a tombstone. The row stays in storage and
// in backups but disappears from listings, counts and search.
func SoftDeleteMemo(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx, softDeleteMemoStatement, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrMemoNotFound
	}
	return nil
}

// HardDeleteMemo physically removes the row. Permanent-purge flows only.
func HardDeleteMemo(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx, hardDeleteMemoStatement, id)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrMemoNotFound
	}
	return nil
}

// CountMemos returns the number of visible memos in a group.
func CountMemos(ctx context.Context, db *sql.DB, groupID string) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, countMemosStatement, groupID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// LatestMemo returns the group's most recent visible memo, or ErrMemoNotFound
// when the group has none.
func LatestMemo(ctx context.Context, db *sql.DB, groupID string) (Memo, error) {
	m, err := scanMemo(db.QueryRowContext(ctx, latestMemoStatement, groupID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Memo{}, ErrMemoNotFound
		}
		return Memo{}, err
	}
	return m, nil
}

// CleanDeletedMemos purges every tombstoned memo in the group and returns the
// number of rows removed.
func CleanDeletedMemos(ctx context.Context, db *sql.DB, groupID string) (int64, error) {
	res, err := db.ExecContext(ctx, cleanDeletedMemosStatement, groupID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountImageMemos counts memos carrying an image reference, tombstones
// included. Feeds backup statistics.
func CountImageMemos(ctx context.Context, db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, countImageMemosStatement).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
