package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrGroupNotFound = errors.New("group not found")
)

const (
	createGroupStatement = `
	INSERT INTO groups (id, name, description, color, icon, is_archived, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`

	getGroupStatement = `
	SELECT id, name, description, color, icon, is_archived, created_at, updated_at
	FROM groups
	WHERE id = ?
	`

	// One correlated lookup picks each group's latest visible memo; the whole
	// listing is a single query regardless of group count.
	listGroupsStatement = `
	SELECT g.id, g.name, g.description, g.color, g.icon, g.is_archived, g.created_at, g.updated_at,
	       m.content, m.created_at
	FROM groups g
	LEFT JOIN memos m ON m.id = (
		SELECT m2.id
		FROM memos m2
		WHERE m2.group_id = g.id AND m2.is_deleted = 0
		ORDER BY m2.created_at DESC, m2.id DESC
		LIMIT 1
	)
	WHERE g.is_archived = 0
	ORDER BY COALESCE(m.created_at, g.updated_at) DESC
	`

	listArchivedGroupsStatement = `
	SELECT id, name, description, color, icon, is_archived, created_at, updated_at
	FROM groups
	WHERE is_archived = 1
	ORDER BY updated_at DESC
	`

	allGroupsForExportStatement = `
	SELECT id, name, description, color, icon, is_archived, created_at, updated_at
	FROM groups
	ORDER BY created_at ASC
	`

	setGroupArchivedStatement = `
	UPDATE groups
	SET is_archived = ?, updated_at = ?
	WHERE id = ?
	`

	deleteGroupStatement = `
	DELETE FROM groups
	WHERE id = ?
	`

	countGroupsStatement = `
	SELECT COUNT(*) FROM groups
	`
)

type groupScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row groupScanner) (Group, error) {
	var (
		g                  Group
		description, icon  sql.NullString
		createdAt, updated int64
	)
	err := row.Scan(&g.ID, &g.Name, &description, &g.Color, &icon, &g.IsArchived, &createdAt, &updated)
	if err != nil {
		return Group{}, err
	}
	g.Description = description.String
	g.Icon = icon.String
	g.CreatedAt = time.UnixMilli(createdAt)
	g.UpdatedAt = time.UnixMilli(updated)
	return g, nil
}

// nullable maps "" to SQL NULL, matching how optional text is stored.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CreateGroup persists a new group with a generated id and returns the stored
// row's canonical view.
func CreateGroup(ctx context.Context, db *sql.DB, input CreateGroupInput) (Group, error) {
	id := uuid.NewString()
	now := time.Now().UnixMilli()

	_, err := db.ExecContext(
		ctx,
		createGroupStatement,
		id,
		input.Name,
		nullable(input.Description),
		input.Color,
		nullable(input.Icon),
		now,
		now,
	)
	if err != nil {
		return Group{}, fmt.Errorf("failed to create group: %w", err)
	}

	return GetGroup(ctx, db, id)
}

// GetGroup returns the group with the given id, archived or not.
func GetGroup(ctx context.Context, db *sql.DB, id string) (Group, error) {
	g, err := scanGroup(db.QueryRowContext(ctx, getGroupStatement, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Group{}, ErrGroupNotFound
		}
		return Group{}, err
	}
	return g, nil
}

// ListGroups returns every non-archived group enriched with its latest
// visible memo, ordered most recently active first. Groups without memos
// fall back to their own updated_at for ordering.
func ListGroups(ctx context.Context, db *sql.DB) ([]GroupWithLastMemo, error) {
	rows, err := db.QueryContext(ctx, listGroupsStatement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []GroupWithLastMemo
	for rows.Next() {
		var (
			g                  GroupWithLastMemo
			description, icon  sql.NullString
			createdAt, updated int64
			lastContent        sql.NullString
			lastCreatedAt      sql.NullInt64
		)
		err := rows.Scan(
			&g.ID, &g.Name, &description, &g.Color, &icon, &g.IsArchived, &createdAt, &updated,
			&lastContent, &lastCreatedAt,
		)
		if err != nil {
			return nil, err
		}
		g.Description = description.String
		g.Icon = icon.String
		g.CreatedAt = time.UnixMilli(createdAt)
		g.UpdatedAt = time.UnixMilli(updated)
		g.LastMemo = lastContent.String
		if lastCreatedAt.Valid {
			g.LastMemoAt = time.UnixMilli(lastCreatedAt.Int64)
		}
		groups = append(groups, g)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return groups, nil
}

// ListArchivedGroups returns the archive view, most recently touched first.
func ListArchivedGroups(ctx context.Context, db *sql.DB) ([]Group, error) {
	return queryGroups(ctx, db, listArchivedGroupsStatement)
}

// AllGroupsForExport returns every group unfiltered, archived included.
// Backup export is a full dump, not the main-listing view.
func AllGroupsForExport(ctx context.Context, db *sql.DB) ([]Group, error) {
	return queryGroups(ctx, db, allGroupsForExportStatement)
}

func queryGroups(ctx context.Context, db *sql.DB, query string, args ...any) ([]Group, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return groups, nil
}

// UpdateGroup applies only the provided fields and bumps updated_at.
func UpdateGroup(ctx context.Context, db *sql.DB, id string, input UpdateGroupInput) (Group, error) {
	assignments := []string{"updated_at = ?"}
	args := []any{time.Now().UnixMilli()}

	if input.Name != nil {
		assignments = append(assignments, "name = ?")
		args = append(args, *input.Name)
	}
	if input.Description != nil {
		assignments = append(assignments, "description = ?")
		args = append(args, nullable(*input.Description))
	}
	if input.Color != nil {
		assignments = append(assignments, "color = ?")
		args = append(args, *input.Color)
	}
	if input.Icon != nil {
		assignments = append(assignments, "icon = ?")
		args = append(args, nullable(*input.Icon))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE groups SET %s WHERE id = ?", strings.Join(assignments, ", "))
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return Group{}, err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return Group{}, err
	}
	if rowsAffected == 0 {
		return Group{}, ErrGroupNotFound
	}

	return GetGroup(ctx, db, id)
}

// ArchiveGroup soft-hides the group from the main listing.
func ArchiveGroup(ctx context.Context, db *sql.DB, id string) error {
	return setGroupArchived(ctx, db, id, true)
}

// UnarchiveGroup returns the group to the main listing.
func UnarchiveGroup(ctx context.Context, db *sql.DB, id string) error {
	return setGroupArchived(ctx, db, id, false)
}

func setGroupArchived(ctx context.Context, db *sql.DB, id string, archived bool) error {
	res, err := db.ExecContext(ctx, setGroupArchivedStatement, archived, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// DeleteGroup removes the group irreversibly. The foreign key cascade
// physically deletes every memo in the group, tombstones included.
func DeleteGroup(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx, deleteGroupStatement, id)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// GroupNameExists reports whether another group already uses the exact name
// (case-sensitive). excludeID, when non-empty, ignores that row so a rename
// can keep its own name.
func GroupNameExists(ctx context.Context, db *sql.DB, name, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM groups WHERE name = ?`
	args := []any{name}
	if excludeID != "" {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountGroups returns the total number of groups, archived included.
func CountGroups(ctx context.Context, db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, countGroupsStatement).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
