package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// welcome content inserted exactly once on a brand-new installation.
var welcomeMemos = []string{
	"Welcome to chatmemo! Notes you send here read like a chat.",
	"Swipe a memo to edit or delete it. Deleted memos become tombstones until purged.",
	"Use backups to move your data between devices as a single JSON file.",
}

// SeedWelcomeData populates the example group and memos, but only when the
// install is fresh (no schema version had ever been recorded) AND the store
// holds no groups. A store the user deliberately emptied has a version marker,
// so their deleted content is never resurrected.
func SeedWelcomeData(ctx context.Context, db *sql.DB, fresh bool, log zerolog.Logger) error {
	if !fresh {
		return nil
	}

	var groupCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM groups;`).Scan(&groupCount); err != nil {
		return fmt.Errorf("failed to count groups before seeding: %w", err)
	}
	if groupCount > 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	groupID := uuid.NewString()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, color, icon, is_archived, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?);`,
		groupID, "Getting started", "A few notes to show you around", "blue", "👋", now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert welcome group: %w", err)
	}

	for i, content := range welcomeMemos {
		// Stagger createdAt so the chat renders in authoring order.
		ts := now + int64(i)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO memos (id, group_id, content, image_uri, created_at, updated_at, is_deleted)
			 VALUES (?, ?, ?, NULL, ?, ?, 0);`,
			uuid.NewString(), groupID, content, ts, ts,
		)
		if err != nil {
			return fmt.Errorf("failed to insert welcome memo: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info().Str("group_id", groupID).Int("memos", len(welcomeMemos)).Msg("seeded welcome data")
	return nil
}
