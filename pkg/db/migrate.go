package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CurrentSchemaVersion returns the highest recorded schema version.
// Returns 0 on a fresh database where the version table does not exist yet.
func CurrentSchemaVersion(ctx context.Context, db *sql.DB) (int64, error) {
	row := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`)

	var version int64
	err := row.Scan(&version)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// ApplyMigrations advances the schema from version `from` to version `to`,
// applying each intermediate version's statements inside a single transaction
// together with its version record. A no-op when from == to.
//
// Any statement failure rolls back the whole version and is returned to the
// caller; the application must treat that as fatal and not use the store.
func ApplyMigrations(ctx context.Context, db *sql.DB, from, to int64) error {
	if from == to {
		return nil
	}
	if from > to {
		return fmt.Errorf("database schema version %d is newer than supported version %d; upgrade the application", from, to)
	}

	for _, m := range Migrations {
		if m.Version <= from || m.Version > to {
			continue
		}
		if err := applyOne(ctx, db, m); err != nil {
			return fmt.Errorf("migration to version %d failed: %w", m.Version, err)
		}
	}
	return nil
}

func applyOne(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range m.Statements {
		skip, err := alreadyApplied(ctx, tx, stmt)
		if err != nil {
			return err
		}
		if skip {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %q: %w", firstLine(stmt), err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?);`,
		m.Version, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record version %d: %w", m.Version, err)
	}

	return tx.Commit()
}

var addColumnRe = regexp.MustCompile(`(?i)^\s*ALTER\s+TABLE\s+(\w+)\s+ADD\s+COLUMN\s+(\w+)`)

// alreadyApplied reports whether an unguarded DDL statement has already taken
// effect. CREATE statements carry IF NOT EXISTS guards in schema.go, but
// ALTER TABLE ... ADD COLUMN has no such form in SQLite, so the column is
// probed here. Installations that were hand-patched to an intermediate state
// would otherwise break the version batch.
func alreadyApplied(ctx context.Context, tx *sql.Tx, stmt string) (bool, error) {
	match := addColumnRe.FindStringSubmatch(stmt)
	if match == nil {
		return false, nil
	}
	table, column := match[1], match[2]

	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s);`, table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// UpgradeDB brings the database to TargetSchemaVersion and reports whether the
// store was a fresh install (no schema version ever recorded). Safe to call on
// every startup.
func UpgradeDB(ctx context.Context, db *sql.DB, log zerolog.Logger) (fresh bool, err error) {
	current, err := CurrentSchemaVersion(ctx, db)
	if err != nil {
		return false, err
	}

	if current == TargetSchemaVersion {
		log.Debug().Int64("version", current).Msg("schema up to date")
		return false, nil
	}

	log.Info().
		Int64("from", current).
		Int64("to", TargetSchemaVersion).
		Msg("applying schema migrations")

	if err := ApplyMigrations(ctx, db, current, TargetSchemaVersion); err != nil {
		return false, err
	}
	return current == 0, nil
}
