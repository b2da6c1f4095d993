package db

// TargetSchemaVersion is the highest schema version this build of the code
// understands. ApplyMigrations brings any older installation up to it.
const TargetSchemaVersion int64 = 2

// A Migration is the ordered list of schema statements for one version.
// Every statement is guarded so that re-running it against a partially
// migrated or hand-patched installation is harmless.
type Migration struct {
	Version    int64
	Statements []string
}

// Migrations holds every known schema version in ascending order.
//
// Version 1 is the original release schema: the version-tracking table,
// groups, memos, and their indexes. Version 2 added group archiving.
var Migrations = []Migration{
	{
		Version: 1,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);`,
			`CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    color TEXT NOT NULL,
    icon TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);`,
			`CREATE TABLE IF NOT EXISTS memos (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    content TEXT,
    image_uri TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    is_deleted INTEGER NOT NULL DEFAULT 0
);`,
			`CREATE INDEX IF NOT EXISTS idx_memos_group_id ON memos(group_id);`,
			`CREATE INDEX IF NOT EXISTS idx_memos_created_at ON memos(created_at);`,
			`CREATE INDEX IF NOT EXISTS idx_groups_updated_at ON groups(updated_at);`,
		},
	},
	{
		Version: 2,
		Statements: []string{
			// ALTER TABLE has no IF NOT EXISTS; alreadyApplied in
			// migrate.go probes the column before running this.
			`ALTER TABLE groups ADD COLUMN is_archived INTEGER NOT NULL DEFAULT 0;`,
			`CREATE INDEX IF NOT EXISTS idx_groups_is_archived ON groups(is_archived);`,
		},
	},
}
