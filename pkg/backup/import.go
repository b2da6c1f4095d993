package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidBackup marks documents that fail structural validation, as
	// opposed to I/O problems reading them.
	ErrInvalidBackup = errors.New("invalid backup file")

	// ErrImportInProgress is returned when a reconciliation run is already
	// underway. Import is not safe to run concurrently with itself.
	ErrImportInProgress = errors.New("an import is already in progress")
)

// renamedSuffix marks rows inserted by the rename duplicate strategy.
const renamedSuffix = " (imported)"

const (
	groupExistsStatement = `SELECT COUNT(*) FROM groups WHERE id = ?`
	memoExistsStatement  = `SELECT COUNT(*) FROM memos WHERE id = ?`

	insertGroupStatement = `
	INSERT INTO groups (id, name, description, color, icon, is_archived, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	overwriteGroupStatement = `
	UPDATE groups
	SET name = ?, description = ?, color = ?, icon = ?, is_archived = ?, updated_at = ?
	WHERE id = ?
	`

	insertMemoStatement = `
	INSERT INTO memos (id, group_id, content, image_uri, created_at, updated_at, is_deleted)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	overwriteMemoStatement = `
	UPDATE memos
	SET content = ?, image_uri = ?, is_deleted = ?, updated_at = ?
	WHERE id = ?
	`

	wipeMemosStatement  = `DELETE FROM memos`
	wipeGroupsStatement = `DELETE FROM groups`
)

// ParseDocument validates and deserializes a backup document. Every reject
// path wraps ErrInvalidBackup so callers can distinguish a malformed file
// from a file they could not read.
func ParseDocument(data []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidBackup)
	}

	version, err := stringField(raw, "version")
	if err != nil {
		return nil, err
	}
	if _, err := stringField(raw, "exportedAt"); err != nil {
		return nil, err
	}
	for _, field := range []string{"groups", "memos"} {
		if err := requireArray(raw, field); err != nil {
			return nil, err
		}
	}

	if !strings.HasPrefix(version, supportedMajorPrefix) {
		return nil, fmt.Errorf("%w: unsupported format version %q", ErrInvalidBackup, version)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return &doc, nil
}

func stringField(raw map[string]json.RawMessage, field string) (string, error) {
	msg, present := raw[field]
	if !present {
		return "", fmt.Errorf("%w: missing %q field", ErrInvalidBackup, field)
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return "", fmt.Errorf("%w: %q field is not a string", ErrInvalidBackup, field)
	}
	return s, nil
}

func requireArray(raw map[string]json.RawMessage, field string) error {
	msg, present := raw[field]
	if !present {
		return fmt.Errorf("%w: missing %q field", ErrInvalidBackup, field)
	}
	var probe []json.RawMessage
	if err := json.Unmarshal(msg, &probe); err != nil {
		return fmt.Errorf("%w: %q field is not an array", ErrInvalidBackup, field)
	}
	return nil
}

// PreviewImport describes the backup file at path without writing anything.
func PreviewImport(path string) Preview {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preview{Error: fmt.Sprintf("failed to read file: %v", err)}
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return Preview{Error: err.Error()}
	}
	return Preview{
		Valid:      true,
		GroupCount: len(doc.Groups),
		MemoCount:  len(doc.Memos),
		ExportedAt: doc.ExportedAt,
		Version:    doc.Version,
	}
}

// Importer merges backup documents into the live store. A single Importer
// allows one reconciliation run at a time; concurrent invocations fail fast
// with ErrImportInProgress rather than interleaving writes.
type Importer struct {
	Log zerolog.Logger

	inflight atomic.Bool
}

// NewImporter returns an Importer logging through log.
func NewImporter(log zerolog.Logger) *Importer {
	return &Importer{Log: log}
}

func failed(err error) ImportResult {
	return ImportResult{Error: err.Error()}
}

// ImportFromFile acquires a document through the picker and reconciles it.
// Cancellation during the pick ends the flow before any write occurs.
func (im *Importer) ImportFromFile(ctx context.Context, db *sql.DB, picker FilePicker, opts ImportOptions) ImportResult {
	path, ok, err := picker.PickFile(ctx)
	if err != nil {
		return failed(err)
	}
	if !ok {
		return ImportResult{Cancelled: true}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return failed(fmt.Errorf("failed to read backup file: %w", err))
	}
	return im.ImportData(ctx, db, data, opts)
}

// ImportData parses raw document bytes and reconciles them.
func (im *Importer) ImportData(ctx context.Context, db *sql.DB, data []byte, opts ImportOptions) ImportResult {
	doc, err := ParseDocument(data)
	if err != nil {
		return failed(err)
	}
	return im.Import(ctx, db, doc, opts)
}

// Import replays the document into the store under the configured duplicate
// strategy. Groups are reconciled first; the memo pass consults the id remap
// the group pass produced, so memos of a renamed group follow it to its new
// id. Per-row conflicts are never fatal: they are resolved by the strategy or
// counted as skipped, and the batch continues.
func (im *Importer) Import(ctx context.Context, db *sql.DB, doc *Document, opts ImportOptions) ImportResult {
	action, err := opts.DuplicateStrategy.action()
	if err != nil {
		return failed(err)
	}

	if !im.inflight.CompareAndSwap(false, true) {
		return failed(ErrImportInProgress)
	}
	defer im.inflight.Store(false)

	if opts.ClearExisting {
		// Memos first: the foreign key points at groups.
		if _, err := db.ExecContext(ctx, wipeMemosStatement); err != nil {
			return failed(fmt.Errorf("failed to clear memos: %w", err))
		}
		if _, err := db.ExecContext(ctx, wipeGroupsStatement); err != nil {
			return failed(fmt.Errorf("failed to clear groups: %w", err))
		}
	}

	var result ImportResult

	// Group pass. remap records oldIncomingID -> newLocalID for every group
	// the rename strategy re-homed; it is built here and only read later.
	remap := make(map[string]string)
	for _, g := range doc.Groups {
		imported, err := im.reconcileGroup(ctx, db, g, action, remap)
		if err != nil {
			im.Log.Warn().Err(err).Str("group_id", g.ID).Msg("group import failed, skipping row")
			result.GroupsSkipped++
			continue
		}
		if imported {
			result.GroupsImported++
		} else {
			result.GroupsSkipped++
		}
	}

	// Memo pass.
	for _, m := range doc.Memos {
		imported, err := im.reconcileMemo(ctx, db, m, action, remap)
		if err != nil {
			im.Log.Warn().Err(err).Str("memo_id", m.ID).Msg("memo import failed, skipping row")
			result.MemosSkipped++
			continue
		}
		if imported {
			result.MemosImported++
		} else {
			result.MemosSkipped++
		}
	}

	result.Success = true
	im.Log.Info().
		Int("groups_imported", result.GroupsImported).
		Int("groups_skipped", result.GroupsSkipped).
		Int("memos_imported", result.MemosImported).
		Int("memos_skipped", result.MemosSkipped).
		Msg("import finished")
	return result
}

func rowExists(ctx context.Context, db *sql.DB, query, id string) (bool, error) {
	var count int
	if err := db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func strOrNull(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func (im *Importer) reconcileGroup(ctx context.Context, db *sql.DB, g Group, action duplicateAction, remap map[string]string) (bool, error) {
	exists, err := rowExists(ctx, db, groupExistsStatement, g.ID)
	if err != nil {
		return false, err
	}

	now := time.Now().UnixMilli()

	if !exists {
		// Insert as-is: original id and createdAt survive, updatedAt is now.
		_, err := db.ExecContext(ctx, insertGroupStatement,
			g.ID, g.Name, strOrNull(g.Description), g.Color, strOrNull(g.Icon),
			g.IsArchived, g.CreatedAt.UnixMilli(), now,
		)
		if err != nil {
			return false, err
		}
		return true, nil
	}

	switch action {
	case actionSkip:
		return false, nil
	case actionOverwrite:
		_, err := db.ExecContext(ctx, overwriteGroupStatement,
			g.Name, strOrNull(g.Description), g.Color, strOrNull(g.Icon),
			g.IsArchived, now, g.ID,
		)
		if err != nil {
			return false, err
		}
		return true, nil
	case actionRename:
		newID := uuid.NewString()
		_, err := db.ExecContext(ctx, insertGroupStatement,
			newID, g.Name+renamedSuffix, strOrNull(g.Description), g.Color, strOrNull(g.Icon),
			g.IsArchived, g.CreatedAt.UnixMilli(), now,
		)
		if err != nil {
			return false, err
		}
		remap[g.ID] = newID
		return true, nil
	}
	return false, nil
}

func (im *Importer) reconcileMemo(ctx context.Context, db *sql.DB, m Memo, action duplicateAction, remap map[string]string) (bool, error) {
	groupID := m.GroupID
	if newID, ok := remap[groupID]; ok {
		groupID = newID
	}

	exists, err := rowExists(ctx, db, memoExistsStatement, m.ID)
	if err != nil {
		return false, err
	}

	now := time.Now().UnixMilli()

	if !exists {
		// Never insert an orphan: the referenced group must exist locally,
		// either from before the run or created during the group pass.
		parentExists, err := rowExists(ctx, db, groupExistsStatement, groupID)
		if err != nil {
			return false, err
		}
		if !parentExists {
			return false, nil
		}

		_, err = db.ExecContext(ctx, insertMemoStatement,
			m.ID, groupID, strOrNull(m.Content), strOrNull(m.ImageURI),
			m.CreatedAt.UnixMilli(), m.UpdatedAt.UnixMilli(), m.IsDeleted,
		)
		if err != nil {
			return false, err
		}
		return true, nil
	}

	switch action {
	case actionSkip:
		return false, nil
	case actionOverwrite:
		_, err := db.ExecContext(ctx, overwriteMemoStatement,
			strOrNull(m.Content), strOrNull(m.ImageURI), m.IsDeleted, now, m.ID,
		)
		if err != nil {
			return false, err
		}
		return true, nil
	case actionRename:
		_, err := db.ExecContext(ctx, insertMemoStatement,
			uuid.NewString(), groupID, strOrNull(m.Content), strOrNull(m.ImageURI),
			m.CreatedAt.UnixMilli(), now, m.IsDeleted,
		)
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}
