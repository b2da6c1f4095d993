package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatmemo/chatmemo/pkg/notes"
)

const (
	filePrefix          = "chatmemo_backup"
	fileTimestampLayout = "20060102_150405"
)

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func groupToBackup(g notes.Group) Group {
	return Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: optional(g.Description),
		Color:       g.Color,
		Icon:        optional(g.Icon),
		IsArchived:  g.IsArchived,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func memoToBackup(m notes.Memo) Memo {
	return Memo{
		ID:        m.ID,
		GroupID:   m.GroupID,
		Content:   optional(m.Content),
		ImageURI:  optional(m.ImageURI),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		IsDeleted: m.IsDeleted,
	}
}

// BuildSnapshot reads the entire store, archived groups and tombstoned memos
// included, and wraps it in a versioned document. Export is always a full
// dump; the filtered views normal queries apply do not exist here.
func BuildSnapshot(ctx context.Context, db *sql.DB) (*Document, error) {
	groups, err := notes.AllGroupsForExport(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to read groups for export: %w", err)
	}
	memos, err := notes.AllMemosForExport(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to read memos for export: %w", err)
	}

	doc := &Document{
		Version:    FormatVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Groups:     make([]Group, 0, len(groups)),
		Memos:      make([]Memo, 0, len(memos)),
	}
	totalImages := 0
	for _, g := range groups {
		doc.Groups = append(doc.Groups, groupToBackup(g))
	}
	for _, m := range memos {
		if m.ImageURI != "" {
			totalImages++
		}
		doc.Memos = append(doc.Memos, memoToBackup(m))
	}
	doc.Statistics = &Statistics{
		TotalGroups: len(doc.Groups),
		TotalMemos:  len(doc.Memos),
		TotalImages: totalImages,
	}

	return doc, nil
}

// FileName returns a collision-free, sortably timestamped backup file name.
func FileName(t time.Time) string {
	return fmt.Sprintf("%s_%s.json", filePrefix, t.Format(fileTimestampLayout))
}

func writeDocument(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize backup document: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}
	return nil
}

// SaveToDevice snapshots the store and writes the document into a directory
// chosen through the picker. A cancelled pick is reported as a cancelled,
// non-error result.
func SaveToDevice(ctx context.Context, db *sql.DB, picker DirectoryPicker, log zerolog.Logger) ExportResult {
	doc, err := BuildSnapshot(ctx, db)
	if err != nil {
		return ExportResult{Error: err.Error()}
	}

	dir, ok, err := picker.PickDirectory(ctx)
	if err != nil {
		return ExportResult{Error: err.Error()}
	}
	if !ok {
		return ExportResult{Cancelled: true}
	}

	path := filepath.Join(dir, FileName(time.Now()))
	if err := writeDocument(path, doc); err != nil {
		return ExportResult{Error: err.Error()}
	}

	log.Info().
		Str("path", path).
		Int("groups", doc.Statistics.TotalGroups).
		Int("memos", doc.Statistics.TotalMemos).
		Msg("backup saved")
	return ExportResult{Success: true, FilePath: path}
}

// Share snapshots the store to a transient file and hands it to the
// platform's share mechanism.
func Share(ctx context.Context, db *sql.DB, sharer Sharer, log zerolog.Logger) ExportResult {
	doc, err := BuildSnapshot(ctx, db)
	if err != nil {
		return ExportResult{Error: err.Error()}
	}

	path := filepath.Join(os.TempDir(), FileName(time.Now()))
	if err := writeDocument(path, doc); err != nil {
		return ExportResult{Error: err.Error()}
	}

	if err := sharer.Share(ctx, path); err != nil {
		return ExportResult{Error: err.Error()}
	}

	log.Info().Str("path", path).Msg("backup shared")
	return ExportResult{Success: true, FilePath: path}
}

// CanExport reports whether there is anything to export.
func CanExport(ctx context.Context, db *sql.DB) (bool, error) {
	count, err := notes.CountGroups(ctx, db)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Size returns the serialized byte size of a snapshot taken now.
func Size(ctx context.Context, db *sql.DB) (int, error) {
	doc, err := BuildSnapshot(ctx, db)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
