package notes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/chatmemo/chatmemo/pkg/db"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := db.OpenDBConnection(":memory:", false, "NORMAL")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	// Each pooled connection to :memory: would otherwise open its own
	// empty database.
	testDB.SetMaxOpenConns(1)

	if err := db.ApplyMigrations(context.Background(), testDB, 0, db.TargetSchemaVersion); err != nil {
		t.Fatalf("Failed to migrate schema: %v", err)
	}

	return testDB
}

func TestCreateGroup(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	input := CreateGroupInput{
		Name:        "Groceries",
		Description: "Weekly shopping lists",
		Color:       ColorGreen,
		Icon:        "🛒",
	}

	group, err := CreateGroup(ctx, testDB, input)
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	if group.ID == "" {
		t.Errorf("Expected group ID to be generated")
	}
	if group.Name != input.Name {
		t.Errorf("Expected group name %s, got %s", input.Name, group.Name)
	}
	if group.Description != input.Description {
		t.Errorf("Expected description %s, got %s", input.Description, group.Description)
	}
	if group.Color != input.Color {
		t.Errorf("Expected color %s, got %s", input.Color, group.Color)
	}
	if group.IsArchived {
		t.Errorf("Expected new group to not be archived")
	}
	if group.CreatedAt.IsZero() || group.UpdatedAt.IsZero() {
		t.Errorf("Expected timestamps to be set")
	}

	// Verify the row as stored.
	var storedName string
	var storedDesc sql.NullString
	var createdAt int64
	err = testDB.QueryRow("SELECT name, description, created_at FROM groups WHERE id = ?", group.ID).
		Scan(&storedName, &storedDesc, &createdAt)
	if err != nil {
		t.Fatalf("Failed to query stored group: %v", err)
	}
	if storedName != input.Name || storedDesc.String != input.Description {
		t.Errorf("Stored group data doesn't match created group")
	}
	if createdAt <= 0 {
		t.Errorf("Expected created_at to be set, got %d", createdAt)
	}
}

func TestCreateGroupEmptyOptionalFieldsStoredAsNull(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Bare", Color: ColorGray})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	var description, icon sql.NullString
	err = testDB.QueryRow("SELECT description, icon FROM groups WHERE id = ?", group.ID).
		Scan(&description, &icon)
	if err != nil {
		t.Fatalf("Failed to query stored group: %v", err)
	}
	if description.Valid {
		t.Errorf("Expected empty description to be stored as NULL")
	}
	if icon.Valid {
		t.Errorf("Expected empty icon to be stored as NULL")
	}
}

func TestGetGroup(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	created, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Ideas", Color: ColorPurple})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}

	retrieved, err := GetGroup(ctx, testDB, created.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if retrieved.ID != created.ID || retrieved.Name != created.Name {
		t.Errorf("Retrieved group doesn't match created group")
	}

	_, err = GetGroup(ctx, testDB, "no-such-id")
	if !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Expected ErrGroupNotFound for unknown id, got: %v", err)
	}
}

func TestUpdateGroupPartial(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	created, err := CreateGroup(ctx, testDB, CreateGroupInput{
		Name:        "Original",
		Description: "Original description",
		Color:       ColorBlue,
		Icon:        "📝",
	})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}

	// Update only the name; everything else must survive untouched.
	newName := "Renamed"
	updated, err := UpdateGroup(ctx, testDB, created.ID, UpdateGroupInput{Name: &newName})
	if err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}

	if updated.Name != newName {
		t.Errorf("Expected updated name %s, got %s", newName, updated.Name)
	}
	if updated.Description != created.Description {
		t.Errorf("Expected description to be untouched, got %s", updated.Description)
	}
	if updated.Color != created.Color {
		t.Errorf("Expected color to be untouched, got %s", updated.Color)
	}
	if updated.Icon != created.Icon {
		t.Errorf("Expected icon to be untouched, got %s", updated.Icon)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Errorf("Expected updated_at to advance")
	}

	// Clearing an optional field with an explicit empty string.
	empty := ""
	updated, err = UpdateGroup(ctx, testDB, created.ID, UpdateGroupInput{Description: &empty})
	if err != nil {
		t.Fatalf("UpdateGroup failed clearing description: %v", err)
	}
	if updated.Description != "" {
		t.Errorf("Expected description to be cleared, got %s", updated.Description)
	}

	_, err = UpdateGroup(ctx, testDB, "no-such-id", UpdateGroupInput{Name: &newName})
	if !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Expected ErrGroupNotFound for unknown id, got: %v", err)
	}
}

func TestArchiveAndUnarchiveGroup(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "To archive", Color: ColorOrange})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}

	if err := ArchiveGroup(ctx, testDB, group.ID); err != nil {
		t.Fatalf("ArchiveGroup failed: %v", err)
	}

	// An archived group disappears from the main listing...
	listed, err := ListGroups(ctx, testDB)
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("Expected archived group to be hidden from main listing, got %d groups", len(listed))
	}

	// ...but shows in the archive view and stays addressable by id.
	archived, err := ListArchivedGroups(ctx, testDB)
	if err != nil {
		t.Fatalf("ListArchivedGroups failed: %v", err)
	}
	if len(archived) != 1 || archived[0].ID != group.ID {
		t.Errorf("Expected archived group in archive view")
	}
	fetched, err := GetGroup(ctx, testDB, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed for archived group: %v", err)
	}
	if !fetched.IsArchived {
		t.Errorf("Expected IsArchived to be true")
	}

	if err := UnarchiveGroup(ctx, testDB, group.ID); err != nil {
		t.Fatalf("UnarchiveGroup failed: %v", err)
	}
	listed, err = ListGroups(ctx, testDB)
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("Expected unarchived group back in main listing")
	}

	if err := ArchiveGroup(ctx, testDB, "no-such-id"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Expected ErrGroupNotFound for unknown id, got: %v", err)
	}
}

func TestDeleteGroupCascadesMemos(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Doomed", Color: ColorPink})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}

	memo, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "going down with the ship"})
	if err != nil {
		t.Fatalf("Failed to create test memo: %v", err)
	}
	// A tombstone must be swept by the cascade too.
	tombstone, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "already deleted"})
	if err != nil {
		t.Fatalf("Failed to create second memo: %v", err)
	}
	if err := SoftDeleteMemo(ctx, testDB, tombstone.ID); err != nil {
		t.Fatalf("Failed to soft-delete memo: %v", err)
	}

	if err := DeleteGroup(ctx, testDB, group.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	_, err = GetGroup(ctx, testDB, group.ID)
	if !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Expected ErrGroupNotFound after deletion, got: %v", err)
	}

	var memoCount int
	err = testDB.QueryRow("SELECT COUNT(*) FROM memos WHERE group_id = ?", group.ID).Scan(&memoCount)
	if err != nil {
		t.Fatalf("Failed to count remaining memos: %v", err)
	}
	if memoCount != 0 {
		t.Errorf("Expected cascade to remove all memos, %d remain", memoCount)
	}
	_ = memo

	if err := DeleteGroup(ctx, testDB, "no-such-id"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Expected ErrGroupNotFound for unknown id, got: %v", err)
	}
}

func TestListGroupsOrderingAndLastMemo(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()

	quiet, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Quiet", Color: ColorGray})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	busy, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Busy", Color: ColorBlue})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	// Force distinct, known timestamps so ordering is deterministic.
	base := time.Now().UnixMilli()
	for id, ts := range map[string]int64{quiet.ID: base - 10000, busy.ID: base - 9000} {
		if _, err := testDB.Exec("UPDATE groups SET updated_at = ? WHERE id = ?", ts, id); err != nil {
			t.Fatalf("Failed to pin group timestamp: %v", err)
		}
	}

	first, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: busy.ID, Content: "older memo"})
	if err != nil {
		t.Fatalf("Failed to create memo: %v", err)
	}
	latest, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: busy.ID, Content: "newest memo"})
	if err != nil {
		t.Fatalf("Failed to create memo: %v", err)
	}
	if _, err := testDB.Exec("UPDATE memos SET created_at = ? WHERE id = ?", base-5000, first.ID); err != nil {
		t.Fatalf("Failed to pin memo timestamp: %v", err)
	}
	if _, err := testDB.Exec("UPDATE memos SET created_at = ? WHERE id = ?", base-1000, latest.ID); err != nil {
		t.Fatalf("Failed to pin memo timestamp: %v", err)
	}

	groups, err := ListGroups(ctx, testDB)
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}

	// Busy has the most recent activity and must come first, enriched with
	// its newest memo.
	if groups[0].ID != busy.ID {
		t.Errorf("Expected most recently active group first, got %s", groups[0].Name)
	}
	if groups[0].LastMemo != "newest memo" {
		t.Errorf("Expected last memo preview %q, got %q", "newest memo", groups[0].LastMemo)
	}
	if groups[0].LastMemoAt.UnixMilli() != base-1000 {
		t.Errorf("Expected last memo timestamp %d, got %d", base-1000, groups[0].LastMemoAt.UnixMilli())
	}

	// Quiet has no memos: empty preview, ordered by its own updated_at.
	if groups[1].ID != quiet.ID {
		t.Errorf("Expected memo-less group last, got %s", groups[1].Name)
	}
	if groups[1].LastMemo != "" {
		t.Errorf("Expected empty last memo for memo-less group, got %q", groups[1].LastMemo)
	}
}

func TestListGroupsIgnoresTombstonesForPreview(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Chat", Color: ColorYellow})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	kept, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "kept"})
	if err != nil {
		t.Fatalf("Failed to create memo: %v", err)
	}
	deleted, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "deleted later"})
	if err != nil {
		t.Fatalf("Failed to create memo: %v", err)
	}
	base := time.Now().UnixMilli()
	if _, err := testDB.Exec("UPDATE memos SET created_at = ? WHERE id = ?", base-2000, kept.ID); err != nil {
		t.Fatalf("Failed to pin memo timestamp: %v", err)
	}
	if _, err := testDB.Exec("UPDATE memos SET created_at = ? WHERE id = ?", base-1000, deleted.ID); err != nil {
		t.Fatalf("Failed to pin memo timestamp: %v", err)
	}
	if err := SoftDeleteMemo(ctx, testDB, deleted.ID); err != nil {
		t.Fatalf("Failed to soft-delete memo: %v", err)
	}

	groups, err := ListGroups(ctx, testDB)
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(groups))
	}
	if groups[0].LastMemo != "kept" {
		t.Errorf("Expected tombstone to be skipped for the preview, got %q", groups[0].LastMemo)
	}
}

func TestGroupNameExists(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Unique", Color: ColorBlue})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	exists, err := GroupNameExists(ctx, testDB, "Unique", "")
	if err != nil {
		t.Fatalf("GroupNameExists failed: %v", err)
	}
	if !exists {
		t.Errorf("Expected name to be reported as taken")
	}

	// The group keeping its own name during a rename is not a conflict.
	exists, err = GroupNameExists(ctx, testDB, "Unique", group.ID)
	if err != nil {
		t.Fatalf("GroupNameExists failed with exclusion: %v", err)
	}
	if exists {
		t.Errorf("Expected the excluded group's own name to not conflict")
	}

	exists, err = GroupNameExists(ctx, testDB, "Other", "")
	if err != nil {
		t.Fatalf("GroupNameExists failed: %v", err)
	}
	if exists {
		t.Errorf("Expected unused name to be reported as free")
	}
}
