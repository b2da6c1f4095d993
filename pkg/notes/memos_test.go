package notes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func TestCreateMemo(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Chat", Color: ColorBlue})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}

	memo, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "hello"})
	if err != nil {
		t.Fatalf("CreateMemo failed: %v", err)
	}

	if memo.ID == "" {
		t.Errorf("Expected memo ID to be generated")
	}
	if memo.GroupID != group.ID {
		t.Errorf("Expected memo group %s, got %s", group.ID, memo.GroupID)
	}
	if memo.Content != "hello" {
		t.Errorf("Expected memo content %q, got %q", "hello", memo.Content)
	}
	if memo.IsDeleted {
		t.Errorf("Expected new memo to not be deleted")
	}

	// The parent group's recency marker moves with the memo's creation.
	parent, err := GetGroup(ctx, testDB, group.ID)
	if err != nil {
		t.Fatalf("Failed to re-read group: %v", err)
	}
	if parent.UpdatedAt.Before(memo.CreatedAt) {
		t.Errorf("Expected group updated_at (%v) to be at least memo created_at (%v)",
			parent.UpdatedAt, memo.CreatedAt)
	}
}

func TestCreateMemoUnknownGroup(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	_, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: "no-such-group", Content: "orphan"})
	if !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Expected ErrGroupNotFound for unknown group, got: %v", err)
	}

	// The failed attempt must leave no memo row behind.
	var count int
	if err := testDB.QueryRow("SELECT COUNT(*) FROM memos").Scan(&count); err != nil {
		t.Fatalf("Failed to count memos: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no memo rows after failed create, got %d", count)
	}
}

func TestCreateMemoImageOnly(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Photos", Color: ColorPink})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}

	memo, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, ImageURI: "file:///pic.jpg"})
	if err != nil {
		t.Fatalf("CreateMemo failed: %v", err)
	}
	if memo.ImageURI != "file:///pic.jpg" {
		t.Errorf("Expected image URI to round-trip, got %q", memo.ImageURI)
	}

	// Empty content is stored as NULL, not "".
	var content sql.NullString
	if err := testDB.QueryRow("SELECT content FROM memos WHERE id = ?", memo.ID).Scan(&content); err != nil {
		t.Fatalf("Failed to query stored memo: %v", err)
	}
	if content.Valid {
		t.Errorf("Expected empty content to be stored as NULL")
	}
}

func TestListMemosChronologicalAndPaged(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Chat", Color: ColorBlue})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}

	contents := []string{"first", "second", "third", "fourth"}
	for i, c := range contents {
		memo, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: c})
		if err != nil {
			t.Fatalf("Failed to create memo %d: %v", i, err)
		}
		// Pin distinct timestamps; sub-millisecond inserts would tie.
		if _, err := testDB.Exec("UPDATE memos SET created_at = ? WHERE id = ?", int64(1000+i), memo.ID); err != nil {
			t.Fatalf("Failed to pin memo timestamp: %v", err)
		}
	}

	memos, err := ListMemos(ctx, testDB, group.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListMemos failed: %v", err)
	}
	if len(memos) != len(contents) {
		t.Fatalf("Expected %d memos, got %d", len(contents), len(memos))
	}
	for i, m := range memos {
		if m.Content != contents[i] {
			t.Errorf("Expected memo %d to be %q, got %q", i, contents[i], m.Content)
		}
	}

	// Pagination.
	page, err := ListMemos(ctx, testDB, group.ID, 2, 1)
	if err != nil {
		t.Fatalf("ListMemos with paging failed: %v", err)
	}
	if len(page) != 2 || page[0].Content != "second" || page[1].Content != "third" {
		t.Errorf("Expected page [second third], got %v", page)
	}
}

func TestSoftDeleteMemo(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Chat", Color: ColorBlue})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}
	memo, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "to delete"})
	if err != nil {
		t.Fatalf("Failed to create memo: %v", err)
	}

	if err := SoftDeleteMemo(ctx, testDB, memo.ID); err != nil {
		t.Fatalf("SoftDeleteMemo failed: %v", err)
	}

	// Hidden from lookup, listing and count...
	if _, err := GetMemo(ctx, testDB, memo.ID); !errors.Is(err, ErrMemoNotFound) {
		t.Errorf("Expected ErrMemoNotFound for tombstoned memo, got: %v", err)
	}
	memos, err := ListMemos(ctx, testDB, group.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListMemos failed: %v", err)
	}
	if len(memos) != 0 {
		t.Errorf("Expected tombstoned memo hidden from listing, got %d memos", len(memos))
	}
	count, err := CountMemos(ctx, testDB, group.ID)
	if err != nil {
		t.Fatalf("CountMemos failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected visible count 0, got %d", count)
	}

	// ...but the row itself survives as a tombstone.
	var isDeleted bool
	if err := testDB.QueryRow("SELECT is_deleted FROM memos WHERE id = ?", memo.ID).Scan(&isDeleted); err != nil {
		t.Fatalf("Expected tombstone row to survive: %v", err)
	}
	if !isDeleted {
		t.Errorf("Expected is_deleted flag to be set")
	}

	// Deleting an already-tombstoned memo is not found again.
	if err := SoftDeleteMemo(ctx, testDB, memo.ID); !errors.Is(err, ErrMemoNotFound) {
		t.Errorf("Expected ErrMemoNotFound for double delete, got: %v", err)
	}
}

func TestHardDeleteMemo(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Chat", Color: ColorBlue})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}
	memo, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "to purge"})
	if err != nil {
		t.Fatalf("Failed to create memo: %v", err)
	}

	if err := HardDeleteMemo(ctx, testDB, memo.ID); err != nil {
		t.Fatalf("HardDeleteMemo failed: %v", err)
	}

	var count int
	if err := testDB.QueryRow("SELECT COUNT(*) FROM memos WHERE id = ?", memo.ID).Scan(&count); err != nil {
		t.Fatalf("Failed to count memos: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected memo row to be physically removed")
	}

	if err := HardDeleteMemo(ctx, testDB, memo.ID); !errors.Is(err, ErrMemoNotFound) {
		t.Errorf("Expected ErrMemoNotFound for already purged memo, got: %v", err)
	}
}

func TestUpdateMemoContent(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Chat", Color: ColorBlue})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}
	memo, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "original"})
	if err != nil {
		t.Fatalf("Failed to create memo: %v", err)
	}

	updated, err := UpdateMemoContent(ctx, testDB, memo.ID, "edited")
	if err != nil {
		t.Fatalf("UpdateMemoContent failed: %v", err)
	}
	if updated.Content != "edited" {
		t.Errorf("Expected content %q, got %q", "edited", updated.Content)
	}
	if updated.UpdatedAt.Before(memo.UpdatedAt) {
		t.Errorf("Expected updated_at to advance")
	}
	if !updated.CreatedAt.Equal(memo.CreatedAt) {
		t.Errorf("Expected created_at to be preserved across edits")
	}

	// A tombstoned memo can not be edited.
	if err := SoftDeleteMemo(ctx, testDB, memo.ID); err != nil {
		t.Fatalf("Failed to soft-delete memo: %v", err)
	}
	if _, err := UpdateMemoContent(ctx, testDB, memo.ID, "necromancy"); !errors.Is(err, ErrMemoNotFound) {
		t.Errorf("Expected ErrMemoNotFound editing a tombstone, got: %v", err)
	}
}

func TestLatestMemo(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Chat", Color: ColorBlue})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}

	if _, err := LatestMemo(ctx, testDB, group.ID); !errors.Is(err, ErrMemoNotFound) {
		t.Errorf("Expected ErrMemoNotFound for empty group, got: %v", err)
	}

	older, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "older"})
	if err != nil {
		t.Fatalf("Failed to create memo: %v", err)
	}
	newer, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "newer"})
	if err != nil {
		t.Fatalf("Failed to create memo: %v", err)
	}
	if _, err := testDB.Exec("UPDATE memos SET created_at = 1000 WHERE id = ?", older.ID); err != nil {
		t.Fatalf("Failed to pin memo timestamp: %v", err)
	}
	if _, err := testDB.Exec("UPDATE memos SET created_at = 2000 WHERE id = ?", newer.ID); err != nil {
		t.Fatalf("Failed to pin memo timestamp: %v", err)
	}

	latest, err := LatestMemo(ctx, testDB, group.ID)
	if err != nil {
		t.Fatalf("LatestMemo failed: %v", err)
	}
	if latest.ID != newer.ID {
		t.Errorf("Expected newest memo, got %q", latest.Content)
	}
}

func TestCleanDeletedMemos(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Chat", Color: ColorBlue})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}

	kept, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "kept"})
	if err != nil {
		t.Fatalf("Failed to create memo: %v", err)
	}
	for i := 0; i < 2; i++ {
		m, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "junk"})
		if err != nil {
			t.Fatalf("Failed to create memo: %v", err)
		}
		if err := SoftDeleteMemo(ctx, testDB, m.ID); err != nil {
			t.Fatalf("Failed to soft-delete memo: %v", err)
		}
	}

	purged, err := CleanDeletedMemos(ctx, testDB, group.ID)
	if err != nil {
		t.Fatalf("CleanDeletedMemos failed: %v", err)
	}
	if purged != 2 {
		t.Errorf("Expected 2 tombstones purged, got %d", purged)
	}

	var remaining int
	if err := testDB.QueryRow("SELECT COUNT(*) FROM memos WHERE group_id = ?", group.ID).Scan(&remaining); err != nil {
		t.Fatalf("Failed to count memos: %v", err)
	}
	if remaining != 1 {
		t.Errorf("Expected only the visible memo to remain, got %d rows", remaining)
	}
	if _, err := GetMemo(ctx, testDB, kept.ID); err != nil {
		t.Errorf("Expected visible memo to survive the purge: %v", err)
	}
}

func TestCountImageMemos(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	group, err := CreateGroup(ctx, testDB, CreateGroupInput{Name: "Chat", Color: ColorBlue})
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}

	if _, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, Content: "text only"}); err != nil {
		t.Fatalf("Failed to create memo: %v", err)
	}
	withImage, err := CreateMemo(ctx, testDB, CreateMemoInput{GroupID: group.ID, ImageURI: "file:///a.jpg"})
	if err != nil {
		t.Fatalf("Failed to create memo: %v", err)
	}
	// Tombstoned image memos still count; they stay in backups.
	if err := SoftDeleteMemo(ctx, testDB, withImage.ID); err != nil {
		t.Fatalf("Failed to soft-delete memo: %v", err)
	}

	count, err := CountImageMemos(ctx, testDB)
	if err != nil {
		t.Fatalf("CountImageMemos failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 image memo, got %d", count)
	}
}
