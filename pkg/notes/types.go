// Package notes is the sole gateway to the persisted Group and Memo state.
// All reads and writes of the schema go through the functions in this package.
package notes

import (
	"time"
)

// Colors a group can be tagged with. Purely presentational.
const (
	ColorBlue   = "blue"
	ColorGreen  = "green"
	ColorPurple = "purple"
	ColorPink   = "pink"
	ColorOrange = "orange"
	ColorYellow = "yellow"
	ColorGray   = "gray"
)

// Group is a named container for memos.
//
// IDs are opaque strings: locally created rows get UUIDs, but imported
// backups keep whatever ids the exporting device generated.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon,omitempty"`
	IsArchived  bool      `json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupWithLastMemo is a Group enriched with its most recent non-deleted
// memo, used for the "recently active" main listing. LastMemoAt is the zero
// time when the group has no visible memos.
type GroupWithLastMemo struct {
	Group
	LastMemo   string    `json:"last_memo,omitempty"`
	LastMemoAt time.Time `json:"last_memo_at,omitempty"`
}

// Memo is a single note entry, always owned by exactly one Group.
// A soft-deleted memo stays in storage as a tombstone but is excluded from
// normal queries.
type Memo struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Content   string    `json:"content,omitempty"`
	ImageURI  string    `json:"image_uri,omitempty"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateGroupInput carries the caller-supplied fields for a new group.
// Name length limits are enforced by the UI layer, not re-validated here.
type CreateGroupInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
}

// UpdateGroupInput is a partial update: nil fields are left untouched.
type UpdateGroupInput struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
}

// CreateMemoInput carries the caller-supplied fields for a new memo.
type CreateMemoInput struct {
	GroupID  string
	Content  string
	ImageURI string
}
