// Package backup serializes the entire store to a portable JSON document and
// reconciles such documents back into the live store.
package backup

import (
	"fmt"
	"time"
)

// FormatVersion is written into every exported document.
const FormatVersion = "1.0.0"

// supportedMajorPrefix gates import: any document within the same major
// version is accepted without field-level negotiation.
const supportedMajorPrefix = "1."

// Group is the backup-shape record for a group. Field names and nullability
// are part of the document format and must stay stable across releases.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Color       string    `json:"color"`
	Icon        *string   `json:"icon"`
	IsArchived  bool      `json:"isArchived"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Memo is the backup-shape record for a memo, tombstones included.
type Memo struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"groupId"`
	Content   *string   `json:"content"`
	ImageURI  *string   `json:"imageUri"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IsDeleted bool      `json:"isDeleted"`
}

// Statistics summarizes a document's contents.
type Statistics struct {
	TotalGroups int `json:"totalGroups"`
	TotalMemos  int `json:"totalMemos"`
	TotalImages int `json:"totalImages"`
}

// Document is the versioned, self-describing snapshot of the whole store.
type Document struct {
	Version    string      `json:"version"`
	ExportedAt string      `json:"exportedAt"`
	Groups     []Group     `json:"groups"`
	Memos      []Memo      `json:"memos"`
	Statistics *Statistics `json:"statistics,omitempty"`
}

// DuplicateStrategy selects how import treats a record whose id already
// exists locally.
type DuplicateStrategy string

const (
	// StrategySkip leaves the local row untouched.
	StrategySkip DuplicateStrategy = "skip"
	// StrategyOverwrite updates the local row's mutable fields.
	StrategyOverwrite DuplicateStrategy = "overwrite"
	// StrategyRename inserts the incoming record under a fresh id.
	StrategyRename DuplicateStrategy = "rename"
)

// duplicateAction is the resolved decision for one duplicate row. Resolving
// it up front keeps the reconciliation loops free of policy branching.
type duplicateAction int

const (
	actionSkip duplicateAction = iota
	actionOverwrite
	actionRename
)

func (s DuplicateStrategy) action() (duplicateAction, error) {
	switch s {
	case StrategySkip, "":
		return actionSkip, nil
	case StrategyOverwrite:
		return actionOverwrite, nil
	case StrategyRename:
		return actionRename, nil
	default:
		return actionSkip, fmt.Errorf("unknown duplicate strategy %q", string(s))
	}
}

// ImportOptions is the caller-supplied reconciliation configuration.
type ImportOptions struct {
	DuplicateStrategy DuplicateStrategy `json:"duplicateStrategy"`
	// ClearExisting wipes all memos then all groups before replaying the
	// document.
	ClearExisting bool `json:"clearExisting,omitempty"`
}

// ImportResult reports exactly what a reconciliation run did. Partial success
// (rows skipped) is still Success; only fatal conditions clear it.
type ImportResult struct {
	Success        bool   `json:"success"`
	Cancelled      bool   `json:"cancelled,omitempty"`
	GroupsImported int    `json:"groupsImported"`
	MemosImported  int    `json:"memosImported"`
	GroupsSkipped  int    `json:"groupsSkipped"`
	MemosSkipped   int    `json:"memosSkipped"`
	Error          string `json:"error,omitempty"`
}

// ExportResult reports the outcome of a save or share. Cancelled is distinct
// from failure: the user backing out of the picker is not an error.
type ExportResult struct {
	Success   bool   `json:"success"`
	Cancelled bool   `json:"cancelled,omitempty"`
	FilePath  string `json:"filePath,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Preview describes a backup file without importing it.
type Preview struct {
	Valid      bool   `json:"valid"`
	GroupCount int    `json:"groupCount,omitempty"`
	MemoCount  int    `json:"memoCount,omitempty"`
	ExportedAt string `json:"exportedAt,omitempty"`
	Version    string `json:"version,omitempty"`
	Error      string `json:"error,omitempty"`
}
