package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/chatmemo/chatmemo/pkg/backup"
	"github.com/chatmemo/chatmemo/pkg/notes"
)

// RegisterPingTool registers the simple ping tool.
func RegisterPingTool(s *server.MCPServer) {
	pingTool := mcp.NewTool("ping",
		mcp.WithDescription("Responds with 'pong' to check if the ChatMemo MCP server is alive."),
	)
	s.AddTool(pingTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("pong_chatmemo"), nil
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize result to JSON: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(request mcp.CallToolRequest, name string) (string, bool) {
	v, ok := request.Params.Arguments[name].(string)
	return v, ok && v != ""
}

// RegisterCreateGroupTool registers the create_group tool.
func RegisterCreateGroupTool(s *server.MCPServer, db *sql.DB) {
	createGroup := mcp.NewTool("create_group",
		mcp.WithDescription("Creates a new memo group."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name for the new group (1-50 characters).")),
		mcp.WithString("description", mcp.Description("Optional description.")),
		mcp.WithString("color", mcp.Description("Presentation color tag, e.g. blue, green, purple.")),
		mcp.WithString("icon", mcp.Description("Optional emoji or short symbol.")),
	)
	s.AddTool(createGroup, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, ok := stringArg(request, "name")
		if !ok {
			return mcp.NewToolResultError("'name' parameter is required and must be a non-empty string."), nil
		}
		description, _ := request.Params.Arguments["description"].(string)
		color, _ := request.Params.Arguments["color"].(string)
		icon, _ := request.Params.Arguments["icon"].(string)
		if color == "" {
			color = notes.ColorBlue
		}

		group, err := notes.CreateGroup(ctx, db, notes.CreateGroupInput{
			Name:        name,
			Description: description,
			Color:       color,
			Icon:        icon,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create group: %v", err)), nil
		}
		return jsonResult(group)
	})
}

// RegisterListGroupsTool registers the list_groups tool.
func RegisterListGroupsTool(s *server.MCPServer, db *sql.DB) {
	listGroups := mcp.NewTool("list_groups",
		mcp.WithDescription("Lists memo groups. The main listing is ordered by most recent activity and enriched with each group's latest memo; pass archived=true for the archive view."),
		mcp.WithBoolean("archived", mcp.Description("List archived groups instead of the main listing.")),
	)
	s.AddTool(listGroups, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if archived, _ := request.Params.Arguments["archived"].(bool); archived {
			groups, err := notes.ListArchivedGroups(ctx, db)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to list archived groups: %v", err)), nil
			}
			return jsonResult(groups)
		}

		groups, err := notes.ListGroups(ctx, db)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list groups: %v", err)), nil
		}
		return jsonResult(groups)
	})
}

// RegisterGetGroupTool registers the get_group tool.
func RegisterGetGroupTool(s *server.MCPServer, db *sql.DB) {
	getGroup := mcp.NewTool("get_group",
		mcp.WithDescription("Retrieves a group by its id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The id of the group.")),
	)
	s.AddTool(getGroup, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok {
			return mcp.NewToolResultError("'id' parameter is required and must be a non-empty string."), nil
		}

		group, err := notes.GetGroup(ctx, db, id)
		if err != nil {
			if errors.Is(err, notes.ErrGroupNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Group with id '%s' not found.", id)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Error retrieving group '%s': %v", id, err)), nil
		}
		return jsonResult(group)
	})
}

// RegisterUpdateGroupTool registers the update_group tool.
func RegisterUpdateGroupTool(s *server.MCPServer, db *sql.DB) {
	updateGroup := mcp.NewTool("update_group",
		mcp.WithDescription("Updates a group. Only provided fields change."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The id of the group to update.")),
		mcp.WithString("name", mcp.Description("New name.")),
		mcp.WithString("description", mcp.Description("New description (empty string clears it).")),
		mcp.WithString("color", mcp.Description("New color tag.")),
		mcp.WithString("icon", mcp.Description("New icon (empty string clears it).")),
	)
	s.AddTool(updateGroup, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok {
			return mcp.NewToolResultError("'id' parameter is required and must be a non-empty string."), nil
		}

		var input notes.UpdateGroupInput
		if v, ok := request.Params.Arguments["name"].(string); ok {
			if v == "" {
				return mcp.NewToolResultError("'name' cannot be empty if provided."), nil
			}
			input.Name = &v
		}
		if v, ok := request.Params.Arguments["description"].(string); ok {
			input.Description = &v
		}
		if v, ok := request.Params.Arguments["color"].(string); ok && v != "" {
			input.Color = &v
		}
		if v, ok := request.Params.Arguments["icon"].(string); ok {
			input.Icon = &v
		}
		if input.Name == nil && input.Description == nil && input.Color == nil && input.Icon == nil {
			return mcp.NewToolResultError("No update fields provided (use name, description, color, or icon)."), nil
		}

		if input.Name != nil {
			taken, err := notes.GroupNameExists(ctx, db, *input.Name, id)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to check name availability: %v", err)), nil
			}
			if taken {
				return mcp.NewToolResultError(fmt.Sprintf("A group named '%s' already exists.", *input.Name)), nil
			}
		}

		group, err := notes.UpdateGroup(ctx, db, id, input)
		if err != nil {
			if errors.Is(err, notes.ErrGroupNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Group with id '%s' not found.", id)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to update group: %v", err)), nil
		}
		return jsonResult(group)
	})
}

// RegisterArchiveGroupTool registers archive_group and unarchive_group.
func RegisterArchiveGroupTool(s *server.MCPServer, db *sql.DB) {
	archive := mcp.NewTool("archive_group",
		mcp.WithDescription("Archives a group, hiding it from the main listing without deleting anything."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The id of the group to archive.")),
	)
	s.AddTool(archive, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return setArchived(ctx, db, request, true)
	})

	unarchive := mcp.NewTool("unarchive_group",
		mcp.WithDescription("Returns an archived group to the main listing."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The id of the group to unarchive.")),
	)
	s.AddTool(unarchive, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return setArchived(ctx, db, request, false)
	})
}

func setArchived(ctx context.Context, db *sql.DB, request mcp.CallToolRequest, archived bool) (*mcp.CallToolResult, error) {
	id, ok := stringArg(request, "id")
	if !ok {
		return mcp.NewToolResultError("'id' parameter is required and must be a non-empty string."), nil
	}

	var err error
	if archived {
		err = notes.ArchiveGroup(ctx, db, id)
	} else {
		err = notes.UnarchiveGroup(ctx, db, id)
	}
	if err != nil {
		if errors.Is(err, notes.ErrGroupNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Group with id '%s' not found.", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to change archive state: %v", err)), nil
	}

	if archived {
		return mcp.NewToolResultText(fmt.Sprintf("Group '%s' archived.", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Group '%s' unarchived.", id)), nil
}

// RegisterDeleteGroupTool registers the delete_group tool.
func RegisterDeleteGroupTool(s *server.MCPServer, db *sql.DB) {
	deleteGroup := mcp.NewTool("delete_group",
		mcp.WithDescription("Permanently deletes a group and every memo in it. Irreversible."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The id of the group to delete.")),
	)
	s.AddTool(deleteGroup, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok {
			return mcp.NewToolResultError("'id' parameter is required and must be a non-empty string."), nil
		}

		err := notes.DeleteGroup(ctx, db, id)
		if err != nil {
			if errors.Is(err, notes.ErrGroupNotFound) {
				return mcp.NewToolResultText(fmt.Sprintf("Group '%s' not found, nothing to delete.", id)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to delete group '%s': %v", id, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Group '%s' and its memos deleted.", id)), nil
	})
}

// RegisterCreateMemoTool registers the create_memo tool.
func RegisterCreateMemoTool(s *server.MCPServer, db *sql.DB) {
	createMemo := mcp.NewTool("create_memo",
		mcp.WithDescription("Sends a new memo into a group."),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("The id of the owning group.")),
		mcp.WithString("content", mcp.Description("Memo text.")),
		mcp.WithString("image_uri", mcp.Description("Optional reference to an on-device image.")),
	)
	s.AddTool(createMemo, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groupID, ok := stringArg(request, "group_id")
		if !ok {
			return mcp.NewToolResultError("'group_id' parameter is required and must be a non-empty string."), nil
		}
		content, _ := request.Params.Arguments["content"].(string)
		imageURI, _ := request.Params.Arguments["image_uri"].(string)
		if content == "" && imageURI == "" {
			return mcp.NewToolResultError("A memo needs 'content' or 'image_uri'."), nil
		}

		memo, err := notes.CreateMemo(ctx, db, notes.CreateMemoInput{
			GroupID:  groupID,
			Content:  content,
			ImageURI: imageURI,
		})
		if err != nil {
			if errors.Is(err, notes.ErrGroupNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Group with id '%s' not found.", groupID)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create memo: %v", err)), nil
		}
		return jsonResult(memo)
	})
}

// RegisterListMemosTool registers the list_memos tool.
func RegisterListMemosTool(s *server.MCPServer, db *sql.DB) {
	listMemos := mcp.NewTool("list_memos",
		mcp.WithDescription("Lists a group's memos in chronological chat order. Tombstoned memos are excluded."),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("The id of the group.")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50).")),
		mcp.WithNumber("offset", mcp.Description("Rows to skip.")),
	)
	s.AddTool(listMemos, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groupID, ok := stringArg(request, "group_id")
		if !ok {
			return mcp.NewToolResultError("'group_id' parameter is required and must be a non-empty string."), nil
		}
		limit, _ := request.Params.Arguments["limit"].(float64)
		offset, _ := request.Params.Arguments["offset"].(float64)

		memos, err := notes.ListMemos(ctx, db, groupID, int(limit), int(offset))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list memos: %v", err)), nil
		}
		if len(memos) == 0 {
			return mcp.NewToolResultText("[]"), nil
		}
		return jsonResult(memos)
	})
}

// RegisterUpdateMemoTool registers the update_memo tool.
func RegisterUpdateMemoTool(s *server.MCPServer, db *sql.DB) {
	updateMemo := mcp.NewTool("update_memo",
		mcp.WithDescription("Edits a memo's content in place."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The id of the memo.")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Replacement text.")),
	)
	s.AddTool(updateMemo, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok {
			return mcp.NewToolResultError("'id' parameter is required and must be a non-empty string."), nil
		}
		content, ok := request.Params.Arguments["content"].(string)
		if !ok {
			return mcp.NewToolResultError("'content' parameter is required."), nil
		}

		memo, err := notes.UpdateMemoContent(ctx, db, id, content)
		if err != nil {
			if errors.Is(err, notes.ErrMemoNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Memo with id '%s' not found.", id)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to update memo: %v", err)), nil
		}
		return jsonResult(memo)
	})
}

// RegisterDeleteMemoTool registers delete_memo (soft) and purge_memo (hard).
func RegisterDeleteMemoTool(s *server.MCPServer, db *sql.DB) {
	deleteMemo := mcp.NewTool("delete_memo",
		mcp.WithDescription("Soft-deletes a memo. The row stays as a tombstone and can be purged later."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The id of the memo.")),
	)
	s.AddTool(deleteMemo, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok {
			return mcp.NewToolResultError("'id' parameter is required and must be a non-empty string."), nil
		}
		if err := notes.SoftDeleteMemo(ctx, db, id); err != nil {
			if errors.Is(err, notes.ErrMemoNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Memo with id '%s' not found.", id)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to delete memo: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Memo '%s' deleted.", id)), nil
	})

	purgeMemo := mcp.NewTool("purge_memo",
		mcp.WithDescription("Physically removes a memo row. Irreversible."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The id of the memo.")),
	)
	s.AddTool(purgeMemo, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok {
			return mcp.NewToolResultError("'id' parameter is required and must be a non-empty string."), nil
		}
		if err := notes.HardDeleteMemo(ctx, db, id); err != nil {
			if errors.Is(err, notes.ErrMemoNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Memo with id '%s' not found.", id)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to purge memo: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Memo '%s' purged.", id)), nil
	})
}

// RegisterSearchMemosTool registers the search_memos tool.
func RegisterSearchMemosTool(s *server.MCPServer, db *sql.DB) {
	searchMemos := mcp.NewTool("search_memos",
		mcp.WithDescription("Searches a group's memos by case-insensitive substring, or by created-at date range (RFC 3339)."),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("The id of the group to search.")),
		mcp.WithString("query", mcp.Description("Substring to look for in memo content.")),
		mcp.WithString("start", mcp.Description("Range start, RFC 3339.")),
		mcp.WithString("end", mcp.Description("Range end, RFC 3339.")),
	)
	s.AddTool(searchMemos, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groupID, ok := stringArg(request, "group_id")
		if !ok {
			return mcp.NewToolResultError("'group_id' parameter is required and must be a non-empty string."), nil
		}
		query, hasQuery := stringArg(request, "query")
		startStr, hasStart := stringArg(request, "start")
		endStr, hasEnd := stringArg(request, "end")

		var (
			memos []notes.Memo
			err   error
		)
		switch {
		case hasQuery:
			memos, err = notes.SearchMemosByText(ctx, db, groupID, query)
		case hasStart && hasEnd:
			var start, end time.Time
			if start, err = time.Parse(time.RFC3339, startStr); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Invalid 'start' timestamp: %v", err)), nil
			}
			if end, err = time.Parse(time.RFC3339, endStr); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Invalid 'end' timestamp: %v", err)), nil
			}
			memos, err = notes.SearchMemosByDateRange(ctx, db, groupID, start, end)
		default:
			return mcp.NewToolResultError("Provide 'query', or both 'start' and 'end'."), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
		}
		if len(memos) == 0 {
			return mcp.NewToolResultText("[]"), nil
		}
		return jsonResult(memos)
	})
}

// RegisterExportBackupTool registers the export_backup tool.
func RegisterExportBackupTool(s *server.MCPServer, db *sql.DB, log zerolog.Logger) {
	exportBackup := mcp.NewTool("export_backup",
		mcp.WithDescription("Snapshots the whole store (archived groups and tombstones included) into a timestamped JSON backup file in the given directory."),
		mcp.WithString("dir", mcp.Required(), mcp.Description("Directory to write the backup file into.")),
	)
	s.AddTool(exportBackup, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir, ok := stringArg(request, "dir")
		if !ok {
			return mcp.NewToolResultError("'dir' parameter is required and must be a non-empty string."), nil
		}

		result := backup.SaveToDevice(ctx, db, backup.StaticDirectory(dir), log)
		if !result.Success {
			return mcp.NewToolResultError(fmt.Sprintf("Export failed: %s", result.Error)), nil
		}
		return jsonResult(result)
	})
}

// RegisterImportBackupTool registers the import_backup tool.
func RegisterImportBackupTool(s *server.MCPServer, db *sql.DB, importer *backup.Importer) {
	importBackup := mcp.NewTool("import_backup",
		mcp.WithDescription("Merges a backup file into the store under a duplicate strategy and reports per-entity import/skip counts."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the backup JSON file.")),
		mcp.WithString("strategy", mcp.Description("Duplicate handling: skip (default), overwrite, or rename.")),
		mcp.WithBoolean("clear_existing", mcp.Description("Wipe the store before importing.")),
	)
	s.AddTool(importBackup, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, ok := stringArg(request, "path")
		if !ok {
			return mcp.NewToolResultError("'path' parameter is required and must be a non-empty string."), nil
		}
		strategy, _ := request.Params.Arguments["strategy"].(string)
		clearExisting, _ := request.Params.Arguments["clear_existing"].(bool)

		result := importer.ImportFromFile(ctx, db, backup.StaticFile(path), backup.ImportOptions{
			DuplicateStrategy: backup.DuplicateStrategy(strategy),
			ClearExisting:     clearExisting,
		})
		if !result.Success && !result.Cancelled {
			return mcp.NewToolResultError(fmt.Sprintf("Import failed: %s", result.Error)), nil
		}
		return jsonResult(result)
	})
}
