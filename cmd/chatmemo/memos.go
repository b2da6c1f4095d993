package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatmemo/chatmemo/pkg/notes"
)

var memosCmd = &cobra.Command{
	Use:   "memos",
	Short: "Manage memos within groups",
	Long:  `Provides commands for sending, listing, editing, deleting, and searching memos.`,
}

var memoSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a new memo into a group",
	RunE: func(cmd *cobra.Command, args []string) error {
		groupID, _ := cmd.Flags().GetString("group-id")
		content, _ := cmd.Flags().GetString("content")
		imageURI, _ := cmd.Flags().GetString("image")

		if groupID == "" {
			return fmt.Errorf("group-id is required")
		}
		if content == "" && imageURI == "" {
			return fmt.Errorf("a memo needs --content or --image")
		}

		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		memo, err := notes.CreateMemo(ctx, dbConn, notes.CreateMemoInput{
			GroupID:  groupID,
			Content:  content,
			ImageURI: imageURI,
		})
		if err != nil {
			if errors.Is(err, notes.ErrGroupNotFound) {
				return fmt.Errorf("group with ID %s not found", groupID)
			}
			return fmt.Errorf("failed to create memo: %w", err)
		}

		fmt.Println("Memo sent:")
		return printJSON(memo)
	},
}

var memoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a group's memos in chronological order",
	RunE: func(cmd *cobra.Command, args []string) error {
		groupID, _ := cmd.Flags().GetString("group-id")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		if groupID == "" {
			return fmt.Errorf("group-id is required")
		}

		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		memos, err := notes.ListMemos(ctx, dbConn, groupID, limit, offset)
		if err != nil {
			return fmt.Errorf("failed to list memos: %w", err)
		}

		if len(memos) == 0 {
			fmt.Println("No memos found.")
			return nil
		}
		return printJSON(memos)
	},
}

var memoGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get a specific memo by its ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		memo, err := notes.GetMemo(ctx, dbConn, args[0])
		if err != nil {
			if errors.Is(err, notes.ErrMemoNotFound) {
				fmt.Printf("Memo with ID %s not found.\n", args[0])
				return nil
			}
			return fmt.Errorf("failed to get memo: %w", err)
		}
		return printJSON(memo)
	},
}

var memoUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Edit a memo's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		if !cmd.Flags().Changed("content") {
			fmt.Println("No update provided. Use --content.")
			return nil
		}

		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		memo, err := notes.UpdateMemoContent(ctx, dbConn, args[0], content)
		if err != nil {
			if errors.Is(err, notes.ErrMemoNotFound) {
				fmt.Printf("Memo with ID %s not found.\n", args[0])
				return nil
			}
			return fmt.Errorf("failed to update memo: %w", err)
		}

		fmt.Println("Memo updated successfully:")
		return printJSON(memo)
	},
}

var memoDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Soft-delete a memo, leaving a tombstone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := notes.SoftDeleteMemo(ctx, dbConn, args[0]); err != nil {
			if errors.Is(err, notes.ErrMemoNotFound) {
				fmt.Printf("Memo with ID %s not found.\n", args[0])
				return nil
			}
			return fmt.Errorf("failed to delete memo: %w", err)
		}

		fmt.Printf("Memo %s deleted.\n", args[0])
		return nil
	},
}

var memoPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Permanently remove memos",
	Long: `Permanently removes memo rows. With --id a single memo is removed; with
--group-id every tombstoned memo in that group is purged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		groupID, _ := cmd.Flags().GetString("group-id")

		if (id == "") == (groupID == "") {
			return fmt.Errorf("provide exactly one of --id or --group-id")
		}

		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if id != "" {
			if err := notes.HardDeleteMemo(ctx, dbConn, id); err != nil {
				if errors.Is(err, notes.ErrMemoNotFound) {
					fmt.Printf("Memo with ID %s not found.\n", id)
					return nil
				}
				return fmt.Errorf("failed to purge memo: %w", err)
			}
			fmt.Printf("Memo %s purged.\n", id)
			return nil
		}

		purged, err := notes.CleanDeletedMemos(ctx, dbConn, groupID)
		if err != nil {
			return fmt.Errorf("failed to purge deleted memos: %w", err)
		}
		fmt.Printf("Purged %d deleted memo(s) from group %s.\n", purged, groupID)
		return nil
	},
}

var memoSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search a group's memos by text or date range",
	Long: `Searches a group's memos. --query matches content case-insensitively;
--start and --end (RFC 3339) select a created-at range instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		groupID, _ := cmd.Flags().GetString("group-id")
		query, _ := cmd.Flags().GetString("query")
		startStr, _ := cmd.Flags().GetString("start")
		endStr, _ := cmd.Flags().GetString("end")

		if groupID == "" {
			return fmt.Errorf("group-id is required")
		}

		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		var memos []notes.Memo
		switch {
		case query != "":
			memos, err = notes.SearchMemosByText(ctx, dbConn, groupID, query)
		case startStr != "" && endStr != "":
			var start, end time.Time
			if start, err = time.Parse(time.RFC3339, startStr); err != nil {
				return fmt.Errorf("invalid --start timestamp: %w", err)
			}
			if end, err = time.Parse(time.RFC3339, endStr); err != nil {
				return fmt.Errorf("invalid --end timestamp: %w", err)
			}
			memos, err = notes.SearchMemosByDateRange(ctx, dbConn, groupID, start, end)
		default:
			return fmt.Errorf("provide --query, or both --start and --end")
		}
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if len(memos) == 0 {
			fmt.Println("No memos found matching the criteria.")
			return nil
		}
		return printJSON(memos)
	},
}

func initMemoCmds() {
	memoSendCmd.Flags().StringP("group-id", "g", "", "ID of the group to send the memo to (required)")
	memoSendCmd.MarkFlagRequired("group-id")
	memoSendCmd.Flags().StringP("content", "c", "", "Memo text")
	memoSendCmd.Flags().String("image", "", "Reference to an on-device image")

	memoListCmd.Flags().StringP("group-id", "g", "", "ID of the group to list memos from (required)")
	memoListCmd.MarkFlagRequired("group-id")
	memoListCmd.Flags().Int("limit", 0, "Page size (default 50)")
	memoListCmd.Flags().Int("offset", 0, "Rows to skip")

	memoUpdateCmd.Flags().StringP("content", "c", "", "New content for the memo")

	memoPurgeCmd.Flags().String("id", "", "ID of a single memo to purge")
	memoPurgeCmd.Flags().StringP("group-id", "g", "", "Purge all tombstoned memos in this group")

	memoSearchCmd.Flags().StringP("group-id", "g", "", "ID of the group to search (required)")
	memoSearchCmd.MarkFlagRequired("group-id")
	memoSearchCmd.Flags().StringP("query", "q", "", "Substring to search for (case-insensitive)")
	memoSearchCmd.Flags().String("start", "", "Range start, RFC 3339")
	memoSearchCmd.Flags().String("end", "", "Range end, RFC 3339")

	memosCmd.AddCommand(memoSendCmd, memoListCmd, memoGetCmd, memoUpdateCmd, memoDeleteCmd, memoPurgeCmd, memoSearchCmd)
}
