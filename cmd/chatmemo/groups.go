package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatmemo/chatmemo/pkg/notes"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage memo groups",
	Long:  `Provides commands for creating, listing, updating, archiving, and deleting groups.`,
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

var groupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new group",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		color, _ := cmd.Flags().GetString("color")
		icon, _ := cmd.Flags().GetString("icon")

		if name == "" {
			return fmt.Errorf("group name cannot be empty")
		}

		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		taken, err := notes.GroupNameExists(ctx, dbConn, name, "")
		if err != nil {
			return fmt.Errorf("failed to check name availability: %w", err)
		}
		if taken {
			return fmt.Errorf("a group named %q already exists", name)
		}

		group, err := notes.CreateGroup(ctx, dbConn, notes.CreateGroupInput{
			Name:        name,
			Description: description,
			Color:       color,
			Icon:        icon,
		})
		if err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}

		fmt.Println("Group created successfully:")
		return printJSON(group)
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups ordered by most recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		archived, _ := cmd.Flags().GetBool("archived")

		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if archived {
			groups, err := notes.ListArchivedGroups(ctx, dbConn)
			if err != nil {
				return fmt.Errorf("failed to list archived groups: %w", err)
			}
			if len(groups) == 0 {
				fmt.Println("No archived groups found.")
				return nil
			}
			return printJSON(groups)
		}

		groups, err := notes.ListGroups(ctx, dbConn)
		if err != nil {
			return fmt.Errorf("failed to list groups: %w", err)
		}
		if len(groups) == 0 {
			fmt.Println("No groups found.")
			return nil
		}
		return printJSON(groups)
	},
}

var groupGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get a specific group by its ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		group, err := notes.GetGroup(ctx, dbConn, args[0])
		if err != nil {
			if errors.Is(err, notes.ErrGroupNotFound) {
				fmt.Printf("Group with ID %s not found.\n", args[0])
				return nil
			}
			return fmt.Errorf("failed to get group: %w", err)
		}
		return printJSON(group)
	},
}

var groupUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update an existing group",
	Long:  `Updates an existing group. Only provided fields will be changed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var input notes.UpdateGroupInput
		if cmd.Flags().Changed("name") {
			n, _ := cmd.Flags().GetString("name")
			input.Name = &n
		}
		if cmd.Flags().Changed("description") {
			d, _ := cmd.Flags().GetString("description")
			input.Description = &d
		}
		if cmd.Flags().Changed("color") {
			c, _ := cmd.Flags().GetString("color")
			input.Color = &c
		}
		if cmd.Flags().Changed("icon") {
			i, _ := cmd.Flags().GetString("icon")
			input.Icon = &i
		}

		if input.Name == nil && input.Description == nil && input.Color == nil && input.Icon == nil {
			fmt.Println("No update fields provided. Use --name, --description, --color, or --icon.")
			return nil
		}

		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if input.Name != nil {
			taken, err := notes.GroupNameExists(ctx, dbConn, *input.Name, args[0])
			if err != nil {
				return fmt.Errorf("failed to check name availability: %w", err)
			}
			if taken {
				return fmt.Errorf("a group named %q already exists", *input.Name)
			}
		}

		group, err := notes.UpdateGroup(ctx, dbConn, args[0], input)
		if err != nil {
			if errors.Is(err, notes.ErrGroupNotFound) {
				fmt.Printf("Group with ID %s not found.\n", args[0])
				return nil
			}
			return fmt.Errorf("failed to update group: %w", err)
		}

		fmt.Println("Group updated successfully:")
		return printJSON(group)
	},
}

var groupArchiveCmd = &cobra.Command{
	Use:   "archive [id]",
	Short: "Archive a group, hiding it from the main listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setArchivedCmd(cmd, args[0], true)
	},
}

var groupUnarchiveCmd = &cobra.Command{
	Use:   "unarchive [id]",
	Short: "Return an archived group to the main listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setArchivedCmd(cmd, args[0], false)
	},
}

func setArchivedCmd(cmd *cobra.Command, id string, archived bool) error {
	ctx := cmd.Context()
	dbConn, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if archived {
		err = notes.ArchiveGroup(ctx, dbConn, id)
	} else {
		err = notes.UnarchiveGroup(ctx, dbConn, id)
	}
	if err != nil {
		if errors.Is(err, notes.ErrGroupNotFound) {
			fmt.Printf("Group with ID %s not found.\n", id)
			return nil
		}
		return fmt.Errorf("failed to change archive state: %w", err)
	}

	if archived {
		fmt.Printf("Group %s archived.\n", id)
	} else {
		fmt.Printf("Group %s unarchived.\n", id)
	}
	return nil
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a group and all its memos",
	Long:  `Permanently deletes a group. Every memo in the group is removed by cascade, tombstones included.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := notes.DeleteGroup(ctx, dbConn, args[0]); err != nil {
			if errors.Is(err, notes.ErrGroupNotFound) {
				fmt.Printf("Group with ID %s not found.\n", args[0])
				return nil
			}
			return fmt.Errorf("failed to delete group: %w", err)
		}

		fmt.Printf("Group %s and its memos deleted.\n", args[0])
		return nil
	},
}

func initGroupCmds() {
	groupCreateCmd.Flags().StringP("name", "n", "", "Name of the group (required)")
	groupCreateCmd.MarkFlagRequired("name")
	groupCreateCmd.Flags().StringP("description", "d", "", "Description of the group")
	groupCreateCmd.Flags().StringP("color", "c", notes.ColorBlue, "Presentation color tag")
	groupCreateCmd.Flags().String("icon", "", "Emoji or short symbol for the group")

	groupListCmd.Flags().Bool("archived", false, "List archived groups instead of the main listing")

	groupUpdateCmd.Flags().StringP("name", "n", "", "New name for the group")
	groupUpdateCmd.Flags().StringP("description", "d", "", "New description for the group")
	groupUpdateCmd.Flags().StringP("color", "c", "", "New color tag for the group")
	groupUpdateCmd.Flags().String("icon", "", "New icon for the group")

	groupsCmd.AddCommand(groupCreateCmd, groupListCmd, groupGetCmd, groupUpdateCmd, groupArchiveCmd, groupUnarchiveCmd, groupDeleteCmd)
}
