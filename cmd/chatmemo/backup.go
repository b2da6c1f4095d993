package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatmemo/chatmemo/pkg/backup"
	"github.com/chatmemo/chatmemo/pkg/config"
	"github.com/chatmemo/chatmemo/pkg/logger"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export and import full-store backups",
	Long:  `Provides commands for exporting the whole store to a JSON document and importing such documents back.`,
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the entire store to a backup file",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dir = cfg.BackupDir
		}
		if dir == "" {
			return fmt.Errorf("provide --dir or set CHATMEMO_BACKUP_DIR")
		}

		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		log := logger.New("chatmemo-cli")
		result := backup.SaveToDevice(ctx, dbConn, backup.StaticDirectory(dir), log)
		if result.Error != "" {
			return fmt.Errorf("export failed: %s", result.Error)
		}
		return printJSON(result)
	},
}

// stdoutSharer "shares" by printing the written file's path, the closest a
// terminal gets to a platform share sheet.
type stdoutSharer struct{}

func (stdoutSharer) Share(ctx context.Context, path string) error {
	fmt.Printf("Backup ready to share: %s\n", path)
	return nil
}

var backupShareCmd = &cobra.Command{
	Use:   "share",
	Short: "Export the store to a temporary file for sharing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		result := backup.Share(ctx, dbConn, stdoutSharer{}, logger.New("chatmemo-cli"))
		if result.Error != "" {
			return fmt.Errorf("share failed: %s", result.Error)
		}
		return nil
	},
}

var backupStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what an export taken now would contain",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		exportable, err := backup.CanExport(ctx, dbConn)
		if err != nil {
			return fmt.Errorf("failed to inspect store: %w", err)
		}
		if !exportable {
			fmt.Println("Store is empty; nothing to export.")
			return nil
		}

		doc, err := backup.BuildSnapshot(ctx, dbConn)
		if err != nil {
			return fmt.Errorf("failed to build snapshot: %w", err)
		}
		size, err := backup.Size(ctx, dbConn)
		if err != nil {
			return fmt.Errorf("failed to measure snapshot: %w", err)
		}

		return printJSON(struct {
			*backup.Statistics
			SizeBytes int `json:"sizeBytes"`
		}{doc.Statistics, size})
	},
}

var backupPreviewCmd = &cobra.Command{
	Use:   "preview [file]",
	Short: "Validate a backup file and describe its contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		preview := backup.PreviewImport(args[0])
		return printJSON(preview)
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a backup file into the store",
	Long: `Reconciles a backup document into the live store. Records whose ids
already exist locally are handled per --on-duplicate: skip (default),
overwrite, or rename. --clear wipes the store first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, _ := cmd.Flags().GetString("on-duplicate")
		wipe, _ := cmd.Flags().GetBool("clear")

		ctx := cmd.Context()
		dbConn, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		importer := backup.NewImporter(logger.New("chatmemo-cli"))
		result := importer.ImportFromFile(ctx, dbConn, backup.StaticFile(args[0]), backup.ImportOptions{
			DuplicateStrategy: backup.DuplicateStrategy(strategy),
			ClearExisting:     wipe,
		})
		if result.Error != "" {
			return fmt.Errorf("import failed: %s", result.Error)
		}
		return printJSON(result)
	},
}

func initBackupCmds() {
	backupExportCmd.Flags().StringP("dir", "d", "", "Directory to write the backup file into (defaults to CHATMEMO_BACKUP_DIR)")

	backupImportCmd.Flags().String("on-duplicate", string(backup.StrategySkip), "Duplicate handling: skip, overwrite, or rename")
	backupImportCmd.Flags().Bool("clear", false, "Wipe all local data before importing")

	backupCmd.AddCommand(backupExportCmd, backupShareCmd, backupStatsCmd, backupPreviewCmd, backupImportCmd)
}
