package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	chatmemo "github.com/chatmemo/chatmemo/pkg"
	"github.com/chatmemo/chatmemo/pkg/config"
	pkgdb "github.com/chatmemo/chatmemo/pkg/db"
	"github.com/chatmemo/chatmemo/pkg/logger"
	"github.com/chatmemo/chatmemo/pkg/utils"
)

var dbPath string

// openStore opens (and, on first use, migrates and seeds) the database,
// combining the --dbpath flag with CHATMEMO_* environment defaults.
func openStore(ctx context.Context) (*sql.DB, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	path := dbPath
	if path == "" {
		path = cfg.DBPath
	}
	resolved, err := utils.ResolveAndEnsureDBPath(path)
	if err != nil {
		return nil, nil, err
	}

	log := logger.New("chatmemo")
	provider := pkgdb.NewProvider(resolved, cfg.EnableWAL, cfg.SyncPragma, log)

	conn, err := provider.Get(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database '%s': %w", resolved, err)
	}

	if err := pkgdb.SeedWelcomeData(ctx, conn, provider.Fresh(), log); err != nil {
		provider.Close()
		return nil, nil, fmt.Errorf("failed to seed welcome data: %w", err)
	}

	return conn, provider.Close, nil
}

var rootCmd = &cobra.Command{
	Use:     "chatmemo",
	Short:   "A chat-style memo store with groups, archives, and portable JSON backups.",
	Long:    ``,
	Version: fmt.Sprintf("v%s", chatmemo.Version),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

var completionCmd = &cobra.Command{
	Use:   fmt.Sprintf("completion %s", strings.Join(completionShells, "|")),
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for chatmemo.

The command prints a completion script to stdout. You can source it in your shell
or install it to the appropriate location for your shell to enable completions permanently.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of chatmemo",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(chatmemo.Version)
	},
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the chatmemo database",
	Long:  `Provides commands for managing the chatmemo SQLite database, including schema upgrades.`,
}

var dbUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade the chatmemo database schema to the latest version",
	Long: `Connects to the SQLite database at the specified path (via --dbpath) and applies any
necessary schema migrations to bring it up to the current application schema version.
A missing or uninitialized database is created with the latest schema.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		walEnabled, _ := cmd.Flags().GetBool("wal")
		syncMode, _ := cmd.Flags().GetString("sync")

		resolved, err := utils.ResolveAndEnsureDBPath(dbPath)
		if err != nil {
			return err
		}

		fmt.Printf("Upgrading database at: %s (WAL: %t, Sync: %s)\n", resolved, walEnabled, syncMode)

		dbConn, err := pkgdb.OpenDBConnection(resolved, walEnabled, syncMode)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		ctx := cmd.Context()
		fresh, err := pkgdb.UpgradeDB(ctx, dbConn, logger.New("chatmemo"))
		if err != nil {
			return err
		}
		if fresh {
			fmt.Println("Database initialized with the latest schema.")
		} else {
			fmt.Println("Database schema is up to date.")
		}
		return nil
	},
}

func initCmd() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "dbpath", "", "Path to the chatmemo SQLite database file (e.g., ./chatmemo.db)")

	dbUpgradeCmd.Flags().Bool("wal", true, "Enable SQLite WAL (Write-Ahead Logging) mode.")
	dbUpgradeCmd.Flags().String("sync", "NORMAL", "SQLite synchronous pragma (OFF, NORMAL, FULL, EXTRA).")
	dbCmd.AddCommand(dbUpgradeCmd)

	initGroupCmds()
	initMemoCmds()
	initBackupCmds()

	rootCmd.AddCommand(completionCmd, versionCmd, dbCmd, groupsCmd, memosCmd, backupCmd, serveCmd)
}

func main() {
	initCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
