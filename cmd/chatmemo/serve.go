package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatmemo/chatmemo/pkg/backup"
	"github.com/chatmemo/chatmemo/pkg/logger"
	"github.com/chatmemo/chatmemo/pkg/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long:  `Starts an MCP server exposing the group, memo, search, and backup operations as tools over stdin/stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := mcp.NewChatMemoMCPServer(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}
		defer srv.Close()

		log := logger.New("chatmemo-mcp")
		raw := srv.MCPRawServer()
		db := srv.DB()

		mcp.RegisterPingTool(raw)
		mcp.RegisterCreateGroupTool(raw, db)
		mcp.RegisterListGroupsTool(raw, db)
		mcp.RegisterGetGroupTool(raw, db)
		mcp.RegisterUpdateGroupTool(raw, db)
		mcp.RegisterArchiveGroupTool(raw, db)
		mcp.RegisterDeleteGroupTool(raw, db)
		mcp.RegisterCreateMemoTool(raw, db)
		mcp.RegisterListMemosTool(raw, db)
		mcp.RegisterUpdateMemoTool(raw, db)
		mcp.RegisterDeleteMemoTool(raw, db)
		mcp.RegisterSearchMemosTool(raw, db)
		mcp.RegisterExportBackupTool(raw, db, log)
		mcp.RegisterImportBackupTool(raw, db, backup.NewImporter(log))

		log.Info().Str("db", srv.DbPath).Msg("serving MCP over stdio")
		return srv.Start()
	},
}
