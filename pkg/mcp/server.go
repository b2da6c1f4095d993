package mcp

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	chatmemo "github.com/chatmemo/chatmemo/pkg"
	pkgdb "github.com/chatmemo/chatmemo/pkg/db"
	"github.com/chatmemo/chatmemo/pkg/logger"
	"github.com/chatmemo/chatmemo/pkg/utils"
)

// ChatMemoMCPServer fronts the memo store with an MCP stdio server so
// external agents can drive the repository and backup operations.
type ChatMemoMCPServer struct {
	mcpServer *server.MCPServer
	provider  *pkgdb.Provider
	db        *sql.DB
	DbPath    string
}

// NewChatMemoMCPServer opens (and migrates) the database at dbPath and builds
// the server. An empty dbPath means the OS-appropriate default location.
func NewChatMemoMCPServer(dbPath string) (*ChatMemoMCPServer, error) {
	resolvedPath, err := utils.ResolveAndEnsureDBPath(dbPath)
	if err != nil {
		return nil, err
	}

	s := server.NewMCPServer(
		"ChatMemo MCP Server",
		chatmemo.Version,
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
		server.WithRecovery(),
	)

	log := logger.New("chatmemo-mcp")
	provider := pkgdb.NewProvider(resolvedPath, true, "FULL", log)

	ctx := context.Background()
	dbConn, err := provider.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", resolvedPath, err)
	}

	if err := pkgdb.SeedWelcomeData(ctx, dbConn, provider.Fresh(), log); err != nil {
		provider.Close()
		return nil, fmt.Errorf("failed to seed welcome data: %w", err)
	}

	return &ChatMemoMCPServer{
		mcpServer: s,
		provider:  provider,
		db:        dbConn,
		DbPath:    resolvedPath,
	}, nil
}

// Start runs the stdio event loop. Make sure to register tools beforehand.
func (s *ChatMemoMCPServer) Start() error {
	return server.ServeStdio(s.mcpServer)
}

// DB returns the underlying *sql.DB.
func (s *ChatMemoMCPServer) DB() *sql.DB {
	return s.db
}

// MCPRawServer exposes the raw mcp-go server (useful for additional configuration).
func (s *ChatMemoMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}

// Close cleans up allocated resources.
func (s *ChatMemoMCPServer) Close() error {
	return s.provider.Close()
}
