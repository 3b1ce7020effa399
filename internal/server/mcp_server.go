package server

import (
	"context"
	"net/http"
	"os"

	"github.com/ajanottaja/identity-bridge/internal/bridge"
	"github.com/ajanottaja/identity-bridge/internal/config"
	"github.com/ajanottaja/identity-bridge/internal/logger"
	"github.com/ajanottaja/identity-bridge/internal/server/tool"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// MCPServer exposes the operator tools over the Model Context Protocol.
type MCPServer struct {
	mcp  *mcpserver.MCPServer
	tool *tool.Handler
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(svc *bridge.Service) *MCPServer {
	mcpServer := mcpserver.NewMCPServer(
		"identity-bridge",
		config.Version(),
	)

	srv := &MCPServer{
		mcp:  mcpServer,
		tool: tool.NewHandler(svc),
	}
	srv.setupTools()
	return srv
}

func (s *MCPServer) setupTools() {
	for _, t := range s.tool.Tools() {
		logger.Debug("Adding tool", zap.String("name", t.Name))
		s.mcp.AddTool(t, s.tool.CreateHandler(t.Name))
	}
}

// HTTPHandler returns the streamable HTTP transport for mounting under /mcp.
func (s *MCPServer) HTTPHandler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcp)
}

// ServeSTDIO serves the tools over standard I/O until ctx is done.
func (s *MCPServer) ServeSTDIO(ctx context.Context) error {
	logger.Info("Starting MCP server via STDIO")
	stdioServer := mcpserver.NewStdioServer(s.mcp)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}
