// Package mcpserver exposes the application controller as MCP tools
// over stdio, so MCP-capable assistants can launch, close, and inspect
// applications through the same controller the voice skill uses.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/history"
	"github.com/ovoskit/maclaunch/pkg/version"
)

// New creates the MCP server with all tools registered. The history
// store may be nil; the tools then skip recording.
func New(ctrl *apps.Controller, hist *history.Store) *server.MCPServer {
	s := server.NewMCPServer(
		"maclaunch",
		version.Get().Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	launchTool := NewLaunchTool(ctrl, hist)
	s.AddTool(launchTool.Definition(), launchTool.Handle)

	closeTool := NewCloseTool(ctrl, hist)
	s.AddTool(closeTool.Definition(), closeTool.Handle)

	listTool := NewListAppsTool(ctrl)
	s.AddTool(listTool.Definition(), listTool.Handle)

	statusTool := NewAppStatusTool(ctrl)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	return s
}

// ServeStdio runs the server over stdin/stdout until EOF.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
