// Package mcp fronts the tool registry with a Model Context Protocol
// server speaking JSON-RPC over stdio, so any MCP-capable assistant can
// call the query tools directly.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/nextlevelbuilder/waindex/internal/tools"
)

// Server bridges a tools.Registry onto an MCP stdio server. Each
// registered tool is exported under its own name with its JSON schema.
type Server struct {
	registry *tools.Registry
	mcp      *mcpserver.MCPServer
	log      *slog.Logger
}

// NewServer exports every tool currently in the registry.
func NewServer(name, version string, registry *tools.Registry) (*Server, error) {
	s := &Server{
		registry: registry,
		mcp: mcpserver.NewMCPServer(name, version,
			mcpserver.WithToolCapabilities(false),
		),
		log: slog.Default(),
	}

	for _, tool := range registry.List() {
		schema, err := json.Marshal(tool.Parameters())
		if err != nil {
			return nil, fmt.Errorf("marshal schema for %s: %w", tool.Name(), err)
		}
		def := mcpgo.NewToolWithRawSchema(tool.Name(), tool.Description(), schema)
		s.mcp.AddTool(def, s.handler(tool.Name()))
	}
	return s, nil
}

func (s *Server) handler(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		result := s.registry.Execute(ctx, name, callerKey(req), req.GetArguments())
		if result.IsError {
			if result.Err != nil {
				s.log.Error("tool failed", "tool", name, "err", result.Err)
			}
			return mcpgo.NewToolResultError(result.Text), nil
		}
		return mcpgo.NewToolResultText(result.Text), nil
	}
}

// callerKey identifies the caller for rate limiting. Stdio transport has
// exactly one peer, so a fixed key meters the whole session.
func callerKey(_ mcpgo.CallToolRequest) string {
	return "mcp-stdio"
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout until the
// stream closes or ctx is canceled.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.log.Info("mcp server listening on stdio", "tools", s.registry.Count())
	return mcpserver.ServeStdio(s.mcp, mcpserver.WithStdioContextFunc(
		func(context.Context) context.Context { return ctx },
	))
}
