// Package mcp assembles the MCP server exposing graphoni-engine's core
// operations as tools. The server runs as one already-resolved actor;
// every tool call re-validates the actor's role at the service layer.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/auth"
	"github.com/graphoni/graphoni-engine/pkg/mcp/tools"
	"github.com/graphoni/graphoni-engine/pkg/services"
)

// ServerDeps contains everything needed to assemble the MCP server.
type ServerDeps struct {
	Actor       auth.Actor
	Proposals   services.ProposalService
	DirectEdits services.DirectEditService
	Audit       services.AuditService
	Squash      services.SquashService
	Store       tools.GraphReader
	Logger      *zap.Logger
	Version     string
}

// NewServer creates the MCP server with all tools registered.
func NewServer(deps *ServerDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"graphoni-engine",
		deps.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	toolDeps := &tools.Deps{
		Actor:       deps.Actor,
		Proposals:   deps.Proposals,
		DirectEdits: deps.DirectEdits,
		Audit:       deps.Audit,
		Squash:      deps.Squash,
		Store:       deps.Store,
		Logger:      deps.Logger.Named("mcp-tools"),
	}

	tools.RegisterGraphTools(s, toolDeps)
	tools.RegisterProposalTools(s, toolDeps)
	tools.RegisterReviewTools(s, toolDeps)
	tools.RegisterAuditTools(s, toolDeps)

	return s
}

// ServeStdio runs the server over stdio until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
