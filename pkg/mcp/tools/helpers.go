// Package tools provides MCP tool implementations for graphoni-engine.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/auth"
	"github.com/graphoni/graphoni-engine/pkg/graph"
	"github.com/graphoni/graphoni-engine/pkg/models"
	"github.com/graphoni/graphoni-engine/pkg/services"
)

// GraphReader is the read-only slice of the graph store the tools need.
type GraphReader interface {
	FetchNode(ctx context.Context, nodeID string) (models.Properties, error)
	FetchEdge(ctx context.Context, edgeID string) (models.Properties, error)
	Search(ctx context.Context, query string, types []string, limit int) ([]models.Properties, error)
	Neighborhood(ctx context.Context, nodeID string, hops, limit int) (*graph.Subgraph, error)
	FindPath(ctx context.Context, fromID, toID string, maxLength int) (*graph.Subgraph, error)
	Stats(ctx context.Context) (*graph.Stats, error)
}

// Deps contains shared dependencies for all MCP tools.
type Deps struct {
	Actor       auth.Actor
	Proposals   services.ProposalService
	DirectEdits services.DirectEditService
	Audit       services.AuditService
	Squash      services.SquashService
	Store       GraphReader
	Logger      *zap.Logger
}

// actorContext attaches the session actor to the tool call context.
func (d *Deps) actorContext(ctx context.Context) context.Context {
	return auth.WithActor(ctx, d.Actor)
}

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// jsonResult marshals v into a tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// propertiesArg decodes an optional object parameter into Properties,
// rejecting nested values.
func propertiesArg(req mcp.CallToolRequest, name string) (models.Properties, error) {
	raw := req.GetArguments()[name]
	if raw == nil {
		return nil, nil
	}
	rawMap, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parameter %q must be an object", name)
	}
	props, err := models.PropertiesOf(rawMap)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", name, err)
	}
	return props, nil
}
