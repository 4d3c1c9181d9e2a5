package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterGraphTools registers the read-only graph tools. These require no
// privilege: reads are open to any resolved actor.
func RegisterGraphTools(s *server.MCPServer, deps *Deps) {
	registerSearchTool(s, deps)
	registerGetNodeTool(s, deps)
	registerFindPathTool(s, deps)
	registerStatsTool(s, deps)
}

func registerSearchTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"search",
		mcp.WithDescription(
			"Text search for nodes by label, ID, name, or notes (substring match). "+
				"Optionally filter by comma-separated node types, e.g. types='Person,Organization'.",
		),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithNumber("limit", mcp.Description("Maximum results to return (default 20)")),
		mcp.WithString("types", mcp.Description("Comma-separated node types to filter")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return nil, err
		}
		query = trimString(query)
		if query == "" {
			return NewErrorResult("invalid_parameters", "parameter 'query' cannot be empty"), nil
		}

		limit := req.GetInt("limit", 20)

		var types []string
		if raw := trimString(req.GetString("types", "")); raw != "" {
			for _, t := range strings.Split(raw, ",") {
				if t = trimString(t); t != "" {
					types = append(types, t)
				}
			}
		}

		hits, err := deps.Store.Search(deps.actorContext(ctx), query, types, limit)
		if err != nil {
			return nil, err
		}
		return jsonResult(map[string]any{"results": hits, "count": len(hits)})
	})
}

func registerGetNodeTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"get_node",
		mcp.WithDescription(
			"Get a node and its neighborhood (connected nodes and edges). "+
				"The first returned node is the one requested.",
		),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("The node ID to look up")),
		mcp.WithNumber("hops", mcp.Description("How many hops to expand (default 1, max 3)")),
		mcp.WithNumber("limit", mcp.Description("Maximum paths to expand (default 100)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nodeID, err := req.RequireString("node_id")
		if err != nil {
			return nil, err
		}
		nodeID = trimString(nodeID)
		if nodeID == "" {
			return NewErrorResult("invalid_parameters", "parameter 'node_id' cannot be empty"), nil
		}
		hops := req.GetInt("hops", 1)
		limit := req.GetInt("limit", 100)

		sub, err := deps.Store.Neighborhood(deps.actorContext(ctx), nodeID, hops, limit)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			return NewErrorResult("not_found", "node "+nodeID+" not found"), nil
		}
		return jsonResult(map[string]any{
			"id":        nodeID,
			"elements":  sub,
			"nodeCount": len(sub.Nodes),
			"edgeCount": len(sub.Edges),
		})
	})
}

func registerFindPathTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"find_path",
		mcp.WithDescription("Find the shortest path between two nodes."),
		mcp.WithString("from_node", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("to_node", mcp.Required(), mcp.Description("Target node ID")),
		mcp.WithNumber("max_length", mcp.Description("Maximum path length in hops (default 6)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fromNode, err := req.RequireString("from_node")
		if err != nil {
			return nil, err
		}
		toNode, err := req.RequireString("to_node")
		if err != nil {
			return nil, err
		}
		fromNode = trimString(fromNode)
		toNode = trimString(toNode)
		if fromNode == "" || toNode == "" {
			return NewErrorResult("invalid_parameters", "parameters 'from_node' and 'to_node' cannot be empty"), nil
		}
		maxLength := req.GetInt("max_length", 6)

		sub, err := deps.Store.FindPath(deps.actorContext(ctx), fromNode, toNode, maxLength)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			return NewErrorResult("not_found", "no path between "+fromNode+" and "+toNode), nil
		}
		return jsonResult(map[string]any{
			"elements":   sub,
			"pathLength": len(sub.Edges),
		})
	})
}

func registerStatsTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"stats",
		mcp.WithDescription("Get graph statistics: total node/edge counts and counts by type."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := deps.Store.Stats(deps.actorContext(ctx))
		if err != nil {
			return nil, err
		}
		return jsonResult(stats)
	})
}
