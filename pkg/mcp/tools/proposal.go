package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/graphoni/graphoni-engine/pkg/models"
	"github.com/graphoni/graphoni-engine/pkg/services"
)

// RegisterProposalTools registers the proposal submission and listing
// tools. Submission requires role user or above; the service enforces it.
func RegisterProposalTools(s *server.MCPServer, deps *Deps) {
	registerAddNodeTool(s, deps)
	registerEditNodeTool(s, deps)
	registerDeleteNodeTool(s, deps)
	registerAddEdgeTool(s, deps)
	registerEditEdgeTool(s, deps)
	registerDeleteEdgeTool(s, deps)
	registerListProposalsTool(s, deps)
}

// submitProposal runs a submission and renders the outcome.
func submitProposal(ctx context.Context, deps *Deps, req *services.SubmitRequest) (*mcp.CallToolResult, error) {
	p, err := deps.Proposals.Submit(deps.actorContext(ctx), req)
	if err != nil {
		if result := domainErrorResult(err); result != nil {
			return result, nil
		}
		return nil, err
	}
	return jsonResult(map[string]any{"proposal": p})
}

func registerAddNodeTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"add_node",
		mcp.WithDescription(
			"Submit a proposal to add a new node to the graph. "+
				"The node is created only after a moderator approves the proposal.",
		),
		mcp.WithString("label", mcp.Required(), mcp.Description("Display label for the node")),
		mcp.WithString("node_type", mcp.Required(), mcp.Description("Type of node (e.g. Person, Organization, Location)")),
		mcp.WithString("reason", mcp.Required(), mcp.Description("Reason for adding this node")),
		mcp.WithObject("properties", mcp.Description("Optional additional properties (scalar values only)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label, err := req.RequireString("label")
		if err != nil {
			return nil, err
		}
		nodeType, err := req.RequireString("node_type")
		if err != nil {
			return nil, err
		}
		reason, err := req.RequireString("reason")
		if err != nil {
			return nil, err
		}

		props, err := propertiesArg(req, "properties")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		dataAfter := props.Clone()
		if dataAfter == nil {
			dataAfter = models.Properties{}
		}
		dataAfter[models.PropKeyLabel] = models.String(trimString(label))
		dataAfter[models.PropKeyNodeType] = models.String(trimString(nodeType))

		return submitProposal(ctx, deps, &services.SubmitRequest{
			Type:      models.ProposalTypeAddNode,
			DataAfter: dataAfter,
			Reason:    reason,
		})
	})
}

func registerEditNodeTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"edit_node",
		mcp.WithDescription(
			"Submit a proposal to edit an existing node. Only the given "+
				"properties are changed; others survive unchanged.",
		),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("ID of the node to edit")),
		mcp.WithString("reason", mcp.Required(), mcp.Description("Reason for the edit")),
		mcp.WithObject("properties", mcp.Required(), mcp.Description("Properties to update (scalar values only)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nodeID, err := req.RequireString("node_id")
		if err != nil {
			return nil, err
		}
		reason, err := req.RequireString("reason")
		if err != nil {
			return nil, err
		}
		props, err := propertiesArg(req, "properties")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		if len(props) == 0 {
			return NewErrorResult("invalid_parameters", "parameter 'properties' cannot be empty"), nil
		}

		return submitProposal(ctx, deps, &services.SubmitRequest{
			Type:      models.ProposalTypeEditNode,
			TargetID:  trimString(nodeID),
			DataAfter: props,
			Reason:    reason,
		})
	})
}

func registerDeleteNodeTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"delete_node",
		mcp.WithDescription(
			"Submit a proposal to delete a node. On approval the node is "+
				"removed and all edges referencing it are detached.",
		),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("ID of the node to delete")),
		mcp.WithString("reason", mcp.Required(), mcp.Description("Reason for deletion")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nodeID, err := req.RequireString("node_id")
		if err != nil {
			return nil, err
		}
		reason, err := req.RequireString("reason")
		if err != nil {
			return nil, err
		}

		return submitProposal(ctx, deps, &services.SubmitRequest{
			Type:     models.ProposalTypeDeleteNode,
			TargetID: trimString(nodeID),
			Reason:   reason,
		})
	})
}

func registerAddEdgeTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"add_edge",
		mcp.WithDescription("Submit a proposal to add a new edge between two existing nodes."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node ID")),
		mcp.WithString("edge_type", mcp.Required(), mcp.Description("Type of edge (e.g. KNOWS, EMPLOYED_BY)")),
		mcp.WithString("reason", mcp.Required(), mcp.Description("Reason for adding this edge")),
		mcp.WithObject("properties", mcp.Description("Optional additional properties (scalar values only)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		source, err := req.RequireString("source")
		if err != nil {
			return nil, err
		}
		target, err := req.RequireString("target")
		if err != nil {
			return nil, err
		}
		edgeType, err := req.RequireString("edge_type")
		if err != nil {
			return nil, err
		}
		reason, err := req.RequireString("reason")
		if err != nil {
			return nil, err
		}

		props, err := propertiesArg(req, "properties")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		dataAfter := props.Clone()
		if dataAfter == nil {
			dataAfter = models.Properties{}
		}
		dataAfter[models.PropKeySource] = models.String(trimString(source))
		dataAfter[models.PropKeyTarget] = models.String(trimString(target))
		dataAfter[models.PropKeyEdgeType] = models.String(trimString(edgeType))

		return submitProposal(ctx, deps, &services.SubmitRequest{
			Type:      models.ProposalTypeAddEdge,
			DataAfter: dataAfter,
			Reason:    reason,
		})
	})
}

func registerEditEdgeTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"edit_edge",
		mcp.WithDescription("Submit a proposal to edit an existing edge's properties."),
		mcp.WithString("edge_id", mcp.Required(), mcp.Description("ID of the edge to edit")),
		mcp.WithString("reason", mcp.Required(), mcp.Description("Reason for the edit")),
		mcp.WithObject("properties", mcp.Required(), mcp.Description("Properties to update (scalar values only)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		edgeID, err := req.RequireString("edge_id")
		if err != nil {
			return nil, err
		}
		reason, err := req.RequireString("reason")
		if err != nil {
			return nil, err
		}
		props, err := propertiesArg(req, "properties")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		if len(props) == 0 {
			return NewErrorResult("invalid_parameters", "parameter 'properties' cannot be empty"), nil
		}

		return submitProposal(ctx, deps, &services.SubmitRequest{
			Type:      models.ProposalTypeEditEdge,
			TargetID:  trimString(edgeID),
			DataAfter: props,
			Reason:    reason,
		})
	})
}

func registerDeleteEdgeTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"delete_edge",
		mcp.WithDescription("Submit a proposal to delete an edge."),
		mcp.WithString("edge_id", mcp.Required(), mcp.Description("ID of the edge to delete")),
		mcp.WithString("reason", mcp.Required(), mcp.Description("Reason for deletion")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		edgeID, err := req.RequireString("edge_id")
		if err != nil {
			return nil, err
		}
		reason, err := req.RequireString("reason")
		if err != nil {
			return nil, err
		}

		return submitProposal(ctx, deps, &services.SubmitRequest{
			Type:     models.ProposalTypeDeleteEdge,
			TargetID: trimString(edgeID),
			Reason:   reason,
		})
	})
}

func registerListProposalsTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"list_proposals",
		mcp.WithDescription("List edit proposals, newest first, optionally filtered by status (pending, approved, rejected, applied, failed)."),
		mcp.WithString("status", mcp.Description("Filter by status")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Results to skip (default 0)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status := trimString(req.GetString("status", ""))
		limit := req.GetInt("limit", 50)
		offset := req.GetInt("offset", 0)

		proposals, err := deps.Proposals.List(deps.actorContext(ctx), status, limit, offset)
		if err != nil {
			if result := domainErrorResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}
		return jsonResult(map[string]any{"proposals": proposals, "count": len(proposals)})
	})
}
