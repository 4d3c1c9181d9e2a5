package tools

import (
	"context"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/graphoni/graphoni-engine/pkg/services"
)

// RegisterReviewTools registers the moderation tools. The services enforce
// the moderator-or-higher requirement.
func RegisterReviewTools(s *server.MCPServer, deps *Deps) {
	registerReviewTool(s, deps, "approve_proposal",
		"Approve a pending proposal. The proposed change is applied to the graph immediately; "+
			"the result reports whether the mutation succeeded.",
		services.DecisionApprove)
	registerReviewTool(s, deps, "reject_proposal",
		"Reject a pending proposal. The graph is not touched.",
		services.DecisionReject)
}

func registerReviewTool(s *server.MCPServer, deps *Deps, name, description, decision string) {
	tool := mcp.NewTool(
		name,
		mcp.WithDescription(description),
		mcp.WithString("proposal_id", mcp.Required(), mcp.Description("UUID of the proposal")),
		mcp.WithString("comment", mcp.Description("Optional review comment")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawID, err := req.RequireString("proposal_id")
		if err != nil {
			return nil, err
		}
		proposalID, err := uuid.Parse(trimString(rawID))
		if err != nil {
			return NewErrorResult("invalid_parameters", "proposal_id is not a valid UUID"), nil
		}
		comment := req.GetString("comment", "")

		p, err := deps.Proposals.Review(deps.actorContext(ctx), proposalID, decision, comment)
		if err != nil {
			if result := domainErrorResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}
		return jsonResult(map[string]any{"proposal": p})
	})
}
