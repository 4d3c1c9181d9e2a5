package tools

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/graphoni/graphoni-engine/pkg/models"
	"github.com/graphoni/graphoni-engine/pkg/services"
)

// RegisterAuditTools registers the audit ledger, squash, and direct edit
// tools. Role requirements (moderator+ for queries, admin for squash and
// direct edits) are enforced by the services.
func RegisterAuditTools(s *server.MCPServer, deps *Deps) {
	registerAuditLogTool(s, deps)
	registerSquashTool(s, deps)
	registerDirectEditTool(s, deps)
}

func registerAuditLogTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"audit_log",
		mcp.WithDescription(
			"Query the audit ledger, newest first. Filterable by action, actor, "+
				"target node/edge, and RFC 3339 date range.",
		),
		mcp.WithString("action", mcp.Description("Filter by action (e.g. proposal_applied, direct_edit_node, squash)")),
		mcp.WithString("actor_id", mcp.Description("Filter by actor UUID")),
		mcp.WithString("target_node_id", mcp.Description("Filter by target node ID")),
		mcp.WithString("target_edge_id", mcp.Description("Filter by target edge ID")),
		mcp.WithString("from", mcp.Description("Earliest createdAt, RFC 3339")),
		mcp.WithString("to", mcp.Description("Latest createdAt, RFC 3339")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Results to skip (default 0)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := &models.AuditFilter{
			Action:       trimString(req.GetString("action", "")),
			TargetNodeID: trimString(req.GetString("target_node_id", "")),
			TargetEdgeID: trimString(req.GetString("target_edge_id", "")),
			Limit:        req.GetInt("limit", 50),
			Offset:       req.GetInt("offset", 0),
		}

		if raw := trimString(req.GetString("actor_id", "")); raw != "" {
			actorID, err := uuid.Parse(raw)
			if err != nil {
				return NewErrorResult("invalid_parameters", "actor_id is not a valid UUID"), nil
			}
			filter.ActorID = &actorID
		}
		if raw := trimString(req.GetString("from", "")); raw != "" {
			from, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return NewErrorResult("invalid_parameters", "from is not a valid RFC 3339 timestamp"), nil
			}
			filter.From = &from
		}
		if raw := trimString(req.GetString("to", "")); raw != "" {
			to, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return NewErrorResult("invalid_parameters", "to is not a valid RFC 3339 timestamp"), nil
			}
			filter.To = &to
		}

		entries, err := deps.Audit.Query(deps.actorContext(ctx), filter)
		if err != nil {
			if result := domainErrorResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}
		return jsonResult(map[string]any{"entries": entries, "count": len(entries)})
	})
}

func registerSquashTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"squash_audit",
		mcp.WithDescription(
			"Fold a contiguous audit range (by seq) into one summary entry. "+
				"Originals are kept and linked to the summary, never deleted. Admin only.",
		),
		mcp.WithNumber("from_seq", mcp.Required(), mcp.Description("First seq in the range, inclusive")),
		mcp.WithNumber("to_seq", mcp.Required(), mcp.Description("Last seq in the range, inclusive")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fromSeq, err := req.RequireInt("from_seq")
		if err != nil {
			return nil, err
		}
		toSeq, err := req.RequireInt("to_seq")
		if err != nil {
			return nil, err
		}

		entry, err := deps.Squash.Squash(deps.actorContext(ctx), int64(fromSeq), int64(toSeq))
		if err != nil {
			if result := domainErrorResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}
		return jsonResult(map[string]any{"squash": entry})
	})
}

func registerDirectEditTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"direct_edit",
		mcp.WithDescription(
			"Apply a graph mutation immediately, bypassing moderation. Admin only. "+
				"The edit still goes through the mutation executor and is recorded in the audit ledger. "+
				"For add-node include label and node_type in properties; for add-edge include "+
				"source, target, and edge_type.",
		),
		mcp.WithString("type", mcp.Required(),
			mcp.Description("Edit type: add-node, edit-node, delete-node, add-edge, edit-edge, or delete-edge")),
		mcp.WithString("target_id", mcp.Description("Node or edge ID for edit-*/delete-* types")),
		mcp.WithObject("properties", mcp.Description("Desired end-state properties (scalar values only)")),
		mcp.WithString("reason", mcp.Description("Reason for the edit")),
		mcp.WithDestructiveHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		editType, err := req.RequireString("type")
		if err != nil {
			return nil, err
		}
		props, err := propertiesArg(req, "properties")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		entry, err := deps.DirectEdits.Apply(deps.actorContext(ctx), &services.SubmitRequest{
			Type:      trimString(editType),
			TargetID:  trimString(req.GetString("target_id", "")),
			DataAfter: props,
			Reason:    req.GetString("reason", ""),
		})
		if err != nil {
			if result := domainErrorResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}
		return jsonResult(map[string]any{"entry": entry})
	})
}
