package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit action constants. Proposal lifecycle events use proposal_* actions,
// admin bypass mutations use direct_* actions.
const (
	AuditActionProposalCreated  = "proposal_created"
	AuditActionProposalApproved = "proposal_approved"
	AuditActionProposalRejected = "proposal_rejected"
	AuditActionProposalApplied  = "proposal_applied"
	AuditActionProposalFailed   = "proposal_failed"

	AuditActionDirectAddNode    = "direct_add_node"
	AuditActionDirectEditNode   = "direct_edit_node"
	AuditActionDirectDeleteNode = "direct_delete_node"
	AuditActionDirectAddEdge    = "direct_add_edge"
	AuditActionDirectEditEdge   = "direct_edit_edge"
	AuditActionDirectDeleteEdge = "direct_delete_edge"

	AuditActionSquash = "squash"
)

// DirectAuditAction maps a proposal type to its direct-edit audit action.
func DirectAuditAction(proposalType string) string {
	switch proposalType {
	case ProposalTypeAddNode:
		return AuditActionDirectAddNode
	case ProposalTypeEditNode:
		return AuditActionDirectEditNode
	case ProposalTypeDeleteNode:
		return AuditActionDirectDeleteNode
	case ProposalTypeAddEdge:
		return AuditActionDirectAddEdge
	case ProposalTypeEditEdge:
		return AuditActionDirectEditEdge
	case ProposalTypeDeleteEdge:
		return AuditActionDirectDeleteEdge
	default:
		return ""
	}
}

// AuditEntry is one row of the append-only audit ledger. Seq gives a dense
// global ordering used for squash range addressing. The only field ever
// written after insert is SquashedIntoID.
type AuditEntry struct {
	ID             uuid.UUID  `json:"id"`
	Seq            int64      `json:"seq"`
	Action         string     `json:"action"`
	ProposalID     *uuid.UUID `json:"proposalId,omitempty"`
	ActorID        uuid.UUID  `json:"actorId"`
	TargetNodeID   *string    `json:"targetNodeId,omitempty"`
	TargetEdgeID   *string    `json:"targetEdgeId,omitempty"`
	DataBefore     Properties `json:"dataBefore,omitempty"`
	DataAfter      Properties `json:"dataAfter,omitempty"`
	CypherExecuted *string    `json:"cypherExecuted,omitempty"`
	SquashedIntoID *uuid.UUID `json:"squashedIntoId,omitempty"`
	SquashedCount  *int       `json:"squashedCount,omitempty"`
	Summary        *string    `json:"summary,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// AuditFilter narrows an audit ledger query. Zero values mean "no filter".
type AuditFilter struct {
	Action       string
	ActorID      *uuid.UUID
	TargetNodeID string
	TargetEdgeID string
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}
