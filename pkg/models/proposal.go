package models

import (
	"time"

	"github.com/google/uuid"
)

// Proposal type constants. These match the wire values accepted by the API.
const (
	ProposalTypeAddNode    = "add-node"
	ProposalTypeEditNode   = "edit-node"
	ProposalTypeDeleteNode = "delete-node"
	ProposalTypeAddEdge    = "add-edge"
	ProposalTypeEditEdge   = "edit-edge"
	ProposalTypeDeleteEdge = "delete-edge"
)

// Proposal status constants.
const (
	ProposalStatusPending  = "pending"
	ProposalStatusApproved = "approved"
	ProposalStatusRejected = "rejected"
	ProposalStatusApplied  = "applied"
	ProposalStatusFailed   = "failed"
)

// Reserved dataAfter keys for add-* proposals. The endpoints and type of a
// new entity travel inside the property bag on the wire and are lifted out
// when the mutation command is built.
const (
	PropKeyLabel    = "label"
	PropKeyNodeType = "node_type"
	PropKeySource   = "source"
	PropKeyTarget   = "target"
	PropKeyEdgeType = "edge_type"
)

// ValidProposalTypes contains all accepted proposal types.
var ValidProposalTypes = []string{
	ProposalTypeAddNode,
	ProposalTypeEditNode,
	ProposalTypeDeleteNode,
	ProposalTypeAddEdge,
	ProposalTypeEditEdge,
	ProposalTypeDeleteEdge,
}

// IsValidProposalType checks if the given type is a known proposal type.
func IsValidProposalType(t string) bool {
	for _, v := range ValidProposalTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsNodeProposal reports whether the type targets a node.
func IsNodeProposal(t string) bool {
	return t == ProposalTypeAddNode || t == ProposalTypeEditNode || t == ProposalTypeDeleteNode
}

// IsAddProposal reports whether the type creates a new entity.
func IsAddProposal(t string) bool {
	return t == ProposalTypeAddNode || t == ProposalTypeAddEdge
}

// CanTransition reports whether a proposal may move from one status to
// another. pending resolves by review, approved resolves by execution;
// rejected, applied, and failed are terminal.
func CanTransition(from, to string) bool {
	switch from {
	case ProposalStatusPending:
		return to == ProposalStatusApproved || to == ProposalStatusRejected
	case ProposalStatusApproved:
		return to == ProposalStatusApplied || to == ProposalStatusFailed
	default:
		return false
	}
}

// Proposal represents a proposed graph edit and its review lifecycle.
// DataBefore and DataAfter are snapshots captured at submission and never
// mutate afterwards.
type Proposal struct {
	ID            uuid.UUID  `json:"id"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	TargetNodeID  *string    `json:"targetNodeId,omitempty"`
	TargetEdgeID  *string    `json:"targetEdgeId,omitempty"`
	DataBefore    Properties `json:"dataBefore,omitempty"`
	DataAfter     Properties `json:"dataAfter,omitempty"`
	Reason        string     `json:"reason"`
	AuthorID      uuid.UUID  `json:"authorId"`
	ReviewerID    *uuid.UUID `json:"reviewerId,omitempty"`
	ReviewComment *string    `json:"reviewComment,omitempty"`
	ErrorMessage  *string    `json:"errorMessage,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"`
	AppliedAt     *time.Time `json:"appliedAt,omitempty"`
}

// TargetID returns the node or edge id the proposal targets, or empty for
// add-* proposals.
func (p *Proposal) TargetID() string {
	if p.TargetNodeID != nil {
		return *p.TargetNodeID
	}
	if p.TargetEdgeID != nil {
		return *p.TargetEdgeID
	}
	return ""
}
