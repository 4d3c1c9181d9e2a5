package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		to       string
		expected bool
	}{
		{name: "pending to approved", from: ProposalStatusPending, to: ProposalStatusApproved, expected: true},
		{name: "pending to rejected", from: ProposalStatusPending, to: ProposalStatusRejected, expected: true},
		{name: "pending to applied skips review", from: ProposalStatusPending, to: ProposalStatusApplied, expected: false},
		{name: "approved to applied", from: ProposalStatusApproved, to: ProposalStatusApplied, expected: true},
		{name: "approved to failed", from: ProposalStatusApproved, to: ProposalStatusFailed, expected: true},
		{name: "approved back to pending", from: ProposalStatusApproved, to: ProposalStatusPending, expected: false},
		{name: "rejected is terminal", from: ProposalStatusRejected, to: ProposalStatusApproved, expected: false},
		{name: "applied is terminal", from: ProposalStatusApplied, to: ProposalStatusFailed, expected: false},
		{name: "failed is terminal", from: ProposalStatusFailed, to: ProposalStatusApproved, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsValidProposalType(t *testing.T) {
	for _, typ := range ValidProposalTypes {
		assert.True(t, IsValidProposalType(typ), typ)
	}
	assert.False(t, IsValidProposalType("add_node"))
	assert.False(t, IsValidProposalType(""))
}

func TestProposalTargetID(t *testing.T) {
	nodeID := "alice"
	edgeID := "e-1"

	p := &Proposal{TargetNodeID: &nodeID}
	assert.Equal(t, "alice", p.TargetID())

	p = &Proposal{TargetEdgeID: &edgeID}
	assert.Equal(t, "e-1", p.TargetID())

	p = &Proposal{}
	assert.Equal(t, "", p.TargetID())
}

func TestDirectAuditAction(t *testing.T) {
	assert.Equal(t, AuditActionDirectAddNode, DirectAuditAction(ProposalTypeAddNode))
	assert.Equal(t, AuditActionDirectDeleteEdge, DirectAuditAction(ProposalTypeDeleteEdge))
	assert.Equal(t, "", DirectAuditAction("rename-node"))
}
