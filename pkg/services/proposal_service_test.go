package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/apperrors"
	"github.com/graphoni/graphoni-engine/pkg/models"
)

type proposalFixture struct {
	service      ProposalService
	proposalRepo *mockProposalRepository
	auditRepo    *mockAuditRepository
	store        *mockGraphStore
}

func newProposalFixture() *proposalFixture {
	f := &proposalFixture{
		proposalRepo: newMockProposalRepository(),
		auditRepo:    newMockAuditRepository(),
		store:        newMockGraphStore(),
	}
	executor := NewMutationExecutor(&MutationExecutorDeps{
		DB:           &fakeTxRunner{},
		ProposalRepo: f.proposalRepo,
		AuditRepo:    f.auditRepo,
		Store:        f.store,
		Timeout:      time.Second,
		Logger:       zap.NewNop(),
	})
	f.service = NewProposalService(&ProposalServiceDeps{
		DB:           &fakeTxRunner{},
		ProposalRepo: f.proposalRepo,
		AuditRepo:    f.auditRepo,
		Store:        f.store,
		Executor:     executor,
		Logger:       zap.NewNop(),
	})
	return f
}

func addNodeRequest(label string) *SubmitRequest {
	return &SubmitRequest{
		Type: models.ProposalTypeAddNode,
		DataAfter: models.Properties{
			models.PropKeyLabel:    models.String(label),
			models.PropKeyNodeType: models.String("Person"),
		},
		Reason: "new team member",
	}
}

func TestProposalService_Submit_AddNode(t *testing.T) {
	f := newProposalFixture()
	ctx, actor := actorContext(models.RoleUser)

	p, err := f.service.Submit(ctx, addNodeRequest("Alice Smith"))
	require.NoError(t, err)

	assert.Equal(t, models.ProposalStatusPending, p.Status)
	assert.Equal(t, actor.ID, p.AuthorID)
	require.NotNil(t, p.TargetNodeID)
	assert.Equal(t, "alice_smith", *p.TargetNodeID)

	// Submission writes the proposal row and its audit entry together.
	require.Len(t, f.auditRepo.entries, 1)
	entry := f.auditRepo.entries[0]
	assert.Equal(t, models.AuditActionProposalCreated, entry.Action)
	assert.Equal(t, p.ID, *entry.ProposalID)
	assert.Equal(t, actor.ID, entry.ActorID)

	stored, err := f.proposalRepo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestProposalService_Submit_AddNodeSlugCollision(t *testing.T) {
	f := newProposalFixture()
	f.store.nodes["alice"] = models.Properties{"id": models.String("alice")}
	ctx, _ := actorContext(models.RoleUser)

	p, err := f.service.Submit(ctx, addNodeRequest("Alice"))
	require.NoError(t, err)
	require.NotNil(t, p.TargetNodeID)
	// Taken slug falls back to a proposal-derived suffix.
	assert.Equal(t, "alice_"+p.ID.String()[:8], *p.TargetNodeID)
}

func TestProposalService_Submit_AddNodeMissingLabel(t *testing.T) {
	f := newProposalFixture()
	ctx, _ := actorContext(models.RoleUser)

	_, err := f.service.Submit(ctx, &SubmitRequest{
		Type:      models.ProposalTypeAddNode,
		DataAfter: models.Properties{models.PropKeyNodeType: models.String("Person")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestProposalService_Submit_EditNodeSnapshotsBefore(t *testing.T) {
	f := newProposalFixture()
	current := models.Properties{
		"name": models.String("Alice"),
		"role": models.String("engineer"),
	}
	f.store.nodes["alice"] = current
	ctx, _ := actorContext(models.RoleUser)

	p, err := f.service.Submit(ctx, &SubmitRequest{
		Type:      models.ProposalTypeEditNode,
		TargetID:  "alice",
		DataAfter: models.Properties{"role": models.String("manager")},
	})
	require.NoError(t, err)

	require.NotNil(t, p.TargetNodeID)
	assert.Equal(t, "alice", *p.TargetNodeID)
	// dataBefore is the graph state at submission time.
	require.Len(t, p.DataBefore, 2)
	assert.True(t, p.DataBefore["role"].Equal(models.String("engineer")))
}

func TestProposalService_Submit_EditNodeNotFound(t *testing.T) {
	f := newProposalFixture()
	ctx, _ := actorContext(models.RoleUser)

	_, err := f.service.Submit(ctx, &SubmitRequest{
		Type:      models.ProposalTypeEditNode,
		TargetID:  "ghost",
		DataAfter: models.Properties{"role": models.String("manager")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestProposalService_Submit_AddEdge(t *testing.T) {
	f := newProposalFixture()
	f.store.nodes["alice"] = models.Properties{"id": models.String("alice")}
	f.store.nodes["acme"] = models.Properties{"id": models.String("acme")}
	ctx, _ := actorContext(models.RoleUser)

	p, err := f.service.Submit(ctx, &SubmitRequest{
		Type: models.ProposalTypeAddEdge,
		DataAfter: models.Properties{
			models.PropKeySource:   models.String("alice"),
			models.PropKeyTarget:   models.String("acme"),
			models.PropKeyEdgeType: models.String("works_at"),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, p.TargetEdgeID)
	_, err = uuid.Parse(*p.TargetEdgeID)
	assert.NoError(t, err)
}

func TestProposalService_Submit_AddEdgeMissingEndpoint(t *testing.T) {
	f := newProposalFixture()
	f.store.nodes["alice"] = models.Properties{"id": models.String("alice")}
	ctx, _ := actorContext(models.RoleUser)

	_, err := f.service.Submit(ctx, &SubmitRequest{
		Type: models.ProposalTypeAddEdge,
		DataAfter: models.Properties{
			models.PropKeySource:   models.String("alice"),
			models.PropKeyTarget:   models.String("ghost"),
			models.PropKeyEdgeType: models.String("works_at"),
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestProposalService_Submit_UnknownType(t *testing.T) {
	f := newProposalFixture()
	ctx, _ := actorContext(models.RoleUser)

	_, err := f.service.Submit(ctx, &SubmitRequest{Type: "rename-node"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestProposalService_Submit_GuestForbidden(t *testing.T) {
	f := newProposalFixture()
	ctx, _ := actorContext(models.RoleGuest)

	_, err := f.service.Submit(ctx, addNodeRequest("Alice"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestProposalService_Review_ApproveApplies(t *testing.T) {
	f := newProposalFixture()
	userCtx, _ := actorContext(models.RoleUser)
	p, err := f.service.Submit(userCtx, addNodeRequest("Alice"))
	require.NoError(t, err)

	modCtx, moderator := actorContext(models.RoleModerator)
	got, err := f.service.Review(modCtx, p.ID, DecisionApprove, "looks good")
	require.NoError(t, err)

	// Approval runs the mutation synchronously; the result is terminal.
	assert.Equal(t, models.ProposalStatusApplied, got.Status)
	require.NotNil(t, got.ReviewerID)
	assert.Equal(t, moderator.ID, *got.ReviewerID)
	require.NotNil(t, got.ReviewedAt)
	require.Len(t, f.store.executed, 1)

	assert.Equal(t, []string{
		models.AuditActionProposalCreated,
		models.AuditActionProposalApproved,
		models.AuditActionProposalApplied,
	}, f.auditRepo.actions())
}

func TestProposalService_Review_Reject(t *testing.T) {
	f := newProposalFixture()
	userCtx, _ := actorContext(models.RoleUser)
	p, err := f.service.Submit(userCtx, addNodeRequest("Alice"))
	require.NoError(t, err)

	modCtx, _ := actorContext(models.RoleModerator)
	got, err := f.service.Review(modCtx, p.ID, DecisionReject, "needs a source")
	require.NoError(t, err)

	assert.Equal(t, models.ProposalStatusRejected, got.Status)
	require.NotNil(t, got.ReviewComment)
	assert.Equal(t, "needs a source", *got.ReviewComment)
	require.NotNil(t, got.ReviewedAt)
	// Rejection never touches the graph.
	assert.Empty(t, f.store.executed)
	assert.Equal(t, []string{
		models.AuditActionProposalCreated,
		models.AuditActionProposalRejected,
	}, f.auditRepo.actions())
}

func TestProposalService_Review_NotPending(t *testing.T) {
	f := newProposalFixture()
	userCtx, _ := actorContext(models.RoleUser)
	p, err := f.service.Submit(userCtx, addNodeRequest("Alice"))
	require.NoError(t, err)

	modCtx, _ := actorContext(models.RoleModerator)
	_, err = f.service.Review(modCtx, p.ID, DecisionReject, "")
	require.NoError(t, err)

	// A second decision loses the conditional update.
	_, err = f.service.Review(modCtx, p.ID, DecisionApprove, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	assert.Empty(t, f.store.executed)
}

func TestProposalService_Review_TerminalStatus(t *testing.T) {
	f := newProposalFixture()
	userCtx, _ := actorContext(models.RoleUser)
	p, err := f.service.Submit(userCtx, addNodeRequest("Alice"))
	require.NoError(t, err)
	p.Status = models.ProposalStatusApplied

	// A terminal proposal is refused before any update is attempted.
	modCtx, _ := actorContext(models.RoleModerator)
	_, err = f.service.Review(modCtx, p.ID, DecisionApprove, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	assert.Equal(t, []string{models.AuditActionProposalCreated}, f.auditRepo.actions())
}

func TestProposalService_Review_UnknownProposal(t *testing.T) {
	f := newProposalFixture()
	modCtx, _ := actorContext(models.RoleModerator)

	_, err := f.service.Review(modCtx, uuid.New(), DecisionApprove, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestProposalService_Review_InvalidDecision(t *testing.T) {
	f := newProposalFixture()
	modCtx, _ := actorContext(models.RoleModerator)

	_, err := f.service.Review(modCtx, uuid.New(), "maybe", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestProposalService_Review_UserForbidden(t *testing.T) {
	f := newProposalFixture()
	userCtx, _ := actorContext(models.RoleUser)
	p, err := f.service.Submit(userCtx, addNodeRequest("Alice"))
	require.NoError(t, err)

	_, err = f.service.Review(userCtx, p.ID, DecisionApprove, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestProposalService_Get(t *testing.T) {
	f := newProposalFixture()
	ctx, _ := actorContext(models.RoleUser)
	p, err := f.service.Submit(ctx, addNodeRequest("Alice"))
	require.NoError(t, err)

	got, err := f.service.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = f.service.Get(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestProposalService_List(t *testing.T) {
	f := newProposalFixture()
	userCtx, _ := actorContext(models.RoleUser)
	_, err := f.service.Submit(userCtx, addNodeRequest("Alice"))
	require.NoError(t, err)
	_, err = f.service.Submit(userCtx, addNodeRequest("Bob"))
	require.NoError(t, err)

	modCtx, _ := actorContext(models.RoleModerator)
	all, err := f.service.List(modCtx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.service.List(modCtx, models.ProposalStatusPending, 10, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	applied, err := f.service.List(modCtx, models.ProposalStatusApplied, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestProposalService_List_UserForbidden(t *testing.T) {
	f := newProposalFixture()
	userCtx, _ := actorContext(models.RoleUser)
	_, err := f.service.Submit(userCtx, addNodeRequest("Alice"))
	require.NoError(t, err)

	// The review queue is moderator territory; authors cannot browse it.
	_, err = f.service.List(userCtx, "", 10, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		label    string
		expected string
	}{
		{label: "Alice Smith", expected: "alice_smith"},
		{label: "ACME Corp.", expected: "acme_corp"},
		{label: "  spaced  out  ", expected: "spaced_out"},
		{label: "already_slugged", expected: "already_slugged"},
		{label: "v2.0 Release", expected: "v2_0_release"},
		{label: "---", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.label))
		})
	}
}

func TestProposalService_FullLifecycle(t *testing.T) {
	f := newProposalFixture()
	f.store.nodes["alice"] = models.Properties{
		"id":   models.String("alice"),
		"role": models.String("engineer"),
	}

	userCtx, _ := actorContext(models.RoleUser)
	p, err := f.service.Submit(userCtx, &SubmitRequest{
		Type:      models.ProposalTypeEditNode,
		TargetID:  "alice",
		DataAfter: models.Properties{"role": models.String("manager")},
		Reason:    "promotion",
	})
	require.NoError(t, err)

	modCtx, _ := actorContext(models.RoleModerator)
	got, err := f.service.Review(modCtx, p.ID, DecisionApprove, "confirmed")
	require.NoError(t, err)

	assert.Equal(t, models.ProposalStatusApplied, got.Status)
	require.Len(t, f.store.executed, 1)
	// The SET clause touches only the changed key.
	assert.Equal(t, `MATCH (n {id: "alice"}) SET n.role = "manager"`, f.store.executed[0])
}
