// Package services implements the proposal-to-mutation pipeline: proposal
// lifecycle, mutation execution, direct edits, the audit ledger, and squash
// compaction.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/apperrors"
	"github.com/graphoni/graphoni-engine/pkg/auth"
	"github.com/graphoni/graphoni-engine/pkg/database"
	"github.com/graphoni/graphoni-engine/pkg/graph"
	"github.com/graphoni/graphoni-engine/pkg/models"
	"github.com/graphoni/graphoni-engine/pkg/repositories"
)

// Review decisions accepted by ReviewProposal.
const (
	DecisionApprove = "approved"
	DecisionReject  = "rejected"
)

// SubmitRequest describes a proposed graph edit.
type SubmitRequest struct {
	Type      string
	TargetID  string // node or edge id; empty for add-*
	DataAfter models.Properties
	Reason    string
}

// ProposalService manages the proposal lifecycle from submission through
// review. Approved proposals are handed to the MutationExecutor by the
// reviewer that wins the status transition.
type ProposalService interface {
	// Submit records a new pending proposal, snapshotting the target's
	// current graph properties as dataBefore. Requires role user or above.
	Submit(ctx context.Context, req *SubmitRequest) (*models.Proposal, error)

	// Get returns a proposal by id.
	Get(ctx context.Context, id uuid.UUID) (*models.Proposal, error)

	// List returns proposals newest-first, optionally filtered by status.
	// Requires role moderator or above; the queue is a review surface, not
	// a public one.
	List(ctx context.Context, status string, limit, offset int) ([]*models.Proposal, error)

	// Review approves or rejects a pending proposal. Requires role
	// moderator or above. On approval the mutation is applied synchronously
	// and the returned proposal carries the terminal applied/failed state.
	Review(ctx context.Context, id uuid.UUID, decision, comment string) (*models.Proposal, error)
}

type proposalService struct {
	db           database.TxRunner
	proposalRepo repositories.ProposalRepository
	auditRepo    repositories.AuditRepository
	store        graph.Store
	executor     MutationExecutor
	logger       *zap.Logger
}

// ProposalServiceDeps contains dependencies for the ProposalService.
type ProposalServiceDeps struct {
	DB           database.TxRunner
	ProposalRepo repositories.ProposalRepository
	AuditRepo    repositories.AuditRepository
	Store        graph.Store
	Executor     MutationExecutor
	Logger       *zap.Logger
}

// NewProposalService creates a new ProposalService.
func NewProposalService(deps *ProposalServiceDeps) ProposalService {
	return &proposalService{
		db:           deps.DB,
		proposalRepo: deps.ProposalRepo,
		auditRepo:    deps.AuditRepo,
		store:        deps.Store,
		executor:     deps.Executor,
		logger:       deps.Logger.Named("proposal-service"),
	}
}

var _ ProposalService = (*proposalService)(nil)

func (s *proposalService) Submit(ctx context.Context, req *SubmitRequest) (*models.Proposal, error) {
	actor, err := auth.RequireRole(ctx, models.RoleUser)
	if err != nil {
		return nil, err
	}

	p, err := buildProposal(ctx, s.store, req, actor.ID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.proposalRepo.Create(ctx, tx, p); err != nil {
			return err
		}
		return s.auditRepo.CreateTx(ctx, tx, &models.AuditEntry{
			Action:       models.AuditActionProposalCreated,
			ProposalID:   &p.ID,
			ActorID:      actor.ID,
			TargetNodeID: p.TargetNodeID,
			TargetEdgeID: p.TargetEdgeID,
			DataBefore:   p.DataBefore,
			DataAfter:    p.DataAfter,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit proposal: %w", err)
	}

	s.logger.Info("Submitted proposal",
		zap.String("proposal_id", p.ID.String()),
		zap.String("type", p.Type),
		zap.String("author_id", actor.ID.String()))
	return p, nil
}

func (s *proposalService) Get(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	if _, err := auth.RequireRole(ctx, models.RoleUser); err != nil {
		return nil, err
	}

	p, err := s.proposalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("proposal %s: %w", id, apperrors.ErrNotFound)
	}
	return p, nil
}

func (s *proposalService) List(ctx context.Context, status string, limit, offset int) ([]*models.Proposal, error) {
	if _, err := auth.RequireRole(ctx, models.RoleModerator); err != nil {
		return nil, err
	}
	return s.proposalRepo.List(ctx, status, limit, offset)
}

func (s *proposalService) Review(ctx context.Context, id uuid.UUID, decision, comment string) (*models.Proposal, error) {
	actor, err := auth.RequireRole(ctx, models.RoleModerator)
	if err != nil {
		return nil, err
	}

	if decision != DecisionApprove && decision != DecisionReject {
		return nil, fmt.Errorf("decision must be %q or %q, got %q: %w",
			DecisionApprove, DecisionReject, decision, apperrors.ErrInvalidState)
	}

	p, err := s.proposalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("proposal %s: %w", id, apperrors.ErrNotFound)
	}
	if !models.CanTransition(p.Status, decision) {
		return nil, fmt.Errorf("proposal %s is %s: %w", id, p.Status, apperrors.ErrInvalidState)
	}

	action := models.AuditActionProposalRejected
	if decision == DecisionApprove {
		action = models.AuditActionProposalApproved
	}

	reviewedAt := time.Now()
	var won bool
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		won, err = s.proposalRepo.Review(ctx, tx, id, decision, actor.ID, comment, reviewedAt)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		return s.auditRepo.CreateTx(ctx, tx, &models.AuditEntry{
			Action:       action,
			ProposalID:   &p.ID,
			ActorID:      actor.ID,
			TargetNodeID: p.TargetNodeID,
			TargetEdgeID: p.TargetEdgeID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to review proposal: %w", err)
	}
	if !won {
		return nil, fmt.Errorf("proposal %s is not pending: %w", id, apperrors.ErrInvalidState)
	}

	p.Status = decision
	p.ReviewerID = &actor.ID
	p.ReviewComment = &comment
	p.ReviewedAt = &reviewedAt

	s.logger.Info("Reviewed proposal",
		zap.String("proposal_id", id.String()),
		zap.String("decision", decision),
		zap.String("reviewer_id", actor.ID.String()))

	if decision != DecisionApprove {
		return p, nil
	}

	// The CAS winner is the only caller that reaches the executor, which
	// keeps mutation execution exactly-once.
	return s.executor.Apply(ctx, p)
}

// buildProposal validates the request against the graph store, snapshots
// dataBefore, and assigns the target id for add-* proposals.
func buildProposal(ctx context.Context, store graph.Store, req *SubmitRequest, authorID uuid.UUID) (*models.Proposal, error) {
	if !models.IsValidProposalType(req.Type) {
		return nil, fmt.Errorf("unknown proposal type %q: %w", req.Type, apperrors.ErrInvalidState)
	}

	p := &models.Proposal{
		ID:        uuid.New(),
		Type:      req.Type,
		Status:    models.ProposalStatusPending,
		DataAfter: req.DataAfter.Clone(),
		Reason:    req.Reason,
		AuthorID:  authorID,
	}

	switch req.Type {
	case models.ProposalTypeAddNode:
		labelVal, ok := req.DataAfter[models.PropKeyLabel]
		if !ok || labelVal.Kind() != models.KindString || labelVal.AsString() == "" {
			return nil, fmt.Errorf("add-node requires a label: %w", apperrors.ErrInvalidState)
		}
		typVal, ok := req.DataAfter[models.PropKeyNodeType]
		if !ok || !graph.ValidIdentifier(typVal.AsString()) {
			return nil, fmt.Errorf("add-node requires a valid node_type: %w", apperrors.ErrInvalidState)
		}
		nodeID, err := assignNodeID(ctx, store, labelVal.AsString(), p.ID)
		if err != nil {
			return nil, err
		}
		p.TargetNodeID = &nodeID

	case models.ProposalTypeAddEdge:
		for _, key := range []string{models.PropKeySource, models.PropKeyTarget} {
			val, ok := req.DataAfter[key]
			if !ok || val.Kind() != models.KindString {
				return nil, fmt.Errorf("add-edge requires %s: %w", key, apperrors.ErrInvalidState)
			}
			props, err := store.FetchNode(ctx, val.AsString())
			if err != nil {
				return nil, fmt.Errorf("failed to fetch endpoint %s: %w", val.AsString(), err)
			}
			if props == nil {
				return nil, fmt.Errorf("node %s: %w", val.AsString(), apperrors.ErrNotFound)
			}
		}
		typVal, ok := req.DataAfter[models.PropKeyEdgeType]
		if !ok || !graph.ValidIdentifier(typVal.AsString()) {
			return nil, fmt.Errorf("add-edge requires a valid edge_type: %w", apperrors.ErrInvalidState)
		}
		edgeID := uuid.NewString()
		p.TargetEdgeID = &edgeID

	case models.ProposalTypeEditNode, models.ProposalTypeDeleteNode:
		if req.TargetID == "" {
			return nil, fmt.Errorf("%s requires a target node id: %w", req.Type, apperrors.ErrInvalidState)
		}
		props, err := store.FetchNode(ctx, req.TargetID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch node %s: %w", req.TargetID, err)
		}
		if props == nil {
			return nil, fmt.Errorf("node %s: %w", req.TargetID, apperrors.ErrNotFound)
		}
		targetID := req.TargetID
		p.TargetNodeID = &targetID
		p.DataBefore = props

	case models.ProposalTypeEditEdge, models.ProposalTypeDeleteEdge:
		if req.TargetID == "" {
			return nil, fmt.Errorf("%s requires a target edge id: %w", req.Type, apperrors.ErrInvalidState)
		}
		props, err := store.FetchEdge(ctx, req.TargetID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch edge %s: %w", req.TargetID, err)
		}
		if props == nil {
			return nil, fmt.Errorf("edge %s: %w", req.TargetID, apperrors.ErrNotFound)
		}
		targetID := req.TargetID
		p.TargetEdgeID = &targetID
		p.DataBefore = props
	}

	return p, nil
}

// assignNodeID derives a stable node id from the label, falling back to a
// proposal-derived suffix when the slug is already taken.
func assignNodeID(ctx context.Context, store graph.Store, label string, proposalID uuid.UUID) (string, error) {
	slug := Slugify(label)
	if slug == "" {
		slug = "node"
	}

	existing, err := store.FetchNode(ctx, slug)
	if err != nil {
		return "", fmt.Errorf("failed to check node id %s: %w", slug, err)
	}
	if existing == nil {
		return slug, nil
	}
	return slug + "_" + proposalID.String()[:8], nil
}

// Slugify lowercases the label and collapses non-alphanumeric runs into
// single underscores.
func Slugify(label string) string {
	var sb strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			sb.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(sb.String(), "_")
}
