package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/database"
	"github.com/graphoni/graphoni-engine/pkg/graph"
	"github.com/graphoni/graphoni-engine/pkg/models"
	"github.com/graphoni/graphoni-engine/pkg/repositories"
)

// reconcileBatchSize caps how many stuck proposals one pass examines.
const reconcileBatchSize = 500

// ReconcileService resolves proposals left in approved state by a crash
// between the remote mutation and the local status+audit commit. For each
// stuck proposal it checks whether the mutation's effect is already
// observable in the graph: if so the proposal is finalized without
// re-executing, otherwise the executor runs it again. Keying on observed
// graph state keeps the pass idempotent without a command journal.
type ReconcileService interface {
	// ReconcileStuckApprovals finalizes or re-executes all approved
	// proposals. Returns the number of proposals resolved.
	ReconcileStuckApprovals(ctx context.Context) (int, error)
}

type reconcileService struct {
	db           database.TxRunner
	proposalRepo repositories.ProposalRepository
	auditRepo    repositories.AuditRepository
	store        graph.Store
	executor     MutationExecutor
	logger       *zap.Logger
}

// ReconcileServiceDeps contains dependencies for the ReconcileService.
type ReconcileServiceDeps struct {
	DB           database.TxRunner
	ProposalRepo repositories.ProposalRepository
	AuditRepo    repositories.AuditRepository
	Store        graph.Store
	Executor     MutationExecutor
	Logger       *zap.Logger
}

// NewReconcileService creates a new ReconcileService.
func NewReconcileService(deps *ReconcileServiceDeps) ReconcileService {
	return &reconcileService{
		db:           deps.DB,
		proposalRepo: deps.ProposalRepo,
		auditRepo:    deps.AuditRepo,
		store:        deps.Store,
		executor:     deps.Executor,
		logger:       deps.Logger.Named("reconciler"),
	}
}

var _ ReconcileService = (*reconcileService)(nil)

func (s *reconcileService) ReconcileStuckApprovals(ctx context.Context) (int, error) {
	stuck, err := s.proposalRepo.List(ctx, models.ProposalStatusApproved, reconcileBatchSize, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list approved proposals: %w", err)
	}
	if len(stuck) == 0 {
		return 0, nil
	}

	s.logger.Info("Reconciling stuck approvals", zap.Int("count", len(stuck)))

	resolved := 0
	for _, p := range stuck {
		command, err := graph.CommandForProposal(p)
		if err != nil {
			// An unbuildable command (an edit whose diff is empty) has no
			// effect to probe for; the executor records it as a failed
			// outcome, same as it would have at review time.
			if _, err := s.executor.Apply(ctx, p); err != nil {
				s.logger.Error("Failed to resolve unbuildable proposal",
					zap.String("proposal_id", p.ID.String()),
					zap.Error(err))
				continue
			}
			resolved++
			continue
		}

		effective, err := s.effectObserved(ctx, p)
		if err != nil {
			s.logger.Error("Failed to probe proposal effect",
				zap.String("proposal_id", p.ID.String()),
				zap.Error(err))
			continue
		}

		if effective {
			if err := s.finalizeObserved(ctx, p, command); err != nil {
				s.logger.Error("Failed to finalize observed proposal",
					zap.String("proposal_id", p.ID.String()),
					zap.Error(err))
				continue
			}
			resolved++
			continue
		}

		if _, err := s.executor.Apply(ctx, p); err != nil {
			s.logger.Error("Failed to re-execute proposal",
				zap.String("proposal_id", p.ID.String()),
				zap.Error(err))
			continue
		}
		resolved++
	}

	return resolved, nil
}

// effectObserved checks whether the proposal's mutation has already taken
// effect in the graph store.
func (s *reconcileService) effectObserved(ctx context.Context, p *models.Proposal) (bool, error) {
	switch p.Type {
	case models.ProposalTypeAddNode:
		props, err := s.store.FetchNode(ctx, *p.TargetNodeID)
		return props != nil, err

	case models.ProposalTypeDeleteNode:
		props, err := s.store.FetchNode(ctx, *p.TargetNodeID)
		return props == nil, err

	case models.ProposalTypeAddEdge:
		props, err := s.store.FetchEdge(ctx, *p.TargetEdgeID)
		return props != nil, err

	case models.ProposalTypeDeleteEdge:
		props, err := s.store.FetchEdge(ctx, *p.TargetEdgeID)
		return props == nil, err

	case models.ProposalTypeEditNode:
		props, err := s.store.FetchNode(ctx, *p.TargetNodeID)
		if err != nil || props == nil {
			return false, err
		}
		return overlayPresent(props, p.DataBefore.Diff(p.DataAfter)), nil

	case models.ProposalTypeEditEdge:
		props, err := s.store.FetchEdge(ctx, *p.TargetEdgeID)
		if err != nil || props == nil {
			return false, err
		}
		return overlayPresent(props, p.DataBefore.Diff(p.DataAfter)), nil

	default:
		return false, fmt.Errorf("unknown proposal type %q", p.Type)
	}
}

// overlayPresent reports whether every changed key already holds its
// desired value.
func overlayPresent(current, changed models.Properties) bool {
	for key, want := range changed {
		got, ok := current[key]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// finalizeObserved marks an already-effective proposal applied and records
// the audit entry the crashed run never wrote. The command text is rebuilt
// by the caller; it is deterministic from the stored row, so it matches
// what actually ran.
func (s *reconcileService) finalizeObserved(ctx context.Context, p *models.Proposal, command string) error {
	appliedAt := time.Now()
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.proposalRepo.MarkApplied(ctx, tx, p.ID, appliedAt); err != nil {
			return err
		}
		return s.auditRepo.CreateTx(ctx, tx, &models.AuditEntry{
			Action:         models.AuditActionProposalApplied,
			ProposalID:     &p.ID,
			ActorID:        executorActor(p),
			TargetNodeID:   p.TargetNodeID,
			TargetEdgeID:   p.TargetEdgeID,
			DataBefore:     p.DataBefore,
			DataAfter:      p.DataAfter,
			CypherExecuted: &command,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("Finalized already-applied proposal",
		zap.String("proposal_id", p.ID.String()),
		zap.String("type", p.Type))
	return nil
}
