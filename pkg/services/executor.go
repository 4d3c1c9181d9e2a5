package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/apperrors"
	"github.com/graphoni/graphoni-engine/pkg/database"
	"github.com/graphoni/graphoni-engine/pkg/graph"
	"github.com/graphoni/graphoni-engine/pkg/models"
	"github.com/graphoni/graphoni-engine/pkg/repositories"
)

// MutationExecutor applies an approved proposal to the graph store and
// records the outcome.
//
// Apply must only be invoked by the actor that won the pending->approved
// transition; that conditional update is what makes execution exactly-once.
// The remote mutation and the local status+audit write form one logical
// unit: the local transaction commits only once the remote outcome
// (success or failure) is known. A crash in between leaves the proposal
// approved for the reconciler.
type MutationExecutor interface {
	// Apply executes the proposal's mutation and finalizes it to applied
	// or failed. The returned proposal reflects the terminal state. A
	// graph-store failure is a recorded outcome, not an error; only local
	// store failures return a non-nil error.
	Apply(ctx context.Context, p *models.Proposal) (*models.Proposal, error)
}

type mutationExecutor struct {
	db           database.TxRunner
	proposalRepo repositories.ProposalRepository
	auditRepo    repositories.AuditRepository
	store        graph.Store
	timeout      time.Duration
	logger       *zap.Logger
}

// MutationExecutorDeps contains dependencies for the MutationExecutor.
type MutationExecutorDeps struct {
	DB           database.TxRunner
	ProposalRepo repositories.ProposalRepository
	AuditRepo    repositories.AuditRepository
	Store        graph.Store
	Timeout      time.Duration
	Logger       *zap.Logger
}

// NewMutationExecutor creates a new MutationExecutor.
func NewMutationExecutor(deps *MutationExecutorDeps) MutationExecutor {
	return &mutationExecutor{
		db:           deps.DB,
		proposalRepo: deps.ProposalRepo,
		auditRepo:    deps.AuditRepo,
		store:        deps.Store,
		timeout:      deps.Timeout,
		logger:       deps.Logger.Named("mutation-executor"),
	}
}

var _ MutationExecutor = (*mutationExecutor)(nil)

func (e *mutationExecutor) Apply(ctx context.Context, p *models.Proposal) (*models.Proposal, error) {
	if !models.CanTransition(p.Status, models.ProposalStatusApplied) {
		return nil, fmt.Errorf("proposal %s has status %s: %w", p.ID, p.Status, apperrors.ErrInvalidState)
	}

	command, err := graph.CommandForProposal(p)
	if err != nil {
		// The command could not even be built; fail the proposal without
		// command text since nothing was executed.
		return e.finalizeFailed(ctx, p, nil, err)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if execErr := e.store.Execute(execCtx, command); execErr != nil {
		mutErr := apperrors.NewMutationError(command, execErr)
		return e.finalizeFailed(ctx, p, &command, mutErr)
	}

	return e.finalizeApplied(ctx, p, command)
}

func (e *mutationExecutor) finalizeApplied(ctx context.Context, p *models.Proposal, command string) (*models.Proposal, error) {
	appliedAt := time.Now()
	err := e.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := e.proposalRepo.MarkApplied(ctx, tx, p.ID, appliedAt); err != nil {
			return err
		}
		return e.auditRepo.CreateTx(ctx, tx, &models.AuditEntry{
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
		return nil, fmt.Errorf("failed to finalize applied proposal %s: %w", p.ID, err)
	}

	p.Status = models.ProposalStatusApplied
	p.AppliedAt = &appliedAt
	e.logger.Info("Applied proposal",
		zap.String("proposal_id", p.ID.String()),
		zap.String("type", p.Type))
	return p, nil
}

func (e *mutationExecutor) finalizeFailed(ctx context.Context, p *models.Proposal, command *string, cause error) (*models.Proposal, error) {
	errMsg := cause.Error()
	var mutErr *apperrors.MutationError
	if errors.As(cause, &mutErr) {
		errMsg = mutErr.Cause.Error()
	}

	err := e.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := e.proposalRepo.MarkFailed(ctx, tx, p.ID, errMsg); err != nil {
			return err
		}
		return e.auditRepo.CreateTx(ctx, tx, &models.AuditEntry{
			Action:         models.AuditActionProposalFailed,
			ProposalID:     &p.ID,
			ActorID:        executorActor(p),
			TargetNodeID:   p.TargetNodeID,
			TargetEdgeID:   p.TargetEdgeID,
			DataBefore:     p.DataBefore,
			DataAfter:      p.DataAfter,
			CypherExecuted: command,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to finalize failed proposal %s: %w", p.ID, err)
	}

	p.Status = models.ProposalStatusFailed
	p.ErrorMessage = &errMsg
	e.logger.Warn("Proposal mutation failed",
		zap.String("proposal_id", p.ID.String()),
		zap.String("type", p.Type),
		zap.String("error", errMsg))
	return p, nil
}

// executorActor attributes executor-driven transitions to the reviewer who
// approved the proposal.
func executorActor(p *models.Proposal) uuid.UUID {
	if p.ReviewerID != nil {
		return *p.ReviewerID
	}
	return p.AuthorID
}
