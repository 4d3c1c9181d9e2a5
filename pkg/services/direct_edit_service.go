package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/apperrors"
	"github.com/graphoni/graphoni-engine/pkg/auth"
	"github.com/graphoni/graphoni-engine/pkg/graph"
	"github.com/graphoni/graphoni-engine/pkg/models"
	"github.com/graphoni/graphoni-engine/pkg/repositories"
)

// DirectEditService is the admin bypass: it skips moderation but still
// flows through the command builder, the graph store, and the audit
// ledger. No proposal row is created; the audit entry is tagged with a
// direct_* action instead.
type DirectEditService interface {
	// Apply executes a direct mutation. Requires role admin. A graph-store
	// failure still writes the direct_* audit entry (with the error noted
	// in its summary) before the MutationError is returned.
	Apply(ctx context.Context, req *SubmitRequest) (*models.AuditEntry, error)
}

type directEditService struct {
	auditRepo repositories.AuditRepository
	store     graph.Store
	timeout   time.Duration
	logger    *zap.Logger
}

// DirectEditServiceDeps contains dependencies for the DirectEditService.
type DirectEditServiceDeps struct {
	AuditRepo repositories.AuditRepository
	Store     graph.Store
	Timeout   time.Duration
	Logger    *zap.Logger
}

// NewDirectEditService creates a new DirectEditService.
func NewDirectEditService(deps *DirectEditServiceDeps) DirectEditService {
	return &directEditService{
		auditRepo: deps.AuditRepo,
		store:     deps.Store,
		timeout:   deps.Timeout,
		logger:    deps.Logger.Named("direct-edit"),
	}
}

var _ DirectEditService = (*directEditService)(nil)

func (s *directEditService) Apply(ctx context.Context, req *SubmitRequest) (*models.AuditEntry, error) {
	actor, err := auth.RequireRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	action := models.DirectAuditAction(req.Type)
	if action == "" {
		return nil, fmt.Errorf("unknown edit type %q: %w", req.Type, apperrors.ErrInvalidState)
	}

	// Reuse the proposal construction path for validation, snapshots, and
	// target id assignment; the pseudo-proposal is never stored.
	p, err := buildProposal(ctx, s.store, req, actor.ID)
	if err != nil {
		return nil, err
	}

	command, err := graph.CommandForProposal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to build mutation command: %w", err)
	}

	entry := &models.AuditEntry{
		Action:         action,
		ActorID:        actor.ID,
		TargetNodeID:   p.TargetNodeID,
		TargetEdgeID:   p.TargetEdgeID,
		DataBefore:     p.DataBefore,
		DataAfter:      p.DataAfter,
		CypherExecuted: &command,
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if execErr := s.store.Execute(execCtx, command); execErr != nil {
		mutErr := apperrors.NewMutationError(command, execErr)
		summary := fmt.Sprintf("failed: %s", mutErr.Cause.Error())
		entry.Summary = &summary
		if auditErr := s.auditRepo.Create(ctx, entry); auditErr != nil {
			return nil, fmt.Errorf("failed to record failed direct edit: %w", auditErr)
		}
		s.logger.Warn("Direct edit failed",
			zap.String("type", req.Type),
			zap.String("actor_id", actor.ID.String()),
			zap.Error(execErr))
		return entry, mutErr
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record direct edit: %w", err)
	}

	s.logger.Info("Applied direct edit",
		zap.String("type", req.Type),
		zap.String("actor_id", actor.ID.String()))
	return entry, nil
}
