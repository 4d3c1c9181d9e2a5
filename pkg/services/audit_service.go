package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/auth"
	"github.com/graphoni/graphoni-engine/pkg/models"
	"github.com/graphoni/graphoni-engine/pkg/repositories"
)

// AuditService exposes read access to the audit ledger. Writes happen only
// as the last step of the state-changing operations, never through this
// surface.
type AuditService interface {
	// Query returns ledger entries matching the filter, newest first.
	// Requires role moderator or above.
	Query(ctx context.Context, filter *models.AuditFilter) ([]*models.AuditEntry, error)
}

type auditService struct {
	repo   repositories.AuditRepository
	logger *zap.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo repositories.AuditRepository, logger *zap.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.Named("audit-service"),
	}
}

var _ AuditService = (*auditService)(nil)

func (s *auditService) Query(ctx context.Context, filter *models.AuditFilter) ([]*models.AuditEntry, error) {
	if _, err := auth.RequireRole(ctx, models.RoleModerator); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &models.AuditFilter{}
	}
	return s.repo.Query(ctx, filter)
}
