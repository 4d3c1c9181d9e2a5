package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/apperrors"
	"github.com/graphoni/graphoni-engine/pkg/models"
)

func TestAuditService_Query(t *testing.T) {
	repo := newMockAuditRepository()
	svc := NewAuditService(repo, zap.NewNop())

	actorID := uuid.New()
	for _, action := range []string{
		models.AuditActionProposalCreated,
		models.AuditActionProposalApproved,
		models.AuditActionDirectAddNode,
	} {
		require.NoError(t, repo.Create(context.Background(), &models.AuditEntry{
			Action:  action,
			ActorID: actorID,
		}))
	}

	ctx, _ := actorContext(models.RoleModerator)

	all, err := svc.Query(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byAction, err := svc.Query(ctx, &models.AuditFilter{Action: models.AuditActionDirectAddNode})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, models.AuditActionDirectAddNode, byAction[0].Action)

	byActor, err := svc.Query(ctx, &models.AuditFilter{ActorID: &actorID})
	require.NoError(t, err)
	assert.Len(t, byActor, 3)
}

func TestAuditService_Query_UserForbidden(t *testing.T) {
	svc := NewAuditService(newMockAuditRepository(), zap.NewNop())
	ctx, _ := actorContext(models.RoleUser)

	_, err := svc.Query(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}
