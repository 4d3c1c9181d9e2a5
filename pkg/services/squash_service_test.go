package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/apperrors"
	"github.com/graphoni/graphoni-engine/pkg/models"
)

type squashFixture struct {
	service   SquashService
	auditRepo *mockAuditRepository
}

func newSquashFixture() *squashFixture {
	f := &squashFixture{auditRepo: newMockAuditRepository()}
	f.service = NewSquashService(&SquashServiceDeps{
		DB:        &fakeTxRunner{},
		AuditRepo: f.auditRepo,
		Logger:    zap.NewNop(),
	})
	return f
}

// seedEntries appends n proposal lifecycle entries to the ledger.
func (f *squashFixture) seedEntries(t *testing.T, n int) {
	t.Helper()
	actions := []string{
		models.AuditActionProposalCreated,
		models.AuditActionProposalApproved,
		models.AuditActionProposalApplied,
	}
	for i := 0; i < n; i++ {
		err := f.auditRepo.Create(context.Background(), &models.AuditEntry{
			Action:  actions[i%len(actions)],
			ActorID: uuid.New(),
		})
		require.NoError(t, err)
	}
}

func TestSquashService_Squash(t *testing.T) {
	f := newSquashFixture()
	f.seedEntries(t, 5)
	ctx, admin := actorContext(models.RoleAdmin)

	summary, err := f.service.Squash(ctx, 2, 4)
	require.NoError(t, err)

	assert.Equal(t, models.AuditActionSquash, summary.Action)
	assert.Equal(t, admin.ID, summary.ActorID)
	require.NotNil(t, summary.SquashedCount)
	assert.Equal(t, 3, *summary.SquashedCount)
	require.NotNil(t, summary.Summary)
	assert.Equal(t,
		"squashed 3 entries (seq 2-4): proposal_applied x1, proposal_approved x1, proposal_created x1",
		*summary.Summary)

	// Nothing is deleted; the range is linked to the summary.
	count, err := f.auditRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
	for _, e := range f.auditRepo.entries[1:4] {
		require.NotNil(t, e.SquashedIntoID)
		assert.Equal(t, summary.ID, *e.SquashedIntoID)
	}
	// Entries outside the range are untouched.
	assert.Nil(t, f.auditRepo.entries[0].SquashedIntoID)
	assert.Nil(t, f.auditRepo.entries[4].SquashedIntoID)
}

func TestSquashService_Squash_AlreadySquashed(t *testing.T) {
	f := newSquashFixture()
	f.seedEntries(t, 5)
	ctx, _ := actorContext(models.RoleAdmin)

	_, err := f.service.Squash(ctx, 1, 3)
	require.NoError(t, err)

	// Overlapping range hits entries already linked elsewhere.
	_, err = f.service.Squash(ctx, 2, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadySquashed))
}

func TestSquashService_Squash_EmptyRange(t *testing.T) {
	f := newSquashFixture()
	f.seedEntries(t, 2)
	ctx, _ := actorContext(models.RoleAdmin)

	_, err := f.service.Squash(ctx, 10, 20)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSquashService_Squash_InvalidRange(t *testing.T) {
	f := newSquashFixture()
	ctx, _ := actorContext(models.RoleAdmin)

	tests := []struct {
		from, to int64
	}{
		{from: 0, to: 5},
		{from: -1, to: 2},
		{from: 5, to: 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%d", tt.from, tt.to), func(t *testing.T) {
			_, err := f.service.Squash(ctx, tt.from, tt.to)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
		})
	}
}

func TestSquashService_Squash_ModeratorForbidden(t *testing.T) {
	f := newSquashFixture()
	f.seedEntries(t, 3)
	ctx, _ := actorContext(models.RoleModerator)

	_, err := f.service.Squash(ctx, 1, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestSquashService_SquashSummaryOfSquash(t *testing.T) {
	f := newSquashFixture()
	f.seedEntries(t, 4)
	ctx, _ := actorContext(models.RoleAdmin)

	first, err := f.service.Squash(ctx, 1, 2)
	require.NoError(t, err)

	// A later range can include an earlier summary entry.
	second, err := f.service.Squash(ctx, 3, first.Seq)
	require.NoError(t, err)
	require.NotNil(t, second.SquashedCount)
	assert.Equal(t, 3, *second.SquashedCount)
}
