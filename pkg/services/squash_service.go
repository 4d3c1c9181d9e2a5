package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/apperrors"
	"github.com/graphoni/graphoni-engine/pkg/auth"
	"github.com/graphoni/graphoni-engine/pkg/database"
	"github.com/graphoni/graphoni-engine/pkg/models"
	"github.com/graphoni/graphoni-engine/pkg/repositories"
)

// SquashService folds a contiguous audit range into one summary entry.
// Nothing is deleted: squashed entries are linked to the summary through
// squashed_into_id, so full history stays reconstructable.
type SquashService interface {
	// Squash summarizes the entries with seq in [from, to]. Requires role
	// admin. Fails with AlreadySquashed if any entry in the range is
	// already linked to another summary.
	Squash(ctx context.Context, from, to int64) (*models.AuditEntry, error)
}

type squashService struct {
	db        database.TxRunner
	auditRepo repositories.AuditRepository
	logger    *zap.Logger
}

// SquashServiceDeps contains dependencies for the SquashService.
type SquashServiceDeps struct {
	DB        database.TxRunner
	AuditRepo repositories.AuditRepository
	Logger    *zap.Logger
}

// NewSquashService creates a new SquashService.
func NewSquashService(deps *SquashServiceDeps) SquashService {
	return &squashService{
		db:        deps.DB,
		auditRepo: deps.AuditRepo,
		logger:    deps.Logger.Named("squash"),
	}
}

var _ SquashService = (*squashService)(nil)

func (s *squashService) Squash(ctx context.Context, from, to int64) (*models.AuditEntry, error) {
	actor, err := auth.RequireRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if from <= 0 || to < from {
		return nil, fmt.Errorf("invalid squash range [%d, %d]: %w", from, to, apperrors.ErrInvalidState)
	}

	var summary *models.AuditEntry
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		entries, err := s.auditRepo.GetBySeqRange(ctx, tx, from, to)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("no audit entries in range [%d, %d]: %w", from, to, apperrors.ErrNotFound)
		}
		for _, e := range entries {
			if e.SquashedIntoID != nil {
				return fmt.Errorf("entry seq %d already squashed into %s: %w",
					e.Seq, e.SquashedIntoID, apperrors.ErrAlreadySquashed)
			}
		}

		count := len(entries)
		text := summarizeEntries(entries)
		summary = &models.AuditEntry{
			Action:        models.AuditActionSquash,
			ActorID:       actor.ID,
			SquashedCount: &count,
			Summary:       &text,
		}
		if err := s.auditRepo.CreateTx(ctx, tx, summary); err != nil {
			return err
		}

		// The conditional update is the range lock: a concurrent squash
		// that got there first leaves fewer rows to link, which aborts
		// this transaction.
		linked, err := s.auditRepo.LinkSquashed(ctx, tx, from, to, summary.ID)
		if err != nil {
			return err
		}
		if linked != int64(count) {
			return fmt.Errorf("linked %d of %d entries in range [%d, %d]: %w",
				linked, count, from, to, apperrors.ErrAlreadySquashed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Squashed audit range",
		zap.Int64("from_seq", from),
		zap.Int64("to_seq", to),
		zap.Int("count", *summary.SquashedCount),
		zap.String("summary_id", summary.ID.String()))
	return summary, nil
}

// summarizeEntries produces the human-readable squash summary: the seq
// span plus a histogram of actions in the range.
func summarizeEntries(entries []*models.AuditEntry) string {
	histogram := make(map[string]int)
	for _, e := range entries {
		histogram[e.Action]++
	}

	actions := make([]string, 0, len(histogram))
	for action := range histogram {
		actions = append(actions, action)
	}
	sort.Strings(actions)

	parts := make([]string, 0, len(actions))
	for _, action := range actions {
		parts = append(parts, fmt.Sprintf("%s x%d", action, histogram[action]))
	}

	return fmt.Sprintf("squashed %d entries (seq %d-%d): %s",
		len(entries), entries[0].Seq, entries[len(entries)-1].Seq, strings.Join(parts, ", "))
}
