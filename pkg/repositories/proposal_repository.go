// Package repositories provides data access for proposals and the audit
// ledger.
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/graphoni/graphoni-engine/pkg/database"
	"github.com/graphoni/graphoni-engine/pkg/models"
)

const proposalColumns = `id, type, status, target_node_id, target_edge_id,
	data_before, data_after, reason, author_id, reviewer_id, review_comment,
	error_message, created_at, reviewed_at, applied_at`

// ProposalRepository provides data access for edit proposals.
//
// Status transitions go through conditional updates guarded by the prior
// status value, so concurrent reviewers or executors cannot both win.
type ProposalRepository interface {
	// Create inserts a new proposal inside the caller's transaction, so the
	// row and its proposal_created audit entry commit together.
	Create(ctx context.Context, tx pgx.Tx, p *models.Proposal) error

	// GetByID returns a proposal by id, or nil if unknown.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)

	// List returns proposals newest-first, optionally filtered by status.
	List(ctx context.Context, status string, limit, offset int) ([]*models.Proposal, error)

	// Review atomically moves a pending proposal to approved or rejected,
	// stamping reviewed_at. Returns false when the proposal was not pending
	// (a concurrent reviewer won, or the proposal already resolved).
	Review(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, reviewerID uuid.UUID, comment string, reviewedAt time.Time) (bool, error)

	// MarkApplied moves an approved proposal to applied, stamping applied_at.
	MarkApplied(ctx context.Context, tx pgx.Tx, id uuid.UUID, appliedAt time.Time) error

	// MarkFailed moves an approved proposal to failed, recording the error.
	MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, errorMessage string) error
}

type proposalRepository struct {
	db *database.DB
}

// NewProposalRepository creates a new ProposalRepository.
func NewProposalRepository(db *database.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

var _ ProposalRepository = (*proposalRepository)(nil)

func (r *proposalRepository) Create(ctx context.Context, tx pgx.Tx, p *models.Proposal) error {
	query := `
		INSERT INTO proposals (
			id, type, status, target_node_id, target_edge_id,
			data_before, data_after, reason, author_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := tx.QueryRow(ctx, query,
		p.ID,
		p.Type,
		p.Status,
		p.TargetNodeID,
		p.TargetEdgeID,
		jsonbProperties(p.DataBefore),
		jsonbProperties(p.DataAfter),
		p.Reason,
		p.AuthorID,
		time.Now(),
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}

	return nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE id = $1`, proposalColumns)

	p, err := scanProposal(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *proposalRepository) List(ctx context.Context, status string, limit, offset int) ([]*models.Proposal, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM proposals
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, proposalColumns)

	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proposals: %w", err)
	}

	return proposals, nil
}

func (r *proposalRepository) Review(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, reviewerID uuid.UUID, comment string, reviewedAt time.Time) (bool, error) {
	query := `
		UPDATE proposals
		SET status = $2, reviewer_id = $3, review_comment = $4, reviewed_at = $5
		WHERE id = $1 AND status = $6`

	result, err := tx.Exec(ctx, query, id, status, reviewerID, comment, reviewedAt, models.ProposalStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to review proposal: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *proposalRepository) MarkApplied(ctx context.Context, tx pgx.Tx, id uuid.UUID, appliedAt time.Time) error {
	query := `
		UPDATE proposals
		SET status = $2, applied_at = $3
		WHERE id = $1 AND status = $4`

	result, err := tx.Exec(ctx, query, id, models.ProposalStatusApplied, appliedAt, models.ProposalStatusApproved)
	if err != nil {
		return fmt.Errorf("failed to mark proposal applied: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("proposal %s is not approved", id)
	}

	return nil
}

func (r *proposalRepository) MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE proposals
		SET status = $2, error_message = $3
		WHERE id = $1 AND status = $4`

	result, err := tx.Exec(ctx, query, id, models.ProposalStatusFailed, errorMessage, models.ProposalStatusApproved)
	if err != nil {
		return fmt.Errorf("failed to mark proposal failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("proposal %s is not approved", id)
	}

	return nil
}

// Helper functions

func scanProposal(row pgx.Row) (*models.Proposal, error) {
	var p models.Proposal
	var dataBefore, dataAfter []byte

	err := row.Scan(
		&p.ID,
		&p.Type,
		&p.Status,
		&p.TargetNodeID,
		&p.TargetEdgeID,
		&dataBefore,
		&dataAfter,
		&p.Reason,
		&p.AuthorID,
		&p.ReviewerID,
		&p.ReviewComment,
		&p.ErrorMessage,
		&p.CreatedAt,
		&p.ReviewedAt,
		&p.AppliedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan proposal: %w", err)
	}

	if p.DataBefore, err = unmarshalProperties(dataBefore); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data_before: %w", err)
	}
	if p.DataAfter, err = unmarshalProperties(dataAfter); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data_after: %w", err)
	}

	return &p, nil
}

// jsonbProperties converts a property bag to JSONB for insertion.
func jsonbProperties(p models.Properties) any {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return data
}

func unmarshalProperties(data []byte) (models.Properties, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var props models.Properties
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, err
	}
	return props, nil
}
