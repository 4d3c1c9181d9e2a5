package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/graphoni/graphoni-engine/pkg/database"
	"github.com/graphoni/graphoni-engine/pkg/models"
)

const auditColumns = `id, seq, action, proposal_id, actor_id, target_node_id,
	target_edge_id, data_before, data_after, cypher_executed,
	squashed_into_id, squashed_count, summary, created_at`

// AuditRepository provides data access for the append-only audit ledger.
// The only permitted post-insert mutation is setting squashed_into_id, and
// that only through the conditional LinkSquashed update.
type AuditRepository interface {
	// Create inserts a new audit entry.
	Create(ctx context.Context, entry *models.AuditEntry) error

	// CreateTx inserts a new audit entry inside the caller's transaction.
	CreateTx(ctx context.Context, tx pgx.Tx, entry *models.AuditEntry) error

	// Query returns entries matching the filter, newest first.
	Query(ctx context.Context, filter *models.AuditFilter) ([]*models.AuditEntry, error)

	// GetBySeqRange returns entries with seq in [from, to], ascending.
	GetBySeqRange(ctx context.Context, tx pgx.Tx, from, to int64) ([]*models.AuditEntry, error)

	// LinkSquashed sets squashed_into_id on every unsquashed entry in the
	// seq range and returns the number of rows updated. Entries already
	// linked elsewhere are left untouched, which lets callers detect a
	// concurrent squash by comparing the count.
	LinkSquashed(ctx context.Context, tx pgx.Tx, from, to int64, intoID uuid.UUID) (int64, error)

	// CountSquashedInto returns the number of entries linked to a summary.
	CountSquashedInto(ctx context.Context, intoID uuid.UUID) (int, error)

	// Count returns the total number of ledger entries.
	Count(ctx context.Context) (int64, error)
}

type auditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) AuditRepository {
	return &auditRepository{db: db}
}

var _ AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	return r.create(ctx, r.db, entry)
}

func (r *auditRepository) CreateTx(ctx context.Context, tx pgx.Tx, entry *models.AuditEntry) error {
	return r.create(ctx, tx, entry)
}

func (r *auditRepository) create(ctx context.Context, q database.Querier, entry *models.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO audit_log (
			id, action, proposal_id, actor_id, target_node_id, target_edge_id,
			data_before, data_after, cypher_executed, squashed_count, summary,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING seq`

	err := q.QueryRow(ctx, query,
		entry.ID,
		entry.Action,
		entry.ProposalID,
		entry.ActorID,
		entry.TargetNodeID,
		entry.TargetEdgeID,
		jsonbProperties(entry.DataBefore),
		jsonbProperties(entry.DataAfter),
		entry.CypherExecuted,
		entry.SquashedCount,
		entry.Summary,
		entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

func (r *auditRepository) Query(ctx context.Context, filter *models.AuditFilter) ([]*models.AuditEntry, error) {
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Action != "" {
		conditions = append(conditions, "action = "+arg(filter.Action))
	}
	if filter.ActorID != nil {
		conditions = append(conditions, "actor_id = "+arg(*filter.ActorID))
	}
	if filter.TargetNodeID != "" {
		conditions = append(conditions, "target_node_id = "+arg(filter.TargetNodeID))
	}
	if filter.TargetEdgeID != "" {
		conditions = append(conditions, "target_edge_id = "+arg(filter.TargetEdgeID))
	}
	if filter.From != nil {
		conditions = append(conditions, "created_at >= "+arg(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "created_at <= "+arg(*filter.To))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM audit_log
		%s
		ORDER BY seq DESC
		LIMIT %s OFFSET %s`, auditColumns, where, arg(limit), arg(filter.Offset))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	return scanAuditEntries(rows)
}

func (r *auditRepository) GetBySeqRange(ctx context.Context, tx pgx.Tx, from, to int64) ([]*models.AuditEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_log
		WHERE seq BETWEEN $1 AND $2
		ORDER BY seq ASC`, auditColumns)

	rows, err := tx.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit range: %w", err)
	}
	defer rows.Close()

	return scanAuditEntries(rows)
}

func (r *auditRepository) LinkSquashed(ctx context.Context, tx pgx.Tx, from, to int64, intoID uuid.UUID) (int64, error) {
	query := `
		UPDATE audit_log
		SET squashed_into_id = $3
		WHERE seq BETWEEN $1 AND $2 AND squashed_into_id IS NULL`

	result, err := tx.Exec(ctx, query, from, to, intoID)
	if err != nil {
		return 0, fmt.Errorf("failed to link squashed entries: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *auditRepository) CountSquashedInto(ctx context.Context, intoID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_log WHERE squashed_into_id = $1`, intoID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count squashed entries: %w", err)
	}
	return count, nil
}

func (r *auditRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// Helper functions

func scanAuditEntries(rows pgx.Rows) ([]*models.AuditEntry, error) {
	var entries []*models.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

func scanAuditEntry(row pgx.Row) (*models.AuditEntry, error) {
	var entry models.AuditEntry
	var dataBefore, dataAfter []byte

	err := row.Scan(
		&entry.ID,
		&entry.Seq,
		&entry.Action,
		&entry.ProposalID,
		&entry.ActorID,
		&entry.TargetNodeID,
		&entry.TargetEdgeID,
		&dataBefore,
		&dataAfter,
		&entry.CypherExecuted,
		&entry.SquashedIntoID,
		&entry.SquashedCount,
		&entry.Summary,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	if entry.DataBefore, err = unmarshalProperties(dataBefore); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data_before: %w", err)
	}
	if entry.DataAfter, err = unmarshalProperties(dataAfter); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data_after: %w", err)
	}

	return &entry, nil
}
