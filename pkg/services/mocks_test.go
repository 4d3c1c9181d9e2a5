package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/graphoni/graphoni-engine/pkg/auth"
	"github.com/graphoni/graphoni-engine/pkg/graph"
	"github.com/graphoni/graphoni-engine/pkg/models"
)

// actorContext returns a context carrying a fresh actor with the given role.
func actorContext(role models.Role) (context.Context, auth.Actor) {
	actor := auth.Actor{ID: uuid.New(), Name: "test-" + string(role), Role: role}
	return auth.WithActor(context.Background(), actor), actor
}

// fakeTxRunner runs transaction bodies without a database. Mock
// repositories ignore the nil tx.
type fakeTxRunner struct {
	err error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// mockProposalRepository is an in-memory ProposalRepository that mirrors
// the real repository's conditional status transitions.
type mockProposalRepository struct {
	proposals map[uuid.UUID]*models.Proposal
	order     []uuid.UUID
	createErr error
}

func newMockProposalRepository() *mockProposalRepository {
	return &mockProposalRepository{proposals: make(map[uuid.UUID]*models.Proposal)}
}

func (m *mockProposalRepository) Create(ctx context.Context, tx pgx.Tx, p *models.Proposal) error {
	if m.createErr != nil {
		return m.createErr
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	m.proposals[p.ID] = p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *mockProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return m.proposals[id], nil
}

func (m *mockProposalRepository) List(ctx context.Context, status string, limit, offset int) ([]*models.Proposal, error) {
	var result []*models.Proposal
	for i := len(m.order) - 1; i >= 0; i-- {
		p := m.proposals[m.order[i]]
		if status == "" || p.Status == status {
			result = append(result, p)
		}
	}
	if offset > 0 {
		if offset >= len(result) {
			return nil, nil
		}
		result = result[offset:]
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockProposalRepository) Review(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, reviewerID uuid.UUID, comment string, reviewedAt time.Time) (bool, error) {
	p, ok := m.proposals[id]
	if !ok || p.Status != models.ProposalStatusPending {
		return false, nil
	}
	p.Status = status
	p.ReviewerID = &reviewerID
	p.ReviewComment = &comment
	p.ReviewedAt = &reviewedAt
	return true, nil
}

func (m *mockProposalRepository) MarkApplied(ctx context.Context, tx pgx.Tx, id uuid.UUID, appliedAt time.Time) error {
	p, ok := m.proposals[id]
	if !ok || p.Status != models.ProposalStatusApproved {
		return fmt.Errorf("proposal %s is not approved", id)
	}
	p.Status = models.ProposalStatusApplied
	p.AppliedAt = &appliedAt
	return nil
}

func (m *mockProposalRepository) MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, errorMessage string) error {
	p, ok := m.proposals[id]
	if !ok || p.Status != models.ProposalStatusApproved {
		return fmt.Errorf("proposal %s is not approved", id)
	}
	p.Status = models.ProposalStatusFailed
	p.ErrorMessage = &errorMessage
	return nil
}

// mockAuditRepository is an in-memory append-only ledger with seq
// assignment and conditional squash linking.
type mockAuditRepository struct {
	entries   []*models.AuditEntry
	nextSeq   int64
	createErr error
}

func newMockAuditRepository() *mockAuditRepository {
	return &mockAuditRepository{}
}

func (m *mockAuditRepository) create(entry *models.AuditEntry) error {
	if m.createErr != nil {
		return m.createErr
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	m.nextSeq++
	entry.Seq = m.nextSeq
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	return m.create(entry)
}

func (m *mockAuditRepository) CreateTx(ctx context.Context, tx pgx.Tx, entry *models.AuditEntry) error {
	return m.create(entry)
}

func (m *mockAuditRepository) Query(ctx context.Context, filter *models.AuditFilter) ([]*models.AuditEntry, error) {
	var result []*models.AuditEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.ActorID != nil && e.ActorID != *filter.ActorID {
			continue
		}
		if filter.TargetNodeID != "" && (e.TargetNodeID == nil || *e.TargetNodeID != filter.TargetNodeID) {
			continue
		}
		result = append(result, e)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *mockAuditRepository) GetBySeqRange(ctx context.Context, tx pgx.Tx, from, to int64) ([]*models.AuditEntry, error) {
	var result []*models.AuditEntry
	for _, e := range m.entries {
		if e.Seq >= from && e.Seq <= to {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockAuditRepository) LinkSquashed(ctx context.Context, tx pgx.Tx, from, to int64, intoID uuid.UUID) (int64, error) {
	var linked int64
	for _, e := range m.entries {
		if e.Seq >= from && e.Seq <= to && e.SquashedIntoID == nil {
			id := intoID
			e.SquashedIntoID = &id
			linked++
		}
	}
	return linked, nil
}

func (m *mockAuditRepository) CountSquashedInto(ctx context.Context, intoID uuid.UUID) (int, error) {
	count := 0
	for _, e := range m.entries {
		if e.SquashedIntoID != nil && *e.SquashedIntoID == intoID {
			count++
		}
	}
	return count, nil
}

func (m *mockAuditRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.entries)), nil
}

// actions returns the recorded audit actions in insertion order.
func (m *mockAuditRepository) actions() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

func (m *mockAuditRepository) lastEntry() *models.AuditEntry {
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

// mockGraphStore is an in-memory graph.Store recording executed commands.
type mockGraphStore struct {
	nodes      map[string]models.Properties
	edges      map[string]models.Properties
	executed   []string
	executeErr error
	fetchErr   error
}

func newMockGraphStore() *mockGraphStore {
	return &mockGraphStore{
		nodes: make(map[string]models.Properties),
		edges: make(map[string]models.Properties),
	}
}

var _ graph.Store = (*mockGraphStore)(nil)

func (m *mockGraphStore) Execute(ctx context.Context, command string) error {
	m.executed = append(m.executed, command)
	return m.executeErr
}

func (m *mockGraphStore) FetchNode(ctx context.Context, nodeID string) (models.Properties, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.nodes[nodeID], nil
}

func (m *mockGraphStore) FetchEdge(ctx context.Context, edgeID string) (models.Properties, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.edges[edgeID], nil
}

func (m *mockGraphStore) Search(ctx context.Context, query string, types []string, limit int) ([]models.Properties, error) {
	return nil, nil
}

func (m *mockGraphStore) Neighborhood(ctx context.Context, nodeID string, hops, limit int) (*graph.Subgraph, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	props, ok := m.nodes[nodeID]
	if !ok {
		return nil, nil
	}
	return &graph.Subgraph{Nodes: []models.Properties{props}}, nil
}

func (m *mockGraphStore) FindPath(ctx context.Context, fromID, toID string, maxLength int) (*graph.Subgraph, error) {
	return nil, nil
}

func (m *mockGraphStore) Stats(ctx context.Context) (*graph.Stats, error) {
	return &graph.Stats{
		NodeCount: int64(len(m.nodes)),
		EdgeCount: int64(len(m.edges)),
	}, nil
}
