package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/graphoni/graphoni-engine/pkg/models"
)

// Neo4jConfig holds graph store connection settings.
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// neo4jStore implements Store against a Neo4j server.
type neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

var _ Store = (*neo4jStore)(nil)

// NewNeo4jStore connects to Neo4j and verifies connectivity.
func NewNeo4jStore(ctx context.Context, cfg *Neo4jConfig, logger *zap.Logger) (Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	return &neo4jStore{
		driver:   driver,
		database: cfg.Database,
		logger:   logger.Named("graph-store"),
	}, nil
}

// Close shuts down the underlying driver.
func (s *neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

func (s *neo4jStore) Execute(ctx context.Context, command string) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, command, nil)
	if err != nil {
		return fmt.Errorf("failed to run command: %w", err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return fmt.Errorf("failed to consume result: %w", err)
	}

	s.logger.Debug("Executed graph command", zap.String("command", command))
	return nil
}

func (s *neo4jStore) FetchNode(ctx context.Context, nodeID string) (models.Properties, error) {
	return s.fetchProperties(ctx,
		"MATCH (n {id: $id}) RETURN properties(n) AS props LIMIT 1",
		map[string]any{"id": nodeID})
}

func (s *neo4jStore) FetchEdge(ctx context.Context, edgeID string) (models.Properties, error) {
	return s.fetchProperties(ctx,
		"MATCH ()-[r {id: $id}]-() RETURN properties(r) AS props LIMIT 1",
		map[string]any{"id": edgeID})
}

func (s *neo4jStore) fetchProperties(ctx context.Context, query string, params map[string]any) (models.Properties, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to run fetch query: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to read fetch result: %w", err)
		}
		return nil, nil
	}

	raw, ok := result.Record().Get("props")
	if !ok {
		return nil, fmt.Errorf("fetch result has no props column")
	}
	rawMap, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected props type %T", raw)
	}
	props, err := propertiesFromDriver(rawMap)
	if err != nil {
		return nil, err
	}
	return props, nil
}

func (s *neo4jStore) Search(ctx context.Context, query string, types []string, limit int) ([]models.Properties, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	var sb strings.Builder
	sb.WriteString("MATCH (n) WHERE (toLower(coalesce(n.label, '')) CONTAINS $q")
	sb.WriteString(" OR toLower(coalesce(n.id, '')) CONTAINS $q")
	sb.WriteString(" OR toLower(coalesce(n.name, '')) CONTAINS $q")
	sb.WriteString(" OR toLower(coalesce(n.notes, '')) CONTAINS $q)")
	params := map[string]any{
		"q":     strings.ToLower(query),
		"limit": limit,
	}
	if len(types) > 0 {
		sb.WriteString(" AND any(l IN labels(n) WHERE l IN $types)")
		params["types"] = types
	}
	sb.WriteString(" RETURN properties(n) AS props LIMIT $limit")

	result, err := session.Run(ctx, sb.String(), params)
	if err != nil {
		return nil, fmt.Errorf("failed to run search query: %w", err)
	}

	var hits []models.Properties
	for result.Next(ctx) {
		raw, ok := result.Record().Get("props")
		if !ok {
			continue
		}
		rawMap, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		props, err := propertiesFromDriver(rawMap)
		if err != nil {
			return nil, err
		}
		hits = append(hits, props)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	return hits, nil
}

// Bounds for the neighborhood and path reads. Variable-length Cypher
// patterns cannot take their hop bound as a parameter, so these clamped
// ints are the only values ever inlined into a read query.
const (
	maxNeighborhoodHops      = 3
	defaultNeighborhoodLimit = 100
	defaultPathLength        = 6
	maxPathLength            = 15
)

func clampHops(hops int) int {
	if hops < 1 {
		return 1
	}
	if hops > maxNeighborhoodHops {
		return maxNeighborhoodHops
	}
	return hops
}

func clampPathLength(maxLength int) int {
	if maxLength <= 0 {
		return defaultPathLength
	}
	if maxLength > maxPathLength {
		return maxPathLength
	}
	return maxLength
}

func (s *neo4jStore) Neighborhood(ctx context.Context, nodeID string, hops, limit int) (*Subgraph, error) {
	center, err := s.FetchNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if center == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultNeighborhoodLimit
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := fmt.Sprintf(
		"MATCH p = ({id: $id})-[*1..%d]-() RETURN nodes(p) AS ns, relationships(p) AS rs LIMIT $limit",
		clampHops(hops))
	result, err := session.Run(ctx, query, map[string]any{"id": nodeID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to run neighborhood query: %w", err)
	}

	c := newSubgraphCollector()
	c.addNode(center)
	for result.Next(ctx) {
		if err := c.collectRecord(result.Record()); err != nil {
			return nil, err
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read neighborhood results: %w", err)
	}
	return c.subgraph(), nil
}

func (s *neo4jStore) FindPath(ctx context.Context, fromID, toID string, maxLength int) (*Subgraph, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := fmt.Sprintf(
		"MATCH (s {id: $from}), (t {id: $to}), p = shortestPath((s)-[*..%d]-(t)) "+
			"RETURN nodes(p) AS ns, relationships(p) AS rs LIMIT 1",
		clampPathLength(maxLength))
	result, err := session.Run(ctx, query, map[string]any{"from": fromID, "to": toID})
	if err != nil {
		return nil, fmt.Errorf("failed to run path query: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to read path result: %w", err)
		}
		return nil, nil
	}

	c := newSubgraphCollector()
	if err := c.collectRecord(result.Record()); err != nil {
		return nil, err
	}
	return c.subgraph(), nil
}

func (s *neo4jStore) Stats(ctx context.Context) (*Stats, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	stats := &Stats{
		NodeTypes: make(map[string]int64),
		EdgeTypes: make(map[string]int64),
	}

	nodeResult, err := session.Run(ctx,
		"MATCH (n) RETURN coalesce(labels(n)[0], '') AS type, count(n) AS count", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count nodes: %w", err)
	}
	for nodeResult.Next(ctx) {
		record := nodeResult.Record()
		typ, _ := record.Get("type")
		count, _ := record.Get("count")
		name, _ := typ.(string)
		n, _ := count.(int64)
		stats.NodeTypes[name] += n
		stats.NodeCount += n
	}
	if err := nodeResult.Err(); err != nil {
		return nil, fmt.Errorf("failed to read node counts: %w", err)
	}

	edgeResult, err := session.Run(ctx,
		"MATCH ()-[r]->() RETURN type(r) AS type, count(r) AS count", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count edges: %w", err)
	}
	for edgeResult.Next(ctx) {
		record := edgeResult.Record()
		typ, _ := record.Get("type")
		count, _ := record.Get("count")
		name, _ := typ.(string)
		n, _ := count.(int64)
		stats.EdgeTypes[name] += n
		stats.EdgeCount += n
	}
	if err := edgeResult.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edge counts: %w", err)
	}

	return stats, nil
}

// propertiesFromDriver converts a driver property map into Properties.
// Neo4j returns integers as int64, which the scalar variant holds as
// numbers.
func propertiesFromDriver(raw map[string]any) (models.Properties, error) {
	converted := make(map[string]any, len(raw))
	for k, v := range raw {
		if i, ok := v.(int64); ok {
			converted[k] = float64(i)
			continue
		}
		converted[k] = v
	}
	props, err := models.PropertiesOf(converted)
	if err != nil {
		return nil, fmt.Errorf("failed to convert graph properties: %w", err)
	}
	return props, nil
}
