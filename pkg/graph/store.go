// Package graph provides access to the Neo4j graph store and the
// deterministic Cypher command builder for graph mutations.
package graph

import (
	"context"

	"github.com/graphoni/graphoni-engine/pkg/models"
)

// Store is the graph store collaborator. Fetch methods return (nil, nil)
// when the entity does not exist.
type Store interface {
	// Execute runs a mutation command against the graph.
	Execute(ctx context.Context, command string) error

	// FetchNode returns the properties of the node with the given id.
	FetchNode(ctx context.Context, nodeID string) (models.Properties, error)

	// FetchEdge returns the properties of the edge with the given id.
	FetchEdge(ctx context.Context, edgeID string) (models.Properties, error)

	// Search finds nodes whose label, id, name, or notes contain the query
	// text, optionally restricted to the given node types.
	Search(ctx context.Context, query string, types []string, limit int) ([]models.Properties, error)

	// Neighborhood returns the node and everything reachable within hops
	// edges of it, or nil when the node does not exist. Hops is clamped to
	// [1, 3] and limit caps the number of paths expanded.
	Neighborhood(ctx context.Context, nodeID string, hops, limit int) (*Subgraph, error)

	// FindPath returns a shortest path between two nodes, or nil when no
	// path exists within maxLength hops.
	FindPath(ctx context.Context, fromID, toID string, maxLength int) (*Subgraph, error)

	// Stats returns node/edge counts, total and by type.
	Stats(ctx context.Context) (*Stats, error)
}

// Subgraph is a deduplicated set of nodes and edges returned by the
// neighborhood and path reads.
type Subgraph struct {
	Nodes []models.Properties `json:"nodes"`
	Edges []models.Properties `json:"edges"`
}

// Stats summarizes the graph's contents.
type Stats struct {
	NodeCount int64            `json:"nodeCount"`
	EdgeCount int64            `json:"edgeCount"`
	NodeTypes map[string]int64 `json:"nodeTypes"`
	EdgeTypes map[string]int64 `json:"edgeTypes"`
}
