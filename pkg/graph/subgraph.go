package graph

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/graphoni/graphoni-engine/pkg/models"
)

// subgraphCollector accumulates nodes and edges from path records,
// deduplicating by id. The Cypher label of a node and the type of a
// relationship live outside the property map, so they are lifted back into
// the node_type and edge_type keys on the way out.
type subgraphCollector struct {
	sub       Subgraph
	seenNodes map[string]bool
	seenEdges map[string]bool
}

func newSubgraphCollector() *subgraphCollector {
	return &subgraphCollector{
		seenNodes: make(map[string]bool),
		seenEdges: make(map[string]bool),
	}
}

func (c *subgraphCollector) collectRecord(record *neo4j.Record) error {
	rawNodes, ok := record.Get("ns")
	if !ok {
		return fmt.Errorf("path record has no ns column")
	}
	rawEdges, ok := record.Get("rs")
	if !ok {
		return fmt.Errorf("path record has no rs column")
	}
	ns, ok := rawNodes.([]any)
	if !ok {
		return fmt.Errorf("unexpected ns type %T", rawNodes)
	}
	rs, ok := rawEdges.([]any)
	if !ok {
		return fmt.Errorf("unexpected rs type %T", rawEdges)
	}
	return c.collect(ns, rs)
}

func (c *subgraphCollector) collect(ns, rs []any) error {
	for _, raw := range ns {
		node, ok := raw.(neo4j.Node)
		if !ok {
			return fmt.Errorf("unexpected node element type %T", raw)
		}
		props, err := propertiesFromDriver(node.Props)
		if err != nil {
			return err
		}
		if _, ok := props[models.PropKeyNodeType]; !ok && len(node.Labels) > 0 {
			props[models.PropKeyNodeType] = models.String(node.Labels[0])
		}
		c.addNode(props)
	}
	for _, raw := range rs {
		rel, ok := raw.(neo4j.Relationship)
		if !ok {
			return fmt.Errorf("unexpected edge element type %T", raw)
		}
		props, err := propertiesFromDriver(rel.Props)
		if err != nil {
			return err
		}
		if _, ok := props[models.PropKeyEdgeType]; !ok && rel.Type != "" {
			props[models.PropKeyEdgeType] = models.String(rel.Type)
		}
		c.addEdge(props)
	}
	return nil
}

func (c *subgraphCollector) addNode(props models.Properties) {
	key := entityID(props)
	if key != "" && c.seenNodes[key] {
		return
	}
	c.seenNodes[key] = true
	c.sub.Nodes = append(c.sub.Nodes, props)
}

func (c *subgraphCollector) addEdge(props models.Properties) {
	key := entityID(props)
	if key != "" && c.seenEdges[key] {
		return
	}
	c.seenEdges[key] = true
	c.sub.Edges = append(c.sub.Edges, props)
}

func (c *subgraphCollector) subgraph() *Subgraph {
	return &c.sub
}

// entityID returns the id property, the dedup key for collected elements.
func entityID(props models.Properties) string {
	if v, ok := props["id"]; ok && v.Kind() == models.KindString {
		return v.AsString()
	}
	return ""
}
