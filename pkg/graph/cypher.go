package graph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/graphoni/graphoni-engine/pkg/models"
)

// identifierPattern constrains node labels, relationship types, and property
// keys, which are spliced into command text and cannot be parameterized.
var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s is safe to use as a Cypher label,
// relationship type, or property key.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// propertyMapLiteral renders a property bag as a Cypher map literal with
// keys in sorted order, so identical inputs yield byte-identical text.
func propertyMapLiteral(props models.Properties) (string, error) {
	var sb strings.Builder
	sb.WriteString("{")
	for i, key := range props.SortedKeys() {
		if !ValidIdentifier(key) {
			return "", fmt.Errorf("invalid property key %q", key)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(props[key].Literal())
	}
	sb.WriteString("}")
	return sb.String(), nil
}

// setClause renders "x.key = value" assignments for the given variable with
// keys in sorted order.
func setClause(variable string, changed models.Properties) (string, error) {
	parts := make([]string, 0, len(changed))
	for _, key := range changed.SortedKeys() {
		if !ValidIdentifier(key) {
			return "", fmt.Errorf("invalid property key %q", key)
		}
		parts = append(parts, fmt.Sprintf("%s.%s = %s", variable, key, changed[key].Literal()))
	}
	return strings.Join(parts, ", "), nil
}

// AddNodeCommand builds a CREATE command for a new node. The node's id must
// already be present in props.
func AddNodeCommand(nodeType string, props models.Properties) (string, error) {
	if !ValidIdentifier(nodeType) {
		return "", fmt.Errorf("invalid node type %q", nodeType)
	}
	mapLit, err := propertyMapLiteral(props)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE (n:%s %s)", nodeType, mapLit), nil
}

// EditNodeCommand builds a SET command touching only the changed keys.
func EditNodeCommand(nodeID string, changed models.Properties) (string, error) {
	set, err := setClause("n", changed)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH (n {id: %s}) SET %s", models.String(nodeID).Literal(), set), nil
}

// DeleteNodeCommand builds a DETACH DELETE command. Edges referencing the
// node are removed with it; their other endpoints survive.
func DeleteNodeCommand(nodeID string) string {
	return fmt.Sprintf("MATCH (n {id: %s}) DETACH DELETE n", models.String(nodeID).Literal())
}

// AddEdgeCommand builds a CREATE command for a new edge between two
// existing nodes. The edge's id must already be present in props.
func AddEdgeCommand(sourceID, targetID, edgeType string, props models.Properties) (string, error) {
	if !ValidIdentifier(edgeType) {
		return "", fmt.Errorf("invalid edge type %q", edgeType)
	}
	mapLit, err := propertyMapLiteral(props)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH (s {id: %s}), (t {id: %s}) CREATE (s)-[r:%s %s]->(t)",
		models.String(sourceID).Literal(), models.String(targetID).Literal(), edgeType, mapLit), nil
}

// EditEdgeCommand builds a SET command for an edge, touching only the
// changed keys.
func EditEdgeCommand(edgeID string, changed models.Properties) (string, error) {
	set, err := setClause("r", changed)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH ()-[r {id: %s}]-() SET %s", models.String(edgeID).Literal(), set), nil
}

// DeleteEdgeCommand builds a DELETE command for an edge.
func DeleteEdgeCommand(edgeID string) string {
	return fmt.Sprintf("MATCH ()-[r {id: %s}]-() DELETE r", models.String(edgeID).Literal())
}

// CommandForProposal builds the mutation command for a proposal. It is a
// pure function of the stored proposal row: target ids are assigned at
// submission and the SET clause is recomputed from the stored snapshots, so
// the same row always yields byte-identical text.
func CommandForProposal(p *models.Proposal) (string, error) {
	switch p.Type {
	case models.ProposalTypeAddNode:
		nodeType, props, err := NodeCreateProperties(p)
		if err != nil {
			return "", err
		}
		return AddNodeCommand(nodeType, props)

	case models.ProposalTypeEditNode:
		changed := p.DataBefore.Diff(p.DataAfter)
		if len(changed) == 0 {
			return "", fmt.Errorf("proposal %s changes no properties", p.ID)
		}
		return EditNodeCommand(*p.TargetNodeID, changed)

	case models.ProposalTypeDeleteNode:
		return DeleteNodeCommand(*p.TargetNodeID), nil

	case models.ProposalTypeAddEdge:
		sourceID, targetID, edgeType, props, err := EdgeCreateProperties(p)
		if err != nil {
			return "", err
		}
		return AddEdgeCommand(sourceID, targetID, edgeType, props)

	case models.ProposalTypeEditEdge:
		changed := p.DataBefore.Diff(p.DataAfter)
		if len(changed) == 0 {
			return "", fmt.Errorf("proposal %s changes no properties", p.ID)
		}
		return EditEdgeCommand(*p.TargetEdgeID, changed)

	case models.ProposalTypeDeleteEdge:
		return DeleteEdgeCommand(*p.TargetEdgeID), nil

	default:
		return "", fmt.Errorf("unknown proposal type %q", p.Type)
	}
}

// NodeCreateProperties extracts the node type from an add-node proposal's
// dataAfter and returns the remaining properties plus the assigned node id.
func NodeCreateProperties(p *models.Proposal) (string, models.Properties, error) {
	typVal, ok := p.DataAfter[models.PropKeyNodeType]
	if !ok || typVal.Kind() != models.KindString {
		return "", nil, fmt.Errorf("add-node proposal %s has no node_type", p.ID)
	}
	if p.TargetNodeID == nil {
		return "", nil, fmt.Errorf("add-node proposal %s has no assigned node id", p.ID)
	}
	props := p.DataAfter.Clone()
	delete(props, models.PropKeyNodeType)
	props["id"] = models.String(*p.TargetNodeID)
	return typVal.AsString(), props, nil
}

// EdgeCreateProperties extracts the endpoints and edge type from an
// add-edge proposal's dataAfter and returns the remaining properties plus
// the assigned edge id.
func EdgeCreateProperties(p *models.Proposal) (string, string, string, models.Properties, error) {
	srcVal, srcOK := p.DataAfter[models.PropKeySource]
	tgtVal, tgtOK := p.DataAfter[models.PropKeyTarget]
	typVal, typOK := p.DataAfter[models.PropKeyEdgeType]
	if !srcOK || !tgtOK || !typOK {
		return "", "", "", nil, fmt.Errorf("add-edge proposal %s is missing source, target, or edge_type", p.ID)
	}
	if p.TargetEdgeID == nil {
		return "", "", "", nil, fmt.Errorf("add-edge proposal %s has no assigned edge id", p.ID)
	}
	props := p.DataAfter.Clone()
	delete(props, models.PropKeySource)
	delete(props, models.PropKeyTarget)
	delete(props, models.PropKeyEdgeType)
	props["id"] = models.String(*p.TargetEdgeID)
	return srcVal.AsString(), tgtVal.AsString(), typVal.AsString(), props, nil
}
