package neosierra

import (
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrNotFound is returned when a query executes successfully but yields no records.
var ErrNotFound = errors.New("record not found")

// GraphNode represents a generic node from a Neo4j graph.
// It is a domain-agnostic representation, capturing the essential components of any node:
// its unique internal ID, its labels, and its properties.
type GraphNode struct {
	// ID is the unique internal identifier assigned by Neo4j to the node (ElementId).
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// GraphEdge represents a generic relationship between two nodes in a Neo4j graph.
type GraphEdge struct {
	// ID is the unique internal identifier assigned by Neo4j to the relationship (ElementId).
	ID string `json:"id"`
	// Source is the ElementId of the node where the relationship starts.
	Source string `json:"source"`
	// Target is the ElementId of the node where the relationship ends.
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// GraphResult is the de-duplicated graph carried by the records of a query result,
// in the shape graph visualisation front-ends consume.
type GraphResult struct {
	Nodes []*GraphNode `json:"nodes"`
	Edges []*GraphEdge `json:"edges"`
	// Rows is the number of records the query returned.
	Rows int `json:"rows"`
}

// graphFromRecords maps every node and relationship found in the records, including
// those nested in lists such as COLLECT(o) and in paths. A graph element returned in
// several rows appears once.
func graphFromRecords(records []*neo4j.Record) *GraphResult {
	g := &GraphResult{
		Nodes: make([]*GraphNode, 0),
		Edges: make([]*GraphEdge, 0),
		Rows:  len(records),
	}
	seenNodeIDs := make(map[string]bool)
	seenEdgeIDs := make(map[string]bool)

	var visit func(value any)
	visit = func(value any) {
		switch v := value.(type) {
		case neo4j.Node:
			if !seenNodeIDs[v.ElementId] {
				g.Nodes = append(g.Nodes, &GraphNode{
					ID:         v.ElementId,
					Labels:     v.Labels,
					Properties: v.Props,
				})
				seenNodeIDs[v.ElementId] = true
			}
		case neo4j.Relationship:
			if !seenEdgeIDs[v.ElementId] {
				g.Edges = append(g.Edges, &GraphEdge{
					ID:         v.ElementId,
					Source:     v.StartElementId,
					Target:     v.EndElementId,
					Type:       v.Type,
					Properties: v.Props,
				})
				seenEdgeIDs[v.ElementId] = true
			}
		case neo4j.Path:
			for _, n := range v.Nodes {
				visit(n)
			}
			for _, r := range v.Relationships {
				visit(r)
			}
		case []any:
			for _, item := range v {
				visit(item)
			}
		}
	}

	for _, record := range records {
		for _, value := range record.Values {
			visit(value)
		}
	}
	return g
}
