package parser

import (
	"fmt"

	"github.com/saulfrancisco-ruizacevedo/go-neosierra/graph"
)

// Fragments is a parsed query resolved against a previous model, ready to be replayed.
type Fragments struct {
	Nodes []NodeFragment
	Edges []EdgeFragment
	Links []graph.PredicateLink
	// Allocated lists the ids taken from the allocator for new nodes.
	Allocated []string
}

// NodeFragment is one node of the parsed query.
type NodeFragment struct {
	// Node holds everything but predicates. Position, DNF, colour and fold state are
	// carried over when the node was matched to the previous model.
	Node graph.Node
	// Reused reports whether the id came from the previous model.
	Reused     bool
	Predicates []PredicateFragment
}

// EdgeFragment is one relationship pattern of the parsed query.
type EdgeFragment struct {
	Source, Target string
	Directed       bool
	// Data holds everything but predicates.
	Data       graph.EdgeData
	Predicates []PredicateFragment
}

// PredicateFragment is a single condition on one attribute.
type PredicateFragment struct {
	Attr      string
	Condition graph.Condition
	Color     string
}

// Replay builds the model described by the fragments. The previous model only
// contributes its predicate display status.
func (f *Fragments) Replay(prev *graph.Model) (*graph.Model, error) {
	m := graph.ResetSchema(prev)
	var err error

	for _, nf := range f.Nodes {
		n := nf.Node
		n.IsJoin = false
		n.Predicates = nil
		if m, err = graph.AddNode(m, n); err != nil {
			return nil, err
		}
		for _, p := range nf.Predicates {
			if m, err = graph.AddPredicate(m, n.ID, p.Attr, p.Condition, p.Color); err != nil {
				return nil, err
			}
		}
	}

	for _, ef := range f.Edges {
		var id string
		m, id, err = graph.AddEdge(m, ef.Source, ef.Target, ef.Directed, ef.Data)
		if err != nil {
			return nil, err
		}
		for _, p := range ef.Predicates {
			if m, err = graph.AddPredicate(m, id, p.Attr, p.Condition, p.Color); err != nil {
				return nil, err
			}
		}
	}

	for _, l := range f.Links {
		if m, err = graph.AddPredicateLink(m, l); err != nil {
			return nil, err
		}
	}

	for _, nf := range f.Nodes {
		n := nf.Node
		if cur, ok := m.Node(n.ID); ok && cur.Connected != n.Connected {
			connected := n.Connected
			if m, err = graph.UpdateNode(m, n.ID, func(x *graph.Node) { x.Connected = connected }); err != nil {
				return nil, err
			}
		}
		if n.IsJoin {
			if m, err = graph.SetJoin(m, n.ID, true); err != nil {
				return nil, err
			}
			if cur, _ := m.Node(n.ID); !cur.IsJoin {
				return nil, fmt.Errorf("join node %q has no predicate link: %w", n.ID, graph.ErrInvalidLink)
			}
		}
	}
	return m, nil
}
