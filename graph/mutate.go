package graph

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Transition is a mutation primitive: it takes the current model and returns the next
// one without modifying its input.
type Transition func(*Model) (*Model, error)

// SetGraph replaces the nodes and edges of the model and reconciles the existing
// predicate links against the new node set.
func SetGraph(m *Model, nodes []Node, edges []Edge) *Model {
	out := m.Clone()
	out.Nodes = (&Model{Nodes: nodes}).Clone().Nodes
	out.Edges = (&Model{Edges: edges}).Clone().Edges
	return reconciled(out)
}

// SetNodes replaces the node set and reconciles the predicate links.
func SetNodes(m *Model, nodes []Node) *Model {
	out := m.Clone()
	out.Nodes = (&Model{Nodes: nodes}).Clone().Nodes
	return reconciled(out)
}

// SetEdges replaces the edge set. Edges carry no predicate links so no
// reconciliation takes place.
func SetEdges(m *Model, edges []Edge) *Model {
	out := m.Clone()
	out.Edges = (&Model{Edges: edges}).Clone().Edges
	return out
}

// ResetSchema clears every node, edge and link. It is applied when the underlying
// database or schema changes.
func ResetSchema(m *Model) *Model {
	out := New()
	if m != nil {
		out.PredDisplay = m.PredDisplay
	}
	return out
}

// SetPredDisplay records the editor's predicate display filter.
func SetPredDisplay(m *Model, status string) *Model {
	out := m.Clone()
	out.PredDisplay = status
	return out
}

// AddNode appends a node. Its id must not already be in use.
func AddNode(m *Model, n Node) (*Model, error) {
	if n.ID == "" {
		return nil, errors.New("add node: empty id")
	}
	if m.NodeIndex(n.ID) >= 0 {
		return nil, fmt.Errorf("add node %q: %w", n.ID, ErrDuplicateID)
	}
	out := m.Clone()
	n = n.clone()
	for attr, p := range n.Predicates {
		p.Attr = attr
		p.Parent = n.ID
		n.Predicates[attr] = p
	}
	out.Nodes = append(out.Nodes, n)
	return reconciled(out), nil
}

// UpdateNode applies fn to a copy of the node with the given id. The node id cannot be
// changed through fn.
func UpdateNode(m *Model, id string, fn func(*Node)) (*Model, error) {
	i := m.NodeIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("update node %q: %w", id, ErrNodeNotFound)
	}
	out := m.Clone()
	fn(&out.Nodes[i])
	out.Nodes[i].ID = id
	return reconciled(out), nil
}

// DeleteNode removes a node together with every edge touching it. Nodes left without
// any relationship become standalone again.
func DeleteNode(m *Model, id string) (*Model, error) {
	i := m.NodeIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("delete node %q: %w", id, ErrNodeNotFound)
	}
	out := m.Clone()
	out.Nodes = append(out.Nodes[:i], out.Nodes[i+1:]...)
	edges := out.Edges[:0]
	for _, e := range out.Edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	out.Edges = edges
	detachIsolated(out)
	return reconciled(out), nil
}

// ToggleOutput flips whether the node is returned by the query.
func ToggleOutput(m *Model, id string) (*Model, error) {
	return UpdateNode(m, id, func(n *Node) { n.IsBold = !n.IsBold })
}

// SetJoin sets the join flag of a node. The flag only survives when a predicate link
// references the node.
func SetJoin(m *Model, id string, join bool) (*Model, error) {
	return UpdateNode(m, id, func(n *Node) { n.IsJoin = join })
}

// AddEdge connects source to target and returns the new model and the edge id. Both
// endpoints stop being standalone nodes.
func AddEdge(m *Model, source, target string, directed bool, data EdgeData) (*Model, string, error) {
	si := m.NodeIndex(source)
	if si < 0 {
		return nil, "", fmt.Errorf("add edge: source %q: %w", source, ErrNodeNotFound)
	}
	ti := m.NodeIndex(target)
	if ti < 0 {
		return nil, "", fmt.Errorf("add edge: target %q: %w", target, ErrNodeNotFound)
	}
	out := m.Clone()
	id := EdgeID(source, target)
	for n := 2; out.EdgeIndex(id) >= 0; n++ {
		id = fmt.Sprintf("%s-%d", EdgeID(source, target), n)
	}
	e := Edge{ID: id, Source: source, Target: target, Data: data}
	e = e.clone()
	if directed {
		e.ArrowHeadType = ArrowClosed
	}
	if e.Data.Predicates == nil {
		e.Data.Predicates = map[string]Predicate{}
	}
	out.Edges = append(out.Edges, e)
	out.Nodes[si].Connected = true
	out.Nodes[ti].Connected = true
	return out, id, nil
}

// UpdateEdge applies fn to a copy of the edge with the given id. Source, target and
// id are preserved.
func UpdateEdge(m *Model, id string, fn func(*Edge)) (*Model, error) {
	i := m.EdgeIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("update edge %q: %w", id, ErrEdgeNotFound)
	}
	out := m.Clone()
	e := out.Edges[i]
	fn(&out.Edges[i])
	out.Edges[i].ID, out.Edges[i].Source, out.Edges[i].Target = e.ID, e.Source, e.Target
	if c := out.Edges[i].Data.Cardinality; c != nil && !ValidCardinalityOperator(c.Op) {
		return nil, fmt.Errorf("update edge %q: cardinality %q: %w", id, c.Op, ErrUnknownOperator)
	}
	return out, nil
}

// DeleteEdge removes an edge. Nodes left without any relationship become standalone.
func DeleteEdge(m *Model, id string) (*Model, error) {
	i := m.EdgeIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("delete edge %q: %w", id, ErrEdgeNotFound)
	}
	out := m.Clone()
	out.Edges = append(out.Edges[:i], out.Edges[i+1:]...)
	detachIsolated(out)
	return out, nil
}

// AddPredicate appends a condition to the predicate on attr of a node or edge,
// creating the predicate when needed.
func AddPredicate(m *Model, parent, attr string, c Condition, color string) (*Model, error) {
	if !ValidOperator(c.Op) {
		return nil, fmt.Errorf("add predicate %s.%s: %q: %w", parent, attr, c.Op, ErrUnknownOperator)
	}
	return editPredicates(m, parent, func(preds map[string]Predicate) {
		p, ok := preds[attr]
		if !ok {
			p = Predicate{Attr: attr, Color: color}
		}
		if color != "" {
			p.Color = color
		}
		p.Parent = parent
		p.Conditions = append(p.Conditions, c)
		preds[attr] = p
	})
}

// UpdatePredicate replaces the predicate on attr. A predicate without data is removed
// together with the links that referenced it.
func UpdatePredicate(m *Model, parent, attr string, p Predicate) (*Model, error) {
	for _, c := range p.Conditions {
		if !ValidOperator(c.Op) {
			return nil, fmt.Errorf("update predicate %s.%s: %q: %w", parent, attr, c.Op, ErrUnknownOperator)
		}
	}
	out, err := editPredicates(m, parent, func(preds map[string]Predicate) {
		if len(p.Conditions) == 0 {
			delete(preds, attr)
			return
		}
		p = p.clone()
		p.Attr, p.Parent = attr, parent
		preds[attr] = p
	})
	if err != nil {
		return nil, err
	}
	if !p.HasData() {
		out.PredicateLinks = dropLinksOn(out.PredicateLinks, Endpoint{NodeID: parent, Attr: attr})
	}
	return reconciled(out), nil
}

// DeletePredicate removes the predicate on attr and every link referencing it.
func DeletePredicate(m *Model, parent, attr string) (*Model, error) {
	out, err := editPredicates(m, parent, func(preds map[string]Predicate) {
		delete(preds, attr)
	})
	if err != nil {
		return nil, err
	}
	out.PredicateLinks = dropLinksOn(out.PredicateLinks, Endpoint{NodeID: parent, Attr: attr})
	return reconciled(out), nil
}

// AddPredicateLink adds a join condition between two predicate attributes. Adding a
// link that already exists, or one that links an attribute to itself, leaves the
// model unchanged.
func AddPredicateLink(m *Model, l PredicateLink) (*Model, error) {
	if err := checkLink(l); err != nil {
		return nil, err
	}
	out := m.Clone()
	if l.From == l.To {
		return out, nil
	}
	for _, existing := range out.PredicateLinks {
		if existing.SameEndpoints(l) {
			return out, nil
		}
	}
	out.PredicateLinks = append(out.PredicateLinks, l)
	return reconciled(out), nil
}

// UpdatePredicateLink replaces the link with the endpoints of old by updated.
func UpdatePredicateLink(m *Model, old, updated PredicateLink) (*Model, error) {
	if err := checkLink(updated); err != nil {
		return nil, err
	}
	out := m.Clone()
	for i, l := range out.PredicateLinks {
		if l.SameEndpoints(old) {
			out.PredicateLinks[i] = updated
		}
	}
	return reconciled(out), nil
}

// DeletePredicateLink removes the link with the same endpoints as l.
func DeletePredicateLink(m *Model, l PredicateLink) *Model {
	out := m.Clone()
	kept := out.PredicateLinks[:0]
	for _, existing := range out.PredicateLinks {
		if !existing.SameEndpoints(l) {
			kept = append(kept, existing)
		}
	}
	out.PredicateLinks = kept
	return reconciled(out)
}

// AddDNFClause appends a clause to a node's DNF filter and returns its id. Missing
// term ids are generated.
func AddDNFClause(m *Model, nodeID string, terms []DNFTerm) (*Model, string, error) {
	id := uuid.NewString()
	out, err := UpdateNode(m, nodeID, func(n *Node) {
		n.DNF = append(n.DNF, DNFClause{ID: id, Terms: withTermIDs(terms)})
	})
	if err != nil {
		return nil, "", err
	}
	return out, id, nil
}

// UpdateDNFClause replaces the terms of a clause.
func UpdateDNFClause(m *Model, nodeID, clauseID string, terms []DNFTerm) (*Model, error) {
	found := false
	out, err := UpdateNode(m, nodeID, func(n *Node) {
		for i := range n.DNF {
			if n.DNF[i].ID == clauseID {
				n.DNF[i].Terms = withTermIDs(terms)
				found = true
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("dnf clause %q on node %q: %w", clauseID, nodeID, ErrNodeNotFound)
	}
	return out, nil
}

// DeleteDNFClause removes a clause from a node's DNF filter.
func DeleteDNFClause(m *Model, nodeID, clauseID string) (*Model, error) {
	return UpdateNode(m, nodeID, func(n *Node) {
		kept := n.DNF[:0]
		for _, c := range n.DNF {
			if c.ID != clauseID {
				kept = append(kept, c)
			}
		}
		n.DNF = kept
	})
}

func withTermIDs(terms []DNFTerm) []DNFTerm {
	out := make([]DNFTerm, len(terms))
	for i, t := range terms {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		out[i] = t
	}
	return out
}

// editPredicates runs fn against the predicate map of the node or edge named parent.
// The result is not yet reconciled.
func editPredicates(m *Model, parent string, fn func(map[string]Predicate)) (*Model, error) {
	out := m.Clone()
	if i := out.NodeIndex(parent); i >= 0 {
		if out.Nodes[i].Predicates == nil {
			out.Nodes[i].Predicates = map[string]Predicate{}
		}
		fn(out.Nodes[i].Predicates)
		return reconciled(out), nil
	}
	if i := out.EdgeIndex(parent); i >= 0 {
		if out.Edges[i].Data.Predicates == nil {
			out.Edges[i].Data.Predicates = map[string]Predicate{}
		}
		fn(out.Edges[i].Data.Predicates)
		return out, nil
	}
	return nil, fmt.Errorf("predicate parent %q: %w", parent, ErrNodeNotFound)
}

func dropLinksOn(links []PredicateLink, ep Endpoint) []PredicateLink {
	kept := make([]PredicateLink, 0, len(links))
	for _, l := range links {
		if l.From != ep && l.To != ep {
			kept = append(kept, l)
		}
	}
	return kept
}

func checkLink(l PredicateLink) error {
	if l.From.NodeID == "" || l.To.NodeID == "" || l.From.Attr == "" || l.To.Attr == "" {
		return fmt.Errorf("link %v -> %v: %w", l.From, l.To, ErrInvalidLink)
	}
	if l.JoinType == ThetaJoin && l.Operator != "" && !ValidOperator(l.Operator) {
		return fmt.Errorf("link %v -> %v: %q: %w", l.From, l.To, l.Operator, ErrUnknownOperator)
	}
	return nil
}

// detachIsolated marks nodes without any incident edge as standalone.
func detachIsolated(m *Model) {
	incident := make(map[string]bool)
	for _, e := range m.Edges {
		incident[e.Source] = true
		incident[e.Target] = true
	}
	for i := range m.Nodes {
		if !incident[m.Nodes[i].ID] {
			m.Nodes[i].Connected = false
		}
	}
}
