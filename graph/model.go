// Package graph holds the canonical in-memory representation of a visual graph query
// together with the pure transitions that mutate it.
//
// A Model is never changed in place by this package: every transition clones the
// model it is given and returns the new value. Transitions that touch predicates or
// predicate links finish by running Reconcile so that the returned model always
// satisfies the link and join invariants.
package graph

import "fmt"

// ArrowClosed is the arrow head type the editor assigns to directed edges.
const ArrowClosed = "arrowclosed"

// Position is the on-screen location of a node. The core never interprets it; it is
// carried through edits and reused when a parsed query re-identifies a node.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Condition is a single (operator, value) pair of a predicate.
type Condition struct {
	// Op is one of the operator tokens accepted by ValidOperator.
	Op string `json:"op" yaml:"op"`
	// Value is the literal compared against. Strings are quoted when compiled,
	// every other type is emitted verbatim.
	Value any `json:"value" yaml:"value"`
}

// IsEmpty reports whether the condition carries no usable value.
func (c Condition) IsEmpty() bool {
	if c.Value == nil {
		return true
	}
	s, ok := c.Value.(string)
	return ok && s == ""
}

// Predicate is the list of conditions attached to a single property attribute of a
// node or relationship. Conditions are ANDed together when compiled.
type Predicate struct {
	Attr       string      `json:"attr" yaml:"attr"`
	Conditions []Condition `json:"data" yaml:"data"`
	Color      string      `json:"color,omitempty" yaml:"color,omitempty"`
	// Parent is the id of the owning node or edge. It is recomputed from context and
	// never persisted.
	Parent string `json:"-" yaml:"-"`
}

// HasData reports whether at least one condition carries a value.
func (p Predicate) HasData() bool {
	for _, c := range p.Conditions {
		if !c.IsEmpty() {
			return true
		}
	}
	return false
}

func (p Predicate) clone() Predicate {
	out := p
	out.Conditions = append([]Condition(nil), p.Conditions...)
	return out
}

// DNFTerm is one attribute/operator/value triple inside a DNF clause.
type DNFTerm struct {
	ID    string `json:"id" yaml:"id"`
	Attr  string `json:"attr" yaml:"attr"`
	Op    string `json:"op" yaml:"op"`
	Value any    `json:"value" yaml:"value"`
}

// DNFClause is a conjunction of terms. The clauses of a node are alternatives.
type DNFClause struct {
	ID    string    `json:"id" yaml:"id"`
	Terms []DNFTerm `json:"predicates" yaml:"predicates"`
}

// Node is an entity pattern of the visual query.
type Node struct {
	// ID is unique within the model and stable across edits.
	ID string `json:"id" yaml:"id"`
	// Label is the schema entity label the node matches.
	Label    string   `json:"label" yaml:"label"`
	Position Position `json:"position" yaml:"position"`
	// Connected is true when the node was reached via a relationship from another node
	// rather than being drawn standalone.
	Connected bool `json:"connected" yaml:"connected"`
	// IsBold marks the node as a query output.
	IsBold bool `json:"isBold" yaml:"isBold"`
	// IsJoin requests an outer-join fan-out collecting every neighbour of the node.
	IsJoin     bool                 `json:"isJoin" yaml:"isJoin"`
	Predicates map[string]Predicate `json:"predicates,omitempty" yaml:"predicates,omitempty"`
	DNF        []DNFClause          `json:"dnf,omitempty" yaml:"dnf,omitempty"`
	// Rep is the alias used for the node in generated query text.
	Rep      string `json:"rep,omitempty" yaml:"rep,omitempty"`
	Color    string `json:"color,omitempty" yaml:"color,omitempty"`
	Expanded bool   `json:"expanded,omitempty" yaml:"expanded,omitempty"`
}

// Predicate returns the predicate on attr, if any.
func (n Node) Predicate(attr string) (Predicate, bool) {
	p, ok := n.Predicates[attr]
	return p, ok
}

func (n Node) clone() Node {
	out := n
	out.Predicates = clonePredicates(n.Predicates)
	if n.DNF != nil {
		out.DNF = make([]DNFClause, len(n.DNF))
		for i, c := range n.DNF {
			out.DNF[i] = DNFClause{ID: c.ID, Terms: append([]DNFTerm(nil), c.Terms...)}
		}
	}
	return out
}

// Cardinality bounds how many related records must exist across a relationship.
type Cardinality struct {
	Min int    `json:"min" yaml:"min"`
	Max int    `json:"max" yaml:"max"`
	Op  string `json:"op,omitempty" yaml:"op,omitempty"`
}

// IsTrivial reports whether the constraint is the default one-to-one bound.
func (c Cardinality) IsTrivial() bool {
	return c.Min == 1 && c.Max == 1
}

// Operator returns the comparison operator, defaulting to "=".
func (c Cardinality) Operator() string {
	if c.Op == "" {
		return OpEq
	}
	return c.Op
}

// CardinalityProp is a relationship property constraint displayed together with the
// cardinality of an edge.
type CardinalityProp struct {
	Key      string `json:"key" yaml:"key"`
	Value    any    `json:"value" yaml:"value"`
	Operator string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Color    string `json:"color,omitempty" yaml:"color,omitempty"`
}

// EdgeData is the relationship-specific payload of an edge.
type EdgeData struct {
	// RelType is the chosen relationship type; empty means any type.
	RelType          string               `json:"rs" yaml:"rs"`
	Rep              string               `json:"rep,omitempty" yaml:"rep,omitempty"`
	Predicates       map[string]Predicate `json:"predicates,omitempty" yaml:"predicates,omitempty"`
	Cardinality      *Cardinality         `json:"cardinality,omitempty" yaml:"cardinality,omitempty"`
	IsOptional       bool                 `json:"isOptional,omitempty" yaml:"isOptional,omitempty"`
	CardinalityProps []CardinalityProp    `json:"cardinalityProps,omitempty" yaml:"cardinalityProps,omitempty"`
}

// Edge is a relationship pattern between two nodes.
type Edge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	// ArrowHeadType is non-empty for directed edges.
	ArrowHeadType string   `json:"arrowHeadType" yaml:"arrowHeadType"`
	Data          EdgeData `json:"data" yaml:"data"`
}

// Directed reports whether the edge has an arrow head.
func (e Edge) Directed() bool {
	return e.ArrowHeadType != ""
}

func (e Edge) clone() Edge {
	out := e
	out.Data.Predicates = clonePredicates(e.Data.Predicates)
	if e.Data.Cardinality != nil {
		c := *e.Data.Cardinality
		out.Data.Cardinality = &c
	}
	out.Data.CardinalityProps = append([]CardinalityProp(nil), e.Data.CardinalityProps...)
	return out
}

// EdgeID returns the id the editor assigns to an edge between source and target.
func EdgeID(source, target string) string {
	return fmt.Sprintf("e%s-%s", source, target)
}

// JoinType qualifies how a predicate link compares its two attributes.
type JoinType string

const (
	EquiJoin  JoinType = "Equi Join"
	ThetaJoin JoinType = "Theta Join"
)

// Endpoint names one attribute of one node.
type Endpoint struct {
	NodeID string `json:"nodeId" yaml:"nodeId"`
	Attr   string `json:"attr" yaml:"attr"`
}

// PredicateLink is a join condition between two predicate attributes, independent of
// the drawn adjacency.
type PredicateLink struct {
	From     Endpoint `json:"from" yaml:"from"`
	To       Endpoint `json:"to" yaml:"to"`
	JoinType JoinType `json:"joinType,omitempty" yaml:"joinType,omitempty"`
	// Operator is only consulted for theta joins.
	Operator string `json:"operator,omitempty" yaml:"operator,omitempty"`
}

// SameEndpoints reports whether both links connect the same attributes in the same
// direction.
func (l PredicateLink) SameEndpoints(o PredicateLink) bool {
	return l.From == o.From && l.To == o.To
}

// Touches reports whether the link references the node at either end.
func (l PredicateLink) Touches(nodeID string) bool {
	return l.From.NodeID == nodeID || l.To.NodeID == nodeID
}

// ComparisonOperator is the operator the link renders with.
func (l PredicateLink) ComparisonOperator() string {
	if l.JoinType == ThetaJoin && l.Operator != "" {
		return l.Operator
	}
	return OpEq
}

// Model is the whole visual query.
type Model struct {
	Nodes          []Node          `json:"nodes" yaml:"nodes"`
	Edges          []Edge          `json:"edges" yaml:"edges"`
	PredicateLinks []PredicateLink `json:"predicateLinks" yaml:"predicateLinks"`
	// PredDisplay is the editor's predicate display filter. It is carried along and
	// does not influence compilation.
	PredDisplay string `json:"predDisplayStatus,omitempty" yaml:"predDisplayStatus,omitempty"`
}

// New returns an empty model.
func New() *Model {
	return &Model{
		Nodes:          []Node{},
		Edges:          []Edge{},
		PredicateLinks: []PredicateLink{},
	}
}

// Clone returns a deep copy of the model. A nil model clones to an empty one.
func (m *Model) Clone() *Model {
	out := New()
	if m == nil {
		return out
	}
	for _, n := range m.Nodes {
		out.Nodes = append(out.Nodes, n.clone())
	}
	for _, e := range m.Edges {
		out.Edges = append(out.Edges, e.clone())
	}
	out.PredicateLinks = append(out.PredicateLinks, m.PredicateLinks...)
	out.PredDisplay = m.PredDisplay
	return out
}

// NodeIndex returns the index of the node with the given id, or -1.
func (m *Model) NodeIndex(id string) int {
	for i := range m.Nodes {
		if m.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Node returns the node with the given id.
func (m *Model) Node(id string) (Node, bool) {
	if i := m.NodeIndex(id); i >= 0 {
		return m.Nodes[i], true
	}
	return Node{}, false
}

// EdgeIndex returns the index of the edge with the given id, or -1.
func (m *Model) EdgeIndex(id string) int {
	for i := range m.Edges {
		if m.Edges[i].ID == id {
			return i
		}
	}
	return -1
}

// Validate checks the structural preconditions the compiler relies on: unique node
// and edge ids and edges whose endpoints resolve to nodes of the model.
func (m *Model) Validate() error {
	seen := make(map[string]bool, len(m.Nodes))
	for _, n := range m.Nodes {
		if seen[n.ID] {
			return fmt.Errorf("node %q: %w", n.ID, ErrDuplicateID)
		}
		seen[n.ID] = true
	}
	edges := make(map[string]bool, len(m.Edges))
	for _, e := range m.Edges {
		if edges[e.ID] {
			return fmt.Errorf("edge %q: %w", e.ID, ErrDuplicateID)
		}
		edges[e.ID] = true
		if !seen[e.Source] || !seen[e.Target] {
			return fmt.Errorf("edge %q (%s -> %s): %w", e.ID, e.Source, e.Target, ErrNodeNotFound)
		}
	}
	return nil
}

func clonePredicates(in map[string]Predicate) map[string]Predicate {
	if in == nil {
		return nil
	}
	out := make(map[string]Predicate, len(in))
	for k, p := range in {
		out[k] = p.clone()
	}
	return out
}
