package parser

import (
	"fmt"
	"slices"

	"github.com/saulfrancisco-ruizacevedo/go-neosierra/graph"
)

// Placement of nodes that have no previous position.
const (
	originX   = 500.0
	originY   = 200.0
	rowStep   = 120.0
	rowMargin = 100.0
	colStep   = 200.0
)

type resolver struct {
	text   string
	st     *statement
	prev   *graph.Model
	schema *graph.Schema
	ids    *graph.IDAllocator

	allocated []string

	labels map[string]string
	offset map[string]int
	order  []string

	idOf    map[string]string
	prior   map[string]graph.Node
	nodes   map[string]*NodeFragment
	rels    map[string]int
	edges   []EdgeFragment
	priorEd []*graph.Edge
	links   []graph.PredicateLink
	blocked map[string]bool
}

func (r *resolver) fail(offset int, format string, args ...any) error {
	return &UnsupportedQueryError{Text: r.text, Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

func (r *resolver) rollback() {
	for _, id := range r.allocated {
		r.ids.Release(id)
	}
	r.allocated = nil
}

func (r *resolver) resolve() (*Fragments, error) {
	steps := []func() error{
		r.collectNodes,
		r.identify,
		r.collectEdges,
		r.collectTerms,
		r.collectCardinality,
		r.flags,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	f := &Fragments{Edges: r.edges, Links: r.links, Allocated: r.allocated}
	for _, n := range r.prev.Nodes {
		for _, alias := range r.order {
			if r.nodes[alias].Reused && r.idOf[alias] == n.ID {
				f.Nodes = append(f.Nodes, *r.nodes[alias])
			}
		}
	}
	for _, alias := range r.order {
		if !r.nodes[alias].Reused {
			f.Nodes = append(f.Nodes, *r.nodes[alias])
		}
	}
	r.place(f)
	return f, nil
}

// collectNodes gathers node aliases in order of first appearance and their labels.
func (r *resolver) collectNodes() error {
	r.labels = make(map[string]string)
	r.offset = make(map[string]int)
	for _, ref := range r.st.refs {
		if _, seen := r.offset[ref.alias]; !seen {
			r.offset[ref.alias] = ref.offset
			r.order = append(r.order, ref.alias)
		}
		if ref.label == "" {
			continue
		}
		if l, ok := r.labels[ref.alias]; ok && l != ref.label {
			return r.fail(ref.offset, "%s is labelled both %s and %s", ref.alias, l, ref.label)
		}
		r.labels[ref.alias] = ref.label
	}

	for _, alias := range r.order {
		label, ok := r.labels[alias]
		if !ok {
			return r.fail(r.offset[alias], "node %s has no label", alias)
		}
		if r.schema != nil && !r.schema.HasLabel(label) {
			return r.fail(r.offset[alias], "unknown label %s", label)
		}
	}

	r.rels = make(map[string]int)
	for i, rel := range r.st.rels {
		if rel.alias == "" {
			continue
		}
		if _, ok := r.labels[rel.alias]; ok {
			return r.fail(rel.offset, "%s names both a node and a relationship", rel.alias)
		}
		if _, ok := r.rels[rel.alias]; ok {
			return r.fail(rel.offset, "relationship alias %s is used twice", rel.alias)
		}
		r.rels[rel.alias] = i
	}

	if j := r.st.joinNode; j != "" {
		if _, ok := r.labels[j]; !ok {
			return r.fail(len(r.text), "join node %s is not matched", j)
		}
		if _, ok := r.labels[r.st.joinOther]; ok {
			return r.fail(len(r.text), "neighbour alias %s is already matched", r.st.joinOther)
		}
	}
	return nil
}

// identify reuses previous node ids: first by alias, then by the ordinal the alias
// encodes. Labels must agree in both cases. Remaining nodes get new ids.
func (r *resolver) identify() error {
	r.idOf = make(map[string]string)
	r.prior = make(map[string]graph.Node)
	claimed := make(map[string]bool)

	claim := func(alias string, n graph.Node) {
		r.idOf[alias] = n.ID
		r.prior[alias] = n
		claimed[n.ID] = true
	}

	for _, alias := range r.order {
		for _, n := range r.prev.Nodes {
			if !claimed[n.ID] && n.Rep == alias && n.Label == r.labels[alias] {
				claim(alias, n)
				break
			}
		}
	}
	for _, alias := range r.order {
		if _, ok := r.idOf[alias]; ok {
			continue
		}
		ord, ok := graph.AliasOrdinal(alias)
		if !ok {
			continue
		}
		for i, n := range r.prev.Nodes {
			if !claimed[n.ID] && graph.NodeOrdinal(n, i) == ord && n.Label == r.labels[alias] {
				claim(alias, n)
				break
			}
		}
	}

	r.nodes = make(map[string]*NodeFragment, len(r.order))
	for _, alias := range r.order {
		nf := &NodeFragment{Node: graph.Node{Label: r.labels[alias], Rep: alias}}
		if prior, ok := r.prior[alias]; ok {
			nf.Reused = true
			nf.Node.ID = prior.ID
			nf.Node.Position = prior.Position
			nf.Node.DNF = prior.DNF
			nf.Node.Color = prior.Color
			nf.Node.Expanded = prior.Expanded
		} else {
			id := r.ids.Allocate()
			r.allocated = append(r.allocated, id)
			r.idOf[alias] = id
			nf.Node.ID = id
		}
		r.nodes[alias] = nf
	}
	return nil
}

func (r *resolver) collectEdges() error {
	claimed := make(map[int]bool)
	for _, rel := range r.st.rels {
		src, dst := r.labels[rel.src.alias], r.labels[rel.dst.alias]
		if r.schema != nil && rel.relType != "" {
			if _, ok := r.schema.RelationshipProps(src, dst, rel.relType); !ok {
				return r.fail(rel.offset, "unknown relationship %s between %s and %s", rel.relType, src, dst)
			}
		}

		ef := EdgeFragment{
			Source:   r.idOf[rel.src.alias],
			Target:   r.idOf[rel.dst.alias],
			Directed: rel.directed,
			Data:     graph.EdgeData{RelType: rel.relType, Rep: rel.alias},
		}
		var prior *graph.Edge
		for i := range r.prev.Edges {
			e := &r.prev.Edges[i]
			if !claimed[i] && e.Source == ef.Source && e.Target == ef.Target &&
				e.Data.RelType == rel.relType && e.Directed() == rel.directed {
				claimed[i] = true
				prior = e
				ef.Data.IsOptional = e.Data.IsOptional
				// The join form renders no count stage.
				if c := e.Data.Cardinality; c != nil && r.st.joinNode != "" {
					kept := *c
					ef.Data.Cardinality = &kept
				}
				break
			}
		}
		r.edges = append(r.edges, ef)
		r.priorEd = append(r.priorEd, prior)
	}
	return nil
}

func (r *resolver) collectTerms() error {
	for _, tm := range r.st.terms {
		if i, ok := r.rels[tm.left.alias]; ok {
			if tm.right != nil {
				return r.fail(tm.left.offset, "relationship properties cannot be linked")
			}
			if err := r.relTerm(i, tm); err != nil {
				return err
			}
			continue
		}
		nf, ok := r.nodes[tm.left.alias]
		if !ok {
			return r.fail(tm.left.offset, "unknown alias %s", tm.left.alias)
		}
		if err := r.checkProperty(nf.Node.Label, tm.left); err != nil {
			return err
		}
		if tm.right != nil {
			if err := r.linkTerm(tm); err != nil {
				return err
			}
			continue
		}
		nf.Predicates = append(nf.Predicates, PredicateFragment{
			Attr:      tm.left.attr,
			Condition: graph.Condition{Op: tm.op, Value: tm.value},
			Color:     r.nodeColor(tm.left.alias, tm.left.attr),
		})
	}

	for _, l := range r.links {
		for _, ep := range []graph.Endpoint{l.From, l.To} {
			if !r.hasData(ep) {
				return r.fail(len(r.text), "linked property %s needs a value condition", r.describe(ep))
			}
		}
	}
	return nil
}

func (r *resolver) checkProperty(label string, o operand) error {
	if r.schema != nil && !r.schema.HasProperty(label, o.attr) {
		return r.fail(o.offset, "unknown property %s of %s", o.attr, label)
	}
	return nil
}

func (r *resolver) nodeColor(alias, attr string) string {
	if r.schema != nil {
		if c := graph.ColorForRank(r.schema.PropertyRank(r.labels[alias], attr)); c != "" {
			return c
		}
	}
	if p, ok := r.prior[alias].Predicate(attr); ok {
		return p.Color
	}
	return ""
}

func (r *resolver) relTerm(i int, tm term) error {
	rel, ef, prior := r.st.rels[i], &r.edges[i], r.priorEd[i]

	var props []string
	if r.schema != nil {
		props, _ = r.schema.RelationshipProps(r.labels[rel.src.alias], r.labels[rel.dst.alias], rel.relType)
		if !slices.Contains(props, tm.left.attr) {
			return r.fail(tm.left.offset, "unknown property %s of %s", tm.left.attr, rel.relType)
		}
	}

	if prior != nil {
		for _, cp := range prior.Data.CardinalityProps {
			if cp.Key == tm.left.attr {
				ef.Data.CardinalityProps = append(ef.Data.CardinalityProps, graph.CardinalityProp{
					Key: cp.Key, Value: tm.value, Operator: tm.op, Color: cp.Color,
				})
				return nil
			}
		}
	}

	color := graph.ColorForRank(slices.Index(props, tm.left.attr))
	if color == "" && prior != nil {
		color = prior.Data.Predicates[tm.left.attr].Color
	}
	ef.Predicates = append(ef.Predicates, PredicateFragment{
		Attr:      tm.left.attr,
		Condition: graph.Condition{Op: tm.op, Value: tm.value},
		Color:     color,
	})
	return nil
}

func (r *resolver) linkTerm(tm term) error {
	right := *tm.right
	to, ok := r.nodes[right.alias]
	if !ok {
		if _, rel := r.rels[right.alias]; rel {
			return r.fail(right.offset, "relationship properties cannot be linked")
		}
		return r.fail(right.offset, "unknown alias %s", right.alias)
	}
	if err := r.checkProperty(to.Node.Label, right); err != nil {
		return err
	}

	l := graph.PredicateLink{
		From: graph.Endpoint{NodeID: r.idOf[tm.left.alias], Attr: tm.left.attr},
		To:   graph.Endpoint{NodeID: r.idOf[right.alias], Attr: right.attr},
	}
	if l.From == l.To {
		return r.fail(tm.left.offset, "%s.%s is compared with itself", tm.left.alias, tm.left.attr)
	}

	l.JoinType = graph.EquiJoin
	for _, old := range r.prev.PredicateLinks {
		if old.SameEndpoints(l) {
			l.JoinType, l.Operator = old.JoinType, old.Operator
		}
	}
	if tm.op != graph.OpEq {
		l.JoinType, l.Operator = graph.ThetaJoin, tm.op
	} else if l.JoinType == graph.ThetaJoin {
		l.Operator = graph.OpEq
	}

	for _, existing := range r.links {
		if existing.SameEndpoints(l) {
			return nil
		}
	}
	r.links = append(r.links, l)
	return nil
}

func (r *resolver) hasData(ep graph.Endpoint) bool {
	for _, nf := range r.nodes {
		if nf.Node.ID != ep.NodeID {
			continue
		}
		for _, p := range nf.Predicates {
			if p.Attr == ep.Attr && !p.Condition.IsEmpty() {
				return true
			}
		}
	}
	return false
}

func (r *resolver) describe(ep graph.Endpoint) string {
	for alias, id := range r.idOf {
		if id == ep.NodeID {
			return alias + "." + ep.Attr
		}
	}
	return ep.NodeID + "." + ep.Attr
}

// collectCardinality maps each count stage back onto the edge between the grouped and
// the counted node. Counting the source encodes a minimum, counting the destination a
// maximum; the counted node is dropped from the output.
func (r *resolver) collectCardinality() error {
	r.blocked = make(map[string]bool)
	done := make(map[int]bool)

	for k, agg := range r.st.aggregates {
		th := r.st.thresholds[k]
		if _, ok := r.nodes[agg.group]; !ok {
			return r.fail(agg.offset, "unknown alias %s", agg.group)
		}
		if _, ok := r.nodes[agg.counted]; !ok {
			return r.fail(agg.offset, "unknown alias %s", agg.counted)
		}
		if !graph.ValidCardinalityOperator(th.op) {
			return r.fail(th.offset, "operator %s cannot bound a count", th.op)
		}

		edge, minimum := -1, false
		for i, rel := range r.st.rels {
			if done[i] {
				continue
			}
			if rel.src.alias == agg.counted && rel.dst.alias == agg.group {
				edge, minimum = i, true
				break
			}
			if rel.src.alias == agg.group && rel.dst.alias == agg.counted {
				edge = i
				break
			}
		}
		if edge < 0 {
			return r.fail(agg.offset, "no relationship between %s and %s", agg.group, agg.counted)
		}
		done[edge] = true

		c := &graph.Cardinality{Min: 1, Max: 1, Op: th.op}
		switch {
		case th.op == graph.OpRange:
			c.Min, c.Max = th.bound, th.upper
		case minimum:
			c.Min = th.bound
		default:
			c.Max = th.bound
		}
		if c.IsTrivial() || minimum != (c.Min != 1) {
			return r.fail(th.offset, "count of %s cannot express this bound", agg.counted)
		}
		r.edges[edge].Data.Cardinality = c
		r.blocked[agg.counted] = true
	}
	return nil
}

func (r *resolver) flags() error {
	inEdge := make(map[string]bool)
	for _, rel := range r.st.rels {
		inEdge[rel.src.alias] = true
		inEdge[rel.dst.alias] = true
	}
	lone := make(map[string]bool)
	for _, ref := range r.st.lone {
		lone[ref.alias] = true
	}

	returned := make(map[string]bool)
	for _, alias := range r.st.returns {
		if _, ok := r.nodes[alias]; !ok {
			return r.fail(len(r.text), "returned alias %s is not a matched node", alias)
		}
		returned[alias] = true
	}

	for alias, nf := range r.nodes {
		prior, reused := r.prior[alias]
		nf.Node.Connected = inEdge[alias] && !lone[alias]
		switch {
		case r.st.joinNode != "":
			nf.Node.IsBold = alias == r.st.joinNode
			if reused {
				nf.Node.IsBold = prior.IsBold
			}
			nf.Node.IsJoin = alias == r.st.joinNode
		default:
			nf.Node.IsBold = returned[alias] || (r.blocked[alias] && reused && prior.IsBold)
		}
	}

	if j := r.st.joinNode; j != "" {
		linked := false
		for _, l := range r.links {
			if l.Touches(r.idOf[j]) {
				linked = true
			}
		}
		if !linked {
			return r.fail(len(r.text), "join node %s must take part in a property comparison", j)
		}
	}
	return nil
}

// place positions new nodes. Unconnected ones go to the first free row; targets of a
// relationship go one column right of their source.
func (r *resolver) place(f *Fragments) {
	positions := make(map[string]graph.Position)
	for _, n := range r.prev.Nodes {
		positions[n.ID] = n.Position
	}
	free := func(y float64) bool {
		for _, p := range positions {
			if p.Y > y-rowMargin && p.Y < y+rowMargin {
				return false
			}
		}
		return true
	}

	index := make(map[string]int, len(f.Nodes))
	for i := range f.Nodes {
		n := &f.Nodes[i]
		index[n.Node.ID] = i
		if n.Reused {
			continue
		}
		y := originY
		for !free(y) {
			y += rowStep
		}
		n.Node.Position = graph.Position{X: originX, Y: y}
		positions[n.Node.ID] = n.Node.Position
	}

	for _, e := range f.Edges {
		t := &f.Nodes[index[e.Target]]
		if t.Reused {
			continue
		}
		src := positions[e.Source]
		t.Node.Position = graph.Position{X: src.X + colStep, Y: src.Y}
		positions[e.Target] = t.Node.Position
	}
}

