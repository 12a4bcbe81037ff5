// Package compiler renders a graph.Model into Cypher query text.
//
// The output is deterministic: the same model always yields the same text. The
// dialect is the subset understood by package parser: MATCH, WHERE, WITH,
// OPTIONAL MATCH and RETURN over labelled node patterns and simple relationship
// patterns.
package compiler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neosierra/graph"
)

var (
	// ErrDanglingEdge is returned when an edge endpoint does not resolve to a node of
	// the model. Callers must not produce such models; it signals a broken invariant.
	ErrDanglingEdge = errors.New("edge endpoint not in model")
	// ErrMultipleJoins is returned when more than one node requests a join fan-out.
	// A query supports a single optional-match branch point.
	ErrMultipleJoins = errors.New("more than one join node")
)

// Names the compiler introduces itself. Node aliases never take these values.
const (
	countAlias  = "relCount"
	otherAlias  = "o"
	othersAlias = "others"
)

// Result is the outcome of a successful compilation.
type Result struct {
	// Query is the generated text. It is empty for an empty model.
	Query string
	// Model is the reconciled input with every node alias assigned. Storing it keeps
	// the aliases, and therefore the text, stable across later edits.
	Model *graph.Model
}

// Compile renders the model. The input is not modified.
func Compile(m *graph.Model) (*Result, error) {
	out := m.Clone()
	if len(out.Nodes) == 0 {
		return &Result{Model: out}, nil
	}

	byID := make(map[string]int, len(out.Nodes))
	for i, n := range out.Nodes {
		byID[n.ID] = i
	}
	for _, e := range out.Edges {
		if _, ok := byID[e.Source]; !ok {
			return nil, fmt.Errorf("edge %q source %q: %w", e.ID, e.Source, ErrDanglingEdge)
		}
		if _, ok := byID[e.Target]; !ok {
			return nil, fmt.Errorf("edge %q target %q: %w", e.ID, e.Target, ErrDanglingEdge)
		}
	}

	out.Nodes, out.PredicateLinks = graph.Reconcile(out.Nodes, out.PredicateLinks)

	var joins []string
	for _, n := range out.Nodes {
		if n.IsJoin {
			joins = append(joins, n.ID)
		}
	}
	if len(joins) > 1 {
		return nil, fmt.Errorf("nodes %s: %w", strings.Join(joins, ", "), ErrMultipleJoins)
	}

	assignAliases(out)

	b := &builder{model: out, byID: byID}
	b.build()
	return &Result{Query: b.render(), Model: out}, nil
}

// assignAliases gives every node a unique alias. Existing aliases are kept when they
// are valid identifiers that no other node or compiler-owned name claims first; the
// rest are derived from the node ordinal, skipping names already in use.
func assignAliases(m *graph.Model) {
	reserved := map[string]bool{countAlias: true, otherAlias: true, othersAlias: true}
	for i := range m.Edges {
		reserved[graph.RelAlias(i)] = true
	}

	taken := make(map[string]bool, len(m.Nodes))
	keep := make([]bool, len(m.Nodes))
	for i, n := range m.Nodes {
		if graph.IsIdentifier(n.Rep) && !reserved[n.Rep] && !taken[n.Rep] {
			taken[n.Rep] = true
			keep[i] = true
		}
	}
	for i := range m.Nodes {
		if keep[i] {
			continue
		}
		ord := graph.NodeOrdinal(m.Nodes[i], i)
		alias := graph.Alias(ord)
		for taken[alias] || reserved[alias] {
			ord++
			alias = graph.Alias(ord)
		}
		taken[alias] = true
		m.Nodes[i].Rep = alias
	}
}

type builder struct {
	model *graph.Model
	byID  map[string]int

	lone       []string
	patterns   []string
	predicates []string
	with       []string
	thresholds []string
	blocked    map[string]bool
}

func (b *builder) node(id string) graph.Node {
	return b.model.Nodes[b.byID[id]]
}

func (b *builder) build() {
	b.blocked = make(map[string]bool)

	incident := make(map[string]bool)
	for _, e := range b.model.Edges {
		incident[e.Source] = true
		incident[e.Target] = true
	}
	for _, n := range b.model.Nodes {
		if !n.Connected || !incident[n.ID] {
			b.lone = append(b.lone, nodePattern(n))
		}
		b.predicates = append(b.predicates, predicateClauses(n.Rep, n.Predicates)...)
	}

	for i := range b.model.Edges {
		b.edge(i)
	}

	for _, l := range b.model.PredicateLinks {
		from, to := b.node(l.From.NodeID), b.node(l.To.NodeID)
		if from.Rep == "" || to.Rep == "" {
			continue
		}
		b.predicates = append(b.predicates, fmt.Sprintf("%s.%s %s %s.%s",
			from.Rep, Name(l.From.Attr), l.ComparisonOperator(), to.Rep, Name(l.To.Attr)))
	}

	b.predicates = dedupe(b.predicates)
}

func (b *builder) edge(i int) {
	e := &b.model.Edges[i]
	src, dst := b.node(e.Source), b.node(e.Target)

	if c := e.Data.Cardinality; c != nil && !c.IsTrivial() {
		if c.Min != 1 {
			b.with = append(b.with, dst.Rep, fmt.Sprintf("count(%s) AS %s", src.Rep, countAlias))
			b.thresholds = append(b.thresholds, threshold(*c, c.Min))
			b.blocked[src.Rep] = true
		} else {
			b.with = append(b.with, src.Rep, fmt.Sprintf("count(%s) AS %s", dst.Rep, countAlias))
			b.thresholds = append(b.thresholds, threshold(*c, c.Max))
			b.blocked[dst.Rep] = true
		}
	}

	switch {
	case e.Directed() && e.Data.RelType != "":
		rel := graph.RelAlias(i)
		e.Data.Rep = rel
		b.patterns = append(b.patterns, fmt.Sprintf("%s-[%s:%s]->%s",
			nodePattern(src), rel, Name(e.Data.RelType), nodePattern(dst)))
		b.predicates = append(b.predicates, predicateClauses(rel, e.Data.Predicates)...)
		for _, p := range e.Data.CardinalityProps {
			if p.Key == "" || (graph.Condition{Value: p.Value}).IsEmpty() {
				continue
			}
			op := p.Operator
			if op == "" {
				op = graph.OpEq
			}
			b.predicates = append(b.predicates, fmt.Sprintf("%s.%s %s %s", rel, Name(p.Key), op, Literal(p.Value)))
		}
	case e.Directed():
		b.patterns = append(b.patterns, nodePattern(src)+"-->"+nodePattern(dst))
	default:
		b.patterns = append(b.patterns, nodePattern(src)+"--"+nodePattern(dst))
	}
}

func (b *builder) render() string {
	terms := append(append([]string{}, b.lone...), b.patterns...)
	lines := []string{"MATCH " + strings.Join(terms, ", ")}
	if len(b.predicates) > 0 {
		lines = append(lines, "WHERE "+strings.Join(b.predicates, " AND "))
	}

	for _, n := range b.model.Nodes {
		if n.IsJoin {
			lines = append(lines,
				fmt.Sprintf("OPTIONAL MATCH (%s)--(%s)", n.Rep, otherAlias),
				fmt.Sprintf("RETURN %s, COLLECT(%s) AS %s", n.Rep, otherAlias, othersAlias))
			return strings.Join(lines, "\n")
		}
	}

	if len(b.with) > 0 {
		lines = append(lines,
			"WITH "+strings.Join(b.with, ", "),
			"WHERE "+strings.Join(b.thresholds, ", "))
	}

	var returns []string
	for _, n := range b.model.Nodes {
		if n.IsBold && !b.blocked[n.Rep] {
			returns = append(returns, n.Rep)
		}
	}
	if len(returns) == 0 {
		returns = []string{"*"}
	}
	lines = append(lines, "RETURN "+strings.Join(returns, ", "))
	return strings.Join(lines, "\n")
}

func nodePattern(n graph.Node) string {
	return fmt.Sprintf("(%s:%s)", n.Rep, Name(n.Label))
}

// predicateClauses renders one clause per attribute, in lexical attribute order.
// Conditions of an attribute are ANDed; empty conditions are skipped.
func predicateClauses(alias string, preds map[string]graph.Predicate) []string {
	attrs := make([]string, 0, len(preds))
	for attr := range preds {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	var out []string
	for _, attr := range attrs {
		var parts []string
		for _, c := range preds[attr].Conditions {
			if c.IsEmpty() {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s.%s %s %s", alias, Name(attr), c.Op, Literal(c.Value)))
		}
		if len(parts) > 0 {
			out = append(out, strings.Join(parts, " AND "))
		}
	}
	return out
}

func threshold(c graph.Cardinality, bound int) string {
	if c.Operator() == graph.OpRange {
		return fmt.Sprintf("%s >= %d AND %s <= %d", countAlias, c.Min, countAlias, c.Max)
	}
	return fmt.Sprintf("%s %s %d", countAlias, c.Operator(), bound)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
