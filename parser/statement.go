package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neosierra/graph"
)

// Clauses and keywords outside the dialect. They get a precise message instead of a
// generic syntax error.
var unsupportedKeywords = []string{
	"OR", "XOR", "NOT", "UNION", "CREATE", "MERGE", "DELETE", "DETACH", "SET", "REMOVE",
	"ORDER", "LIMIT", "SKIP", "UNWIND", "CALL", "DISTINCT", "EXISTS", "IN", "CONTAINS",
	"STARTS", "ENDS", "IS", "LOAD", "FOREACH",
}

type nodeRef struct {
	alias  string
	label  string
	offset int
}

type relPattern struct {
	src, dst nodeRef
	alias    string
	relType  string
	directed bool
	offset   int
}

type operand struct {
	alias, attr string
	offset      int
}

type term struct {
	left  operand
	op    string
	right *operand
	value any
}

type aggregate struct {
	group, counted string
	offset         int
}

type threshold struct {
	op     string
	bound  int
	upper  int
	offset int
}

type statement struct {
	// refs lists every node occurrence in pattern order.
	refs  []nodeRef
	lone  []nodeRef
	rels  []relPattern
	terms []term

	joinNode  string
	joinOther string

	aggregates []aggregate
	thresholds []threshold

	returns []string
	star    bool
}

type statementParser struct {
	text string
	toks []token
	pos  int
}

func (p *statementParser) peek() token { return p.toks[p.pos] }

func (p *statementParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *statementParser) fail(t token, format string, args ...any) error {
	return &UnsupportedQueryError{Text: p.text, Offset: t.offset, Reason: fmt.Sprintf(format, args...)}
}

func (p *statementParser) unexpected(t token, want string) error {
	for _, kw := range unsupportedKeywords {
		if t.keyword(kw) {
			return p.fail(t, "%s is not supported", strings.ToUpper(t.text))
		}
	}
	return p.fail(t, "expected %s, found %s", want, t)
}

func (p *statementParser) expectPunct(s string) (token, error) {
	t := p.next()
	if !t.punct(s) {
		return t, p.unexpected(t, fmt.Sprintf("%q", s))
	}
	return t, nil
}

func (p *statementParser) expectKeyword(kw string) error {
	if t := p.next(); !t.keyword(kw) {
		return p.unexpected(t, kw)
	}
	return nil
}

func (p *statementParser) ident(what string) (token, error) {
	t := p.next()
	if t.kind != tokIdent {
		return t, p.unexpected(t, what)
	}
	return t, nil
}

func parseStatement(text string, toks []token) (*statement, error) {
	p := &statementParser{text: text, toks: toks}
	st := &statement{}

	if err := p.expectKeyword("MATCH"); err != nil {
		return nil, err
	}
	if err := p.patterns(st); err != nil {
		return nil, err
	}
	if p.peek().keyword("WHERE") {
		p.next()
		if err := p.terms(st); err != nil {
			return nil, err
		}
	}

	switch t := p.peek(); {
	case t.keyword("OPTIONAL"):
		if err := p.join(st); err != nil {
			return nil, err
		}
	default:
		if t.keyword("WITH") {
			p.next()
			if err := p.aggregation(st); err != nil {
				return nil, err
			}
		}
		if err := p.returns(st); err != nil {
			return nil, err
		}
	}

	if p.peek().punct(";") {
		p.next()
	}
	if t := p.next(); t.kind != tokEOF {
		return nil, p.unexpected(t, "end of query")
	}
	return st, nil
}

func (p *statementParser) patterns(st *statement) error {
	for {
		first, err := p.node()
		if err != nil {
			return err
		}
		st.refs = append(st.refs, first)
		src, chained := first, false
		for p.peek().punct("-") || p.peek().punct("<") {
			rel, err := p.relation()
			if err != nil {
				return err
			}
			dst, err := p.node()
			if err != nil {
				return err
			}
			st.refs = append(st.refs, dst)
			rel.src, rel.dst = src, dst
			st.rels = append(st.rels, rel)
			src, chained = dst, true
		}
		if !chained {
			st.lone = append(st.lone, first)
		}
		if !p.peek().punct(",") {
			return nil
		}
		p.next()
	}
}

func (p *statementParser) node() (nodeRef, error) {
	open, err := p.expectPunct("(")
	if err != nil {
		return nodeRef{}, err
	}
	alias, err := p.ident("node alias")
	if err != nil {
		if alias.punct(":") {
			return nodeRef{}, p.fail(alias, "nodes must be named")
		}
		return nodeRef{}, err
	}
	n := nodeRef{alias: alias.text, offset: open.offset}
	if p.peek().punct(":") {
		p.next()
		label, err := p.ident("label")
		if err != nil {
			return nodeRef{}, err
		}
		n.label = label.text
		if p.peek().punct(":") {
			return nodeRef{}, p.fail(p.peek(), "nodes take a single label")
		}
	}
	if t := p.peek(); t.punct("{") {
		return nodeRef{}, p.fail(t, "inline property maps are not supported")
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nodeRef{}, err
	}
	return n, nil
}

// relation reads -[alias:TYPE]->, -->, or --.
func (p *statementParser) relation() (relPattern, error) {
	start := p.next()
	if start.punct("<") {
		return relPattern{}, p.fail(start, "incoming relationships are not supported; reverse the pattern")
	}
	rel := relPattern{offset: start.offset}

	if p.peek().punct("[") {
		p.next()
		if t := p.peek(); t.kind == tokIdent {
			rel.alias = p.next().text
		}
		if p.peek().punct(":") {
			p.next()
			typ, err := p.ident("relationship type")
			if err != nil {
				return relPattern{}, err
			}
			rel.relType = typ.text
		}
		if t := p.peek(); t.punct("*") || t.punct("|") || t.punct("{") {
			return relPattern{}, p.fail(t, "variable length, alternative or inline relationship patterns are not supported")
		}
		if _, err := p.expectPunct("]"); err != nil {
			return relPattern{}, err
		}
	}

	if _, err := p.expectPunct("-"); err != nil {
		return relPattern{}, err
	}
	if p.peek().punct(">") {
		p.next()
		rel.directed = true
	}
	if !rel.directed && rel.relType != "" {
		return relPattern{}, p.fail(start, "typed relationships must be directed")
	}
	if rel.alias != "" && rel.relType == "" {
		return relPattern{}, p.fail(start, "named relationships need a type")
	}
	return rel, nil
}

func (p *statementParser) operand() (operand, error) {
	alias, err := p.ident("property reference")
	if err != nil {
		return operand{}, err
	}
	if _, err := p.expectPunct("."); err != nil {
		return operand{}, err
	}
	attr, err := p.ident("property name")
	if err != nil {
		return operand{}, err
	}
	return operand{alias: alias.text, attr: attr.text, offset: alias.offset}, nil
}

func (p *statementParser) terms(st *statement) error {
	for {
		t := p.peek()
		if t.punct("(") {
			return p.fail(t, "parenthesised conditions are not supported")
		}
		if t.kind == tokString || t.kind == tokNumber {
			return p.fail(t, "the property must be on the left of a comparison")
		}
		if t.kind != tokIdent || t.keyword("NOT") {
			return p.unexpected(t, "property reference")
		}
		left, err := p.operand()
		if err != nil {
			return err
		}
		opTok := p.next()
		if opTok.kind != tokPunct || !graph.ValidOperator(opTok.text) {
			return p.unexpected(opTok, "comparison operator")
		}
		tm := term{left: left, op: opTok.text}

		switch v := p.peek(); {
		case v.kind == tokIdent && !v.keyword("TRUE") && !v.keyword("FALSE") && !v.keyword("NULL"):
			right, err := p.operand()
			if err != nil {
				return err
			}
			tm.right = &right
		default:
			value, err := p.literal()
			if err != nil {
				return err
			}
			tm.value = value
		}
		st.terms = append(st.terms, tm)

		if !p.peek().keyword("AND") {
			return nil
		}
		p.next()
	}
}

func (p *statementParser) literal() (any, error) {
	t := p.next()
	switch {
	case t.kind == tokString:
		return t.text, nil
	case t.kind == tokNumber:
		return number(t.text), nil
	case t.punct("-"):
		n := p.next()
		if n.kind != tokNumber {
			return nil, p.unexpected(n, "number")
		}
		return number("-" + n.text), nil
	case t.keyword("TRUE"):
		return true, nil
	case t.keyword("FALSE"):
		return false, nil
	case t.keyword("NULL"):
		return nil, p.fail(t, "null comparisons are not supported")
	}
	return nil, p.unexpected(t, "literal")
}

// number keeps integers integral so they render back without a fraction.
func number(s string) any {
	if !strings.Contains(s, ".") {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
	}
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func (p *statementParser) join(st *statement) error {
	p.next()
	if err := p.expectKeyword("MATCH"); err != nil {
		return err
	}
	if _, err := p.expectPunct("("); err != nil {
		return err
	}
	j, err := p.ident("join node alias")
	if err != nil {
		return err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return err
	}
	for range 2 {
		if _, err := p.expectPunct("-"); err != nil {
			return err
		}
	}
	if _, err := p.expectPunct("("); err != nil {
		return err
	}
	o, err := p.ident("neighbour alias")
	if err != nil {
		return err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return err
	}

	if err := p.expectKeyword("RETURN"); err != nil {
		return err
	}
	ret, err := p.ident("join node alias")
	if err != nil {
		return err
	}
	if ret.text != j.text {
		return p.fail(ret, "the join form must return %s", j.text)
	}
	if _, err := p.expectPunct(","); err != nil {
		return err
	}
	if err := p.expectKeyword("COLLECT"); err != nil {
		return err
	}
	if _, err := p.expectPunct("("); err != nil {
		return err
	}
	collected, err := p.ident("neighbour alias")
	if err != nil {
		return err
	}
	if collected.text != o.text {
		return p.fail(collected, "the join form must collect %s", o.text)
	}
	if _, err := p.expectPunct(")"); err != nil {
		return err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return err
	}
	if _, err := p.ident("result name"); err != nil {
		return err
	}

	st.joinNode, st.joinOther = j.text, o.text
	return nil
}

// aggregation reads "x, count(y) AS relCount, ..." followed by the threshold WHERE.
func (p *statementParser) aggregation(st *statement) error {
	for {
		group, err := p.ident("grouping alias")
		if err != nil {
			return err
		}
		if _, err := p.expectPunct(","); err != nil {
			return err
		}
		if err := p.expectKeyword("COUNT"); err != nil {
			return err
		}
		if _, err := p.expectPunct("("); err != nil {
			return err
		}
		counted, err := p.ident("counted alias")
		if err != nil {
			return err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return err
		}
		if err := p.expectKeyword("AS"); err != nil {
			return err
		}
		if _, err := p.ident("count name"); err != nil {
			return err
		}
		st.aggregates = append(st.aggregates, aggregate{group: group.text, counted: counted.text, offset: group.offset})
		if !p.peek().punct(",") {
			break
		}
		p.next()
	}

	if err := p.expectKeyword("WHERE"); err != nil {
		return err
	}
	for {
		th, err := p.threshold()
		if err != nil {
			return err
		}
		st.thresholds = append(st.thresholds, th)
		if !p.peek().punct(",") {
			break
		}
		p.next()
	}
	if len(st.thresholds) != len(st.aggregates) {
		return p.fail(p.peek(), "%d aggregations but %d thresholds", len(st.aggregates), len(st.thresholds))
	}
	return nil
}

func (p *statementParser) threshold() (threshold, error) {
	name, err := p.ident("count name")
	if err != nil {
		return threshold{}, err
	}
	op := p.next()
	if op.kind != tokPunct || !graph.ValidOperator(op.text) {
		return threshold{}, p.unexpected(op, "comparison operator")
	}
	bound, err := p.integer()
	if err != nil {
		return threshold{}, err
	}
	th := threshold{op: op.text, bound: bound, offset: name.offset}

	if op.text == graph.OpGte && p.peek().keyword("AND") {
		p.next()
		if _, err := p.ident("count name"); err != nil {
			return threshold{}, err
		}
		if _, err := p.expectPunct(graph.OpLte); err != nil {
			return threshold{}, err
		}
		upper, err := p.integer()
		if err != nil {
			return threshold{}, err
		}
		th.op, th.upper = graph.OpRange, upper
	}
	return th, nil
}

func (p *statementParser) integer() (int, error) {
	t := p.next()
	if t.kind != tokNumber || strings.Contains(t.text, ".") {
		return 0, p.unexpected(t, "integer")
	}
	v, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, p.fail(t, "integer %s out of range", t.text)
	}
	return v, nil
}

func (p *statementParser) returns(st *statement) error {
	if err := p.expectKeyword("RETURN"); err != nil {
		return err
	}
	if p.peek().punct("*") {
		p.next()
		st.star = true
		return nil
	}
	for {
		alias, err := p.ident("returned alias")
		if err != nil {
			return err
		}
		if p.peek().punct(".") || p.peek().punct("(") {
			return p.fail(p.peek(), "only whole nodes can be returned")
		}
		st.returns = append(st.returns, alias.text)
		if !p.peek().punct(",") {
			return nil
		}
		p.next()
	}
}
