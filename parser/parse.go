// Package parser turns query text in the compiler's dialect back into a graph.Model.
//
// Parsing is a two step affair. Parse resolves the text against the previous model and
// the schema into Fragments: nodes with reused or freshly allocated ids, edges,
// predicates and links. Replay then builds the new model from the fragments using the
// same mutation primitives the editor uses. Translate does both and is atomic: on any
// failure the ids it allocated are released and no model is returned.
package parser

import (
	"errors"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neosierra/graph"
)

// Parser parses query text. The zero value parses without schema validation and
// allocates ids from a private allocator seeded by the previous model.
type Parser struct {
	// Schema, when set, rejects labels, relationship types and properties it does not
	// know and supplies predicate colours.
	Schema *graph.Schema
	// IDs allocates ids for nodes that cannot be matched to the previous model.
	IDs *graph.IDAllocator
}

// New returns a parser bound to a schema and an allocator.
func New(schema *graph.Schema, ids *graph.IDAllocator) *Parser {
	return &Parser{Schema: schema, IDs: ids}
}

// Parse resolves text against prev. Ids allocated for new nodes are listed in
// Fragments.Allocated; on error they have already been released.
func (p *Parser) Parse(text string, prev *graph.Model) (*Fragments, error) {
	if prev == nil {
		prev = graph.New()
	}
	ids := p.IDs
	if ids == nil {
		ids = graph.NewIDAllocator(prev)
	} else {
		ids.Observe(prev)
	}

	if strings.TrimSpace(text) == "" {
		return &Fragments{}, nil
	}

	toks, err := lex(text)
	if err != nil {
		var le *lexError
		if errors.As(err, &le) {
			return nil, &UnsupportedQueryError{Text: text, Offset: le.offset, Reason: le.reason}
		}
		return nil, err
	}
	st, err := parseStatement(text, toks)
	if err != nil {
		return nil, err
	}

	r := &resolver{text: text, st: st, prev: prev, schema: p.Schema, ids: ids}
	f, err := r.resolve()
	if err != nil {
		r.rollback()
		return nil, err
	}
	return f, nil
}

// Translate parses text against prev and replays the result into a new model.
func (p *Parser) Translate(text string, prev *graph.Model) (*graph.Model, error) {
	f, err := p.Parse(text, prev)
	if err != nil {
		return nil, err
	}
	m, err := f.Replay(prev)
	if err != nil {
		p.release(f.Allocated)
		return nil, err
	}
	return m, nil
}

// Release returns the ids of fragments that will not be replayed.
func (p *Parser) Release(f *Fragments) {
	if f != nil {
		p.release(f.Allocated)
	}
}

func (p *Parser) release(ids []string) {
	if p.IDs == nil {
		return
	}
	for _, id := range ids {
		p.IDs.Release(id)
	}
}

// Translate is a convenience for one-off parses without an owned allocator.
func Translate(text string, prev *graph.Model, schema *graph.Schema) (*graph.Model, error) {
	return New(schema, nil).Translate(text, prev)
}
