package neosierra

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// fakeRunner answers queries through respond and records every query it was given.
type fakeRunner struct {
	mu      sync.Mutex
	queries []string
	db      string
	respond func(query string) (*neo4j.EagerResult, error)
}

func (f *fakeRunner) Run(_ context.Context, query string, _ map[string]any) (*neo4j.EagerResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.respond == nil {
		return &neo4j.EagerResult{}, nil
	}
	return f.respond(query)
}

func (f *fakeRunner) UseDatabase(name string) { f.db = name }

func (f *fakeRunner) Database() string { return f.db }

func records(keys []string, rows ...[]any) *neo4j.EagerResult {
	res := &neo4j.EagerResult{Keys: keys}
	for _, row := range rows {
		res.Records = append(res.Records, &neo4j.Record{Keys: keys, Values: row})
	}
	return res
}

func node(id string, labels []string, props map[string]any) neo4j.Node {
	return neo4j.Node{ElementId: id, Labels: labels, Props: props}
}

func rel(id, start, end, typ string, props map[string]any) neo4j.Relationship {
	return neo4j.Relationship{ElementId: id, StartElementId: start, EndElementId: end, Type: typ, Props: props}
}
