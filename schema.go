package neosierra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"github.com/saulfrancisco-ruizacevedo/go-neosierra/compiler"
	"github.com/saulfrancisco-ruizacevedo/go-neosierra/graph"
)

// ErrNoSchema is returned when no schema is available: the database holds no labelled
// nodes, or a session has not loaded one yet.
var ErrNoSchema = errors.New("no schema loaded")

// SchemaService discovers the labels, adjacencies and property keys the editor offers,
// and samples the property values shown in value pickers.
type SchemaService struct {
	runner DBRunner
	logger *slog.Logger
}

// NewSchemaService creates a schema service executing through runner.
func NewSchemaService(runner DBRunner, logger *slog.Logger) *SchemaService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchemaService{runner: runner, logger: logger}
}

// Labels lists the first label of every labelled node, in order of discovery.
func (s *SchemaService) Labels(ctx context.Context) ([]string, error) {
	res, err := s.runner.Run(ctx, "MATCH (n) RETURN DISTINCT labels(n) AS labels", nil)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	seen := make(map[string]bool)
	labels := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		v, _ := rec.Get("labels")
		list, _ := v.([]any)
		if len(list) == 0 {
			continue
		}
		label, ok := list[0].(string)
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels, nil
}

// Neighbours lists the outgoing adjacencies of label. Adjacencies with the same target
// label and relationship type are merged and their property keys united.
func (s *SchemaService) Neighbours(ctx context.Context, label string) ([]graph.Adjacency, error) {
	query := fmt.Sprintf("MATCH (n:%s)-[r]->(o) RETURN DISTINCT labels(o)[0] AS label, type(r) AS type, keys(r) AS props",
		compiler.Name(label))
	res, err := s.runner.Run(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("neighbours of %s: %w", label, err)
	}

	out := make([]graph.Adjacency, 0)
	index := make(map[[2]string]int)
	for _, rec := range res.Records {
		target, _ := rec.Get("label")
		relType, _ := rec.Get("type")
		props, _ := rec.Get("props")
		t, _ := target.(string)
		typ, _ := relType.(string)
		if t == "" || typ == "" {
			continue
		}
		key := [2]string{t, typ}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, graph.Adjacency{Label: t, Type: typ, Props: []string{}})
		}
		list, _ := props.([]any)
		out[i].Props = union(out[i].Props, stringList(list))
	}
	return out, nil
}

// Properties lists the union of the property keys of every node labelled label, in
// order of first appearance. Keys of a single node are taken in lexical order.
func (s *SchemaService) Properties(ctx context.Context, label string) ([]string, error) {
	nodes, err := s.nodes(ctx, label)
	if err != nil {
		return nil, err
	}
	keys := []string{}
	for _, n := range nodes {
		keys = union(keys, sortedKeys(n.Props))
	}
	return keys, nil
}

// NodeValues returns the property maps of the nodes labelled label.
func (s *SchemaService) NodeValues(ctx context.Context, label string) ([]map[string]any, error) {
	nodes, err := s.nodes(ctx, label)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Props)
	}
	return out, nil
}

// EdgeValues returns the property maps of the relationships of type relType.
func (s *SchemaService) EdgeValues(ctx context.Context, relType string) ([]map[string]any, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("a", ""), gocypher.R("r", relType).To(), gocypher.N("b", "")).
		Return("r").
		Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}
	res, err := s.runner.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("values of %s: %w", relType, err)
	}
	out := make([]map[string]any, 0, len(res.Records))
	for _, rec := range res.Records {
		v, _ := rec.Get("r")
		if r, ok := v.(neo4j.Relationship); ok {
			out = append(out, r.Props)
		}
	}
	return out, nil
}

func (s *SchemaService) nodes(ctx context.Context, label string) ([]neo4j.Node, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", label)).
		Return("n").
		Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}
	res, err := s.runner.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("nodes of %s: %w", label, err)
	}
	out := make([]neo4j.Node, 0, len(res.Records))
	for _, rec := range res.Records {
		v, _ := rec.Get("n")
		if n, ok := v.(neo4j.Node); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Load discovers the complete schema.
func (s *SchemaService) Load(ctx context.Context) (*graph.Schema, error) {
	labels, err := s.Labels(ctx)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, ErrNoSchema
	}

	schema := &graph.Schema{
		Labels:     labels,
		Neighbours: make(map[string][]graph.Adjacency, len(labels)),
		Props:      make(map[string][]string, len(labels)),
	}
	for _, label := range labels {
		if schema.Neighbours[label], err = s.Neighbours(ctx, label); err != nil {
			return nil, err
		}
		if schema.Props[label], err = s.Properties(ctx, label); err != nil {
			return nil, err
		}
	}
	s.logger.Debug("schema loaded", "labels", len(labels))
	return schema, nil
}

func stringList(list []any) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func union(into, add []string) []string {
	for _, s := range add {
		found := false
		for _, have := range into {
			if have == s {
				found = true
				break
			}
		}
		if !found {
			into = append(into, s)
		}
	}
	return into
}
