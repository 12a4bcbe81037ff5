package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/go-neosierra/graph"
)

func compile(t *testing.T, m *graph.Model) string {
	t.Helper()
	res, err := Compile(m)
	require.NoError(t, err)
	return res.Query
}

// worksAt builds Person(0) -[:WORKS_AT]-> Company(1), both returned.
func worksAt(t *testing.T) (*graph.Model, string) {
	t.Helper()
	m, err := graph.AddNode(graph.New(), graph.Node{ID: "0", Label: "Person", IsBold: true})
	require.NoError(t, err)
	m, err = graph.AddNode(m, graph.Node{ID: "1", Label: "Company", IsBold: true})
	require.NoError(t, err)
	m, id, err := graph.AddEdge(m, "0", "1", true, graph.EdgeData{RelType: "WORKS_AT"})
	require.NoError(t, err)
	return m, id
}

func TestCompile(t *testing.T) {
	t.Run("empty model", func(t *testing.T) {
		res, err := Compile(graph.New())

		require.NoError(t, err)
		assert.Equal(t, "", res.Query)
	})

	t.Run("lone node", func(t *testing.T) {
		m, err := graph.AddNode(graph.New(), graph.Node{ID: "0", Label: "Person", IsBold: true})
		require.NoError(t, err)

		assert.Equal(t, "MATCH (a:Person)\nRETURN a", compile(t, m))
	})

	t.Run("lone nodes are comma joined before patterns", func(t *testing.T) {
		m, _ := worksAt(t)
		m, _ = graph.AddNode(m, graph.Node{ID: "2", Label: "City"})

		assert.Equal(t,
			"MATCH (c:City), (a:Person)-[ra:WORKS_AT]->(b:Company)\nRETURN a, b",
			compile(t, m))
	})

	t.Run("directed relationship with predicate", func(t *testing.T) {
		m, id := worksAt(t)
		m, err := graph.AddPredicate(m, id, "since", graph.Condition{Op: graph.OpGt, Value: 2020}, "")
		require.NoError(t, err)

		assert.Equal(t,
			"MATCH (a:Person)-[ra:WORKS_AT]->(b:Company)\nWHERE ra.since > 2020\nRETURN a, b",
			compile(t, m))
	})

	t.Run("directed relationship of any type", func(t *testing.T) {
		m, id := worksAt(t)
		m, err := graph.UpdateEdge(m, id, func(e *graph.Edge) { e.Data.RelType = "" })
		require.NoError(t, err)

		assert.Equal(t, "MATCH (a:Person)-->(b:Company)\nRETURN a, b", compile(t, m))
	})

	t.Run("undirected relationship", func(t *testing.T) {
		m, id := worksAt(t)
		m, err := graph.UpdateEdge(m, id, func(e *graph.Edge) { e.ArrowHeadType = "" })
		require.NoError(t, err)

		assert.Equal(t, "MATCH (a:Person)--(b:Company)\nRETURN a, b", compile(t, m))
	})

	t.Run("node predicates are ANDed per attribute in lexical order", func(t *testing.T) {
		m, _ := worksAt(t)
		m, _ = graph.AddPredicate(m, "0", "name", graph.Condition{Op: graph.OpEq, Value: "Ann"}, "")
		m, _ = graph.AddPredicate(m, "0", "age", graph.Condition{Op: graph.OpGte, Value: 18}, "")
		m, _ = graph.AddPredicate(m, "0", "age", graph.Condition{Op: graph.OpLt, Value: 65}, "")
		m, _ = graph.AddPredicate(m, "0", "nick", graph.Condition{Op: graph.OpEq, Value: ""}, "")

		assert.Equal(t,
			"MATCH (a:Person)-[ra:WORKS_AT]->(b:Company)\n"+
				"WHERE a.age >= 18 AND a.age < 65 AND a.name = 'Ann'\n"+
				"RETURN a, b",
			compile(t, m))
	})

	t.Run("cardinality props render against relationship alias", func(t *testing.T) {
		m, id := worksAt(t)
		m, err := graph.UpdateEdge(m, id, func(e *graph.Edge) {
			e.Data.CardinalityProps = []graph.CardinalityProp{
				{Key: "role", Value: "manager"},
				{Key: "years", Value: 3, Operator: graph.OpGt},
				{Key: "skipped", Value: ""},
			}
		})
		require.NoError(t, err)

		assert.Equal(t,
			"MATCH (a:Person)-[ra:WORKS_AT]->(b:Company)\nWHERE ra.role = 'manager' AND ra.years > 3\nRETURN a, b",
			compile(t, m))
	})

	t.Run("duplicate clauses are removed", func(t *testing.T) {
		m, id := worksAt(t)
		m, _ = graph.AddPredicate(m, id, "role", graph.Condition{Op: graph.OpEq, Value: "cto"}, "")
		m, _ = graph.UpdateEdge(m, id, func(e *graph.Edge) {
			e.Data.CardinalityProps = []graph.CardinalityProp{{Key: "role", Value: "cto"}}
		})

		assert.Equal(t,
			"MATCH (a:Person)-[ra:WORKS_AT]->(b:Company)\nWHERE ra.role = 'cto'\nRETURN a, b",
			compile(t, m))
	})

	t.Run("predicate link", func(t *testing.T) {
		m, _ := graph.AddNode(graph.New(), graph.Node{ID: "0", Label: "Person", IsBold: true})
		m, _ = graph.AddNode(m, graph.Node{ID: "1", Label: "Movie", IsBold: true})
		m, _ = graph.AddPredicate(m, "0", "age", graph.Condition{Op: graph.OpGt, Value: 10}, "")
		m, _ = graph.AddPredicate(m, "1", "minAge", graph.Condition{Op: graph.OpGt, Value: 0}, "")
		m, err := graph.AddPredicateLink(m, graph.PredicateLink{
			From: graph.Endpoint{NodeID: "0", Attr: "age"},
			To:   graph.Endpoint{NodeID: "1", Attr: "minAge"},
		})
		require.NoError(t, err)
		require.Len(t, m.PredicateLinks, 1)

		assert.Equal(t,
			"MATCH (a:Person), (b:Movie)\nWHERE a.age > 10 AND b.minAge > 0 AND a.age = b.minAge\nRETURN a, b",
			compile(t, m))

		theta := m.PredicateLinks[0]
		theta.JoinType, theta.Operator = graph.ThetaJoin, graph.OpGte
		m, err = graph.UpdatePredicateLink(m, m.PredicateLinks[0], theta)
		require.NoError(t, err)

		assert.Contains(t, compile(t, m), "a.age >= b.minAge")
	})

	t.Run("no output renders star", func(t *testing.T) {
		m, _ := graph.AddNode(graph.New(), graph.Node{ID: "0", Label: "Person"})

		assert.Equal(t, "MATCH (a:Person)\nRETURN *", compile(t, m))
	})

	t.Run("node without edges is standalone even when marked connected", func(t *testing.T) {
		m, _ := graph.AddNode(graph.New(), graph.Node{ID: "0", Label: "Person", IsBold: true, Connected: true})

		assert.Equal(t, "MATCH (a:Person)\nRETURN a", compile(t, m))
	})

	t.Run("labels outside identifier syntax are backquoted", func(t *testing.T) {
		m, _ := graph.AddNode(graph.New(), graph.Node{ID: "0", Label: "Film Noir", IsBold: true})

		assert.Equal(t, "MATCH (a:`Film Noir`)\nRETURN a", compile(t, m))
	})
}

func TestCompileCardinality(t *testing.T) {
	withCardinality := func(t *testing.T, c graph.Cardinality) *graph.Model {
		t.Helper()
		m, id := worksAt(t)
		m, err := graph.UpdateEdge(m, id, func(e *graph.Edge) { e.Data.Cardinality = &c })
		require.NoError(t, err)
		return m
	}

	t.Run("min aggregates over destination and blocks source", func(t *testing.T) {
		m := withCardinality(t, graph.Cardinality{Min: 2, Max: 1, Op: graph.OpGt})

		assert.Equal(t,
			"MATCH (a:Person)-[ra:WORKS_AT]->(b:Company)\n"+
				"WITH b, count(a) AS relCount\n"+
				"WHERE relCount > 2\n"+
				"RETURN b",
			compile(t, m))
	})

	t.Run("max aggregates over source and blocks destination", func(t *testing.T) {
		m := withCardinality(t, graph.Cardinality{Min: 1, Max: 3, Op: graph.OpLt})

		assert.Equal(t,
			"MATCH (a:Person)-[ra:WORKS_AT]->(b:Company)\n"+
				"WITH a, count(b) AS relCount\n"+
				"WHERE relCount < 3\n"+
				"RETURN a",
			compile(t, m))
	})

	t.Run("range bounds both sides", func(t *testing.T) {
		m := withCardinality(t, graph.Cardinality{Min: 2, Max: 5, Op: graph.OpRange})

		assert.Contains(t, compile(t, m), "WHERE relCount >= 2 AND relCount <= 5\n")
	})

	t.Run("default operator is equality", func(t *testing.T) {
		m := withCardinality(t, graph.Cardinality{Min: 4, Max: 1})

		assert.Contains(t, compile(t, m), "WHERE relCount = 4\n")
	})

	t.Run("trivial cardinality adds no stage", func(t *testing.T) {
		m := withCardinality(t, graph.Cardinality{Min: 1, Max: 1, Op: graph.OpEq})

		assert.NotContains(t, compile(t, m), "WITH")
	})

	t.Run("predicates stay in the first WHERE", func(t *testing.T) {
		m := withCardinality(t, graph.Cardinality{Min: 2, Max: 1, Op: graph.OpGt})
		m, _ = graph.AddPredicate(m, "1", "name", graph.Condition{Op: graph.OpEq, Value: "ACME"}, "")

		assert.Equal(t,
			"MATCH (a:Person)-[ra:WORKS_AT]->(b:Company)\n"+
				"WHERE b.name = 'ACME'\n"+
				"WITH b, count(a) AS relCount\n"+
				"WHERE relCount > 2\n"+
				"RETURN b",
			compile(t, m))
	})

	t.Run("stages of several edges are comma joined", func(t *testing.T) {
		m := withCardinality(t, graph.Cardinality{Min: 2, Max: 1, Op: graph.OpGt})
		m, _ = graph.AddNode(m, graph.Node{ID: "2", Label: "City", IsBold: true})
		m, id, err := graph.AddEdge(m, "1", "2", true, graph.EdgeData{
			RelType:     "LOCATED_IN",
			Cardinality: &graph.Cardinality{Min: 1, Max: 2, Op: graph.OpGt},
		})
		require.NoError(t, err)
		require.Equal(t, "e1-2", id)

		assert.Equal(t,
			"MATCH (a:Person)-[ra:WORKS_AT]->(b:Company), (b:Company)-[rb:LOCATED_IN]->(c:City)\n"+
				"WITH b, count(a) AS relCount, b, count(c) AS relCount\n"+
				"WHERE relCount > 2, relCount > 2\n"+
				"RETURN b",
			compile(t, m))
	})
}

func TestCompileJoin(t *testing.T) {
	linked := func(t *testing.T) *graph.Model {
		t.Helper()
		m, _ := graph.AddNode(graph.New(), graph.Node{ID: "0", Label: "Person", IsBold: true})
		m, _ = graph.AddNode(m, graph.Node{ID: "1", Label: "Person", IsBold: true})
		m, _ = graph.AddPredicate(m, "0", "age", graph.Condition{Op: graph.OpGt, Value: 10}, "")
		m, _ = graph.AddPredicate(m, "1", "age", graph.Condition{Op: graph.OpGt, Value: 20}, "")
		m, err := graph.AddPredicateLink(m, graph.PredicateLink{
			From: graph.Endpoint{NodeID: "0", Attr: "age"},
			To:   graph.Endpoint{NodeID: "1", Attr: "age"},
		})
		require.NoError(t, err)
		return m
	}

	t.Run("join node fans out", func(t *testing.T) {
		m, err := graph.SetJoin(linked(t), "1", true)
		require.NoError(t, err)

		assert.Equal(t,
			"MATCH (a:Person), (b:Person)\n"+
				"WHERE a.age > 10 AND b.age > 20 AND a.age = b.age\n"+
				"OPTIONAL MATCH (b)--(o)\n"+
				"RETURN b, COLLECT(o) AS others",
			compile(t, m))
	})

	t.Run("unreferenced join flag is cleared before compiling", func(t *testing.T) {
		m := linked(t)
		m.Nodes = append(m.Nodes, graph.Node{ID: "2", Label: "City", IsJoin: true})

		q := compile(t, m)

		assert.NotContains(t, q, "OPTIONAL MATCH")
	})

	t.Run("several join nodes are rejected", func(t *testing.T) {
		m := linked(t)
		m.Nodes[0].IsJoin = true
		m.Nodes[1].IsJoin = true

		_, err := Compile(m)

		assert.ErrorIs(t, err, ErrMultipleJoins)
	})
}

func TestCompileAliases(t *testing.T) {
	t.Run("existing aliases are reused", func(t *testing.T) {
		m, _ := worksAt(t)
		m.Nodes[0].Rep = "p"
		m.Nodes[1].Rep = "c"

		assert.Equal(t, "MATCH (p:Person)-[ra:WORKS_AT]->(c:Company)\nRETURN p, c", compile(t, m))
	})

	t.Run("colliding aliases are reassigned", func(t *testing.T) {
		m, _ := worksAt(t)
		m.Nodes[0].Rep = "b"
		m.Nodes[1].Rep = ""

		assert.Equal(t, "MATCH (b:Person)-[ra:WORKS_AT]->(c:Company)\nRETURN b, c", compile(t, m))
	})

	t.Run("reserved names are never used", func(t *testing.T) {
		m, _ := worksAt(t)
		m.Nodes[0].Rep = "ra"
		m.Nodes[1].Rep = "relCount"

		q := compile(t, m)

		assert.Equal(t, "MATCH (a:Person)-[ra:WORKS_AT]->(b:Company)\nRETURN a, b", q)
	})

	t.Run("ordinal follows numeric ids", func(t *testing.T) {
		m, _ := graph.AddNode(graph.New(), graph.Node{ID: "10", Label: "Person", IsBold: true})

		assert.Equal(t, "MATCH (k:Person)\nRETURN k", compile(t, m))
	})

	t.Run("result model carries aliases and input is untouched", func(t *testing.T) {
		m, _ := worksAt(t)

		res, err := Compile(m)

		require.NoError(t, err)
		assert.Equal(t, "a", res.Model.Nodes[0].Rep)
		assert.Equal(t, "ra", res.Model.Edges[0].Data.Rep)
		assert.Empty(t, m.Nodes[0].Rep)

		again, err := Compile(res.Model)
		require.NoError(t, err)
		assert.Equal(t, res.Query, again.Query)
	})
}

func TestCompileDanglingEdge(t *testing.T) {
	m, _ := worksAt(t)
	m.Edges[0].Target = "9"

	_, err := Compile(m)

	assert.ErrorIs(t, err, ErrDanglingEdge)
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, "'Ann'", Literal("Ann"))
	assert.Equal(t, `'O\'Brien'`, Literal("O'Brien"))
	assert.Equal(t, `'C:\\tmp'`, Literal(`C:\tmp`))
	assert.Equal(t, "2020", Literal(2020))
	assert.Equal(t, "2020", Literal(float64(2020)))
	assert.Equal(t, "2.5", Literal(2.5))
	assert.Equal(t, "true", Literal(true))
	assert.Equal(t, "null", Literal(nil))
}

func TestName(t *testing.T) {
	assert.Equal(t, "Person", Name("Person"))
	assert.Equal(t, "`first name`", Name("first name"))
	assert.Equal(t, "`a``b`", Name("a`b"))
}
