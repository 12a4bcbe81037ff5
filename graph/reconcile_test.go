package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pred(attr string, op string, v any) map[string]Predicate {
	return map[string]Predicate{attr: {Attr: attr, Conditions: []Condition{{Op: op, Value: v}}}}
}

func TestReconcile(t *testing.T) {
	nodes := []Node{
		{ID: "0", Label: "Person", IsJoin: true, Predicates: pred("age", OpGt, 30)},
		{ID: "1", Label: "Person", Predicates: pred("minAge", OpEq, 18)},
		{ID: "2", Label: "Company", IsJoin: true},
	}
	link := PredicateLink{From: Endpoint{NodeID: "0", Attr: "age"}, To: Endpoint{NodeID: "1", Attr: "minAge"}}

	t.Run("valid link survives and keeps join flag", func(t *testing.T) {
		gotNodes, gotLinks := Reconcile(nodes, []PredicateLink{link})

		require.Len(t, gotLinks, 1)
		assert.Equal(t, link, gotLinks[0])
		assert.True(t, gotNodes[0].IsJoin)
		assert.False(t, gotNodes[2].IsJoin, "node 2 has no link")
	})

	t.Run("link to missing node is dropped", func(t *testing.T) {
		dangling := PredicateLink{From: Endpoint{NodeID: "0", Attr: "age"}, To: Endpoint{NodeID: "9", Attr: "x"}}

		gotNodes, gotLinks := Reconcile(nodes, []PredicateLink{dangling})

		assert.Empty(t, gotLinks)
		assert.False(t, gotNodes[0].IsJoin)
	})

	t.Run("link to attribute without data is dropped", func(t *testing.T) {
		empty := []Node{
			nodes[0],
			{ID: "1", Predicates: map[string]Predicate{"minAge": {Attr: "minAge", Conditions: []Condition{{Op: OpEq, Value: ""}}}}},
		}

		_, gotLinks := Reconcile(empty, []PredicateLink{link})

		assert.Empty(t, gotLinks)
	})

	t.Run("is idempotent", func(t *testing.T) {
		dangling := PredicateLink{From: Endpoint{NodeID: "2", Attr: "name"}, To: Endpoint{NodeID: "1", Attr: "minAge"}}
		n1, l1 := Reconcile(nodes, []PredicateLink{link, dangling})
		n2, l2 := Reconcile(n1, l1)

		assert.Equal(t, n1, n2)
		assert.Equal(t, l1, l2)
	})

	t.Run("does not modify its input", func(t *testing.T) {
		in := []Node{{ID: "0", IsJoin: true}}

		Reconcile(in, nil)

		assert.True(t, in[0].IsJoin)
	})

	t.Run("join flag iff referenced by surviving link", func(t *testing.T) {
		gotNodes, gotLinks := Reconcile(nodes, []PredicateLink{link})
		referenced := map[string]bool{}
		for _, l := range gotLinks {
			referenced[l.From.NodeID] = true
			referenced[l.To.NodeID] = true
		}
		for _, n := range gotNodes {
			if n.IsJoin {
				assert.True(t, referenced[n.ID], "node %s", n.ID)
			}
		}
	})
}
