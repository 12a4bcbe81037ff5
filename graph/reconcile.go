package graph

// Reconcile drops every predicate link that no longer has a valid target and clears
// the join flag of nodes that are not referenced by a surviving link.
//
// A link survives when both endpoint nodes exist and each carries a predicate with
// data on the linked attribute. All other node fields pass through unchanged. The
// inputs are not modified and the function is idempotent.
func Reconcile(nodes []Node, links []PredicateLink) ([]Node, []PredicateLink) {
	byID := make(map[string]int, len(nodes))
	for i, n := range nodes {
		byID[n.ID] = i
	}
	valid := func(ep Endpoint) bool {
		i, ok := byID[ep.NodeID]
		if !ok {
			return false
		}
		p, ok := nodes[i].Predicates[ep.Attr]
		return ok && p.HasData()
	}

	keptLinks := make([]PredicateLink, 0, len(links))
	referenced := make(map[string]bool)
	for _, l := range links {
		if valid(l.From) && valid(l.To) {
			keptLinks = append(keptLinks, l)
			referenced[l.From.NodeID] = true
			referenced[l.To.NodeID] = true
		}
	}

	keptNodes := make([]Node, len(nodes))
	for i, n := range nodes {
		keptNodes[i] = n.clone()
		if n.IsJoin && !referenced[n.ID] {
			keptNodes[i].IsJoin = false
		}
	}
	return keptNodes, keptLinks
}

// reconciled returns m with Reconcile applied in place of its nodes and links.
func reconciled(m *Model) *Model {
	m.Nodes, m.PredicateLinks = Reconcile(m.Nodes, m.PredicateLinks)
	return m
}
