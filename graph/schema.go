package graph

// Adjacency describes one relationship type leaving an entity label.
type Adjacency struct {
	// Label is the label of the node at the other end.
	Label string `json:"label" yaml:"label"`
	// Type is the relationship type.
	Type string `json:"type" yaml:"type"`
	// Props lists the property keys seen on relationships of this type.
	Props []string `json:"props" yaml:"props"`
}

// Schema is the already-fetched database metadata the parser validates against.
type Schema struct {
	Labels     []string               `json:"entities" yaml:"entities"`
	Neighbours map[string][]Adjacency `json:"neighbours" yaml:"neighbours"`
	Props      map[string][]string    `json:"props" yaml:"props"`
}

// HasLabel reports whether label is a known entity label.
func (s *Schema) HasLabel(label string) bool {
	for _, l := range s.Labels {
		if l == label {
			return true
		}
	}
	_, ok := s.Props[label]
	return ok
}

// HasProperty reports whether attr is a known property key of label.
func (s *Schema) HasProperty(label, attr string) bool {
	return s.PropertyRank(label, attr) >= 0
}

// PropertyRank returns the ordinal of attr among the known property keys of label,
// or -1.
func (s *Schema) PropertyRank(label, attr string) int {
	for i, p := range s.Props[label] {
		if p == attr {
			return i
		}
	}
	return -1
}

// RelationshipProps returns the property keys of relType between two labels,
// looking in both directions. The boolean is false when no such adjacency exists.
func (s *Schema) RelationshipProps(source, target, relType string) ([]string, bool) {
	for _, a := range s.Neighbours[source] {
		if a.Type == relType && (target == "" || a.Label == target) {
			return a.Props, true
		}
	}
	for _, a := range s.Neighbours[target] {
		if a.Type == relType && a.Label == source {
			return a.Props, true
		}
	}
	return nil, false
}

// NeighbourLabels returns the distinct labels reachable from label in one hop.
func (s *Schema) NeighbourLabels(label string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range s.Neighbours[label] {
		if !seen[a.Label] {
			seen[a.Label] = true
			out = append(out, a.Label)
		}
	}
	return out
}

// PredicateColors is the palette predicate colors are drawn from, indexed by the
// attribute's rank among its entity's properties.
var PredicateColors = []string{
	"#f4a261", "#2a9d8f", "#e76f51", "#8ab17d", "#e9c46a",
	"#6d597a", "#457b9d", "#b56576", "#52b788", "#ff8fab",
}

// ColorForRank returns the palette color for an attribute rank. Unknown attributes
// (negative rank) get no color.
func ColorForRank(rank int) string {
	if rank < 0 {
		return ""
	}
	return PredicateColors[rank%len(PredicateColors)]
}
