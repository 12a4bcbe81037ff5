package graph

import (
	"strconv"
	"strings"
)

// aliasOffset shifts ordinals so that the first aliases are the letters a..z.
const aliasOffset = 10

// Alias returns the query alias for the given ordinal: the base-36 encoding of
// ordinal+10. Encodings that would start with a digit are prefixed with "_" so the
// alias stays a valid identifier. No base-36 encoding starts with "_", so the mapping
// is injective.
func Alias(ordinal int) string {
	s := strconv.FormatInt(int64(ordinal+aliasOffset), 36)
	if s[0] >= '0' && s[0] <= '9' {
		return "_" + s
	}
	return s
}

// RelAlias returns the alias of the relationship at the given edge ordinal.
func RelAlias(ordinal int) string {
	return "r" + strconv.FormatInt(int64(ordinal+aliasOffset), 36)
}

// AliasOrdinal reverses Alias. It reports false for strings Alias cannot produce.
func AliasOrdinal(alias string) (int, bool) {
	s := alias
	if strings.HasPrefix(s, "_") && len(s) > 1 && s[1] >= '0' && s[1] <= '9' {
		s = s[1:]
	}
	v, err := strconv.ParseInt(s, 36, 32)
	if err != nil || v < aliasOffset {
		return 0, false
	}
	if Alias(int(v)-aliasOffset) != alias {
		return 0, false
	}
	return int(v) - aliasOffset, true
}

// NodeOrdinal is the ordinal a node's default alias derives from: its numeric id when
// the id is a non-negative integer, otherwise its position in the node list.
func NodeOrdinal(n Node, index int) int {
	if v, err := strconv.Atoi(n.ID); err == nil && v >= 0 {
		return v
	}
	return index
}

// IsIdentifier reports whether s can be used unquoted as an alias, label or key.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
