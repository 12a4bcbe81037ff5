package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlias(t *testing.T) {
	tests := []struct {
		ordinal int
		want    string
	}{
		{0, "a"},
		{1, "b"},
		{10, "k"},
		{25, "z"},
		{26, "_10"},
		{27, "_11"},
		{62, "_20"},
		{29834, "n10"},
		{380, "au"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Alias(tt.ordinal))
			got, ok := AliasOrdinal(tt.want)
			assert.True(t, ok)
			assert.Equal(t, tt.ordinal, got)
		})
	}
}

func TestAliasOrdinalRejectsForeignAliases(t *testing.T) {
	for _, s := range []string{"", "9", "x_y", "N10", "10", "_", "_a", "_0a"} {
		_, ok := AliasOrdinal(s)
		assert.False(t, ok, s)
	}
}

func TestRelAlias(t *testing.T) {
	assert.Equal(t, "ra", RelAlias(0))
	assert.Equal(t, "rb", RelAlias(1))
	assert.Equal(t, "r10", RelAlias(26))
}

func TestNodeOrdinal(t *testing.T) {
	assert.Equal(t, 7, NodeOrdinal(Node{ID: "7"}, 0))
	assert.Equal(t, 3, NodeOrdinal(Node{ID: "person"}, 3))
	assert.Equal(t, 2, NodeOrdinal(Node{ID: "-1"}, 2))
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("Person"))
	assert.True(t, IsIdentifier("_id2"))
	assert.False(t, IsIdentifier("2x"))
	assert.False(t, IsIdentifier("first name"))
	assert.False(t, IsIdentifier(""))
}
