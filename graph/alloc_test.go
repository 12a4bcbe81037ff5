package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDAllocator(t *testing.T) {
	t.Run("starts after existing numeric ids", func(t *testing.T) {
		m := &Model{Nodes: []Node{{ID: "0"}, {ID: "4"}, {ID: "custom"}}}
		a := NewIDAllocator(m)

		assert.Equal(t, "5", a.Allocate())
		assert.Equal(t, "6", a.Allocate())
	})

	t.Run("release rolls back speculative allocations", func(t *testing.T) {
		a := NewIDAllocator(nil)
		ids := []string{a.Allocate(), a.Allocate(), a.Allocate()}
		for _, id := range ids {
			a.Release(id)
		}

		assert.Equal(t, "0", a.Allocate())
	})

	t.Run("released gaps are reused lowest first", func(t *testing.T) {
		a := NewIDAllocator(nil)
		for i := 0; i < 5; i++ {
			a.Allocate()
		}
		a.Release("3")
		a.Release("1")

		assert.Equal(t, "1", a.Allocate())
		assert.Equal(t, "3", a.Allocate())
		assert.Equal(t, "5", a.Allocate())
	})

	t.Run("ignores foreign ids", func(t *testing.T) {
		a := NewIDAllocator(nil)
		a.Release("abc")
		a.Release("42")

		assert.Equal(t, "0", a.Allocate())
	})

	t.Run("observe skips ids taken meanwhile", func(t *testing.T) {
		a := NewIDAllocator(nil)
		a.Allocate()
		a.Allocate()
		a.Allocate()
		a.Release("1")
		a.Observe(&Model{Nodes: []Node{{ID: "1"}}})

		assert.Equal(t, "3", a.Allocate())
	})
}
