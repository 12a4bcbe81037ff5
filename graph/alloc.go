package graph

import (
	"sort"
	"strconv"
	"sync"
)

// IDAllocator hands out numeric node ids. It is owned by the caller and passed into
// the parser so that ids speculatively allocated by a failed parse can be released.
type IDAllocator struct {
	mu       sync.Mutex
	next     int
	released []int
}

// NewIDAllocator returns an allocator whose ids do not overlap the numeric ids
// already present in the model.
func NewIDAllocator(m *Model) *IDAllocator {
	a := &IDAllocator{}
	a.Observe(m)
	return a
}

// Observe moves the allocator past every numeric id of the model.
func (a *IDAllocator) Observe(m *Model) {
	if m == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	taken := make(map[int]bool)
	for _, n := range m.Nodes {
		if v, err := strconv.Atoi(n.ID); err == nil && v >= 0 {
			taken[v] = true
			if v >= a.next {
				a.next = v + 1
			}
		}
	}
	kept := a.released[:0]
	for _, v := range a.released {
		if !taken[v] {
			kept = append(kept, v)
		}
	}
	a.released = kept
}

// Allocate returns a fresh id, preferring the lowest released one.
func (a *IDAllocator) Allocate() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.released) > 0 {
		v := a.released[0]
		a.released = a.released[1:]
		return strconv.Itoa(v)
	}
	v := a.next
	a.next++
	return strconv.Itoa(v)
}

// Release returns an id to the allocator. Non-numeric ids are ignored.
func (a *IDAllocator) Release(id string) {
	v, err := strconv.Atoi(id)
	if err != nil || v < 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if v >= a.next {
		return
	}
	for _, r := range a.released {
		if r == v {
			return
		}
	}
	a.released = append(a.released, v)
	sort.Ints(a.released)
	for len(a.released) > 0 && a.released[len(a.released)-1] == a.next-1 {
		a.released = a.released[:len(a.released)-1]
		a.next--
	}
}
