package diffset

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffSet_AddThenRemove_IsNetNoOp(t *testing.T) {
	d := New[int]()
	d.Add(5)
	require.True(t, d.IsAdded(5))
	d.Remove(5)
	assert.False(t, d.IsAdded(5))
	assert.False(t, d.IsRemoved(5))
	assert.True(t, d.IsEmpty())
}

func TestDiffSet_RemoveThenAdd_UnRemoves(t *testing.T) {
	d := New[int]()
	d.Remove(5)
	require.True(t, d.IsRemoved(5))
	d.Add(5)
	assert.True(t, d.IsAdded(5))
	assert.False(t, d.IsRemoved(5))
}

func TestDiffSet_UnRemove(t *testing.T) {
	d := New[int]()
	assert.False(t, d.UnRemove(1))
	d.Remove(1)
	assert.True(t, d.UnRemove(1))
	assert.False(t, d.IsRemoved(1))
}

func TestDiffSet_Disjointness(t *testing.T) {
	d := New[int]()
	d.Add(1)
	d.Add(2)
	d.Remove(3)
	for x := range d.AddedSet() {
		_, inRemoved := d.RemovedSet()[x]
		assert.False(t, inRemoved)
	}
}

func TestDiffSet_AugmentSlice_OrderAndDedup(t *testing.T) {
	d := New[int]()
	d.Remove(2)
	d.Add(4)
	committed := []int{1, 2, 3}
	got := d.AugmentSlice(committed)
	sort.Ints(got[:2]) // committed order preserved minus removed; added appended after
	assert.Equal(t, []int{1, 3}, got[:2])
	assert.Equal(t, 4, got[2])
}

func TestDiffSet_Empty(t *testing.T) {
	empty := Empty[string]()
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, []string{"a", "b"}, empty.AugmentSlice([]string{"a", "b"}))
}

func TestDiffSet_Accept(t *testing.T) {
	d := New[int]()
	d.Add(1)
	d.Add(2)
	d.Remove(3)

	var added, removed []int
	d.Accept(VisitorFunc[int]{
		Added:   func(x int) { added = append(added, x) },
		Removed: func(x int) { removed = append(removed, x) },
	})
	sort.Ints(added)
	sort.Ints(removed)
	assert.Equal(t, []int{1, 2}, added)
	assert.Equal(t, []int{3}, removed)
}

func TestDiffSet_IdempotentUnRemoveThenAdd(t *testing.T) {
	d := New[int]()
	d.Add(7)
	before := d.Clone()

	d.Remove(7)
	d.Add(7)

	assert.Equal(t, before.AddedSet(), d.AddedSet())
	assert.Equal(t, before.RemovedSet(), d.RemovedSet())
}

func TestDiffSet_NilReceiverIsEmpty(t *testing.T) {
	var d *DiffSet[int]
	assert.True(t, d.IsEmpty())
	assert.False(t, d.IsAdded(1))
	assert.False(t, d.IsRemoved(1))
	assert.Equal(t, 0, d.AddedLen())
	assert.Equal(t, 0, d.RemovedLen())
}
