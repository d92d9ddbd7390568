// Package floorqueue is the ordered set of floors an elevator still has to
// visit, with nearest-above / nearest-below lookups.
package floorqueue

import "github.com/google/btree"

const BTREE_DEGREE = 8

type FloorQueue struct {
	tree *btree.BTreeG[int]
}

func New(floors ...int) *FloorQueue {
	q := &FloorQueue{tree: btree.NewOrderedG[int](BTREE_DEGREE)}
	for _, floor := range floors {
		q.Add(floor)
	}
	return q
}

// Add reports whether the floor was not already queued.
func (q *FloorQueue) Add(floor int) bool {
	_, replaced := q.tree.ReplaceOrInsert(floor)
	return !replaced
}

// Remove reports whether the floor was queued.
func (q *FloorQueue) Remove(floor int) bool {
	_, removed := q.tree.Delete(floor)
	return removed
}

func (q *FloorQueue) Contains(floor int) bool {
	return q.tree.Has(floor)
}

// Higher returns the smallest queued floor strictly above floor.
func (q *FloorQueue) Higher(floor int) (int, bool) {
	next, found := 0, false
	q.tree.AscendGreaterOrEqual(floor+1, func(item int) bool {
		next, found = item, true
		return false
	})
	return next, found
}

// Lower returns the largest queued floor strictly below floor.
func (q *FloorQueue) Lower(floor int) (int, bool) {
	next, found := 0, false
	q.tree.DescendLessOrEqual(floor-1, func(item int) bool {
		next, found = item, true
		return false
	})
	return next, found
}

func (q *FloorQueue) Len() int {
	return q.tree.Len()
}

func (q *FloorQueue) Empty() bool {
	return q.tree.Len() == 0
}

// Floors lists the queued floors in ascending order.
func (q *FloorQueue) Floors() []int {
	floors := make([]int, 0, q.tree.Len())
	q.tree.Ascend(func(item int) bool {
		floors = append(floors, item)
		return true
	})
	return floors
}
