// Package queue provides bounded nearest-row selection.
package queue

import (
	"math"
	"slices"
)

// Item is a candidate row with its distance to the query.
type Item struct {
	Row      int
	Distance float64
}

// before reports whether a ranks ahead of b: smaller distance first, and the
// lower row index on ties, so selection is stable with respect to row order.
func before(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Row < b.Row
}

// TopK keeps the k best-ranked items seen so far in a max-heap whose root is
// the current worst kept item.
type TopK struct {
	k     int
	items []Item
}

// NewTopK creates a selector that retains at most k items.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{
		k:     k,
		items: make([]Item, 0, k),
	}
}

// Reset clears the selector for reuse with a new bound.
func (q *TopK) Reset(k int) {
	if k < 0 {
		k = 0
	}
	q.k = k
	q.items = q.items[:0]
}

// Len returns the number of retained items.
func (q *TopK) Len() int { return len(q.items) }

// Push offers a row. NaN distances are ignored.
func (q *TopK) Push(row int, dist float64) {
	if q.k == 0 || math.IsNaN(dist) {
		return
	}
	item := Item{Row: row, Distance: dist}
	if len(q.items) < q.k {
		q.items = append(q.items, item)
		q.siftUp(len(q.items) - 1)
		return
	}
	if before(item, q.items[0]) {
		q.items[0] = item
		q.siftDown(0)
	}
}

// Worst returns the worst retained item.
func (q *TopK) Worst() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Sorted returns the retained items best first. The selector is unchanged.
func (q *TopK) Sorted() []Item {
	out := slices.Clone(q.items)
	slices.SortFunc(out, func(a, b Item) int {
		switch {
		case before(a, b):
			return -1
		case before(b, a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// worse is the heap order: the root is the item that ranks last.
func (q *TopK) worse(i, j int) bool {
	return before(q.items[j], q.items[i])
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.worse(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		top := l
		if r := l + 1; r < n && q.worse(r, l) {
			top = r
		}
		if !q.worse(top, i) {
			return
		}
		q.items[i], q.items[top] = q.items[top], q.items[i]
		i = top
	}
}

// Nearest returns the k best rows of dist in rank order, skipping rows for
// which skip returns true. skip may be nil.
func Nearest(dist []float64, k int, skip func(row int) bool) []Item {
	q := NewTopK(k)
	for i, d := range dist {
		if skip != nil && skip(i) {
			continue
		}
		q.Push(i, d)
	}
	return q.Sorted()
}
