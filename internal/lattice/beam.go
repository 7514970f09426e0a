package lattice

import (
	"github.com/emirpasic/gods/trees/binaryheap"
)

// beamEntry is a heap element: a candidate index and the fields it ranks by.
type beamEntry struct {
	index int
	score float64
	token uint32
}

// beamOrder ranks by descending score, then ascending last token, then
// ascending index. It is a strict total order over a position's content.
func beamOrder(a, b interface{}) int {
	x := a.(beamEntry)
	y := b.(beamEntry)
	switch {
	case x.score > y.score:
		return -1
	case x.score < y.score:
		return 1
	case x.token < y.token:
		return -1
	case x.token > y.token:
		return 1
	case x.index < y.index:
		return -1
	case x.index > y.index:
		return 1
	}
	return 0
}

// Beam returns the indices of the top nbeam candidates at pos, best first.
func (l *Lattice) Beam(pos, nbeam int) []int {
	content := l.steps[pos].content
	if nbeam <= 0 || len(content) == 0 {
		return nil
	}

	heap := binaryheap.NewWith(beamOrder)
	for i, c := range content {
		heap.Push(beamEntry{index: i, score: c.Score, token: uint32(c.LastToken())})
	}

	n := min(nbeam, len(content))
	selected := make([]int, 0, n)
	for len(selected) < n {
		v, ok := heap.Pop()
		if !ok {
			break
		}
		selected = append(selected, v.(beamEntry).index)
	}
	return selected
}
