package planner

import "exploration-planner/internal/grid"

// node represents a cell in the A* open set
type node struct {
	cell  grid.Cell
	g     int // cost from start
	h     int // heuristic cost to goal
	f     int // g + h
	seq   int // insertion order, last tie-breaker
	index int // index in the heap, -1 once popped
}

// priorityQueue implements heap.Interface ordered by f, then h, then seq.
type priorityQueue []*node

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return a.seq < b.seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	n := x.(*node)
	n.index = len(*pq)
	*pq = append(*pq, n)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}
