// Package planner computes shortest 4-connected paths over the inflated
// occupancy grid.
package planner

import (
	"container/heap"
	"errors"
	"fmt"

	"exploration-planner/internal/grid"
	"exploration-planner/internal/monitoring"
)

var (
	// ErrPathNotFound means the goal is unreachable through known free space.
	ErrPathNotFound = errors.New("planner: path not found")
	// ErrSearchBudgetExceeded means the node budget ran out before convergence.
	// Callers treat it exactly like ErrPathNotFound.
	ErrSearchBudgetExceeded = errors.New("planner: search budget exceeded")
)

// IsNotFound reports whether err is one of the planner's "no path" outcomes.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrSearchBudgetExceeded)
}

// Planner runs A* with unit step costs and a Manhattan heuristic. Only
// inflated-free cells are traversed, so unknown space is never entered.
type Planner struct {
	grid       *grid.Grid
	nodeBudget int
}

// New returns a planner over g that expands at most nodeBudget nodes per call.
func New(g *grid.Grid, nodeBudget int) (*Planner, error) {
	if g == nil {
		return nil, fmt.Errorf("planner requires a grid")
	}
	if nodeBudget <= 0 {
		return nil, fmt.Errorf("node budget must be positive, got %d", nodeBudget)
	}
	return &Planner{grid: g, nodeBudget: nodeBudget}, nil
}

// Plan returns the cells from start to goal inclusive.
func (p *Planner) Plan(start, goal grid.Cell) ([]grid.Cell, error) {
	path, expanded, err := p.search(start, goal)
	if err != nil {
		monitoring.Emit(monitoring.EventAStarFailure,
			"start", start, "goal", goal, "expanded", expanded, "reason", err.Error())
		return nil, err
	}
	monitoring.Emit(monitoring.EventAStarSuccess,
		"start", start, "goal", goal, "expanded", expanded, "length", len(path))
	return path, nil
}

func (p *Planner) search(start, goal grid.Cell) ([]grid.Cell, int, error) {
	if !p.grid.Traversable(start) {
		return nil, 0, fmt.Errorf("%w: start %v is not free", ErrPathNotFound, start)
	}
	if !p.grid.Traversable(goal) {
		return nil, 0, fmt.Errorf("%w: goal %v is not free", ErrPathNotFound, goal)
	}

	openSet := &priorityQueue{}
	heap.Init(openSet)

	cameFrom := make(map[grid.Cell]grid.Cell)
	gScore := map[grid.Cell]int{start: 0}
	open := make(map[grid.Cell]*node)
	closed := make(map[grid.Cell]bool)

	seq := 0
	startNode := &node{cell: start, h: grid.Manhattan(start, goal)}
	startNode.f = startNode.h
	heap.Push(openSet, startNode)
	open[start] = startNode

	expanded := 0
	for openSet.Len() > 0 {
		if expanded >= p.nodeBudget {
			return nil, expanded, fmt.Errorf("%w: %d nodes expanded", ErrSearchBudgetExceeded, expanded)
		}

		current := heap.Pop(openSet).(*node)
		delete(open, current.cell)
		expanded++

		if current.cell == goal {
			return reconstruct(cameFrom, start, goal), expanded, nil
		}
		closed[current.cell] = true

		for _, d := range grid.Cardinal {
			next := current.cell.Add(d)
			if closed[next] || !p.grid.Traversable(next) {
				continue
			}

			tentativeG := current.g + 1
			if known, ok := gScore[next]; ok && tentativeG >= known {
				continue
			}
			gScore[next] = tentativeG
			cameFrom[next] = current.cell

			if n, ok := open[next]; ok {
				// Found a better path to this neighbor
				n.g = tentativeG
				n.f = n.g + n.h
				heap.Fix(openSet, n.index)
				continue
			}
			seq++
			n := &node{cell: next, g: tentativeG, h: grid.Manhattan(next, goal), seq: seq}
			n.f = n.g + n.h
			heap.Push(openSet, n)
			open[next] = n
		}
	}
	return nil, expanded, fmt.Errorf("%w: open set exhausted", ErrPathNotFound)
}

func reconstruct(cameFrom map[grid.Cell]grid.Cell, start, goal grid.Cell) []grid.Cell {
	path := []grid.Cell{goal}
	for c := goal; c != start; {
		c = cameFrom[c]
		path = append(path, c)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
