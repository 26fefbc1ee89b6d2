// Package frontier picks the next exploration target on the boundary between
// known-free and unknown space.
package frontier

import (
	"errors"
	"fmt"

	"exploration-planner/internal/grid"
	"exploration-planner/internal/monitoring"
)

// ErrNoFrontier means no reachable frontier exists: the reachable space is
// fully mapped or the agent is boxed in. It is a terminal condition, not a fault.
var ErrNoFrontier = errors.New("frontier: no frontier found")

// Scoring weights.
const (
	unknownWeight  = 2.0
	distanceWeight = 0.15
)

// Candidate is a scored frontier cell.
type Candidate struct {
	Cell  grid.Cell
	Score float64
}

// Options bounds the search and sets the reselection cooldown.
type Options struct {
	ExpansionCap int     // max cells dequeued per search
	CandidateCap int     // stop once this many candidates are collected
	Cooldown     float64 // seconds a selected cell stays ineligible
}

// Selector runs a bounded breadth-first search over traversable cells.
type Selector struct {
	grid      *grid.Grid
	cooldowns *Cooldowns
	opts      Options

	visited []bool
	queue   []grid.Cell
}

// NewSelector returns a selector reading g and recording selections in cooldowns.
func NewSelector(g *grid.Grid, cooldowns *Cooldowns, opts Options) (*Selector, error) {
	if g == nil || cooldowns == nil {
		return nil, fmt.Errorf("frontier selector requires a grid and a cooldown map")
	}
	if opts.ExpansionCap <= 0 || opts.CandidateCap <= 0 {
		return nil, fmt.Errorf("frontier caps must be positive, got expansion=%d candidates=%d",
			opts.ExpansionCap, opts.CandidateCap)
	}
	if opts.Cooldown < 0 {
		return nil, fmt.Errorf("frontier cooldown must be non-negative, got %f", opts.Cooldown)
	}
	return &Selector{
		grid:      g,
		cooldowns: cooldowns,
		opts:      opts,
		visited:   make([]bool, g.Width()*g.Height()),
	}, nil
}

// Cooldowns returns the selector's cooldown map.
func (s *Selector) Cooldowns() *Cooldowns {
	return s.cooldowns
}

// Candidates returns the scored frontier cells reachable from agent, in
// breadth-first order.
func (s *Selector) Candidates(agent grid.Cell) []Candidate {
	if !s.grid.InBounds(agent) {
		return nil
	}

	for i := range s.visited {
		s.visited[i] = false
	}
	s.queue = append(s.queue[:0], agent)
	s.visited[s.index(agent)] = true

	var candidates []Candidate
	expanded := 0
	for head := 0; head < len(s.queue); head++ {
		if expanded >= s.opts.ExpansionCap || len(candidates) >= s.opts.CandidateCap {
			break
		}
		c := s.queue[head]
		expanded++

		if s.isFrontier(c, agent) {
			candidates = append(candidates, Candidate{Cell: c, Score: Score(s.grid, c, agent)})
		}

		for _, d := range grid.Cardinal {
			n := c.Add(d)
			if !s.grid.Traversable(n) || s.visited[s.index(n)] {
				continue
			}
			s.visited[s.index(n)] = true
			s.queue = append(s.queue, n)
		}
	}
	return candidates
}

// Select returns the best-scoring frontier and puts it on cooldown. Ties go
// to the first candidate found, which is the nearer one in BFS order.
func (s *Selector) Select(agent grid.Cell) (grid.Cell, error) {
	candidates := s.Candidates(agent)
	if len(candidates) == 0 {
		monitoring.Emit(monitoring.EventFrontierNotFound, "x", agent.X, "y", agent.Y)
		return grid.Cell{}, ErrNoFrontier
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	s.cooldowns.Set(best.Cell, s.opts.Cooldown)

	monitoring.Emit(monitoring.EventFrontierChosen,
		"x", best.Cell.X, "y", best.Cell.Y, "score", best.Score, "candidates", len(candidates))
	return best.Cell, nil
}

func (s *Selector) isFrontier(c, agent grid.Cell) bool {
	if !s.grid.Traversable(c) || grid.Chebyshev(c, agent) <= 1 || s.cooldowns.Active(c) {
		return false
	}
	for _, d := range grid.Cardinal {
		if s.grid.Cell(c.Add(d)) == grid.Unknown {
			return true
		}
	}
	return false
}

func (s *Selector) index(c grid.Cell) int {
	return c.Y*s.grid.Width() + c.X
}

// Score rewards cells bordering more unknown space and lightly penalises
// distance from the agent.
func Score(g *grid.Grid, c, agent grid.Cell) float64 {
	unknown := 0
	for _, d := range grid.Ring {
		if g.Cell(c.Add(d)) == grid.Unknown {
			unknown++
		}
	}
	return unknownWeight*float64(unknown) - distanceWeight*float64(grid.Manhattan(c, agent))
}
