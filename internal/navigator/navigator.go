// Package navigator owns the followed path: it decides when to replan, asks
// the frontier selector and the planner for a new route, and advances the
// waypoint cursor as the agent arrives.
package navigator

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"exploration-planner/internal/grid"
	"exploration-planner/internal/monitoring"
)

// ErrReplanThrottled is returned when a replan is requested before the
// replan timer has expired. The request is dropped without side effects.
var ErrReplanThrottled = errors.New("navigator: replan throttled")

// FrontierSource picks the next exploration target.
type FrontierSource interface {
	Select(agent grid.Cell) (grid.Cell, error)
}

// PathSource plans a cell path between two cells.
type PathSource interface {
	Plan(start, goal grid.Cell) ([]grid.Cell, error)
}

// Options tunes the follower.
type Options struct {
	ReplanInterval  float64 // seconds between replans
	ArrivalDistance float64 // world units from a waypoint centre that count as arrived
}

// Navigator is the path follower and replan orchestrator of one agent.
type Navigator struct {
	grid      *grid.Grid
	frontiers FrontierSource
	planner   PathSource
	opts      Options

	timer  float64
	path   []grid.Cell
	cursor int
	target grid.Cell
}

// New wires a navigator. Collaborators are injected, never looked up.
func New(g *grid.Grid, frontiers FrontierSource, planner PathSource, opts Options) (*Navigator, error) {
	if g == nil || frontiers == nil || planner == nil {
		return nil, fmt.Errorf("navigator requires a grid, a frontier source and a planner")
	}
	if opts.ReplanInterval < 0 {
		return nil, fmt.Errorf("replan interval must be non-negative, got %f", opts.ReplanInterval)
	}
	if opts.ArrivalDistance <= 0 {
		return nil, fmt.Errorf("arrival distance must be positive, got %f", opts.ArrivalDistance)
	}
	return &Navigator{grid: g, frontiers: frontiers, planner: planner, opts: opts}, nil
}

// ShouldReplan ticks the replan timer down by dt and reports whether it has
// expired.
func (n *Navigator) ShouldReplan(dt float64) bool {
	if dt > 0 {
		n.timer = max(n.timer-dt, 0)
	}
	return n.timer <= 0
}

// ReplanToFrontier selects a frontier from the agent's cell and plans to it.
// frontier.ErrNoFrontier clears the path and means there is nothing to explore.
func (n *Navigator) ReplanToFrontier(pos r2.Vec) error {
	if n.timer > 0 {
		return ErrReplanThrottled
	}
	agent, ok := n.grid.WorldToCell(pos)
	if !ok {
		return fmt.Errorf("%w: agent at (%.3f, %.3f)", grid.ErrOutOfBounds, pos.X, pos.Y)
	}
	n.timer = n.opts.ReplanInterval
	monitoring.Emit(monitoring.EventReplanTrigger, "mode", "frontier", "x", agent.X, "y", agent.Y)

	goal, err := n.frontiers.Select(agent)
	if err != nil {
		n.ClearPath()
		return err
	}
	return n.planTo(agent, goal)
}

// ReplanToCell plans from the agent's cell to goal.
func (n *Navigator) ReplanToCell(goal grid.Cell, pos r2.Vec) error {
	if n.timer > 0 {
		return ErrReplanThrottled
	}
	if !n.grid.InBounds(goal) {
		return fmt.Errorf("%w: goal %v", grid.ErrOutOfBounds, goal)
	}
	agent, ok := n.grid.WorldToCell(pos)
	if !ok {
		return fmt.Errorf("%w: agent at (%.3f, %.3f)", grid.ErrOutOfBounds, pos.X, pos.Y)
	}
	n.timer = n.opts.ReplanInterval
	monitoring.Emit(monitoring.EventReplanTrigger, "mode", "goal", "x", goal.X, "y", goal.Y)

	return n.planTo(agent, goal)
}

func (n *Navigator) planTo(agent, goal grid.Cell) error {
	path, err := n.planner.Plan(agent, goal)
	if err != nil {
		n.ClearPath()
		return err
	}
	n.path = path
	n.cursor = 0
	n.target = goal
	return nil
}

// AdvanceWaypointIfArrived moves the cursor on when pos is within the
// arrival distance of the current waypoint. Consuming the last waypoint
// clears the path.
func (n *Navigator) AdvanceWaypointIfArrived(pos r2.Vec) bool {
	if !n.HasPath() {
		return false
	}
	wp := n.grid.CellToWorldCenter(n.path[n.cursor])
	if r2.Norm(r2.Sub(pos, wp)) > n.opts.ArrivalDistance {
		return false
	}
	n.cursor++
	if n.cursor >= len(n.path) {
		monitoring.Emit(monitoring.EventPathComplete, "x", n.target.X, "y", n.target.Y, "length", len(n.path))
		n.ClearPath()
	}
	return true
}

// CurrentWaypointWorld returns the centre of the cell under the cursor, or
// pos itself when there is no path so the caller holds position.
func (n *Navigator) CurrentWaypointWorld(pos r2.Vec) r2.Vec {
	if !n.HasPath() {
		return pos
	}
	return n.grid.CellToWorldCenter(n.path[n.cursor])
}

// HasPath reports whether a path is being followed.
func (n *Navigator) HasPath() bool {
	return len(n.path) > 0
}

// ClearPath drops the current path.
func (n *Navigator) ClearPath() {
	n.path = nil
	n.cursor = 0
}

// Path returns a copy of the current path.
func (n *Navigator) Path() []grid.Cell {
	return append([]grid.Cell(nil), n.path...)
}

// WaypointIndex returns the cursor into Path.
func (n *Navigator) WaypointIndex() int {
	return n.cursor
}

// Target returns the goal of the current path.
func (n *Navigator) Target() (grid.Cell, bool) {
	return n.target, n.HasPath()
}

// Timer returns the seconds left before the next replan is allowed.
func (n *Navigator) Timer() float64 {
	return n.timer
}
