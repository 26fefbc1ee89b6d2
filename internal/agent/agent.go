// Package agent wires the exploration core for one agent and runs its
// per-tick cycle: sense, replan when due, advance the waypoint.
package agent

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	bt "github.com/joeycumines/go-behaviortree"
	"gonum.org/v1/gonum/spatial/r2"

	"exploration-planner/internal/config"
	"exploration-planner/internal/frontier"
	"exploration-planner/internal/grid"
	"exploration-planner/internal/navigator"
	"exploration-planner/internal/planner"
	"exploration-planner/internal/sensing"
)

// Agent owns the sensing, selection, planning and following state of one
// explorer. It is not safe for concurrent use.
type Agent struct {
	id   uuid.UUID
	cfg  config.Config
	grid *grid.Grid

	cooldowns *frontier.Cooldowns
	sensor    *sensing.Sensor
	selector  *frontier.Selector
	planner   *planner.Planner
	nav       *navigator.Navigator
	tree      bt.Node
	planning  bt.Node

	goal    grid.Cell
	hasGoal bool

	// inputs of the tick in progress
	dt  float64
	pos r2.Vec

	replanned bool
	replanErr error
	exhausted bool
}

// Option configures an Agent.
type Option func(*Agent)

// WithGrid makes the agent write into and plan over g instead of a private grid.
func WithGrid(g *grid.Grid) Option {
	return func(a *Agent) { a.grid = g }
}

// WithID sets the agent identifier.
func WithID(id uuid.UUID) Option {
	return func(a *Agent) { a.id = id }
}

// New validates cfg and builds an agent sensing through caster.
func New(cfg *config.Config, caster sensing.RayCaster, opts ...Option) (*Agent, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent configuration: %w", err)
	}

	a := &Agent{id: uuid.New(), cfg: *cfg}
	for _, opt := range opts {
		opt(a)
	}

	var err error
	if a.grid == nil {
		a.grid, err = grid.New(cfg.Width, cfg.Height, cfg.CellSize, r2.Vec{X: cfg.OriginX, Y: cfg.OriginY}, cfg.InflationRadius)
		if err != nil {
			return nil, err
		}
	}

	a.cooldowns = frontier.NewCooldowns(cfg.CooldownCapacity)
	if a.sensor, err = sensing.New(a.grid, caster, cfg.RayCount, cfg.MaxRange, sensing.WithCooldowns(a.cooldowns)); err != nil {
		return nil, err
	}
	if a.selector, err = frontier.NewSelector(a.grid, a.cooldowns, frontier.Options{
		ExpansionCap: cfg.FrontierExpansionCap,
		CandidateCap: cfg.FrontierCandidateCap,
		Cooldown:     cfg.FrontierCooldown,
	}); err != nil {
		return nil, err
	}
	if a.planner, err = planner.New(a.grid, cfg.AStarNodeLimit); err != nil {
		return nil, err
	}
	if a.nav, err = navigator.New(a.grid, a.selector, a.planner, navigator.Options{
		ReplanInterval:  cfg.ReplanInterval,
		ArrivalDistance: cfg.ArrivalDistance,
	}); err != nil {
		return nil, err
	}

	a.planning = bt.New(bt.Sequence,
		bt.New(bt.Selector,
			bt.New(a.keepCurrentPlan),
			bt.New(a.replan),
		),
		bt.New(a.advance),
	)
	a.tree = bt.New(bt.Sequence, bt.New(a.sense), a.planning)
	return a, nil
}

// Tick runs one cycle with the elapsed time dt and the agent's world
// position: sense, replan when due, advance the waypoint. Once the replan
// timer has expired the current path is kept as long as every remaining cell
// is traversable and, while exploring, its target still borders unknown
// space; only otherwise is a new path planned.
//
// Tick returns the outcome of the replan performed during this tick, or nil
// when none ran. Every returned error is an expected outcome such as
// frontier.ErrNoFrontier or planner.ErrPathNotFound.
func (a *Agent) Tick(dt float64, pos r2.Vec) error {
	return a.run(a.tree, dt, pos)
}

// Sense runs only the sensor sweep of a tick.
func (a *Agent) Sense(dt float64, pos r2.Vec) {
	a.dt, a.pos = dt, pos
	a.sensor.Update(pos, dt)
}

// Plan runs the replan and advance steps of a tick without sensing. It
// reports like Tick.
func (a *Agent) Plan(dt float64, pos r2.Vec) error {
	return a.run(a.planning, dt, pos)
}

func (a *Agent) run(node bt.Node, dt float64, pos r2.Vec) error {
	a.dt, a.pos = dt, pos
	a.replanned, a.replanErr = false, nil
	if _, err := node.Tick(); err != nil {
		return err
	}
	if a.replanned {
		return a.replanErr
	}
	return nil
}

func (a *Agent) sense([]bt.Node) (bt.Status, error) {
	a.sensor.Update(a.pos, a.dt)
	return bt.Success, nil
}

// keepCurrentPlan succeeds while the replan timer runs, or when the timer has
// expired but the current path is still worth following.
func (a *Agent) keepCurrentPlan([]bt.Node) (bt.Status, error) {
	if !a.nav.ShouldReplan(a.dt) {
		return bt.Success, nil
	}
	if a.planStillValid() {
		return bt.Success, nil
	}
	return bt.Failure, nil
}

func (a *Agent) replan([]bt.Node) (bt.Status, error) {
	var err error
	if a.hasGoal {
		err = a.nav.ReplanToCell(a.goal, a.pos)
	} else {
		err = a.nav.ReplanToFrontier(a.pos)
		// Frontiers on cooldown come back, so only an empty cooldown map
		// makes the result final.
		a.exhausted = errors.Is(err, frontier.ErrNoFrontier) && a.cooldowns.Len() == 0
	}
	a.replanned, a.replanErr = true, err
	// Planning failures are expected outcomes; the cycle carries on.
	return bt.Success, nil
}

func (a *Agent) advance([]bt.Node) (bt.Status, error) {
	if a.nav.AdvanceWaypointIfArrived(a.pos) && !a.nav.HasPath() && a.hasGoal {
		a.hasGoal = false
	}
	return bt.Success, nil
}

// planStillValid reports whether the remaining path is traversable and, when
// exploring, still ends on a cell bordering unknown space.
func (a *Agent) planStillValid() bool {
	if !a.nav.HasPath() {
		return false
	}
	path := a.nav.Path()
	for _, c := range path[a.nav.WaypointIndex():] {
		if !a.grid.Traversable(c) {
			return false
		}
	}
	if a.hasGoal {
		return true
	}
	target := path[len(path)-1]
	for _, d := range grid.Cardinal {
		if a.grid.Cell(target.Add(d)) == grid.Unknown {
			return true
		}
	}
	return false
}

// SetGoal switches from frontier exploration to an explicit goal cell until
// it is reached or cleared. The current path is dropped so the next due
// replan heads for the goal.
func (a *Agent) SetGoal(c grid.Cell) error {
	if !a.grid.InBounds(c) {
		return fmt.Errorf("%w: goal %v", grid.ErrOutOfBounds, c)
	}
	a.goal, a.hasGoal = c, true
	a.nav.ClearPath()
	return nil
}

// ClearGoal returns the agent to frontier exploration.
func (a *Agent) ClearGoal() {
	if a.hasGoal {
		a.hasGoal = false
		a.nav.ClearPath()
	}
}

// Goal returns the explicit goal, if any.
func (a *Agent) Goal() (grid.Cell, bool) { return a.goal, a.hasGoal }

// Waypoint returns the world position to steer toward; pos itself when idle.
func (a *Agent) Waypoint(pos r2.Vec) r2.Vec { return a.nav.CurrentWaypointWorld(pos) }

// HasPath reports whether the agent is following a path.
func (a *Agent) HasPath() bool { return a.nav.HasPath() }

// Exhausted reports whether the latest frontier replan found nothing to
// explore with no selection still cooling down.
func (a *Agent) Exhausted() bool { return a.exhausted && !a.nav.HasPath() }

func (a *Agent) ID() uuid.UUID                   { return a.id }
func (a *Agent) Grid() *grid.Grid                { return a.grid }
func (a *Agent) Navigator() *navigator.Navigator { return a.nav }
func (a *Agent) Selector() *frontier.Selector    { return a.selector }
func (a *Agent) Config() config.Config           { return a.cfg }

// Group ticks several agents that share one grid. Every agent senses before
// any agent plans, so all searches in a tick see the same map. The lock
// keeps callers on different goroutines from interleaving ticks.
type Group struct {
	mu     sync.Mutex
	grid   *grid.Grid
	agents []*Agent
}

// NewGroup builds count agents over a single shared grid created from cfg.
func NewGroup(cfg *config.Config, caster sensing.RayCaster, count int) (*Group, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid group configuration: %w", err)
	}
	if count <= 0 {
		return nil, fmt.Errorf("group size must be positive, got %d", count)
	}
	g, err := grid.New(cfg.Width, cfg.Height, cfg.CellSize, r2.Vec{X: cfg.OriginX, Y: cfg.OriginY}, cfg.InflationRadius)
	if err != nil {
		return nil, err
	}
	group := &Group{grid: g}
	for i := 0; i < count; i++ {
		a, err := New(cfg, caster, WithGrid(g))
		if err != nil {
			return nil, err
		}
		group.agents = append(group.agents, a)
	}
	return group, nil
}

// Agents returns the group members in tick order.
func (g *Group) Agents() []*Agent { return g.agents }

// Grid returns the shared grid.
func (g *Group) Grid() *grid.Grid { return g.grid }

// Tick senses for every agent, then plans for every agent, in order under
// the group lock. positions must hold one entry per agent.
func (g *Group) Tick(dt float64, positions []r2.Vec) ([]error, error) {
	if len(positions) != len(g.agents) {
		return nil, fmt.Errorf("expected %d positions, got %d", len(g.agents), len(positions))
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, a := range g.agents {
		a.Sense(dt, positions[i])
	}
	outcomes := make([]error, len(g.agents))
	for i, a := range g.agents {
		outcomes[i] = a.Plan(dt, positions[i])
	}
	return outcomes, nil
}
