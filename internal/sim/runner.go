// Package sim moves an agent through a polygon world: it follows the
// planned waypoints and falls back to the reactive controller whenever no
// path is available or the way ahead is blocked.
package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"exploration-planner/internal/agent"
	"exploration-planner/internal/monitoring"
	"exploration-planner/internal/reactive"
	"exploration-planner/internal/world"
)

// Mode says how the runner moved during a step.
type Mode uint8

const (
	Idle Mode = iota
	Following
	Reacting
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Following:
		return "following"
	case Reacting:
		return "reacting"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// StepResult describes one Step.
type StepResult struct {
	Mode    Mode
	Action  reactive.Action // meaningful when Mode is Reacting
	Outcome error           // replan outcome reported by the agent, if any
}

// Report summarises a Run.
type Report struct {
	Steps    int
	Reacting int
	Done     bool
	Known    float64
	Position r2.Vec
}

// Runner owns the simulated pose of one agent.
type Runner struct {
	world   *world.World
	agent   *agent.Agent
	machine *reactive.Machine

	pos     r2.Vec
	heading float64 // radians, counter-clockwise from +X
	trail   *Trail

	speed     float64
	clearance float64
	readRange float64

	elapsed  float64
	steps    int
	reacting int
}

// New places a at start inside w. Motion parameters come from the agent's
// configuration.
func New(w *world.World, a *agent.Agent, start r2.Vec) (*Runner, error) {
	if w == nil || a == nil {
		return nil, fmt.Errorf("runner requires a world and an agent")
	}
	if w.Contains(start) {
		return nil, fmt.Errorf("start (%.3f, %.3f) lies inside an obstacle", start.X, start.Y)
	}
	cfg := a.Config()
	r := &Runner{
		world:     w,
		agent:     a,
		machine:   reactive.New(cfg.WallDistance),
		pos:       start,
		trail:     NewTrail(defaultTrailCapacity),
		speed:     cfg.Speed,
		clearance: cfg.Clearance,
		readRange: cfg.MaxRange,
	}
	r.trail.Push(start)
	return r, nil
}

// Step advances the simulation by dt seconds.
func (r *Runner) Step(dt float64) StepResult {
	r.steps++
	r.elapsed += dt

	res := StepResult{Outcome: r.agent.Tick(dt, r.pos)}
	if r.agent.Exhausted() {
		res.Mode = Idle
		return res
	}

	if r.agent.HasPath() {
		if r.follow(dt) {
			res.Mode = Following
			return res
		}
	}

	res.Mode = Reacting
	res.Action = r.react(dt)
	r.reacting++
	return res
}

// follow moves toward the current waypoint. It reports false when the move
// would bring the agent within clearance of an obstacle.
func (r *Runner) follow(dt float64) bool {
	delta := r2.Sub(r.agent.Waypoint(r.pos), r.pos)
	dist := r2.Norm(delta)
	if dist == 0 {
		return true
	}
	dir := r2.Unit(delta)
	move := math.Min(r.speed*dt, dist)
	if hit, _, _ := r.world.Cast(r.pos, dir, move+r.clearance); hit {
		return false
	}
	r.heading = math.Atan2(dir.Y, dir.X)
	r.moveTo(r2.Add(r.pos, r2.Scale(move, dir)))
	return true
}

func (r *Runner) react(dt float64) reactive.Action {
	readings := reactive.Readings{
		Front: r.read(r.heading),
		Left:  r.read(r.heading + math.Pi/2),
		Right: r.read(r.heading - math.Pi/2),
	}
	action := r.machine.Step(readings)
	switch action {
	case reactive.Forward:
		move := r.speed * dt
		if readings.Front > move+r.clearance {
			r.moveTo(r2.Add(r.pos, r2.Scale(move, headingVec(r.heading))))
		}
	case reactive.TurnLeft:
		r.heading += math.Pi / 2
	case reactive.TurnRight:
		r.heading -= math.Pi / 2
	case reactive.TurnAround:
		r.heading += math.Pi
	}
	monitoring.Debug(monitoring.EventReactiveStep, "state", r.machine.State().String(), "action", action.String(),
		"front", readings.Front, "left", readings.Left, "right", readings.Right)
	return action
}

func (r *Runner) moveTo(p r2.Vec) {
	r.pos = p
	r.trail.Push(p)
}

// read returns the free distance along heading, capped at the read range.
func (r *Runner) read(heading float64) float64 {
	hit, dist, _ := r.world.Cast(r.pos, headingVec(heading), r.readRange)
	if !hit {
		return r.readRange
	}
	return dist
}

func headingVec(theta float64) r2.Vec {
	sin, cos := math.Sincos(theta)
	return r2.Vec{X: cos, Y: sin}
}

// Run steps until the agent is done or steps have elapsed.
func (r *Runner) Run(steps int, dt float64) Report {
	for i := 0; i < steps && !r.Done(); i++ {
		r.Step(dt)
	}
	return r.Report()
}

// Report summarises the run so far.
func (r *Runner) Report() Report {
	return Report{
		Steps:    r.steps,
		Reacting: r.reacting,
		Done:     r.Done(),
		Known:    r.agent.Grid().Counts().Known(),
		Position: r.pos,
	}
}

// Done reports whether the agent has nothing left to explore.
func (r *Runner) Done() bool { return r.agent.Exhausted() }

func (r *Runner) Position() r2.Vec      { return r.pos }
func (r *Runner) Heading() float64      { return r.heading }
func (r *Runner) Elapsed() float64      { return r.elapsed }
func (r *Runner) Agent() *agent.Agent   { return r.agent }
func (r *Runner) World() *world.World   { return r.world }
func (r *Runner) State() reactive.State { return r.machine.State() }

// Trail returns the recent positions, oldest first.
func (r *Runner) Trail() []r2.Vec { return r.trail.Points() }
