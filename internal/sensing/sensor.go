// Package sensing turns range readings into occupancy grid updates.
package sensing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"exploration-planner/internal/grid"
	"exploration-planner/internal/monitoring"
)

// RayCaster is the collision-query collaborator. dir need not be normalised.
type RayCaster interface {
	Cast(origin, dir r2.Vec, maxDist float64) (hit bool, dist float64, point r2.Vec)
}

// Decayer is ticked down by the elapsed time on every sensor update.
type Decayer interface {
	Decay(dt float64)
}

// hitBackoff is the fraction of a cell the hit point is pulled back along
// the ray before its cell is marked occupied.
const hitBackoff = 0.01

// snapEpsilon zeroes direction components that are pure rounding noise so
// axis-aligned rays stay in their row or column.
const snapEpsilon = 1e-12

// Sensor casts a fixed fan of rays around the agent and writes the result
// into the grid.
type Sensor struct {
	grid      *grid.Grid
	caster    RayCaster
	maxRange  float64
	dirs      []r2.Vec
	cooldowns Decayer

	hits, frees []grid.Cell
}

// Option configures a Sensor.
type Option func(*Sensor)

// WithCooldowns decays d by the elapsed time on every Update.
func WithCooldowns(d Decayer) Option {
	return func(s *Sensor) { s.cooldowns = d }
}

// New builds a sensor with rayCount rays evenly spaced over a full circle.
func New(g *grid.Grid, caster RayCaster, rayCount int, maxRange float64, opts ...Option) (*Sensor, error) {
	if g == nil {
		return nil, fmt.Errorf("sensor requires a grid")
	}
	if caster == nil {
		return nil, fmt.Errorf("sensor requires a ray caster")
	}
	if rayCount <= 0 {
		return nil, fmt.Errorf("ray count must be positive, got %d", rayCount)
	}
	if maxRange <= 0 {
		return nil, fmt.Errorf("max range must be positive, got %f", maxRange)
	}

	s := &Sensor{
		grid:     g,
		caster:   caster,
		maxRange: maxRange,
		dirs:     make([]r2.Vec, rayCount),
	}
	for i := range s.dirs {
		sin, cos := math.Sincos(2 * math.Pi * float64(i) / float64(rayCount))
		s.dirs[i] = r2.Vec{X: snap(cos), Y: snap(sin)}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func snap(v float64) float64 {
	if math.Abs(v) < snapEpsilon {
		return 0
	}
	return v
}

// Sweep summarises one Update.
type Sweep struct {
	Rays int
	Hits int
}

// Update casts every ray from pos, marks traversed cells Free and hit cells
// Occupied, then rebuilds inflation once. Free marks are applied before
// Occupied marks so a ray grazing a cell another ray hit cannot clear it
// within the same sweep.
func (s *Sensor) Update(pos r2.Vec, dt float64) Sweep {
	if s.cooldowns != nil && dt > 0 {
		s.cooldowns.Decay(dt)
	}

	cellSize := s.grid.CellSize()
	s.hits = s.hits[:0]
	s.frees = s.frees[:0]

	for _, dir := range s.dirs {
		hit, dist, _ := s.caster.Cast(pos, dir, s.maxRange)
		if !hit {
			dist = s.maxRange
		}
		dist = math.Min(dist, s.maxRange)

		steps := int(math.Floor(dist / cellSize))
		for i := 0; i <= steps; i++ {
			t := float64(i) * cellSize
			if hit && t >= dist {
				break
			}
			if c, ok := s.grid.WorldToCell(r2.Add(pos, r2.Scale(t, dir))); ok {
				s.frees = append(s.frees, c)
			}
		}

		if hit {
			back := math.Max(dist-hitBackoff*cellSize, 0)
			if c, ok := s.grid.WorldToCell(r2.Add(pos, r2.Scale(back, dir))); ok {
				s.hits = append(s.hits, c)
			}
		}
	}

	for _, c := range s.frees {
		s.grid.SetFree(c)
	}
	for _, c := range s.hits {
		s.grid.SetOccupied(c)
	}
	s.grid.RebuildInflation()

	sweep := Sweep{Rays: len(s.dirs), Hits: len(s.hits)}
	monitoring.Debug(monitoring.EventSenseUpdate, "x", pos.X, "y", pos.Y, "rays", sweep.Rays, "hits", sweep.Hits)
	return sweep
}

// Directions returns the unit ray directions in casting order.
func (s *Sensor) Directions() []r2.Vec {
	return s.dirs
}
