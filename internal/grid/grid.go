// Package grid implements the tri-state occupancy grid and its inflated
// planning layer.
package grid

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrOutOfBounds reports a position or cell outside the grid.
var ErrOutOfBounds = errors.New("grid: out of bounds")

// State is the raw knowledge about a cell.
type State uint8

const (
	Unknown State = iota
	Free
	Occupied
	// OutOfBounds is returned by Grid.Cell for cells outside the grid.
	OutOfBounds
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Free:
		return "free"
	case Occupied:
		return "occupied"
	default:
		return "out-of-bounds"
	}
}

// Inflated is the derived traversability of a cell.
type Inflated uint8

const (
	InflatedOccupied Inflated = iota
	InflatedFree
)

// Cell is an integer grid coordinate.
type Cell struct {
	X, Y int
}

// Manhattan returns |ax-bx| + |ay-by|.
func Manhattan(a, b Cell) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Chebyshev returns max(|ax-bx|, |ay-by|).
func Chebyshev(a, b Cell) int {
	return max(abs(a.X-b.X), abs(a.Y-b.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Cardinal lists the 4-neighbourhood offsets in N, E, S, W order.
var Cardinal = [4]Cell{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// Ring lists the 8-neighbourhood offsets.
var Ring = [8]Cell{{-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}}

// Add offsets c by d.
func (c Cell) Add(d Cell) Cell {
	return Cell{c.X + d.X, c.Y + d.Y}
}

// Grid is a fixed-size occupancy grid. It is not safe for concurrent use;
// all writes and the inflation rebuild must happen before planning reads
// within one tick.
type Grid struct {
	width, height int
	cellSize      float64
	origin        r2.Vec
	radius        int

	raw      []State
	inflated []Inflated
	dirty    bool

	// disc holds the offsets covered by one occupied cell's inflation.
	disc []Cell
}

// New creates a grid with every cell Unknown.
func New(width, height int, cellSize float64, origin r2.Vec, inflationRadius int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid size must be positive, got %dx%d", width, height)
	}
	if width > math.MaxInt/height {
		return nil, fmt.Errorf("grid size %dx%d overflows the cell count", width, height)
	}
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("cell size must be positive and finite, got %f", cellSize)
	}
	if inflationRadius < 0 {
		return nil, fmt.Errorf("inflation radius must be non-negative, got %d", inflationRadius)
	}

	g := &Grid{
		width:    width,
		height:   height,
		cellSize: cellSize,
		origin:   origin,
		radius:   inflationRadius,
		raw:      make([]State, width*height),
		inflated: make([]Inflated, width*height),
	}
	rr := inflationRadius * inflationRadius
	for dy := -inflationRadius; dy <= inflationRadius; dy++ {
		for dx := -inflationRadius; dx <= inflationRadius; dx++ {
			if dx*dx+dy*dy <= rr {
				g.disc = append(g.disc, Cell{dx, dy})
			}
		}
	}
	g.RebuildInflation()
	return g, nil
}

func (g *Grid) Width() int           { return g.width }
func (g *Grid) Height() int          { return g.height }
func (g *Grid) CellSize() float64    { return g.cellSize }
func (g *Grid) Origin() r2.Vec       { return g.origin }
func (g *Grid) InflationRadius() int { return g.radius }

// Dirty reports whether raw cells changed since the last RebuildInflation.
func (g *Grid) Dirty() bool { return g.dirty }

// InBounds reports whether c lies inside the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.width && c.Y < g.height
}

func (g *Grid) index(c Cell) int {
	return c.Y*g.width + c.X
}

// WorldToCell converts a world position to the cell containing it.
func (g *Grid) WorldToCell(pos r2.Vec) (Cell, bool) {
	rel := r2.Scale(1/g.cellSize, r2.Sub(pos, g.origin))
	fx, fy := math.Floor(rel.X), math.Floor(rel.Y)
	if math.IsNaN(fx) || math.IsNaN(fy) || fx < 0 || fy < 0 || fx >= float64(g.width) || fy >= float64(g.height) {
		return Cell{}, false
	}
	return Cell{int(fx), int(fy)}, true
}

// CellToWorldCenter returns the world position of the centre of c.
func (g *Grid) CellToWorldCenter(c Cell) r2.Vec {
	return r2.Add(g.origin, r2.Vec{
		X: (float64(c.X) + 0.5) * g.cellSize,
		Y: (float64(c.Y) + 0.5) * g.cellSize,
	})
}

// SetFree marks c Free. Out-of-bounds cells are ignored.
func (g *Grid) SetFree(c Cell) {
	g.set(c, Free)
}

// SetOccupied marks c Occupied. Out-of-bounds cells are ignored.
func (g *Grid) SetOccupied(c Cell) {
	g.set(c, Occupied)
}

func (g *Grid) set(c Cell, s State) {
	if !g.InBounds(c) {
		return
	}
	i := g.index(c)
	if g.raw[i] != s {
		g.raw[i] = s
		g.dirty = true
	}
}

// Cell returns the raw state of c, or OutOfBounds.
func (g *Grid) Cell(c Cell) State {
	if !g.InBounds(c) {
		return OutOfBounds
	}
	return g.raw[g.index(c)]
}

// CellInflated returns the planning state of c. Unknown and out-of-bounds
// cells are never free.
func (g *Grid) CellInflated(c Cell) Inflated {
	if !g.InBounds(c) {
		return InflatedOccupied
	}
	return g.inflated[g.index(c)]
}

// Traversable is shorthand for CellInflated(c) == InflatedFree.
func (g *Grid) Traversable(c Cell) bool {
	return g.CellInflated(c) == InflatedFree
}

// RebuildInflation recomputes the inflated layer from the raw layer.
func (g *Grid) RebuildInflation() {
	for i, s := range g.raw {
		if s == Free {
			g.inflated[i] = InflatedFree
		} else {
			g.inflated[i] = InflatedOccupied
		}
	}
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if g.raw[y*g.width+x] != Occupied {
				continue
			}
			for _, d := range g.disc {
				n := Cell{x + d.X, y + d.Y}
				if g.InBounds(n) {
					g.inflated[g.index(n)] = InflatedOccupied
				}
			}
		}
	}
	g.dirty = false
}

// Census counts cells per raw state.
type Census struct {
	Unknown, Free, Occupied int
}

// Known returns the fraction of cells that are no longer Unknown.
func (c Census) Known() float64 {
	total := c.Unknown + c.Free + c.Occupied
	if total == 0 {
		return 0
	}
	return float64(c.Free+c.Occupied) / float64(total)
}

// Counts returns the per-state census of the raw layer.
func (g *Grid) Counts() Census {
	var c Census
	for _, s := range g.raw {
		switch s {
		case Unknown:
			c.Unknown++
		case Free:
			c.Free++
		case Occupied:
			c.Occupied++
		}
	}
	return c
}

// Rows renders the raw layer top row first: '?' unknown, '.' free, '#' occupied.
func (g *Grid) Rows() []string {
	rows := make([]string, 0, g.height)
	var b strings.Builder
	for y := g.height - 1; y >= 0; y-- {
		b.Reset()
		for x := 0; x < g.width; x++ {
			switch g.raw[y*g.width+x] {
			case Free:
				b.WriteByte('.')
			case Occupied:
				b.WriteByte('#')
			default:
				b.WriteByte('?')
			}
		}
		rows = append(rows, b.String())
	}
	return rows
}
