package grid

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func newGrid(t *testing.T, w, h int, cellSize float64, origin r2.Vec, radius int) *Grid {
	t.Helper()
	g, err := New(w, h, cellSize, origin, radius)
	require.NoError(t, err)
	return g
}

func TestNew_InvalidArguments(t *testing.T) {
	tests := []struct {
		name     string
		w, h     int
		cellSize float64
		radius   int
	}{
		{"zero width", 0, 5, 1, 0},
		{"negative height", 5, -1, 1, 0},
		{"zero cell size", 5, 5, 0, 0},
		{"negative cell size", 5, 5, -0.5, 0},
		{"negative radius", 5, 5, 1, -1},
		{"overflowing cell count", math.MaxInt / 2, 3, 1, 0},
		{"square overflow", 1 << 32, 1 << 32, 1, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.w, tc.h, tc.cellSize, r2.Vec{}, tc.radius)
			assert.Error(t, err)
		})
	}
}

func TestNew_AllUnknown(t *testing.T) {
	g := newGrid(t, 4, 3, 1, r2.Vec{}, 1)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			c := Cell{x, y}
			assert.Equal(t, Unknown, g.Cell(c))
			assert.Equal(t, InflatedOccupied, g.CellInflated(c))
		}
	}
	assert.Equal(t, Census{Unknown: 12}, g.Counts())
}

func TestWorldToCell(t *testing.T) {
	g := newGrid(t, 10, 10, 0.5, r2.Vec{X: -1, Y: 2}, 0)

	c, ok := g.WorldToCell(r2.Vec{X: -1, Y: 2})
	require.True(t, ok)
	assert.Equal(t, Cell{0, 0}, c)

	c, ok = g.WorldToCell(r2.Vec{X: 0.26, Y: 3.9})
	require.True(t, ok)
	assert.Equal(t, Cell{2, 3}, c)

	for _, p := range []r2.Vec{{X: -1.01, Y: 2}, {X: 0, Y: 1.99}, {X: 4, Y: 3}, {X: 0, Y: 7}} {
		_, ok := g.WorldToCell(p)
		assert.False(t, ok, "expected %v out of bounds", p)
	}
}

func TestConversionRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		cellSize float64
		origin   r2.Vec
	}{
		{1, r2.Vec{}},
		{0.25, r2.Vec{X: -3.5, Y: 7.25}},
		{0.1, r2.Vec{X: 100, Y: -100}},
	} {
		g := newGrid(t, 37, 23, tc.cellSize, tc.origin, 0)
		for y := 0; y < g.Height(); y++ {
			for x := 0; x < g.Width(); x++ {
				c := Cell{x, y}
				got, ok := g.WorldToCell(g.CellToWorldCenter(c))
				require.True(t, ok)
				require.Equal(t, c, got)
			}
		}
	}
}

func TestSetters_OutOfBoundsNoop(t *testing.T) {
	g := newGrid(t, 3, 3, 1, r2.Vec{}, 0)
	g.SetFree(Cell{-1, 0})
	g.SetOccupied(Cell{3, 0})
	assert.False(t, g.Dirty())
	assert.Equal(t, Census{Unknown: 9}, g.Counts())
	assert.Equal(t, OutOfBounds, g.Cell(Cell{5, 5}))
	assert.Equal(t, InflatedOccupied, g.CellInflated(Cell{-1, -1}))
}

func TestInflation(t *testing.T) {
	g := newGrid(t, 7, 7, 1, r2.Vec{}, 1)
	for y := 0; y < 7; y++ {
		for x := 0; x < 7; x++ {
			g.SetFree(Cell{x, y})
		}
	}
	g.RebuildInflation()
	g.SetOccupied(Cell{3, 3})
	assert.True(t, g.Dirty())

	// Not visible until rebuilt.
	assert.Equal(t, InflatedFree, g.CellInflated(Cell{3, 2}))

	g.RebuildInflation()
	assert.False(t, g.Dirty())

	for _, c := range []Cell{{3, 3}, {3, 2}, {2, 3}, {4, 3}, {3, 4}} {
		assert.Equal(t, InflatedOccupied, g.CellInflated(c), "cell %v", c)
	}
	// Radius 1 disc excludes diagonals.
	for _, c := range []Cell{{2, 2}, {4, 4}, {3, 1}, {0, 0}} {
		assert.Equal(t, InflatedFree, g.CellInflated(c), "cell %v", c)
	}
	// Raw layer is untouched by inflation.
	assert.Equal(t, Free, g.Cell(Cell{3, 2}))
}

func TestInflation_UnknownIsBlocked(t *testing.T) {
	g := newGrid(t, 3, 1, 1, r2.Vec{}, 0)
	g.SetFree(Cell{0, 0})
	g.SetOccupied(Cell{2, 0})
	g.RebuildInflation()

	assert.True(t, g.Traversable(Cell{0, 0}))
	assert.False(t, g.Traversable(Cell{1, 0}))
	assert.False(t, g.Traversable(Cell{2, 0}))
}

func TestInflation_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := newGrid(t, 20, 20, 1, r2.Vec{}, 2)
	for i := 0; i < 300; i++ {
		c := Cell{rng.Intn(20), rng.Intn(20)}
		if rng.Intn(4) == 0 {
			g.SetOccupied(c)
		} else if g.Cell(c) != Occupied {
			g.SetFree(c)
		}
	}
	g.RebuildInflation()

	for i := 0; i < 50; i++ {
		before := make([]Inflated, len(g.inflated))
		copy(before, g.inflated)

		g.SetOccupied(Cell{rng.Intn(20), rng.Intn(20)})
		g.RebuildInflation()

		for j, b := range before {
			if b == InflatedOccupied {
				require.Equal(t, InflatedOccupied, g.inflated[j], "index %d turned free", j)
			}
		}
	}
}

func TestCountsAndRows(t *testing.T) {
	g := newGrid(t, 3, 2, 1, r2.Vec{}, 0)
	g.SetFree(Cell{0, 0})
	g.SetFree(Cell{1, 0})
	g.SetOccupied(Cell{2, 1})

	census := g.Counts()
	assert.Equal(t, Census{Unknown: 3, Free: 2, Occupied: 1}, census)
	assert.InDelta(t, 0.5, census.Known(), 1e-9)
	assert.Equal(t, []string{"??#", "..?"}, g.Rows())
}

func TestDistances(t *testing.T) {
	assert.Equal(t, 7, Manhattan(Cell{1, 2}, Cell{4, -2}))
	assert.Equal(t, 4, Chebyshev(Cell{1, 2}, Cell{4, -2}))
	assert.Equal(t, Cell{2, 1}, Cell{1, 1}.Add(Cardinal[1]))
}
