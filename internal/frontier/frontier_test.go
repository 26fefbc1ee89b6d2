package frontier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"exploration-planner/internal/grid"
)

// scenarioGrid reproduces an 8-ray, range-3 sweep from (5,5) on a 10x10 grid.
func scenarioGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New(10, 10, 1, r2.Vec{}, 1)
	require.NoError(t, err)
	for _, c := range []grid.Cell{
		{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 7, Y: 5}, {X: 8, Y: 5}, {X: 6, Y: 6}, {X: 7, Y: 7}, {X: 5, Y: 6}, {X: 5, Y: 7}, {X: 5, Y: 8},
		{X: 4, Y: 5}, {X: 3, Y: 6}, {X: 2, Y: 7}, {X: 3, Y: 5}, {X: 2, Y: 5}, {X: 4, Y: 4}, {X: 3, Y: 3}, {X: 2, Y: 2},
		{X: 5, Y: 4}, {X: 5, Y: 3}, {X: 5, Y: 2}, {X: 6, Y: 3}, {X: 7, Y: 2},
	} {
		g.SetFree(c)
	}
	g.RebuildInflation()
	return g
}

func newSelector(t *testing.T, g *grid.Grid, opts Options) *Selector {
	t.Helper()
	s, err := NewSelector(g, NewCooldowns(16), opts)
	require.NoError(t, err)
	return s
}

var defaultOpts = Options{ExpansionCap: 1000, CandidateCap: 100, Cooldown: 3}

func TestNewSelector_Validation(t *testing.T) {
	g := scenarioGrid(t)

	_, err := NewSelector(nil, NewCooldowns(1), defaultOpts)
	assert.Error(t, err)
	_, err = NewSelector(g, nil, defaultOpts)
	assert.Error(t, err)
	_, err = NewSelector(g, NewCooldowns(1), Options{ExpansionCap: 0, CandidateCap: 1})
	assert.Error(t, err)
	_, err = NewSelector(g, NewCooldowns(1), Options{ExpansionCap: 1, CandidateCap: 0})
	assert.Error(t, err)
	_, err = NewSelector(g, NewCooldowns(1), Options{ExpansionCap: 1, CandidateCap: 1, Cooldown: -1})
	assert.Error(t, err)
}

func TestSelect_Scenario(t *testing.T) {
	g := scenarioGrid(t)
	s := newSelector(t, g, defaultOpts)
	agent := grid.Cell{X: 5, Y: 5}

	got, err := s.Select(agent)
	require.NoError(t, err)

	// (8,5) and (5,8) tie on score; (8,5) is found first.
	assert.Equal(t, grid.Cell{X: 8, Y: 5}, got)
	assert.InDelta(t, 13.55, Score(g, got, agent), 1e-9)
	assert.True(t, g.Traversable(got))
	assert.Greater(t, grid.Chebyshev(got, agent), 1)
}

func TestCandidates_Predicate(t *testing.T) {
	g := scenarioGrid(t)
	s := newSelector(t, g, defaultOpts)
	agent := grid.Cell{X: 5, Y: 5}

	candidates := s.Candidates(agent)
	require.NotEmpty(t, candidates)
	for _, c := range candidates {
		assert.True(t, g.Traversable(c.Cell), "candidate %v not traversable", c.Cell)
		assert.Greater(t, grid.Chebyshev(c.Cell, agent), 1, "candidate %v too close", c.Cell)

		touchesUnknown := false
		for _, d := range grid.Cardinal {
			if g.Cell(c.Cell.Add(d)) == grid.Unknown {
				touchesUnknown = true
			}
		}
		assert.True(t, touchesUnknown, "candidate %v does not border unknown space", c.Cell)
	}

	// Cells only diagonally connected to the explored region are unreachable.
	for _, c := range candidates {
		assert.NotEqual(t, grid.Cell{X: 7, Y: 7}, c.Cell)
	}
}

func TestSelect_ExcludesAgentNeighbourhood(t *testing.T) {
	g, err := grid.New(5, 5, 1, r2.Vec{}, 0)
	require.NoError(t, err)
	for y := 1; y <= 3; y++ {
		for x := 1; x <= 3; x++ {
			g.SetFree(grid.Cell{X: x, Y: y})
		}
	}
	g.RebuildInflation()

	s := newSelector(t, g, defaultOpts)
	_, err = s.Select(grid.Cell{X: 2, Y: 2})
	assert.ErrorIs(t, err, ErrNoFrontier)

	// From a corner, the far side of the patch qualifies.
	got, err := s.Select(grid.Cell{X: 1, Y: 1})
	require.NoError(t, err)
	assert.Greater(t, grid.Chebyshev(got, grid.Cell{X: 1, Y: 1}), 1)
}

func TestSelect_FullyMapped(t *testing.T) {
	g, err := grid.New(6, 6, 1, r2.Vec{}, 0)
	require.NoError(t, err)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			g.SetFree(grid.Cell{X: x, Y: y})
		}
	}
	g.RebuildInflation()

	s := newSelector(t, g, defaultOpts)
	_, err = s.Select(grid.Cell{X: 0, Y: 0})
	assert.ErrorIs(t, err, ErrNoFrontier)
}

func TestSelect_OutOfBoundsAgent(t *testing.T) {
	s := newSelector(t, scenarioGrid(t), defaultOpts)
	_, err := s.Select(grid.Cell{X: -1, Y: 4})
	assert.ErrorIs(t, err, ErrNoFrontier)
}

func TestSelect_CooldownRespected(t *testing.T) {
	g := scenarioGrid(t)
	s := newSelector(t, g, Options{ExpansionCap: 1000, CandidateCap: 100, Cooldown: 1})
	agent := grid.Cell{X: 5, Y: 5}

	first, err := s.Select(agent)
	require.NoError(t, err)
	assert.Equal(t, grid.Cell{X: 8, Y: 5}, first)

	second, err := s.Select(agent)
	require.NoError(t, err)
	assert.Equal(t, grid.Cell{X: 5, Y: 8}, second)

	s.Cooldowns().Decay(0.5)
	third, err := s.Select(agent)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.NotEqual(t, second, third)

	s.Cooldowns().Decay(0.5)
	again, err := s.Select(agent)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestCandidates_Caps(t *testing.T) {
	g := scenarioGrid(t)
	agent := grid.Cell{X: 5, Y: 5}

	s := newSelector(t, g, Options{ExpansionCap: 1000, CandidateCap: 1})
	candidates := s.Candidates(agent)
	require.Len(t, candidates, 1)
	assert.Equal(t, grid.Cell{X: 5, Y: 3}, candidates[0].Cell)

	s = newSelector(t, g, Options{ExpansionCap: 1, CandidateCap: 100})
	assert.Empty(t, s.Candidates(agent))
	_, err := s.Select(agent)
	assert.ErrorIs(t, err, ErrNoFrontier)
}

func TestScore(t *testing.T) {
	g := scenarioGrid(t)
	assert.InDelta(t, 2.0*7-0.15*3, Score(g, grid.Cell{X: 8, Y: 5}, grid.Cell{X: 5, Y: 5}), 1e-9)
	assert.InDelta(t, 2.0*4-0.15*2, Score(g, grid.Cell{X: 5, Y: 3}, grid.Cell{X: 5, Y: 5}), 1e-9)
}
