package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"exploration-planner/internal/agent"
	"exploration-planner/internal/config"
	"exploration-planner/internal/grid"
	"exploration-planner/internal/planner"
	"exploration-planner/internal/reactive"
	"exploration-planner/internal/world"
)

func testConfig() *config.Config {
	return config.Default().WithGrid(16, 16, 1)
}

func newRunner(t *testing.T, w *world.World, start r2.Vec) *Runner {
	t.Helper()
	a, err := agent.New(testConfig(), w)
	require.NoError(t, err)
	r, err := New(w, a, start)
	require.NoError(t, err)
	return r
}

// walledRoom is a 16x16 room with thin walls off the cell boundaries and a
// partition hanging from the south wall.
func walledRoom() *world.World {
	polygons := world.Border(orb.Bound{Max: orb.Point{16, 16}}, 0.5)
	polygons = append(polygons, world.Box(5.25, 2, 5.75, 10))
	return world.New(polygons)
}

func TestNew_Validation(t *testing.T) {
	w := walledRoom()
	a, err := agent.New(testConfig(), w)
	require.NoError(t, err)

	_, err = New(nil, a, r2.Vec{X: 2.5, Y: 2.5})
	assert.Error(t, err)
	_, err = New(w, nil, r2.Vec{X: 2.5, Y: 2.5})
	assert.Error(t, err)
	_, err = New(w, a, r2.Vec{X: 5.5, Y: 5})
	assert.Error(t, err, "start inside the partition")
}

func TestStep_FollowsWaypoint(t *testing.T) {
	r := newRunner(t, world.New(nil), r2.Vec{X: 5.5, Y: 5.5})

	res := r.Step(0.1)
	require.NoError(t, res.Outcome)
	assert.Equal(t, Following, res.Mode)
	assert.InDelta(t, 5.5, r.Position().X, 1e-9)
	assert.InDelta(t, 5.4, r.Position().Y, 1e-9)
	assert.InDelta(t, -math.Pi/2, r.Heading(), 1e-9)
	assert.InDelta(t, 0.1, r.Elapsed(), 1e-12)

	trail := r.Trail()
	require.Len(t, trail, 2)
	assert.Equal(t, r2.Vec{X: 5.5, Y: 5.5}, trail[0])
	assert.Equal(t, r.Position(), trail[1])
}

func TestStep_ReactsWithoutPath(t *testing.T) {
	w := world.New([]orb.Polygon{world.Box(6, 0, 7, 16)})
	r := newRunner(t, w, r2.Vec{X: 5.5, Y: 8.5})
	require.NoError(t, r.Agent().SetGoal(grid.Cell{X: 15, Y: 15}))

	// Facing the wall with open space either side: turn left.
	res := r.Step(0.1)
	assert.True(t, errors.Is(res.Outcome, planner.ErrPathNotFound))
	assert.Equal(t, Reacting, res.Mode)
	assert.Equal(t, reactive.TurnLeft, res.Action)
	assert.Equal(t, reactive.Corner, r.State())
	assert.InDelta(t, math.Pi/2, r.Heading(), 1e-9)

	// Now heading north with the wall on the right.
	res = r.Step(0.1)
	assert.Equal(t, Reacting, res.Mode)
	assert.Equal(t, reactive.Forward, res.Action)
	assert.Equal(t, reactive.WallFollow, r.State())
	assert.InDelta(t, 5.5, r.Position().X, 1e-9)
	assert.InDelta(t, 8.6, r.Position().Y, 1e-9)
}

func TestRun_ExploresWalledRoom(t *testing.T) {
	w := walledRoom()
	r := newRunner(t, w, r2.Vec{X: 2.5, Y: 2.5})

	for i := 0; i < 2000 && !r.Done(); i++ {
		r.Step(0.1)
		require.False(t, w.Contains(r.Position()), "step %d: agent inside an obstacle at %v", i, r.Position())
	}

	report := r.Report()
	require.True(t, report.Done, "exploration did not finish in %d steps", report.Steps)
	assert.Equal(t, 1.0, report.Known)
	assert.Less(t, report.Reacting, report.Steps)

	// Once done the runner holds still.
	before := r.Position()
	res := r.Step(0.1)
	assert.Equal(t, Idle, res.Mode)
	assert.Equal(t, before, r.Position())
}

func TestRun_StopsAtStepLimit(t *testing.T) {
	r := newRunner(t, walledRoom(), r2.Vec{X: 2.5, Y: 2.5})

	report := r.Run(5, 0.1)
	assert.Equal(t, 5, report.Steps)
	assert.False(t, report.Done)
	assert.Greater(t, report.Known, 0.0)
	assert.Less(t, report.Known, 1.0)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "following", Following.String())
	assert.Equal(t, "reacting", Reacting.String())
	assert.Equal(t, "mode(9)", Mode(9).String())
}
