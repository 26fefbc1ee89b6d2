package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const wall = 1.0

func TestStep_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		from       State
		readings   Readings
		wantState  State
		wantAction Action
		wantName   string
	}{
		{"open stays open", OpenSpace, Readings{5, 5, 5}, OpenSpace, Forward, "open"},
		{"wall on the left", OpenSpace, Readings{5, 0.5, 5}, WallFollow, Forward, "follow-wall"},
		{"wall on the right", OpenSpace, Readings{5, 5, 0.5}, WallFollow, Forward, "follow-wall"},
		{"wall ends", WallFollow, Readings{5, 5, 5}, OpenSpace, Forward, "open"},
		{"corner turns left", WallFollow, Readings{0.5, 3, 0.5}, Corner, TurnLeft, "corner-left"},
		{"corner turns right", WallFollow, Readings{0.5, 0.5, 3}, Corner, TurnRight, "corner-right"},
		{"corner tie prefers left", OpenSpace, Readings{0.5, 2, 2}, Corner, TurnLeft, "corner-left"},
		{"corner cleared", Corner, Readings{5, 0.5, 5}, WallFollow, Forward, "follow-wall"},
		{"boxed in", WallFollow, Readings{0.5, 0.5, 0.5}, DeadEnd, TurnAround, "boxed-in"},
		{"dead end keeps turning", DeadEnd, Readings{0.5, 0.5, 0.5}, DeadEnd, TurnAround, "dead-end-hold"},
		{"dead end half turned", DeadEnd, Readings{0.5, 4, 0.5}, DeadEnd, TurnAround, "dead-end-hold"},
		{"dead end escaped", DeadEnd, Readings{3, 0.5, 0.5}, OpenSpace, Forward, "dead-end-escaped"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := New(wall)
			m.state = tc.from

			action := m.Step(tc.readings)
			assert.Equal(t, tc.wantAction, action)
			assert.Equal(t, tc.wantState, m.State())
			assert.Equal(t, tc.wantName, m.LastTransition())
		})
	}
}

func TestDefaultTransitions_AllReachable(t *testing.T) {
	fired := map[string]bool{}
	m := New(wall)
	sequence := []Readings{
		{5, 5, 5},       // open
		{5, 0.5, 5},     // follow-wall
		{0.5, 3, 0.5},   // corner-left
		{0.5, 0.5, 3},   // corner-right
		{0.5, 0.5, 0.5}, // boxed-in
		{0.5, 0.5, 0.5}, // dead-end-hold
		{3, 0.5, 0.5},   // dead-end-escaped
	}
	for _, r := range sequence {
		m.Step(r)
		fired[m.LastTransition()] = true
	}
	for _, tr := range DefaultTransitions {
		assert.True(t, fired[tr.Name], "transition %q never fired", tr.Name)
	}
}

func TestStep_NoMatchKeepsState(t *testing.T) {
	m := NewWithTable(wall, []Transition{
		{Name: "only-from-corner", From: Corner, Guard: func(Readings, float64) bool { return true }, To: DeadEnd, Action: TurnAround},
	})

	assert.Equal(t, Forward, m.Step(Readings{}))
	assert.Equal(t, OpenSpace, m.State())
	assert.Empty(t, m.LastTransition())
}

func TestReset(t *testing.T) {
	m := New(wall)
	m.Step(Readings{0.1, 0.1, 0.1})
	assert.Equal(t, DeadEnd, m.State())

	m.Reset()
	assert.Equal(t, OpenSpace, m.State())
	assert.Empty(t, m.LastTransition())
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "wall-follow", WallFollow.String())
	assert.Equal(t, "turn-around", TurnAround.String())
	assert.Equal(t, "state(9)", State(9).String())
	assert.Equal(t, "action(9)", Action(9).String())
}
