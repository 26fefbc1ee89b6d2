// Package reactive is a sensor-driven fallback controller expressed as an
// explicit finite-state machine: named states and guarded transitions from
// range-reading predicates to the next state and a steering action.
package reactive

import "fmt"

// State names the controller's situation.
type State uint8

const (
	OpenSpace State = iota
	WallFollow
	Corner
	DeadEnd
)

func (s State) String() string {
	switch s {
	case OpenSpace:
		return "open-space"
	case WallFollow:
		return "wall-follow"
	case Corner:
		return "corner"
	case DeadEnd:
		return "dead-end"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Action is the steering command for one tick.
type Action uint8

const (
	Forward Action = iota
	TurnLeft
	TurnRight
	TurnAround
)

func (a Action) String() string {
	switch a {
	case Forward:
		return "forward"
	case TurnLeft:
		return "turn-left"
	case TurnRight:
		return "turn-right"
	case TurnAround:
		return "turn-around"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Readings are free distances ahead, to the left and to the right.
type Readings struct {
	Front, Left, Right float64
}

// Guard is a predicate over readings given the wall distance threshold.
type Guard func(r Readings, wall float64) bool

// Transition moves from From (or any state when Any is set) to To when Guard
// holds, emitting Action.
type Transition struct {
	Name   string
	From   State
	Any    bool
	Guard  Guard
	To     State
	Action Action
}

func boxedIn(r Readings, wall float64) bool {
	return r.Front < wall && r.Left < wall && r.Right < wall
}

func blockedAhead(r Readings, wall float64) bool {
	return r.Front < wall && !boxedIn(r, wall)
}

func wallAlongside(r Readings, wall float64) bool {
	return r.Front >= wall && (r.Left < wall || r.Right < wall)
}

func openAround(r Readings, wall float64) bool {
	return r.Front >= wall && r.Left >= wall && r.Right >= wall
}

func leftIsWider(r Readings, _ float64) bool {
	return r.Left >= r.Right
}

func frontClear(r Readings, wall float64) bool {
	return r.Front >= wall
}

func frontBlocked(r Readings, wall float64) bool {
	return r.Front < wall
}

func and(a, b Guard) Guard {
	return func(r Readings, wall float64) bool { return a(r, wall) && b(r, wall) }
}

// DefaultTransitions is the standard table. Entries are tried in order and
// the first matching one wins, so the DeadEnd hold comes before the global
// rules.
var DefaultTransitions = []Transition{
	{Name: "dead-end-escaped", From: DeadEnd, Guard: frontClear, To: OpenSpace, Action: Forward},
	{Name: "dead-end-hold", From: DeadEnd, Guard: frontBlocked, To: DeadEnd, Action: TurnAround},
	{Name: "boxed-in", Any: true, Guard: boxedIn, To: DeadEnd, Action: TurnAround},
	{Name: "corner-left", Any: true, Guard: and(blockedAhead, leftIsWider), To: Corner, Action: TurnLeft},
	{Name: "corner-right", Any: true, Guard: blockedAhead, To: Corner, Action: TurnRight},
	{Name: "follow-wall", Any: true, Guard: wallAlongside, To: WallFollow, Action: Forward},
	{Name: "open", Any: true, Guard: openAround, To: OpenSpace, Action: Forward},
}

// Machine is the reactive controller.
type Machine struct {
	state       State
	wall        float64
	transitions []Transition
	last        string
}

// New returns a machine in OpenSpace using DefaultTransitions.
func New(wallDistance float64) *Machine {
	return NewWithTable(wallDistance, DefaultTransitions)
}

// NewWithTable returns a machine driven by a custom transition table.
func NewWithTable(wallDistance float64, table []Transition) *Machine {
	return &Machine{state: OpenSpace, wall: wallDistance, transitions: table}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// LastTransition names the transition taken by the latest Step, empty if none matched.
func (m *Machine) LastTransition() string { return m.last }

// Step evaluates the table against r, applies the first matching transition
// and returns its action. With no match the state is kept and the agent
// keeps going forward.
func (m *Machine) Step(r Readings) Action {
	for _, t := range m.transitions {
		if !t.Any && t.From != m.state {
			continue
		}
		if t.Guard(r, m.wall) {
			m.state = t.To
			m.last = t.Name
			return t.Action
		}
	}
	m.last = ""
	return Forward
}

// Reset returns the machine to OpenSpace.
func (m *Machine) Reset() {
	m.state = OpenSpace
	m.last = ""
}
