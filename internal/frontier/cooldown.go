package frontier

import "exploration-planner/internal/grid"

// Cooldowns maps cells to remaining seconds of ineligibility. It holds at most
// capacity cells; inserting beyond that evicts the oldest entry even if it is
// still active, so capacity must cover every cooldown live at once.
// config.Validate enforces that for a positive replan interval.
type Cooldowns struct {
	capacity  int
	remaining map[grid.Cell]float64
	order     []grid.Cell // oldest first
}

// NewCooldowns returns an empty map holding at most capacity cells.
func NewCooldowns(capacity int) *Cooldowns {
	if capacity < 1 {
		capacity = 1
	}
	return &Cooldowns{
		capacity:  capacity,
		remaining: make(map[grid.Cell]float64, capacity),
		order:     make([]grid.Cell, 0, capacity),
	}
}

// Set starts or restarts the cooldown of c. Non-positive durations clear it.
func (cd *Cooldowns) Set(c grid.Cell, seconds float64) {
	if _, ok := cd.remaining[c]; ok {
		cd.remove(c)
	}
	if seconds <= 0 {
		return
	}
	if len(cd.order) >= cd.capacity {
		oldest := cd.order[0]
		cd.order = cd.order[1:]
		delete(cd.remaining, oldest)
	}
	cd.remaining[c] = seconds
	cd.order = append(cd.order, c)
}

// Remaining returns the seconds left for c, zero when not cooling down.
func (cd *Cooldowns) Remaining(c grid.Cell) float64 {
	return cd.remaining[c]
}

// Active reports whether c is cooling down.
func (cd *Cooldowns) Active(c grid.Cell) bool {
	return cd.remaining[c] > 0
}

// Len returns the number of cells cooling down.
func (cd *Cooldowns) Len() int {
	return len(cd.order)
}

// Decay subtracts dt from every entry and prunes the expired ones.
func (cd *Cooldowns) Decay(dt float64) {
	if dt <= 0 {
		return
	}
	kept := cd.order[:0]
	for _, c := range cd.order {
		left := cd.remaining[c] - dt
		if left <= 0 {
			delete(cd.remaining, c)
			continue
		}
		cd.remaining[c] = left
		kept = append(kept, c)
	}
	cd.order = kept
}

func (cd *Cooldowns) remove(c grid.Cell) {
	delete(cd.remaining, c)
	for i, o := range cd.order {
		if o == c {
			cd.order = append(cd.order[:i], cd.order[i+1:]...)
			return
		}
	}
}
