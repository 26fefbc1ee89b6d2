package sim

import "gonum.org/v1/gonum/spatial/r2"

// defaultTrailCapacity bounds the pose history kept per runner.
const defaultTrailCapacity = 1024

// Trail is a fixed-capacity ring of recent positions. Once full, each push
// overwrites the oldest entry.
type Trail struct {
	buf   []r2.Vec
	start int
	size  int
}

// NewTrail returns an empty trail holding at most capacity positions.
func NewTrail(capacity int) *Trail {
	if capacity < 1 {
		capacity = 1
	}
	return &Trail{buf: make([]r2.Vec, capacity)}
}

// Push appends p, evicting the oldest position when full.
func (t *Trail) Push(p r2.Vec) {
	if t.size < len(t.buf) {
		t.buf[(t.start+t.size)%len(t.buf)] = p
		t.size++
		return
	}
	t.buf[t.start] = p
	t.start = (t.start + 1) % len(t.buf)
}

// Len returns the number of stored positions.
func (t *Trail) Len() int { return t.size }

// Cap returns the trail capacity.
func (t *Trail) Cap() int { return len(t.buf) }

// Points returns the stored positions, oldest first.
func (t *Trail) Points() []r2.Vec {
	out := make([]r2.Vec, t.size)
	for i := range out {
		out[i] = t.buf[(t.start+i)%len(t.buf)]
	}
	return out
}
