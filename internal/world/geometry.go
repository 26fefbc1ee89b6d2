package world

import (
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r2"
)

// parallelEpsilon treats nearly parallel segments as non-intersecting.
const parallelEpsilon = 1e-12

// raySegmentRing returns the smallest parameter t in [0,1] along p1->p2 at
// which the segment crosses an edge of ring.
func raySegmentRing(p1, p2 r2.Vec, ring orb.Ring) (float64, bool) {
	n := len(ring)
	if n < 2 {
		return 0, false
	}
	best, found := 0.0, false
	for i := 0; i < n; i++ {
		a := ring[i]
		b := ring[(i+1)%n]
		if a == b {
			continue
		}
		t, ok := segmentIntersection(p1, p2, r2.Vec{X: a.X(), Y: a.Y()}, r2.Vec{X: b.X(), Y: b.Y()})
		if ok && (!found || t < best) {
			best, found = t, true
		}
	}
	return best, found
}

// segmentIntersection solves p1 + t(p2-p1) = q1 + u(q2-q1) and reports t when
// both parameters lie in [0,1]. Collinear overlaps are not reported; the
// neighbouring edges of a closed ring catch them.
func segmentIntersection(p1, p2, q1, q2 r2.Vec) (float64, bool) {
	r := r2.Sub(p2, p1)
	s := r2.Sub(q2, q1)
	denom := r2.Cross(r, s)
	if denom > -parallelEpsilon && denom < parallelEpsilon {
		return 0, false
	}
	qp := r2.Sub(q1, p1)
	t := r2.Cross(qp, s) / denom
	u := r2.Cross(qp, r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}
