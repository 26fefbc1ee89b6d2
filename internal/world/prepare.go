package world

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// Prepare simplifies each polygon with Douglas-Peucker at the given tolerance
// and drops polygons fully contained in another. A non-positive tolerance
// skips simplification.
func Prepare(polygons []orb.Polygon, tolerance float64) []orb.Polygon {
	out := make([]orb.Polygon, 0, len(polygons))
	for _, p := range polygons {
		out = append(out, simplifyPolygon(p, tolerance))
	}
	return removeContained(out)
}

// simplifyPolygon keeps the original when simplification would collapse a ring.
func simplifyPolygon(p orb.Polygon, tolerance float64) orb.Polygon {
	if tolerance <= 0 {
		return p
	}
	s, ok := simplify.DouglasPeucker(tolerance).Simplify(p.Clone()).(orb.Polygon)
	if !ok || len(s) != len(p) {
		return p
	}
	for _, ring := range s {
		if len(ring) < 4 {
			return p
		}
	}
	return s
}

// removeContained removes polygons whose outer ring lies entirely inside another polygon.
func removeContained(polygons []orb.Polygon) []orb.Polygon {
	if len(polygons) <= 1 {
		return polygons
	}

	contained := make([]bool, len(polygons))
	for i := range polygons {
		if contained[i] {
			continue
		}
		for j := range polygons {
			if i == j || contained[j] {
				continue
			}
			if isContainedIn(polygons[i], polygons[j]) {
				contained[i] = true
				break
			}
		}
	}

	result := make([]orb.Polygon, 0, len(polygons))
	for i, p := range polygons {
		if !contained[i] {
			result = append(result, p)
		}
	}
	return result
}

// isContainedIn checks if polygon a is fully contained within polygon b
func isContainedIn(a, b orb.Polygon) bool {
	if len(a) == 0 || len(b) == 0 || len(a[0]) == 0 {
		return false
	}

	// Quick bounding box check first
	ab, bb := a.Bound(), b.Bound()
	if !bb.Contains(ab.Min) || !bb.Contains(ab.Max) {
		return false
	}

	for _, vertex := range a[0] {
		if !planar.PolygonContains(b, vertex) {
			return false
		}
	}
	return true
}
