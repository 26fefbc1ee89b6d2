// Package world models the static obstacle environment the sensor rays are
// cast against. It is the collision-query collaborator of the exploration
// core: it answers ray queries and never resolves collisions.
package world

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/spatial/r2"
)

// minExtent pads degenerate bounding boxes, rtreego rejects zero lengths.
const minExtent = 1e-9

// obstacleEntry wraps a polygon for R-tree storage
type obstacleEntry struct {
	polygon orb.Polygon
	bbox    rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *obstacleEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// World is an immutable set of polygon obstacles behind an R-tree index.
// Safe for concurrent readers.
type World struct {
	tree      *rtreego.Rtree
	obstacles []orb.Polygon
	bound     orb.Bound
}

// New indexes the given polygons. Empty polygons are skipped.
func New(polygons []orb.Polygon) *World {
	w := &World{
		tree: rtreego.NewTree(2, 25, 50), // 2D, min 25, max 50 entries per node
	}
	first := true
	for _, polygon := range polygons {
		if len(polygon) == 0 || len(polygon[0]) == 0 {
			continue
		}
		b := polygon.Bound()
		w.tree.Insert(&obstacleEntry{polygon: polygon, bbox: boundToRect(b)})
		w.obstacles = append(w.obstacles, polygon)
		if first {
			w.bound = b
			first = false
		} else {
			w.bound = w.bound.Union(b)
		}
	}
	return w
}

// Obstacles returns the indexed polygons.
func (w *World) Obstacles() []orb.Polygon {
	return w.obstacles
}

// Bound returns the union of all obstacle bounds.
func (w *World) Bound() orb.Bound {
	return w.bound
}

// Contains reports whether p lies inside any obstacle.
func (w *World) Contains(p r2.Vec) bool {
	pt := orb.Point{p.X, p.Y}
	for _, polygon := range w.query(orb.Bound{Min: pt, Max: pt}) {
		if planar.PolygonContains(polygon, pt) {
			return true
		}
	}
	return false
}

// Cast traces a ray from origin along dir up to maxDist and returns the
// nearest obstacle boundary crossing. A ray starting inside an obstacle hits
// at distance zero.
func (w *World) Cast(origin, dir r2.Vec, maxDist float64) (hit bool, dist float64, point r2.Vec) {
	if maxDist <= 0 || r2.Norm(dir) == 0 {
		return false, 0, origin
	}
	dir = r2.Unit(dir)
	end := r2.Add(origin, r2.Scale(maxDist, dir))

	o := orb.Point{origin.X, origin.Y}
	b := orb.Bound{Min: o, Max: o}.Extend(orb.Point{end.X, end.Y})

	best := math.Inf(1)
	for _, polygon := range w.query(b) {
		if planar.PolygonContains(polygon, o) {
			return true, 0, origin
		}
		for _, ring := range polygon {
			if t, ok := raySegmentRing(origin, end, ring); ok && t < best {
				best = t
			}
		}
	}
	if math.IsInf(best, 1) {
		return false, maxDist, end
	}
	dist = best * maxDist
	return true, dist, r2.Add(origin, r2.Scale(dist, dir))
}

func (w *World) query(b orb.Bound) []orb.Polygon {
	results := w.tree.SearchIntersect(boundToRect(b))
	polygons := make([]orb.Polygon, 0, len(results))
	for _, item := range results {
		polygons = append(polygons, item.(*obstacleEntry).polygon)
	}
	return polygons
}

func boundToRect(b orb.Bound) rtreego.Rect {
	w := math.Max(b.Max.X()-b.Min.X(), minExtent)
	h := math.Max(b.Max.Y()-b.Min.Y(), minExtent)
	rect, err := rtreego.NewRect(rtreego.Point{b.Min.X(), b.Min.Y()}, []float64{w, h})
	if err != nil {
		// Unreachable with positive lengths.
		panic(err)
	}
	return rect
}

// Box returns an axis-aligned rectangular obstacle.
func Box(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}.ToPolygon()
}

// Border returns four walls of the given thickness lining the inside of b.
func Border(b orb.Bound, thickness float64) []orb.Polygon {
	minX, minY, maxX, maxY := b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()
	return []orb.Polygon{
		Box(minX, minY, maxX, minY+thickness),
		Box(minX, maxY-thickness, maxX, maxY),
		Box(minX, minY, minX+thickness, maxY),
		Box(maxX-thickness, minY, maxX, maxY),
	}
}
