package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Error reports a malformed or degenerate field polygon. It covers the whole
// geometry taxonomy: open rings, too few vertices, self-intersection and a
// polygon that misses the raster entirely.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "invalid field polygon: " + e.Reason
}

// Meters per degree of latitude, also used by the imagery bbox sizing.
const metersPerDegree = 111_320.0

const squareMetersPerHectare = 10_000.0

// FieldPolygon is a farmer-declared field boundary: one simple closed ring of
// (longitude, latitude) vertices. Immutable once constructed.
type FieldPolygon struct {
	ring orb.Ring
}

// NewFieldPolygon validates a closed lon/lat ring. The ring must repeat its
// first vertex at the end, contain at least 3 distinct vertices and must not
// self-intersect.
func NewFieldPolygon(coords [][]float64) (*FieldPolygon, error) {
	if len(coords) < 4 {
		return nil, &Error{Reason: "ring needs at least 3 distinct vertices plus the closing vertex"}
	}
	ring := make(orb.Ring, len(coords))
	for i, c := range coords {
		if len(c) != 2 {
			return nil, &Error{Reason: "every vertex must be a [longitude, latitude] pair"}
		}
		ring[i] = orb.Point{c[0], c[1]}
	}
	if !ring.Closed() {
		return nil, &Error{Reason: "ring is not closed, first and last vertex differ"}
	}
	if countDistinct(ring) < 3 {
		return nil, &Error{Reason: "ring has fewer than 3 distinct vertices"}
	}
	if selfIntersects(ring) {
		return nil, &Error{Reason: "ring is self-intersecting"}
	}
	return &FieldPolygon{ring: ring}, nil
}

// Ring exposes the underlying ring. Callers must not modify it.
func (p *FieldPolygon) Ring() orb.Ring {
	return p.ring
}

// Coordinates returns the ring as [[lon, lat], ...], closing vertex included.
func (p *FieldPolygon) Coordinates() [][]float64 {
	coords := make([][]float64, len(p.ring))
	for i, pt := range p.ring {
		coords[i] = []float64{pt.Lon(), pt.Lat()}
	}
	return coords
}

func (p *FieldPolygon) Centroid() orb.Point {
	centroid, _ := planar.CentroidArea(p.ring)
	return centroid
}

// AreaHectares projects the ring onto a planar frame centered on its centroid
// (equirectangular, longitude scaled by cos of the centroid latitude) and
// computes the shoelace area.
func (p *FieldPolygon) AreaHectares() float64 {
	centroid := p.Centroid()
	cosLat := math.Cos(centroid.Lat() * math.Pi / 180)

	projected := make(orb.Ring, len(p.ring))
	for i, pt := range p.ring {
		projected[i] = orb.Point{
			(pt.Lon() - centroid.Lon()) * metersPerDegree * cosLat,
			(pt.Lat() - centroid.Lat()) * metersPerDegree,
		}
	}

	return math.Abs(planar.Area(projected)) / squareMetersPerHectare
}

func countDistinct(ring orb.Ring) int {
	seen := make(map[orb.Point]struct{}, len(ring))
	for _, pt := range ring[:len(ring)-1] {
		seen[pt] = struct{}{}
	}
	return len(seen)
}

// selfIntersects tests every pair of non-adjacent ring segments. O(n^2) is
// fine here, field boundaries have tens of vertices.
func selfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1 // segment i is ring[i] -> ring[i+1]
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue // adjacent segments share a vertex by construction
			}
			if segmentsIntersect(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

func cross(o, a, b orb.Point) float64 {
	return (a.X()-o.X())*(b.Y()-o.Y()) - (a.Y()-o.Y())*(b.X()-o.X())
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a.X(), b.X()) <= p.X() && p.X() <= math.Max(a.X(), b.X()) &&
		math.Min(a.Y(), b.Y()) <= p.Y() && p.Y() <= math.Max(a.Y(), b.Y())
}

func segmentsIntersect(a, b, c, d orb.Point) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear or endpoint-touching cases.
	if d1 == 0 && onSegment(c, d, a) {
		return true
	}
	if d2 == 0 && onSegment(c, d, b) {
		return true
	}
	if d3 == 0 && onSegment(a, b, c) {
		return true
	}
	if d4 == 0 && onSegment(a, b, d) {
		return true
	}
	return false
}
