package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Simplification levels. The coarse pair trades shape fidelity for payload
// size; the fine pair is near-lossless (precision 5 keeps roughly 1 m).
const (
	FineTolerance   = 0.00001
	FinePrecision   = 5
	CoarseTolerance = 0.001
	CoarsePrecision = 4
)

// Simplify reduces a polygon's vertex count with Douglas-Peucker at the
// given tolerance (degrees), then rounds coordinates to the given number of
// decimal digits and repairs degenerate rings. If simplification would
// collapse the outer ring, the original polygon is returned unchanged.
func Simplify(p *geom.Polygon, tolerance float64, precision int) *geom.Polygon {
	var rings [][]geom.Coord
	for i := 0; i < p.NumLinearRings(); i++ {
		coords := simplifyRing(p.LinearRing(i).Coords(), tolerance)
		coords = repairRing(roundCoords(coords, precision))
		if coords == nil {
			if i == 0 {
				return p
			}
			continue // collapsed hole
		}
		rings = append(rings, coords)
	}
	out := geom.NewPolygon(geom.XY)
	if _, err := out.SetCoords(rings); err != nil {
		return p
	}
	return out
}

// simplifyRing runs Douglas-Peucker on a closed ring. The ring is split at
// the vertex farthest from its start so both halves have distinct anchors.
func simplifyRing(coords []geom.Coord, tolerance float64) []geom.Coord {
	if len(coords) <= 5 {
		return coords
	}
	open := coords[:len(coords)-1]

	far, farDist := 0, 0.0
	for i, c := range open {
		d := coordDist(open[0], c)
		if d > farDist {
			far, farDist = i, d
		}
	}
	if far == 0 {
		return coords
	}

	first := douglasPeucker(open[:far+1], tolerance)
	second := douglasPeucker(open[far:], tolerance)

	out := make([]geom.Coord, 0, len(first)+len(second))
	out = append(out, first...)
	out = append(out, second[1:]...)
	out = append(out, out[0])
	return out
}

// douglasPeucker keeps the endpoints and recursively retains every vertex
// farther than tolerance from the chord.
func douglasPeucker(pts []geom.Coord, tolerance float64) []geom.Coord {
	if len(pts) <= 2 {
		return pts
	}
	idx, maxDist := 0, 0.0
	a, b := pts[0], pts[len(pts)-1]
	for i := 1; i < len(pts)-1; i++ {
		d := perpDist(pts[i], a, b)
		if d > maxDist {
			idx, maxDist = i, d
		}
	}
	if maxDist <= tolerance {
		return []geom.Coord{a, b}
	}
	left := douglasPeucker(pts[:idx+1], tolerance)
	right := douglasPeucker(pts[idx:], tolerance)
	out := make([]geom.Coord, 0, len(left)+len(right)-1)
	out = append(out, left[:len(left)-1]...)
	return append(out, right...)
}

// perpDist is the perpendicular distance from p to segment ab.
func perpDist(p, a, b geom.Coord) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	length := math.Hypot(dx, dy)
	if length == 0 {
		return coordDist(p, a)
	}
	return math.Abs(dx*(a[1]-p[1])-dy*(a[0]-p[0])) / length
}

func coordDist(a, b geom.Coord) float64 {
	return math.Hypot(b[0]-a[0], b[1]-a[1])
}

// roundCoords reduces coordinate precision to the given decimal digits.
func roundCoords(coords []geom.Coord, precision int) []geom.Coord {
	scale := math.Pow10(precision)
	out := make([]geom.Coord, len(coords))
	for i, c := range coords {
		out[i] = geom.Coord{
			math.Round(c[0]*scale) / scale,
			math.Round(c[1]*scale) / scale,
		}
	}
	return out
}

// repairRing removes consecutive duplicate vertices introduced by rounding,
// re-closes the ring, and reports degenerate rings as nil. This stands in
// for a zero-distance buffer repair.
func repairRing(coords []geom.Coord) []geom.Coord {
	if len(coords) == 0 {
		return nil
	}
	out := make([]geom.Coord, 0, len(coords))
	out = append(out, coords[0])
	for _, c := range coords[1:] {
		last := out[len(out)-1]
		if c[0] == last[0] && c[1] == last[1] {
			continue
		}
		out = append(out, c)
	}
	// Drop the closing vertex if it survived, then re-close explicitly.
	if len(out) > 1 {
		first, last := out[0], out[len(out)-1]
		if first[0] == last[0] && first[1] == last[1] {
			out = out[:len(out)-1]
		}
	}
	if len(out) < 3 {
		return nil
	}
	return append(out, out[0])
}
