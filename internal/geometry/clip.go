package geometry

import (
	"github.com/twpayne/go-geom"
)

// cellBounds is an axis-aligned clip window in degrees.
type cellBounds struct {
	minX, minY, maxX, maxY float64
}

// clipToCell intersects a polygon with a rectangular cell using
// Sutherland-Hodgman clipping, ring by ring. Returns nil when the outer
// ring has no intersection with the cell.
func clipToCell(p *geom.Polygon, cell cellBounds) *geom.Polygon {
	var rings [][]geom.Coord
	for i := 0; i < p.NumLinearRings(); i++ {
		coords := p.LinearRing(i).Coords()
		if len(coords) > 0 {
			coords = coords[:len(coords)-1] // open the ring for clipping
		}
		clipped := clipRing(coords, cell)
		if len(clipped) < 3 {
			if i == 0 {
				return nil
			}
			continue // hole fully outside the cell
		}
		rings = append(rings, append(clipped, clipped[0]))
	}
	if len(rings) == 0 {
		return nil
	}
	out := geom.NewPolygon(geom.XY)
	if _, err := out.SetCoords(rings); err != nil {
		return nil
	}
	return out
}

// clipRing clips an open ring against the four half-planes of the cell.
func clipRing(pts []geom.Coord, cell cellBounds) []geom.Coord {
	pts = clipHalfPlane(pts,
		func(c geom.Coord) bool { return c[0] >= cell.minX },
		func(a, b geom.Coord) geom.Coord { return intersectX(a, b, cell.minX) })
	pts = clipHalfPlane(pts,
		func(c geom.Coord) bool { return c[0] <= cell.maxX },
		func(a, b geom.Coord) geom.Coord { return intersectX(a, b, cell.maxX) })
	pts = clipHalfPlane(pts,
		func(c geom.Coord) bool { return c[1] >= cell.minY },
		func(a, b geom.Coord) geom.Coord { return intersectY(a, b, cell.minY) })
	pts = clipHalfPlane(pts,
		func(c geom.Coord) bool { return c[1] <= cell.maxY },
		func(a, b geom.Coord) geom.Coord { return intersectY(a, b, cell.maxY) })
	return pts
}

func clipHalfPlane(pts []geom.Coord, inside func(geom.Coord) bool, cross func(a, b geom.Coord) geom.Coord) []geom.Coord {
	if len(pts) == 0 {
		return nil
	}
	out := make([]geom.Coord, 0, len(pts)+4)
	prev := pts[len(pts)-1]
	prevIn := inside(prev)
	for _, cur := range pts {
		curIn := inside(cur)
		switch {
		case curIn && prevIn:
			out = append(out, cur)
		case curIn && !prevIn:
			out = append(out, cross(prev, cur), cur)
		case !curIn && prevIn:
			out = append(out, cross(prev, cur))
		}
		prev, prevIn = cur, curIn
	}
	return out
}

// intersectX returns the point where segment ab crosses the vertical line x.
func intersectX(a, b geom.Coord, x float64) geom.Coord {
	t := (x - a[0]) / (b[0] - a[0])
	return geom.Coord{x, a[1] + t*(b[1]-a[1])}
}

// intersectY returns the point where segment ab crosses the horizontal line y.
func intersectY(a, b geom.Coord, y float64) geom.Coord {
	t := (y - a[1]) / (b[1] - a[1])
	return geom.Coord{a[0] + t*(b[0]-a[0]), y}
}
