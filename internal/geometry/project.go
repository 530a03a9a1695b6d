package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
)

// WGS84 / World Mercator (EPSG:3395) parameters.
const (
	semiMajorM   = 6378137.0
	eccentricity = 0.0818191908426215
)

// maxMercatorLat keeps the projection finite near the poles.
const maxMercatorLat = 89.5

// mercator projects a geographic coordinate to World Mercator meters using
// the ellipsoidal formulation.
func mercator(lon, lat float64) (x, y float64) {
	if lat > maxMercatorLat {
		lat = maxMercatorLat
	} else if lat < -maxMercatorLat {
		lat = -maxMercatorLat
	}
	lam := lon * math.Pi / 180
	phi := lat * math.Pi / 180

	x = semiMajorM * lam
	es := eccentricity * math.Sin(phi)
	y = semiMajorM * math.Log(math.Tan(math.Pi/4+phi/2)*math.Pow((1-es)/(1+es), eccentricity/2))
	return x, y
}

// AreaKM2 measures a geographic polygon by projecting it to World Mercator
// and computing the planar shoelace area, holes subtracted.
func AreaKM2(p *geom.Polygon) float64 {
	var total float64
	for i := 0; i < p.NumLinearRings(); i++ {
		a := math.Abs(projectedRingArea(p.LinearRing(i)))
		if i == 0 {
			total += a
		} else {
			total -= a
		}
	}
	if total < 0 {
		return 0
	}
	return total / 1e6
}

func projectedRingArea(ring *geom.LinearRing) float64 {
	coords := ring.Coords()
	if len(coords) < 4 {
		return 0
	}
	var sum float64
	x0, y0 := mercator(coords[0][0], coords[0][1])
	px, py := x0, y0
	for _, c := range coords[1:] {
		x, y := mercator(c[0], c[1])
		sum += px*y - x*py
		px, py = x, y
	}
	return sum / 2
}
