package geometry

import (
	"github.com/rotisserie/eris"
)

// PrepareOptions controls coordinate simplification during preparation.
type PrepareOptions struct {
	// Simplify reduces vertex counts so shapes fit remote payload limits.
	Simplify bool
	// Coarse selects the looser tolerance/precision pair. Only read when
	// Simplify is set.
	Coarse bool
}

// Prepare normalizes an input collection into single-polygon features with
// equal-area measurements: multipolygons are decomposed part by part (order
// preserved), coordinates are optionally simplified, and each part gets its
// projected area in km2.
func Prepare(set *Set, opts PrepareOptions) ([]Prepared, error) {
	if set.Len() == 0 {
		return nil, eris.Wrap(ErrNotPolygonal, "geometry: empty input set")
	}

	tolerance, precision := FineTolerance, FinePrecision
	if opts.Coarse {
		tolerance, precision = CoarseTolerance, CoarsePrecision
	}

	polys := Decompose(set)
	out := make([]Prepared, 0, len(polys))
	for _, p := range polys {
		if opts.Simplify {
			p = Simplify(p, tolerance, precision)
		}
		out = append(out, Prepared{Polygon: p, AreaKM2: AreaKM2(p)})
	}
	return out, nil
}
