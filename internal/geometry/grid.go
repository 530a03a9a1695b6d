package geometry

import (
	"math"

	"go.uber.org/zap"
)

// metersPerDegree approximates one degree of latitude.
const metersPerDegree = 111320.0

// ClipMarginMeters is the tolerance applied to cell windows during
// intersection to absorb float and topology noise.
const ClipMarginMeters = 1.0

// gridDims returns the cell grid dimensions covering a width x height box:
// ceil(w/size) columns and ceil(h/size) rows.
func gridDims(w, h, sizeDeg float64) (cols, rows int) {
	return int(math.Ceil(w / sizeDeg)), int(math.Ceil(h / sizeDeg))
}

// Grid partitions a feature into a regular lon/lat lattice of sizeDeg cells
// covering its bounding box and intersects each cell with the feature. Cells
// are generated deterministically from the box's minimum corner, stepping by
// exactly sizeDeg, half-open at shared edges. Cells with an empty
// intersection are dropped. If a single cell covers the whole box the
// feature is returned unchanged.
func Grid(f Prepared, sizeDeg float64) []Prepared {
	log := zap.L().With(zap.String("component", "geometry.grid"))

	b := f.Polygon.Bounds()
	minX, minY := b.Min(0), b.Min(1)
	w, h := b.Max(0)-minX, b.Max(1)-minY

	if sizeDeg > w && sizeDeg > h {
		log.Warn("grid cell larger than feature, keeping single cell",
			zap.Float64("grid_size_degrees", sizeDeg),
			zap.Float64("bbox_width", w),
			zap.Float64("bbox_height", h),
		)
		return []Prepared{f}
	}
	if sizeDeg > w/2 && sizeDeg > h/2 {
		log.Info("expecting fewer than 4 grid cells, consider a smaller grid size or larger area threshold")
	}

	cols, rows := gridDims(w, h, sizeDeg)
	eps := ClipMarginMeters / metersPerDegree

	out := make([]Prepared, 0, cols*rows)
	for ix := 0; ix < cols; ix++ {
		x0 := minX + float64(ix)*sizeDeg
		for iy := 0; iy < rows; iy++ {
			y0 := minY + float64(iy)*sizeDeg
			cell := cellBounds{
				minX: x0 - eps,
				minY: y0 - eps,
				maxX: x0 + sizeDeg + eps,
				maxY: y0 + sizeDeg + eps,
			}
			clipped := clipToCell(f.Polygon, cell)
			if clipped == nil {
				continue
			}
			area := AreaKM2(clipped)
			if area <= 0 {
				continue
			}
			out = append(out, Prepared{Polygon: clipped, AreaKM2: area, FromGrid: true})
		}
	}
	return out
}

// GridOversized replaces every feature whose area exceeds thresholdKM2 with
// its grid-cell fragments; smaller features pass through unchanged. Order
// is preserved.
func GridOversized(feats []Prepared, thresholdKM2, sizeDeg float64) []Prepared {
	out := make([]Prepared, 0, len(feats))
	for _, f := range feats {
		if f.AreaKM2 > thresholdKM2 {
			out = append(out, Grid(f, sizeDeg)...)
		} else {
			out = append(out, f)
		}
	}
	return out
}
