package engine

// Op identifies a threshold predicate applied to a mask band.
type Op string

// Supported predicate operators. The service composes these into a boolean
// mask evaluated per pixel before reduction.
const (
	OpGt      Op = "gt"
	OpGte     Op = "gte"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpEq      Op = "eq"
	OpEqOneOf Op = "eq_one_of"
	OpRange   Op = "range" // half-open [min, max)
)

// Combine controls how a mask's predicates are joined.
type Combine string

const (
	CombineAll Combine = "and"
	CombineAny Combine = "or"
)

// Predicate is one threshold test over a named band of the mask raster.
// Value, Values, and Min/Max are interpreted according to Op.
type Predicate struct {
	Band   string    `json:"band,omitempty"`
	Op     Op        `json:"op"`
	Value  float64   `json:"value,omitempty"`
	Values []float64 `json:"values,omitempty"`
	Min    float64   `json:"min,omitempty"`
	Max    float64   `json:"max,omitempty"`
}

// Gt matches pixels strictly greater than v.
func Gt(v float64) Predicate { return Predicate{Op: OpGt, Value: v} }

// Gte matches pixels greater than or equal to v.
func Gte(v float64) Predicate { return Predicate{Op: OpGte, Value: v} }

// Lt matches pixels strictly less than v.
func Lt(v float64) Predicate { return Predicate{Op: OpLt, Value: v} }

// Lte matches pixels less than or equal to v.
func Lte(v float64) Predicate { return Predicate{Op: OpLte, Value: v} }

// Eq matches pixels equal to v.
func Eq(v float64) Predicate { return Predicate{Op: OpEq, Value: v} }

// EqOneOf matches pixels equal to any of vs.
func EqOneOf(vs ...float64) Predicate { return Predicate{Op: OpEqOneOf, Values: vs} }

// InRange matches pixels in the half-open interval [min, max).
func InRange(min, max float64) Predicate { return Predicate{Op: OpRange, Min: min, Max: max} }

// OnBand returns a copy of the predicate bound to a named band.
func (p Predicate) OnBand(band string) Predicate {
	p.Band = band
	return p
}

// DateRange selects images from a collection by acquisition date before
// mosaicking. Dates are ISO "YYYY-MM-DD"; the range is half-open.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Mask is a pixel filter applied to an image before reduction. When Dataset
// is empty the predicates read bands of the masked image itself; otherwise
// they read the referenced raster.
type Mask struct {
	Dataset    string      `json:"dataset,omitempty"`
	Filter     *DateRange  `json:"filter,omitempty"`
	Combine    Combine     `json:"combine,omitempty"`
	Predicates []Predicate `json:"predicates"`
}

// MaskAll builds a mask whose predicates must all hold.
func MaskAll(dataset string, ps ...Predicate) Mask {
	return Mask{Dataset: dataset, Combine: CombineAll, Predicates: ps}
}

// MaskAny builds a mask where any predicate may hold. This is the wraparound
// form used for day-of-year windows that cross a year boundary.
func MaskAny(dataset string, ps ...Predicate) Mask {
	return Mask{Dataset: dataset, Combine: CombineAny, Predicates: ps}
}

// Image describes a derived single-band raster assembled server-side from a
// dataset reference. Exactly one of Dataset or PixelArea identifies the base
// raster; the remaining fields transform it in order: date filtering and
// mosaicking, band selection, masking, multiplication by per-pixel area, and
// finally a constant factor.
type Image struct {
	Dataset   string     `json:"dataset,omitempty"`
	Band      string     `json:"band,omitempty"`
	Filter    *DateRange `json:"filter,omitempty"`
	PixelArea bool       `json:"pixelArea,omitempty"`
	TimesArea bool       `json:"timesArea,omitempty"`
	Factor    float64    `json:"factor,omitempty"`
	Masks     []Mask     `json:"masks,omitempty"`
}

// PixelAreaKM2 is the per-pixel area raster scaled to square kilometers.
// Summing it over a region yields the region's area in km2.
func PixelAreaKM2() Image {
	return Image{PixelArea: true, Factor: 1e-6}
}

// Masked returns a copy of the image with an additional mask. Masks stack:
// a pixel survives only if every mask admits it.
func (im Image) Masked(m Mask) Image {
	masks := make([]Mask, len(im.Masks), len(im.Masks)+1)
	copy(masks, im.Masks)
	im.Masks = append(masks, m)
	return im
}

// NamedBand pairs a result band name with the image that produces it.
// An ordered slice of these forms a multi-band stack whose reduction
// returns a nested map keyed by band name.
type NamedBand struct {
	Name  string `json:"name"`
	Image Image  `json:"image"`
}
