package metrics

import "github.com/rotisserie/eris"

// Sentinel errors for the metric error taxonomy. Callers classify failures
// with eris.Is against these.
var (
	// ErrConfiguration marks a metric whose dataset references are missing
	// or malformed.
	ErrConfiguration = eris.New("metrics: metric not configured")

	// ErrAreaLimit marks a geometry whose pixel count at the metric's scale
	// exceeds the compute limit for its family.
	ErrAreaLimit = eris.New("metrics: area exceeds compute limit")

	// ErrPackage marks a reduction that produced no usable data to fold
	// into a record.
	ErrPackage = eris.New("metrics: could not package metric for geometry")
)
