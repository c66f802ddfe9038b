package engine

import "gocv.io/x/gocv"

// SharingMode selects where a transform's output buffer comes from.
type SharingMode int

const (
	// SharePooled draws output buffers from the unit's FramePool,
	// falling back to owned buffers when the pool is exhausted.
	SharePooled SharingMode = iota
	// ShareOwned always allocates a fresh output buffer.
	ShareOwned
)

func (m SharingMode) String() string {
	if m == SharePooled {
		return "pooled"
	}
	return "owned"
}

// Transform is the algorithm body a concrete node plugs into its
// ProcessingUnit. Implementations must be pure with respect to the
// unit: all configuration arrives through params, all output goes
// through dst.
type Transform interface {
	// Name identifies the transform in logs and registries.
	Name() string

	// OutputShape reports the geometry the transform will produce for
	// the given input, so the pool can be provisioned before Apply.
	OutputShape(src gocv.Mat) (rows, cols int, matType gocv.MatType)

	// Apply runs the algorithm, writing the result into dst. dst may
	// arrive preallocated with OutputShape geometry (pooled path) or
	// empty (owned path); OpenCV reuses preallocated storage when the
	// geometry matches. A returned error means "no result this
	// cycle"; the engine absorbs it.
	Apply(src gocv.Mat, dst *gocv.Mat, params Params) error

	// DefaultParams returns a complete baseline configuration.
	DefaultParams() Params

	// Validate rejects parameter values Apply cannot handle.
	Validate(params Params) error
}
