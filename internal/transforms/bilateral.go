package transforms

import (
	"fmt"

	"gocv.io/x/gocv"

	"async-frame-engine/internal/engine"
)

// Bilateral implements edge-preserving smoothing via the bilateral
// filter.
type Bilateral struct{}

func NewBilateral() *Bilateral { return &Bilateral{} }

func (b *Bilateral) Name() string { return "bilateral" }

func (b *Bilateral) OutputShape(src gocv.Mat) (int, int, gocv.MatType) {
	return src.Rows(), src.Cols(), src.Type()
}

func (b *Bilateral) Apply(src gocv.Mat, dst *gocv.Mat, params engine.Params) error {
	if c := src.Channels(); c != 1 && c != 3 {
		return fmt.Errorf("bilateral: unsupported channel count %d", c)
	}

	diameter := params.Int("diameter", 9)
	sigmaColor := params.Float("sigma_color", 75.0)
	sigmaSpace := params.Float("sigma_space", 75.0)

	return gocv.BilateralFilter(src, dst, diameter, sigmaColor, sigmaSpace)
}

func (b *Bilateral) DefaultParams() engine.Params {
	return engine.Params{
		"diameter":    9,
		"sigma_color": 75.0,
		"sigma_space": 75.0,
	}
}

func (b *Bilateral) Validate(params engine.Params) error {
	if d := params.Int("diameter", 9); d < 1 || d > 25 {
		return fmt.Errorf("bilateral: diameter must be between 1 and 25, got %d", d)
	}
	if s := params.Float("sigma_color", 75.0); s <= 0 {
		return fmt.Errorf("bilateral: sigma_color must be positive, got %v", s)
	}
	if s := params.Float("sigma_space", 75.0); s <= 0 {
		return fmt.Errorf("bilateral: sigma_space must be positive, got %v", s)
	}
	return nil
}
