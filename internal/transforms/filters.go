// Blur filters for noise reduction
package transforms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"async-frame-engine/internal/engine"
)

// Gaussian implements Gaussian blur.
type Gaussian struct{}

func NewGaussian() *Gaussian { return &Gaussian{} }

func (g *Gaussian) Name() string { return "gaussian" }

func (g *Gaussian) OutputShape(src gocv.Mat) (int, int, gocv.MatType) {
	return src.Rows(), src.Cols(), src.Type()
}

func (g *Gaussian) Apply(src gocv.Mat, dst *gocv.Mat, params engine.Params) error {
	kernelSize := params.Int("kernel_size", 5)
	if kernelSize%2 == 0 {
		kernelSize++
	}
	sigmaX := params.Float("sigma_x", 1.0)
	sigmaY := params.Float("sigma_y", 1.0)

	return gocv.GaussianBlur(src, dst, image.Pt(kernelSize, kernelSize), sigmaX, sigmaY, gocv.BorderDefault)
}

func (g *Gaussian) DefaultParams() engine.Params {
	return engine.Params{
		"kernel_size": 5,
		"sigma_x":     1.0,
		"sigma_y":     1.0,
	}
}

func (g *Gaussian) Validate(params engine.Params) error {
	if k := params.Int("kernel_size", 5); k < 3 || k > 21 {
		return fmt.Errorf("gaussian: kernel_size must be between 3 and 21, got %d", k)
	}
	return nil
}

// Median implements median blur, effective against salt-and-pepper
// noise.
type Median struct{}

func NewMedian() *Median { return &Median{} }

func (m *Median) Name() string { return "median" }

func (m *Median) OutputShape(src gocv.Mat) (int, int, gocv.MatType) {
	return src.Rows(), src.Cols(), src.Type()
}

func (m *Median) Apply(src gocv.Mat, dst *gocv.Mat, params engine.Params) error {
	kernelSize := params.Int("kernel_size", 5)
	if kernelSize%2 == 0 {
		kernelSize++
	}
	return gocv.MedianBlur(src, dst, kernelSize)
}

func (m *Median) DefaultParams() engine.Params {
	return engine.Params{"kernel_size": 5}
}

func (m *Median) Validate(params engine.Params) error {
	if k := params.Int("kernel_size", 5); k < 3 || k > 15 {
		return fmt.Errorf("median: kernel_size must be between 3 and 15, got %d", k)
	}
	return nil
}
