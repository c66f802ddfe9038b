// Morphological operations
package transforms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"async-frame-engine/internal/engine"
)

// Morphology implements erode, dilate, open and close with a
// rectangular structuring element.
type Morphology struct{}

func NewMorphology() *Morphology { return &Morphology{} }

func (m *Morphology) Name() string { return "morphology" }

func (m *Morphology) OutputShape(src gocv.Mat) (int, int, gocv.MatType) {
	return src.Rows(), src.Cols(), src.Type()
}

func (m *Morphology) Apply(src gocv.Mat, dst *gocv.Mat, params engine.Params) error {
	op := params.String("operation", "erode")
	kernelSize := params.Int("kernel_size", 3)
	iterations := params.Int("iterations", 1)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()

	switch op {
	case "open":
		return gocv.MorphologyEx(src, dst, gocv.MorphOpen, kernel)
	case "close":
		return gocv.MorphologyEx(src, dst, gocv.MorphClose, kernel)
	case "erode", "dilate":
	default:
		return fmt.Errorf("morphology: unknown operation %q", op)
	}

	apply := gocv.Erode
	if op == "dilate" {
		apply = gocv.Dilate
	}

	if iterations <= 1 {
		return apply(src, dst, kernel)
	}

	// Multiple passes ping-pong through a working Mat; the final pass
	// lands in dst so a pooled buffer still receives the result.
	work := gocv.NewMat()
	defer work.Close()
	if err := apply(src, &work, kernel); err != nil {
		return err
	}
	for i := 1; i < iterations-1; i++ {
		next := gocv.NewMat()
		if err := apply(work, &next, kernel); err != nil {
			next.Close()
			return err
		}
		work.Close()
		work = next
	}
	return apply(work, dst, kernel)
}

func (m *Morphology) DefaultParams() engine.Params {
	return engine.Params{
		"operation":   "erode",
		"kernel_size": 3,
		"iterations":  1,
	}
}

func (m *Morphology) Validate(params engine.Params) error {
	switch op := params.String("operation", "erode"); op {
	case "erode", "dilate", "open", "close":
	default:
		return fmt.Errorf("morphology: unknown operation %q", op)
	}
	if k := params.Int("kernel_size", 3); k < 1 || k > 21 {
		return fmt.Errorf("morphology: kernel_size must be between 1 and 21, got %d", k)
	}
	if it := params.Int("iterations", 1); it < 1 || it > 10 {
		return fmt.Errorf("morphology: iterations must be between 1 and 10, got %d", it)
	}
	return nil
}
