package transforms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"async-frame-engine/internal/engine"
)

// CLAHE implements contrast-limited adaptive histogram equalization.
// Color input is converted to grayscale first; output is always
// single-channel.
type CLAHE struct{}

func NewCLAHE() *CLAHE { return &CLAHE{} }

func (c *CLAHE) Name() string { return "clahe" }

func (c *CLAHE) OutputShape(src gocv.Mat) (int, int, gocv.MatType) {
	return src.Rows(), src.Cols(), gocv.MatTypeCV8UC1
}

func (c *CLAHE) Apply(src gocv.Mat, dst *gocv.Mat, params engine.Params) error {
	clipLimit := params.Float("clip_limit", 2.0)
	tileSize := params.Int("tile_size", 8)

	gray := src
	switch src.Channels() {
	case 1:
	case 3:
		converted := gocv.NewMat()
		defer converted.Close()
		if err := gocv.CvtColor(src, &converted, gocv.ColorBGRToGray); err != nil {
			return err
		}
		gray = converted
	default:
		return fmt.Errorf("clahe: unsupported channel count %d", src.Channels())
	}

	eq := gocv.NewCLAHEWithParams(clipLimit, image.Pt(tileSize, tileSize))
	defer eq.Close()
	eq.Apply(gray, dst)
	return nil
}

func (c *CLAHE) DefaultParams() engine.Params {
	return engine.Params{
		"clip_limit": 2.0,
		"tile_size":  8,
	}
}

func (c *CLAHE) Validate(params engine.Params) error {
	if cl := params.Float("clip_limit", 2.0); cl <= 0 || cl > 40 {
		return fmt.Errorf("clahe: clip_limit must be between 0 and 40, got %v", cl)
	}
	if ts := params.Int("tile_size", 8); ts < 1 || ts > 64 {
		return fmt.Errorf("clahe: tile_size must be between 1 and 64, got %d", ts)
	}
	return nil
}
