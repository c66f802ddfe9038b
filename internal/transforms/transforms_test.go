package transforms

import (
	"testing"

	"gocv.io/x/gocv"

	"async-frame-engine/internal/engine"
)

func TestRegistryContents(t *testing.T) {
	for _, name := range []string{"bilateral", "clahe", "gaussian", "median", "morphology"} {
		tr, ok := Get(name)
		if !ok {
			t.Fatalf("built-in transform %q not registered", name)
		}
		if tr.Name() != name {
			t.Fatalf("transform registered under %q reports name %q", name, tr.Name())
		}
	}
	if IsValid("no-such-transform") {
		t.Fatal("unknown name reported valid")
	}
}

// Every built-in's defaults must pass its own validation.
func TestDefaultsAreValid(t *testing.T) {
	for _, name := range Names() {
		tr, _ := Get(name)
		if err := tr.Validate(tr.DefaultParams()); err != nil {
			t.Fatalf("%s: default params rejected: %v", name, err)
		}
	}
}

func TestValidationBounds(t *testing.T) {
	cases := []struct {
		transform string
		params    engine.Params
	}{
		{"bilateral", engine.Params{"diameter": 99}},
		{"bilateral", engine.Params{"sigma_color": -1.0}},
		{"clahe", engine.Params{"clip_limit": -2.0}},
		{"clahe", engine.Params{"tile_size": 0}},
		{"gaussian", engine.Params{"kernel_size": 1}},
		{"median", engine.Params{"kernel_size": 99}},
		{"morphology", engine.Params{"operation": "invert"}},
		{"morphology", engine.Params{"iterations": 0}},
	}
	for _, c := range cases {
		tr, _ := Get(c.transform)
		if err := tr.Validate(c.params); err == nil {
			t.Errorf("%s: params %v should be rejected", c.transform, c.params)
		}
	}
}

func TestGaussianPreservesShape(t *testing.T) {
	src := gocv.NewMatWithSize(32, 48, gocv.MatTypeCV8UC3)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	tr := NewGaussian()
	if err := tr.Apply(src, &dst, tr.DefaultParams()); err != nil {
		t.Fatal(err)
	}
	if dst.Rows() != 32 || dst.Cols() != 48 || dst.Type() != gocv.MatTypeCV8UC3 {
		t.Fatalf("output shape %dx%d type %v", dst.Rows(), dst.Cols(), dst.Type())
	}
}

// A failing OpenCV call must surface as an error from Apply. With a
// preallocated dst (the pooled path) a swallowed error would let the
// slot's previous contents pass for a fresh result.
func TestMedianApplyErrorPropagates(t *testing.T) {
	// medianBlur requires 8-bit input for kernels larger than 5.
	src := gocv.NewMatWithSize(16, 16, gocv.MatTypeCV32FC1)
	defer src.Close()
	dst := gocv.NewMatWithSize(16, 16, gocv.MatTypeCV32FC1)
	defer dst.Close()

	tr := NewMedian()
	if err := tr.Apply(src, &dst, engine.Params{"kernel_size": 7}); err == nil {
		t.Fatal("float input with kernel 7 must fail Apply, not return nil")
	}
}

func TestCLAHEOutputsGrayscale(t *testing.T) {
	src := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC3)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	tr := NewCLAHE()
	if err := tr.Apply(src, &dst, tr.DefaultParams()); err != nil {
		t.Fatal(err)
	}
	if dst.Channels() != 1 {
		t.Fatalf("clahe output has %d channels, want 1", dst.Channels())
	}

	rows, cols, matType := tr.OutputShape(src)
	if rows != 32 || cols != 32 || matType != gocv.MatTypeCV8UC1 {
		t.Fatalf("OutputShape mismatch: %d %d %v", rows, cols, matType)
	}
}

func TestMorphologyRejectsUnknownOperation(t *testing.T) {
	src := gocv.NewMatWithSize(16, 16, gocv.MatTypeCV8UC1)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	tr := NewMorphology()
	if err := tr.Apply(src, &dst, engine.Params{"operation": "shear"}); err == nil {
		t.Fatal("unknown operation must fail Apply")
	}
}

func TestBilateralRejectsBadChannelCount(t *testing.T) {
	src := gocv.NewMatWithSize(16, 16, gocv.MatTypeCV8UC4)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	tr := NewBilateral()
	if err := tr.Apply(src, &dst, tr.DefaultParams()); err == nil {
		t.Fatal("4-channel input must be rejected")
	}
}
