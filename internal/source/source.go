// Synthetic frame producer for driving pipelines without a camera
package source

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"async-frame-engine/internal/frame"
	"async-frame-engine/internal/identity"
)

// Producer emits a moving test pattern at a fixed rate, stamping each
// frame with this producer's identity. It stands in for a capture
// stage; downstream units neither know nor care that the frames are
// synthetic.
type Producer struct {
	width      int
	height     int
	interval   time.Duration
	producerID string
	seq        *identity.Sequencer
	log        *logrus.Entry
}

func New(width, height int, fps float64, seq *identity.Sequencer, logger *logrus.Logger) *Producer {
	if fps <= 0 {
		fps = 15
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if seq == nil {
		seq = identity.NewSequencer()
	}
	id := identity.NewProducerID("source")
	return &Producer{
		width:      width,
		height:     height,
		interval:   time.Duration(float64(time.Second) / fps),
		producerID: id,
		seq:        seq,
		log:        logger.WithField("producer", id),
	}
}

// Run emits frames until ctx is cancelled. emit receives ownership of
// each frame. Run blocks; callers start it on its own goroutine.
func (p *Producer) Run(ctx context.Context, emit func(*frame.Frame)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.WithFields(logrus.Fields{
		"width":  p.width,
		"height": p.height,
		"fps":    float64(time.Second) / float64(p.interval),
	}).Info("source started")

	for tick := 0; ; tick++ {
		select {
		case <-ctx.Done():
			p.log.Info("source stopped")
			return
		case <-ticker.C:
			emit(p.generate(tick))
		}
	}
}

// generate draws a gray canvas with a box orbiting it, enough motion
// to make coalescing and freshness visible downstream.
func (p *Producer) generate(tick int) *frame.Frame {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(32, 32, 32, 0), p.height, p.width, gocv.MatTypeCV8UC3)

	side := p.height / 4
	if side < 8 {
		side = 8
	}
	stepsX := p.width - side
	stepsY := p.height - side
	if stepsX < 1 {
		stepsX = 1
	}
	if stepsY < 1 {
		stepsY = 1
	}
	x := (tick * 7) % stepsX
	y := (tick * 3) % stepsY

	rect := image.Rect(x, y, x+side, y+side)
	gocv.Rectangle(&mat, rect, color.RGBA{R: 220, G: 180, B: 40, A: 255}, -1)

	return frame.NewOwned(mat, p.seq.Next(p.producerID))
}
