package engine

import (
	"time"

	"gocv.io/x/gocv"

	"async-frame-engine/internal/frame"
	"async-frame-engine/internal/identity"
)

// runWorker is one WorkerTask execution: it runs the transform off
// the submitting goroutine, converts every failure mode into a
// no-result completion, and delivers exactly one completion back to
// the unit. The input frame is consumed here regardless of outcome.
func (u *ProcessingUnit) runWorker(j job) {
	defer u.wg.Done()

	start := time.Now()
	result := u.execute(j)
	j.frame.Close()

	if u.observer != nil {
		u.observer.Observe(u.name, time.Since(start), result != nil)
	}
	u.complete(result)
}

// execute produces the output frame, or nil for "no result this
// cycle". Degenerate input, transform errors and panics are all
// absorbed at this boundary and must never escape the worker.
func (u *ProcessingUnit) execute(j job) (out *frame.Frame) {
	defer func() {
		if r := recover(); r != nil {
			u.log.WithField("panic", r).Error("transform panicked, dropping result")
			out = nil
		}
	}()

	src := j.frame.Mat()
	if src.Empty() {
		return nil
	}
	if err := u.transform.Validate(j.params); err != nil {
		u.log.WithError(err).Debug("rejecting job with invalid parameters")
		return nil
	}

	id := u.seq.Next(u.producerID)

	if u.sharing == SharePooled && u.pool != nil {
		if f, ok := u.executePooled(src, j.params, id); ok {
			return f
		}
		// Pool exhausted or in-place write came up empty: graceful
		// degradation to an owned buffer for this one frame.
	}
	return u.executeOwned(src, j.params, id)
}

// executePooled writes the transform output directly into a pool
// slot, then adopts the handle into the frame so the slot is released
// when the frame's last consumer drops it.
func (u *ProcessingUnit) executePooled(src gocv.Mat, params Params, id identity.FrameIdentity) (*frame.Frame, bool) {
	rows, cols, matType := u.transform.OutputShape(src)
	u.pool.Ensure(rows, cols, matType)

	h, ok := u.pool.Acquire(u.fanout, id)
	if !ok {
		return nil, false
	}

	if err := u.transform.Apply(src, h.Mat(), params); err != nil {
		h.Release()
		u.log.WithError(err).Debug("transform failed on pooled buffer")
		return nil, true // failure is final, not a reason to retry owned
	}
	if h.Mat().Empty() {
		h.Release()
		return nil, false
	}
	return frame.NewPooled(*h.Mat(), id, h.Release), true
}

func (u *ProcessingUnit) executeOwned(src gocv.Mat, params Params, id identity.FrameIdentity) *frame.Frame {
	dst := gocv.NewMat()
	if err := u.transform.Apply(src, &dst, params); err != nil {
		dst.Close()
		u.log.WithError(err).Debug("transform failed")
		return nil
	}
	if dst.Empty() {
		dst.Close()
		return nil
	}
	return frame.NewOwned(dst, id)
}
