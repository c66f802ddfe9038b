package engine

import (
	"sync"
	"sync/atomic"

	"async-frame-engine/internal/frame"
)

// Outputs is a unit's observable pair: a data channel carrying result
// frames and an independent boolean readiness signal (the sync
// signal). Both use latest-value delivery: an unconsumed value is
// replaced, never queued, so a slow consumer always observes the
// freshest state. A displaced result frame is closed by the outputs,
// which is what returns its pool slot.
type Outputs struct {
	mu      sync.Mutex
	results chan *frame.Frame
	signal  chan bool
	ready   bool
	dropped uint64
	closed  bool
}

func newOutputs() *Outputs {
	return &Outputs{
		results: make(chan *frame.Frame, 1),
		signal:  make(chan bool, 1),
		ready:   true, // a unit that never ran is idle, hence ready
	}
}

// Results delivers published frames, freshest-only. The receiver owns
// each frame it takes and must Close it. The channel closes when the
// unit shuts down.
func (o *Outputs) Results() <-chan *frame.Frame { return o.results }

// Signal delivers readiness flips, freshest-only: false while a job
// is in flight, true once processing finished (even when it yielded
// nothing).
func (o *Outputs) Signal() <-chan bool { return o.signal }

// Ready reports the current readiness without consuming the signal
// stream.
func (o *Outputs) Ready() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ready
}

// Dropped counts result frames displaced before any consumer took
// them.
func (o *Outputs) Dropped() uint64 { return atomic.LoadUint64(&o.dropped) }

func (o *Outputs) publishResult(f *frame.Frame) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		f.Close()
		return
	}
	select {
	case old := <-o.results:
		old.Close()
		atomic.AddUint64(&o.dropped, 1)
	default:
	}
	o.results <- f
}

func (o *Outputs) publishSignal(ready bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.ready = ready
	select {
	case <-o.signal:
	default:
	}
	o.signal <- ready
}

func (o *Outputs) close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	select {
	case old := <-o.results:
		old.Close()
	default:
	}
	close(o.results)
	close(o.signal)
}
