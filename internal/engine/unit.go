package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"async-frame-engine/internal/frame"
	"async-frame-engine/internal/identity"
	"async-frame-engine/internal/pool"
)

// unitState is the explicit dispatch state machine. The single-slot
// pending cache is what bounds memory: while busy, new arrivals
// overwrite the pending job instead of queueing behind it.
type unitState int

const (
	stateIdle unitState = iota
	stateBusy
	stateBusyPending
)

func (s unitState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateBusy:
		return "busy"
	default:
		return "busy+pending"
	}
}

type job struct {
	frame  *frame.Frame
	params Params
}

// Observer receives per-job timing. Implemented by metrics.Recorder.
type Observer interface {
	Observe(unit string, d time.Duration, produced bool)
}

// Options configures a ProcessingUnit. Transform is required; the
// rest has working defaults.
type Options struct {
	// Name labels the unit in logs, metrics and output provenance.
	// Defaults to the transform name.
	Name string

	Transform Transform
	Sharing   SharingMode

	// Pool supplies output buffers in SharePooled mode. The unit is
	// the only caller of Ensure/Acquire on it.
	Pool *pool.FramePool

	// Fanout is the expected number of independent consumers per
	// output frame; forwarded to the pool as a growth hint.
	Fanout int

	Sequencer *identity.Sequencer
	Logger    *logrus.Logger
	Observer  Observer
}

// ProcessingUnit owns exactly one worker execution slot and a
// single-slot pending cache for one graph node. It is long-lived:
// created with the node, closed with the node.
//
// All state transitions run under mu, which is the Go rendition of
// "completions are delivered on the unit's own context": submit and
// completion are serialized, never concurrent, so at most one job is
// in flight and per-unit completion order equals dispatch order.
type ProcessingUnit struct {
	name       string
	transform  Transform
	sharing    SharingMode
	pool       *pool.FramePool
	fanout     int
	producerID string
	seq        *identity.Sequencer
	log        *logrus.Entry
	observer   Observer

	mu      sync.Mutex
	state   unitState
	pending *job
	closed  bool
	wg      sync.WaitGroup

	out       *Outputs
	coalesced uint64 // pending jobs displaced before running
}

func NewUnit(opts Options) *ProcessingUnit {
	if opts.Transform == nil {
		panic("engine: Options.Transform is required")
	}
	name := opts.Name
	if name == "" {
		name = opts.Transform.Name()
	}
	fanout := opts.Fanout
	if fanout < 1 {
		fanout = 1
	}
	seq := opts.Sequencer
	if seq == nil {
		seq = identity.NewSequencer()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &ProcessingUnit{
		name:       name,
		transform:  opts.Transform,
		sharing:    opts.Sharing,
		pool:       opts.Pool,
		fanout:     fanout,
		producerID: identity.NewProducerID(name),
		seq:        seq,
		log:        logger.WithField("unit", name),
		observer:   opts.Observer,
		out:        newOutputs(),
	}
}

func (u *ProcessingUnit) Name() string { return u.name }

// Outputs returns the unit's data + sync-signal observable pair.
func (u *ProcessingUnit) Outputs() *Outputs { return u.out }

// Coalesced counts submissions that were displaced from the pending
// slot before they could run.
func (u *ProcessingUnit) Coalesced() uint64 { return atomic.LoadUint64(&u.coalesced) }

// Submit hands the unit new input and a parameter snapshot. It never
// blocks: when the unit is idle the job dispatches immediately;
// otherwise it overwrites the pending slot and the displaced job's
// frame is closed without being processed.
//
// The unit takes ownership of f and closes it once the job ran or was
// displaced.
func (u *ProcessingUnit) Submit(f *frame.Frame, params Params) {
	snapshot := params.Clone()

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		f.Close()
		return
	}

	// Not-ready goes out before the job starts, so consumers gating
	// on the signal never act on the previous result as if it were
	// fresh.
	u.out.publishSignal(false)

	switch u.state {
	case stateIdle:
		u.state = stateBusy
		u.dispatchLocked(job{frame: f, params: snapshot})
	case stateBusy, stateBusyPending:
		if u.pending != nil {
			u.pending.frame.Close()
			atomic.AddUint64(&u.coalesced, 1)
			u.log.WithField("state", u.state.String()).Debug("pending job displaced")
		}
		u.pending = &job{frame: f, params: snapshot}
		u.state = stateBusyPending
	}
}

// Close shuts the unit down: the pending job (if any) is discarded,
// the in-flight job runs to completion, then the output channels
// close. Idempotent.
func (u *ProcessingUnit) Close() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	u.closed = true
	if u.pending != nil {
		u.pending.frame.Close()
		u.pending = nil
	}
	u.mu.Unlock()

	u.wg.Wait()
	u.out.close()
}

// dispatchLocked spawns the worker goroutine for j. Caller holds mu
// and has already set state to stateBusy.
func (u *ProcessingUnit) dispatchLocked(j job) {
	u.wg.Add(1)
	go u.runWorker(j)
}

// complete is the single completion transition. The in-flight job's
// result (possibly none) is published before any pending job
// dispatches, so a stale result is never discarded in favor of newer
// input.
func (u *ProcessingUnit) complete(result *frame.Frame) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if result != nil {
		u.out.publishResult(result)
	}
	u.out.publishSignal(true)

	if u.state == stateBusyPending && u.pending != nil && !u.closed {
		next := *u.pending
		u.pending = nil
		u.state = stateBusy
		u.out.publishSignal(false)
		u.dispatchLocked(next)
		return
	}

	u.pending = nil
	u.state = stateIdle
}
