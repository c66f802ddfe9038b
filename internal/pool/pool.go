// FramePool: reusable output buffers keyed by shape
package pool

import (
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"async-frame-engine/internal/identity"
)

// Shape identifies the geometry a pool is provisioned for.
type Shape struct {
	Rows int
	Cols int
	Type gocv.MatType
}

func (s Shape) valid() bool { return s.Rows > 0 && s.Cols > 0 }

type slot struct {
	mat  gocv.Mat
	gen  uint64
	refs int32
	pool *FramePool
}

// Handle is a reference-counted checkout of one pool slot. It is
// shared by the pool and the current holder; dropping the last
// reference returns the slot to the pool automatically. There is no
// way to skip reclamation: Release on the last reference always runs
// it, including on error paths.
type Handle struct {
	s *slot
}

// Mat exposes the slot's buffer for writing. Only valid before the
// handle is adopted into a published Frame.
func (h *Handle) Mat() *gocv.Mat { return &h.s.mat }

// Retain adds a reference for an additional holder.
func (h *Handle) Retain() *Handle {
	atomic.AddInt32(&h.s.refs, 1)
	return h
}

// Release drops one reference; the last drop hands the slot back to
// the pool (or retires it if the pool reshaped meanwhile).
func (h *Handle) Release() {
	if atomic.AddInt32(&h.s.refs, -1) != 0 {
		return
	}
	h.s.pool.reclaim(h.s)
}

// Stats is a snapshot of pool activity counters.
type Stats struct {
	Hits     uint64 // acquisitions served from the free list
	Grown    uint64 // slots allocated on demand
	Misses   uint64 // acquisitions that found the pool exhausted
	Retired  uint64 // slots closed because the pool reshaped
	Reshapes uint64 // Ensure calls that changed the shape
}

// FramePool hands out preallocated Mats of a single current shape.
//
// Ensure and Acquire are expected to be called from the one worker
// context that owns this pool; Release may come from any goroutine
// (whichever consumer drops the last Frame reference).
type FramePool struct {
	mu       sync.Mutex
	shape    Shape
	gen      uint64
	free     []*slot
	live     int // slots of the current generation, free or checked out
	capacity int

	hits     uint64
	grown    uint64
	misses   uint64
	retired  uint64
	reshapes uint64
}

// New creates a pool bounded at capacity slots. The pool allocates
// nothing until Ensure and Acquire are called.
func New(capacity int) *FramePool {
	if capacity < 1 {
		capacity = 1
	}
	return &FramePool{capacity: capacity}
}

// Ensure idempotently provisions the pool for the given shape. A
// shape change retires all free slots immediately and detaches
// checked-out ones: outstanding handles remain valid, but their slots
// are closed on final release instead of rejoining the free list.
// Calling Ensure with the current shape is a no-op.
func (p *FramePool) Ensure(rows, cols int, matType gocv.MatType) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := Shape{Rows: rows, Cols: cols, Type: matType}
	if !next.valid() || next == p.shape {
		return
	}

	if p.shape.valid() {
		p.reshapes++
	}
	for _, s := range p.free {
		s.mat.Close()
		p.retired++
	}
	p.free = p.free[:0]
	p.shape = next
	p.gen++
	p.live = 0
}

// Acquire checks out a free slot of the current shape. refCount hints
// how many independent consumers will observe the resulting frame and
// drives eager growth up to capacity; it does not affect correctness.
// The second return is false when the pool is exhausted or was never
// provisioned; callers fall back to an owned buffer, this is not an
// error.
func (p *FramePool) Acquire(refCount int, id identity.FrameIdentity) (*Handle, bool) {
	_ = id // provenance hook: kept for symmetry with Frame construction

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.shape.valid() {
		p.misses++
		return nil, false
	}

	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free = p.free[:n-1]
		s.refs = 1
		p.hits++
		return &Handle{s: s}, true
	}

	if p.live >= p.capacity {
		p.misses++
		return nil, false
	}

	// Grow eagerly: one slot to hand out now, plus spares for the
	// expected consumers, never past capacity.
	want := refCount
	if want < 1 {
		want = 1
	}
	if room := p.capacity - p.live; want > room {
		want = room
	}

	var out *slot
	for i := 0; i < want; i++ {
		s := &slot{
			mat:  gocv.NewMatWithSize(p.shape.Rows, p.shape.Cols, p.shape.Type),
			gen:  p.gen,
			pool: p,
		}
		p.live++
		p.grown++
		if i == 0 {
			out = s
		} else {
			p.free = append(p.free, s)
		}
	}

	out.refs = 1
	return &Handle{s: out}, true
}

// Shape returns the currently provisioned geometry.
func (p *FramePool) Shape() Shape {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shape
}

func (p *FramePool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Hits:     p.hits,
		Grown:    p.grown,
		Misses:   p.misses,
		Retired:  p.retired,
		Reshapes: p.reshapes,
	}
}

// Close retires every free slot. Checked-out slots are retired as
// their handles release.
func (p *FramePool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.free {
		s.mat.Close()
		p.retired++
	}
	p.free = nil
	p.shape = Shape{}
	p.gen++
	p.live = 0
}

func (p *FramePool) reclaim(s *slot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.gen != p.gen {
		// Pool reshaped (or closed) while this slot was out.
		s.mat.Close()
		p.retired++
		return
	}
	p.free = append(p.free, s)
}
