// Frame: the unit of data exchanged between processing stages
package frame

import (
	"sync/atomic"

	"gocv.io/x/gocv"

	"async-frame-engine/internal/identity"
)

// Frame is a published 2-D buffer plus provenance.
//
// Immutability contract: the pixel data MUST NOT be modified after the
// frame has been handed to a consumer. Frames are shared by reference;
// enforcement is by convention, not by copying.
//
// Ownership: a Frame starts with one reference. Consumers that keep it
// beyond the call that handed it over must Retain() it; every holder
// calls Close() exactly once. The backing buffer (an owned Mat or a
// pool slot) is reclaimed when the last reference drops, error paths
// included.
type Frame struct {
	mat     gocv.Mat
	id      identity.FrameIdentity
	refs    int32
	release func()
}

// NewOwned wraps a Mat the frame owns outright. Closing the last
// reference closes the Mat.
func NewOwned(mat gocv.Mat, id identity.FrameIdentity) *Frame {
	f := &Frame{mat: mat, id: id, refs: 1}
	f.release = func() {
		if !f.mat.Empty() {
			f.mat.Close()
		}
	}
	return f
}

// NewPooled wraps a Mat whose storage belongs to a pool slot. The
// release callback (typically Handle.Release) runs when the last
// reference drops, returning the slot to its pool.
func NewPooled(mat gocv.Mat, id identity.FrameIdentity, release func()) *Frame {
	return &Frame{mat: mat, id: id, refs: 1, release: release}
}

// Mat returns the pixel data. Read-only once the frame is published.
func (f *Frame) Mat() gocv.Mat { return f.mat }

func (f *Frame) ID() identity.FrameIdentity { return f.id }

func (f *Frame) Empty() bool { return f.mat.Empty() }

// Retain adds a reference for an additional independent consumer.
func (f *Frame) Retain() *Frame {
	atomic.AddInt32(&f.refs, 1)
	return f
}

// Close drops one reference. The backing buffer is reclaimed when the
// count reaches zero. Extra Close calls on a dead frame are no-ops.
func (f *Frame) Close() {
	if atomic.AddInt32(&f.refs, -1) != 0 {
		return
	}
	if f.release != nil {
		f.release()
		f.release = nil
	}
}
