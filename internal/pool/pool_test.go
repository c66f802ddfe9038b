package pool

import (
	"testing"

	"gocv.io/x/gocv"

	"async-frame-engine/internal/identity"
)

var testID = identity.FrameIdentity{ProducerID: "test", Seq: 1}

// Acquire before any Ensure must miss: the pool has no geometry to
// allocate against.
func TestAcquireWithoutEnsure(t *testing.T) {
	p := New(4)
	defer p.Close()

	if _, ok := p.Acquire(1, testID); ok {
		t.Fatal("unprovisioned pool must not hand out slots")
	}
	if p.Stats().Misses != 1 {
		t.Fatalf("expected 1 miss, got %d", p.Stats().Misses)
	}
}

// Ensure with an unchanged shape is a no-op: released slots keep
// getting reused and nothing reallocates.
func TestReuseAfterRelease(t *testing.T) {
	p := New(4)
	defer p.Close()

	p.Ensure(480, 640, gocv.MatTypeCV8UC3)
	h1, ok := p.Acquire(1, testID)
	if !ok {
		t.Fatal("first acquire failed")
	}
	first := h1.s
	h1.Release()

	p.Ensure(480, 640, gocv.MatTypeCV8UC3) // unchanged, no-op

	h2, ok := p.Acquire(1, testID)
	if !ok {
		t.Fatal("second acquire failed")
	}
	defer h2.Release()

	if h2.s != first {
		t.Fatal("unchanged shape must reuse the released slot")
	}
	if stats := p.Stats(); stats.Grown != 1 || stats.Hits != 1 {
		t.Fatalf("expected grown=1 hits=1, got %+v", stats)
	}
}

// A bounded pool refuses acquisitions past capacity while every slot
// is checked out.
func TestExhaustion(t *testing.T) {
	p := New(2)
	defer p.Close()
	p.Ensure(8, 8, gocv.MatTypeCV8UC1)

	h1, ok1 := p.Acquire(1, testID)
	h2, ok2 := p.Acquire(1, testID)
	if !ok1 || !ok2 {
		t.Fatal("acquires within capacity must succeed")
	}
	if _, ok := p.Acquire(1, testID); ok {
		t.Fatal("acquire past capacity must miss")
	}

	h1.Release()
	if _, ok := p.Acquire(1, testID); !ok {
		t.Fatal("release must make the slot acquirable again")
	}
	h2.Release()
}

// refCount grows the pool eagerly but never past capacity.
func TestEagerGrowth(t *testing.T) {
	p := New(3)
	defer p.Close()
	p.Ensure(8, 8, gocv.MatTypeCV8UC1)

	h, ok := p.Acquire(5, testID)
	if !ok {
		t.Fatal("acquire failed")
	}
	defer h.Release()

	if stats := p.Stats(); stats.Grown != 3 {
		t.Fatalf("expected growth clamped to capacity 3, grew %d", stats.Grown)
	}
	if len(p.free) != 2 {
		t.Fatalf("expected 2 spare slots on the free list, got %d", len(p.free))
	}
}

// Reshaping while a handle is outstanding: the handle stays valid,
// its slot is retired on release instead of rejoining the free list,
// and new acquisitions see the new shape.
func TestReshapeWithOutstandingHandle(t *testing.T) {
	p := New(4)
	defer p.Close()

	p.Ensure(480, 640, gocv.MatTypeCV8UC3)
	old, ok := p.Acquire(1, testID)
	if !ok {
		t.Fatal("acquire failed")
	}

	p.Ensure(240, 320, gocv.MatTypeCV8UC1)

	if old.Mat().Rows() != 480 {
		t.Fatal("outstanding handle must keep its old-shape buffer")
	}

	fresh, ok := p.Acquire(1, testID)
	if !ok {
		t.Fatal("acquire after reshape failed")
	}
	defer fresh.Release()
	if fresh.Mat().Rows() != 240 || fresh.Mat().Cols() != 320 {
		t.Fatalf("new acquisition has stale shape %dx%d", fresh.Mat().Rows(), fresh.Mat().Cols())
	}

	old.Release()
	if stats := p.Stats(); stats.Retired == 0 {
		t.Fatal("released old-generation slot should have been retired")
	}
	if len(p.free) != 1 {
		t.Fatalf("retired slot must not rejoin the free list, free=%d", len(p.free))
	}
}

// Retain/Release: the slot returns to the pool only when the last
// reference drops.
func TestHandleRefCounting(t *testing.T) {
	p := New(2)
	defer p.Close()
	p.Ensure(8, 8, gocv.MatTypeCV8UC1)

	h, _ := p.Acquire(1, testID)
	h.Retain()

	h.Release()
	if len(p.free) != 0 {
		t.Fatal("slot freed while a reference was still held")
	}
	h.Release()
	if len(p.free) != 1 {
		t.Fatal("slot not freed after the last reference dropped")
	}
}

// Close retires the free list; slots still checked out are retired as
// their handles release.
func TestCloseRetiresSlots(t *testing.T) {
	p := New(4)
	p.Ensure(8, 8, gocv.MatTypeCV8UC1)

	held, _ := p.Acquire(1, testID)
	spare, _ := p.Acquire(1, testID)
	spare.Release()

	p.Close()
	if stats := p.Stats(); stats.Retired != 1 {
		t.Fatalf("expected the free slot retired on close, got %d", stats.Retired)
	}

	held.Release()
	if stats := p.Stats(); stats.Retired != 2 {
		t.Fatalf("expected the outstanding slot retired on release, got %d", stats.Retired)
	}
}
