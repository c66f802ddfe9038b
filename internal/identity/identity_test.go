package identity

import (
	"sync"
	"testing"
)

func TestSequencerMonotonicPerProducer(t *testing.T) {
	s := NewSequencer()

	for want := uint64(1); want <= 5; want++ {
		id := s.Next("cam-a")
		if id.Seq != want {
			t.Fatalf("seq %d, want %d", id.Seq, want)
		}
	}

	// An unrelated producer starts its own sequence.
	if id := s.Next("cam-b"); id.Seq != 1 {
		t.Fatalf("independent producer started at %d", id.Seq)
	}
	if got := s.Last("cam-a"); got != 5 {
		t.Fatalf("Last = %d, want 5", got)
	}
	if got := s.Last("never-seen"); got != 0 {
		t.Fatalf("Last for unknown producer = %d, want 0", got)
	}
}

func TestSequencerConcurrentNext(t *testing.T) {
	s := NewSequencer()

	const goroutines = 8
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				s.Next("shared")
			}
		}()
	}
	wg.Wait()

	if got := s.Last("shared"); got != goroutines*perGoroutine {
		t.Fatalf("lost updates: Last = %d, want %d", got, goroutines*perGoroutine)
	}
}

func TestNewProducerIDPrefix(t *testing.T) {
	a := NewProducerID("source")
	b := NewProducerID("source")

	if a == b {
		t.Fatal("producer ids must be unique")
	}
	if len(a) <= len("source-") || a[:len("source-")] != "source-" {
		t.Fatalf("unexpected producer id format: %q", a)
	}
}
