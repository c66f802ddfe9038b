// Frame provenance: producer ids and per-producer sequence numbers
package identity

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// FrameIdentity tags a frame with its producer and a monotonically
// increasing sequence number scoped to that producer. It travels with
// the frame through every processing stage for tracing and drop
// accounting.
type FrameIdentity struct {
	ProducerID string
	Seq        uint64
}

func (id FrameIdentity) String() string {
	return fmt.Sprintf("%s#%d", id.ProducerID, id.Seq)
}

// NewProducerID returns a fresh producer identifier with a readable
// prefix, e.g. "bilateral-9f3a2c1d".
func NewProducerID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// Sequencer hands out monotonic sequence numbers per producer.
// Safe for concurrent use.
type Sequencer struct {
	mu       sync.Mutex
	counters map[string]uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{counters: make(map[string]uint64)}
}

// Next returns the identity for the producer's next frame. The first
// frame of a producer is Seq 1.
func (s *Sequencer) Next(producerID string) FrameIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[producerID]++
	return FrameIdentity{ProducerID: producerID, Seq: s.counters[producerID]}
}

// Last returns the most recently issued sequence number for the
// producer, or 0 if none was issued yet.
func (s *Sequencer) Last(producerID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counters[producerID]
}
