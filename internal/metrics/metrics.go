// Per-unit processing statistics
package metrics

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

const windowSize = 256

// UnitStats is a snapshot of one unit's recent processing behavior.
// Latencies are computed over a sliding window of the last
// completions; counters are lifetime.
type UnitStats struct {
	Completions uint64
	NoResults   uint64 // completions that yielded nothing
	MeanMs      float64
	StdDevMs    float64
	P50Ms       float64
	P95Ms       float64
}

type unitWindow struct {
	completions uint64
	noResults   uint64
	samples     []float64 // milliseconds, ring buffer
	next        int
	filled      bool
}

// Recorder collects per-job durations from processing units. It
// implements engine.Observer. Safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	units map[string]*unitWindow
}

func NewRecorder() *Recorder {
	return &Recorder{units: make(map[string]*unitWindow)}
}

// Observe records one completed job for the unit. produced is false
// when the job ended with no result.
func (r *Recorder) Observe(unit string, d time.Duration, produced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.units[unit]
	if !ok {
		w = &unitWindow{samples: make([]float64, windowSize)}
		r.units[unit] = w
	}
	w.completions++
	if !produced {
		w.noResults++
	}
	w.samples[w.next] = float64(d) / float64(time.Millisecond)
	w.next++
	if w.next == windowSize {
		w.next = 0
		w.filled = true
	}
}

// Snapshot returns current statistics for every observed unit.
func (r *Recorder) Snapshot() map[string]UnitStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]UnitStats, len(r.units))
	for name, w := range r.units {
		n := w.next
		if w.filled {
			n = windowSize
		}
		window := make([]float64, n)
		copy(window, w.samples[:n])
		sort.Float64s(window)

		s := UnitStats{
			Completions: w.completions,
			NoResults:   w.noResults,
		}
		if n > 0 {
			s.MeanMs = stat.Mean(window, nil)
			s.StdDevMs = stat.StdDev(window, nil)
			s.P50Ms = stat.Quantile(0.5, stat.Empirical, window, nil)
			s.P95Ms = stat.Quantile(0.95, stat.Empirical, window, nil)
		}
		out[name] = s
	}
	return out
}
