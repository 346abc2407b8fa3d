// Package timing measures wall-clock durations of units of work and exports
// them in the per-item/total shape the processing responses use.
package timing

import (
	"math"
	"sync"
	"time"
)

// TotalKey is the reserved label for the aggregate span of an operation.
const TotalKey = "total"

// Recorder collects labeled durations. It is safe for concurrent use; batch
// items running in parallel record into a single recorder.
type Recorder struct {
	mu      sync.Mutex
	entries map[string]time.Duration
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{entries: make(map[string]time.Duration)}
}

// Start begins a span for label. The returned stop function records the
// elapsed wall-clock time; deferring it attributes the duration even when the
// unit of work fails.
func (r *Recorder) Start(label string) func() time.Duration {
	started := time.Now()
	return func() time.Duration {
		elapsed := time.Since(started)
		r.Record(label, elapsed)
		return elapsed
	}
}

// Observe runs fn, records its elapsed time under label whether or not it
// fails, and returns fn's error unchanged.
func (r *Recorder) Observe(label string, fn func() error) error {
	stop := r.Start(label)
	defer stop()
	return fn()
}

// Record stores a duration under label, replacing any previous entry.
func (r *Recorder) Record(label string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[label] = d
}

// Get returns the recorded duration for label.
func (r *Recorder) Get(label string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.entries[label]
	return d, ok
}

// Seconds exports every recorded duration in seconds, rounded to four decimal
// places for presentation.
func (r *Recorder) Seconds() map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]float64, len(r.entries))
	for label, d := range r.entries {
		out[label] = roundSeconds(d)
	}
	return out
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*10000) / 10000
}
