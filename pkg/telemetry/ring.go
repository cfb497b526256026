package telemetry

import (
	"sync"
	"time"
)

// Sample is an immutable snapshot of one simulation tick, kept for
// display and reporting consumers.
type Sample struct {
	Time         time.Time `json:"time"`
	TemperatureC float64   `json:"temperatureC"`
	SetpointC    float64   `json:"setpointC"`
	ChillerPct   float64   `json:"chillerPct"`
	IntakePct    float64   `json:"intakePct"`
	ExhaustPct   float64   `json:"exhaustPct"`
}

// Ring is a fixed-capacity time-ordered sample buffer. Appends evict the
// oldest sample once full and never fail. One writer (the simulation
// loop), any number of readers.
type Ring struct {
	samples []Sample
	start   int
	count   int
	sync.RWMutex
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{samples: make([]Sample, capacity)}
}

// Append stores a sample in O(1), evicting the oldest one on overflow.
func (r *Ring) Append(s Sample) {
	r.Lock()
	if r.count < len(r.samples) {
		r.samples[(r.start+r.count)%len(r.samples)] = s
		r.count++
	} else {
		r.samples[r.start] = s
		r.start = (r.start + 1) % len(r.samples)
	}
	r.Unlock()
}

// Snapshot returns the buffered samples oldest first. The returned slice
// is a copy; callers can hold it as long as they like.
func (r *Ring) Snapshot() []Sample {
	r.RLock()
	defer r.RUnlock()
	out := make([]Sample, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.samples[(r.start+i)%len(r.samples)]
	}
	return out
}

// Latest returns the newest sample, if any.
func (r *Ring) Latest() (Sample, bool) {
	r.RLock()
	defer r.RUnlock()
	if r.count == 0 {
		return Sample{}, false
	}
	return r.samples[(r.start+r.count-1)%len(r.samples)], true
}

func (r *Ring) Len() int {
	r.RLock()
	defer r.RUnlock()
	return r.count
}
