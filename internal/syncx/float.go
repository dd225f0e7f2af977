package syncx

import (
	"math"
	"sync/atomic"
)

// Float64 is an atomically replaced float64, for single-writer telemetry
// values read from many goroutines.
type Float64 struct {
	bits atomic.Uint64
}

// Load returns the current value.
func (f *Float64) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

// Store replaces the value.
func (f *Float64) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}
