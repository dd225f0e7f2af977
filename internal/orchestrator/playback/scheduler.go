// Package playback schedules decoded speech chunks back to back on an output
// clock and cancels them all at once on barge-in.
package playback

import (
	"encoding/binary"
	"sort"
	"sync"

	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
)

// Output is an audio sink with its own clock, in seconds.
type Output interface {
	Now() float64
	// Play starts samples at time at. done is invoked at most once, after
	// the samples have been rendered, and never from inside Play.
	Play(samples []float32, at float64, done func()) (stop func())
}

// Unit is a scheduled chunk.
type Unit struct {
	ID       uint64
	Start    float64
	Duration float64
}

type liveUnit struct {
	Unit
	stop func()
}

// Scheduler places units at max(next, now) and advances next by their
// duration, so consecutive chunks play gaplessly and never overlap.
type Scheduler struct {
	mu     sync.Mutex
	out    Output
	rate   int
	next   float64
	seq    uint64
	live   map[uint64]*liveUnit
	closed bool
}

// NewScheduler creates a scheduler for mono PCM16 at sampleRate.
func NewScheduler(out Output, sampleRate int) *Scheduler {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Scheduler{out: out, rate: sampleRate, live: make(map[uint64]*liveUnit)}
}

// Enqueue decodes chunk and schedules it. A chunk that fails to decode
// returns a DecodeError and leaves the schedule untouched.
func (s *Scheduler) Enqueue(chunk []byte) (Unit, error) {
	samples, err := DecodePCM16(chunk)
	if err != nil {
		return Unit{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Unit{}, ErrClosed
	}

	start := max(s.next, s.out.Now())
	s.seq++
	u := &liveUnit{Unit: Unit{
		ID:       s.seq,
		Start:    start,
		Duration: float64(len(samples)) / float64(s.rate),
	}}
	s.next = start + u.Duration
	s.live[u.ID] = u

	id := u.ID
	u.stop = s.out.Play(samples, start, func() { s.finish(id) })
	return u.Unit, nil
}

func (s *Scheduler) finish(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, id)
}

// Interrupt stops every live unit, empties the live set and resets the
// cursor so the next chunk starts relative to the current clock.
func (s *Scheduler) Interrupt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopAllLocked()
}

// Close interrupts and refuses further chunks.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAllLocked()
	s.closed = true
}

func (s *Scheduler) stopAllLocked() int {
	n := len(s.live)
	for id, u := range s.live {
		if u.stop != nil {
			u.stop()
		}
		delete(s.live, id)
	}
	s.next = 0
	return n
}

// Next returns the raw cursor; 0 after an interruption.
func (s *Scheduler) Next() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Cursor returns where the next chunk would start.
func (s *Scheduler) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return max(s.next, s.out.Now())
}

// Live returns the in-flight units ordered by start time.
func (s *Scheduler) Live() []Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Unit, 0, len(s.live))
	for _, u := range s.live {
		out = append(out, u.Unit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// DecodePCM16 converts little-endian signed 16-bit mono PCM to floats in [-1, 1).
func DecodePCM16(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, apperrors.New(apperrors.DecodeError, "empty audio chunk")
	}
	if len(b)%2 != 0 {
		return nil, apperrors.Newf(apperrors.DecodeError, "odd audio chunk length %d", len(b))
	}
	out := make([]float32, len(b)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(b[2*i:]))) / pcmScale
	}
	return out, nil
}
