package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
)

// Speaker renders scheduled sample buffers on the default output device.
// Its clock counts rendered frames, so scheduled start times are sample exact.
type Speaker struct {
	rate   int
	stream *portaudio.Stream
	mixer  *Mixer

	closeOnce sync.Once
}

// OpenSpeaker starts a mono output stream at rate.
func OpenSpeaker(rate, framesPerBuffer int) (*Speaker, error) {
	if rate <= 0 {
		rate = DefaultOutputRate
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultOutputFrames
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "speaker: initialize audio")
	}

	s := &Speaker{rate: rate, mixer: NewMixer(rate)}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(rate), framesPerBuffer, s.mixer.Render)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "speaker: open output")
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		_ = portaudio.Terminate()
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "speaker: start output")
	}
	s.stream = stream
	return s, nil
}

// Now returns the output clock in seconds.
func (s *Speaker) Now() float64 { return s.mixer.Now() }

// Play schedules samples at the given clock time.
func (s *Speaker) Play(samples []float32, at float64, done func()) func() {
	return s.mixer.Play(samples, at, done)
}

// Close stops output and releases the device. Safe to call repeatedly.
func (s *Speaker) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mixer.StopAll()
		if s.stream != nil {
			_ = s.stream.Stop()
			err = s.stream.Close()
		}
		_ = portaudio.Terminate()
	})
	return err
}

// Mixer sums scheduled voices into output buffers and keeps the frame clock.
type Mixer struct {
	rate int

	mu     sync.Mutex
	frames int64
	voices []*voice
}

type voice struct {
	samples []float32
	start   int64 // frame index
	done    func()
	stopped bool
}

// NewMixer creates a mixer for rate.
func NewMixer(rate int) *Mixer {
	return &Mixer{rate: rate}
}

// Now returns rendered time in seconds.
func (m *Mixer) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.frames) / float64(m.rate)
}

// Play schedules samples to start at clock time at. Times in the past start
// immediately.
func (m *Mixer) Play(samples []float32, at float64, done func()) func() {
	v := &voice{samples: samples, start: int64(at*float64(m.rate) + 0.5), done: done}
	m.mu.Lock()
	if v.start < m.frames {
		v.start = m.frames
	}
	m.voices = append(m.voices, v)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		v.stopped = true
	}
}

// StopAll silences every voice without firing done callbacks.
func (m *Mixer) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.voices {
		v.stopped = true
	}
	m.voices = nil
}

// Render fills out with the next len(out) frames. It is the PortAudio
// callback; done callbacks run after the mixer lock is released.
func (m *Mixer) Render(out []float32) {
	for i := range out {
		out[i] = 0
	}

	m.mu.Lock()
	from := m.frames
	to := from + int64(len(out))
	var finished []func()
	kept := m.voices[:0]
	for _, v := range m.voices {
		if v.stopped {
			continue
		}
		end := v.start + int64(len(v.samples))
		lo, hi := max(v.start, from), min(end, to)
		for f := lo; f < hi; f++ {
			out[f-from] += v.samples[f-v.start]
		}
		if end <= to {
			if v.done != nil {
				finished = append(finished, v.done)
			}
			continue
		}
		kept = append(kept, v)
	}
	for i := len(kept); i < len(m.voices); i++ {
		m.voices[i] = nil
	}
	m.voices = kept
	m.frames = to
	m.mu.Unlock()

	for _, fn := range finished {
		fn()
	}
}
