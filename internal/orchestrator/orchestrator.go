// Package orchestrator runs voice ordering sessions: it owns the session
// state machine, wires the microphone, speaker, live client, transcript
// aggregator and tool dispatcher together, and tears them down as one.
package orchestrator

import (
	"context"
	"fmt"

	audiocap "github.com/GriffinCanCode/voiceorder/internal/audio"
	"github.com/GriffinCanCode/voiceorder/internal/config"
	"github.com/GriffinCanCode/voiceorder/internal/orchestrator/playback"
	"github.com/GriffinCanCode/voiceorder/internal/orchestrator/transcript"
)

// State is the session connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Error
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	default:
		return "disconnected"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Disconnected, Connecting, Connected, Error} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

// EventType tags UI events.
type EventType string

const (
	EventState      EventType = "state"
	EventTranscript EventType = "transcript"
	EventError      EventType = "error"
	EventNavigate   EventType = "navigate"
)

// Event is pushed to UI clients.
type Event struct {
	Type    EventType           `json:"type"`
	State   State               `json:"state"`
	Message *transcript.Message `json:"message,omitempty"`
	Error   string              `json:"error,omitempty"`
	Kind    string              `json:"kind,omitempty"`
	Path    string              `json:"path,omitempty"`
}

// Microphone delivers capture blocks while started.
type Microphone interface {
	Start(ctx context.Context) error
	Stop()
	Output() <-chan audiocap.Chunk
	SampleRate() int
}

// Speaker is the playback output; Close releases the device.
type Speaker interface {
	playback.Output
	Close() error
}

// Devices opens audio devices for one session.
type Devices interface {
	Microphone() Microphone
	OpenSpeaker(rate int) (Speaker, error)
}

// PortAudioDevices opens the host's PortAudio devices.
type PortAudioDevices struct {
	Config *config.Config
}

func (d PortAudioDevices) Microphone() Microphone {
	return audiocap.NewCapturer(audiocap.CaptureConfig{
		SampleRate:      d.Config.InputSampleRate,
		FramesPerBuffer: d.Config.FramesPerBuffer,
		ExcludedDevices: d.Config.ExcludedDevices,
	})
}

func (d PortAudioDevices) OpenSpeaker(rate int) (Speaker, error) {
	return audiocap.OpenSpeaker(rate, audiocap.DefaultOutputFrames)
}
