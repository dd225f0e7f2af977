package playback

import "errors"

const (
	// DefaultSampleRate of synthesized speech from the live service.
	DefaultSampleRate = 24000
	pcmScale          = 32768.0
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("playback scheduler closed")
