package audio

import "time"

// Device defaults
const (
	DefaultCaptureRate     = 16000
	DefaultFramesPerBuffer = 4096
	DefaultChunkBuffer     = 1
	DefaultOutputRate      = 24000
	DefaultOutputFrames    = 1024

	stopReadTimeout = 500 * time.Millisecond
)

var (
	loopbackKeywords = []string{"blackhole", "vb-cable", "loopback", "monitor", "soundflower"}
	micKeywords      = []string{"microphone", "input", "mic", "built-in", "headset"}
	preferredMics    = []string{"headset", "macbook", "built-in"}
)
