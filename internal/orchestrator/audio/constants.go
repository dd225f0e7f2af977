package audio

// Audio pipeline constants
const (
	// DefaultWireRate is the sample rate the live service expects.
	DefaultWireRate = 16000

	// LevelGain scales RMS so normal speech reads near the top of the meter.
	LevelGain = 5.0

	// PCM16ByteSize is the byte size of one encoded sample.
	PCM16ByteSize = 2

	pcmScale = 32768.0
)
