// Package audio turns microphone blocks into wire frames for the live
// session: level metering, resampling to the wire rate and PCM16 encoding.
package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	audiocap "github.com/GriffinCanCode/voiceorder/internal/audio"
	"github.com/GriffinCanCode/voiceorder/internal/syncx"
	"github.com/GriffinCanCode/voiceorder/internal/trace"
)

// Sender accepts encoded frames; implemented by the live session client.
type Sender interface {
	SendAudio(pcm []byte) error
}

// Config for the capture pipeline.
type Config struct {
	DeviceRate int // rate the microphone delivers
	WireRate   int // rate the live service expects
}

// Processor meters, resamples, encodes and forwards microphone blocks.
type Processor struct {
	sender    Sender
	cfg       Config
	level     *syncx.Float64
	resampler resampling.Resampler
	onSent    func(bytes int)
}

// NewProcessor creates a capture pipeline writing the current level into level.
func NewProcessor(sender Sender, cfg Config, level *syncx.Float64) (*Processor, error) {
	if cfg.WireRate <= 0 {
		cfg.WireRate = DefaultWireRate
	}
	if cfg.DeviceRate <= 0 {
		cfg.DeviceRate = cfg.WireRate
	}
	p := &Processor{sender: sender, cfg: cfg, level: level}
	if cfg.DeviceRate != cfg.WireRate {
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(cfg.DeviceRate),
			OutputRate: float64(cfg.WireRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("create resampler: %w", err)
		}
		p.resampler = rs
	}
	return p, nil
}

// OnSent registers a callback invoked after each successful send.
func (p *Processor) OnSent(fn func(bytes int)) { p.onSent = fn }

// Run consumes blocks until ctx is cancelled or in closes. The level is
// reset to zero on return.
func (p *Processor) Run(ctx context.Context, in <-chan audiocap.Chunk) {
	defer p.level.Store(0)
	log := trace.Logger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-in:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			if err := p.ProcessChunk(chunk); err != nil {
				log.Debug("audio frame dropped", "error", err)
			}
		}
	}
}

// ProcessChunk handles one microphone block.
func (p *Processor) ProcessChunk(chunk audiocap.Chunk) error {
	if len(chunk.Data) == 0 {
		return nil
	}
	p.level.Store(Level(chunk.Data))

	samples := chunk.Data
	if p.resampler != nil {
		in := make([]float64, len(samples))
		for i, s := range samples {
			in[i] = float64(s)
		}
		out, err := p.resampler.Process(in)
		if err != nil {
			return fmt.Errorf("resample: %w", err)
		}
		if len(out) == 0 {
			return nil
		}
		samples = make([]float32, len(out))
		for i, s := range out {
			samples[i] = float32(s)
		}
	}

	frame := EncodePCM16(samples)
	if err := p.sender.SendAudio(frame); err != nil {
		return err
	}
	if p.onSent != nil {
		p.onSent(len(frame))
	}
	return nil
}

// Level is the block's RMS scaled by five and clamped to [0, 1].
func Level(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Min(math.Sqrt(sum/float64(len(samples)))*LevelGain, 1)
}

// EncodePCM16 clamps samples to [-1, 1] and writes little-endian int16.
func EncodePCM16(samples []float32) []byte {
	buf := make([]byte, len(samples)*PCM16ByteSize)
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s))) * pcmScale
		binary.LittleEndian.PutUint16(buf[i*PCM16ByteSize:], uint16(int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, v)))))
	}
	return buf
}
