// Package audio owns the PortAudio devices of a voice session: the
// microphone capturer and the speaker output that doubles as the playback clock.
package audio

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
)

// Chunk represents a captured microphone block.
type Chunk struct {
	Data      []float32
	DeviceID  string
	Timestamp int64
}

// CaptureConfig selects and sizes the microphone stream.
type CaptureConfig struct {
	SampleRate      int // preferred rate; the device default is used if refused
	FramesPerBuffer int
	Buffer          int // chunk channel capacity
	ExcludedDevices []string
}

// Capturer reads one microphone with backpressure: when the consumer lags,
// blocks are dropped rather than queued.
type Capturer struct {
	cfg   CaptureConfig
	outCh chan Chunk

	mu      sync.Mutex
	dev     *deviceCapture
	rate    int
	running bool
}

type deviceCapture struct {
	stream   *portaudio.Stream
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewCapturer creates a microphone capturer.
func NewCapturer(cfg CaptureConfig) *Capturer {
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = DefaultFramesPerBuffer
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultCaptureRate
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultChunkBuffer
	}
	return &Capturer{cfg: cfg, outCh: make(chan Chunk, cfg.Buffer)}
}

// Output returns the channel for receiving audio chunks.
func (c *Capturer) Output() <-chan Chunk { return c.outCh }

// SampleRate returns the rate the open stream delivers, or the
// configured rate before Start.
func (c *Capturer) SampleRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rate == 0 {
		return c.cfg.SampleRate
	}
	return c.rate
}

// Start opens the best microphone. Failures are PermissionDenied errors:
// from the user's point of view the microphone could not be used.
func (c *Capturer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return apperrors.Wrap(err, apperrors.PermissionDenied, "microphone: initialize audio")
	}

	devices, err := portaudio.Devices()
	if err != nil {
		_ = portaudio.Terminate()
		return apperrors.Wrap(err, apperrors.PermissionDenied, "microphone: list devices")
	}
	mic := c.pickMicrophone(devices)
	if mic == nil {
		_ = portaudio.Terminate()
		return apperrors.New(apperrors.PermissionDenied, "microphone: no input device available")
	}

	if err := c.startDevice(ctx, mic); err != nil {
		_ = portaudio.Terminate()
		return apperrors.Wrapf(err, apperrors.PermissionDenied, "microphone: open %s", mic.Name)
	}
	c.running = true
	slog.Info("started audio capture", "device", mic.Name, "rate", c.rate)
	return nil
}

func (c *Capturer) pickMicrophone(devices []*portaudio.DeviceInfo) *portaudio.DeviceInfo {
	var mic *portaudio.DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 || c.isExcluded(dev.Name) {
			continue
		}
		if ClassifyDevice(dev.Name) != SourceMicrophone {
			continue
		}
		if mic == nil || preferDevice(dev.Name, mic.Name) {
			mic = dev
		}
	}
	if mic == nil {
		if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil && !c.isExcluded(def.Name) {
			mic = def
		}
	}
	return mic
}

func (c *Capturer) isExcluded(name string) bool {
	for _, ex := range c.cfg.ExcludedDevices {
		if containsIgnoreCase(name, ex) {
			return true
		}
	}
	return false
}

func (c *Capturer) startDevice(ctx context.Context, dev *portaudio.DeviceInfo) error {
	buf := make([]float32, c.cfg.FramesPerBuffer)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(c.cfg.SampleRate),
		FramesPerBuffer: c.cfg.FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil && int(dev.DefaultSampleRate) != c.cfg.SampleRate {
		slog.Debug("preferred capture rate refused, using device default",
			"device", dev.Name, "rate", c.cfg.SampleRate, "default", dev.DefaultSampleRate)
		params.SampleRate = dev.DefaultSampleRate
		stream, err = portaudio.OpenStream(params, buf)
	}
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}

	devCtx, cancel := context.WithCancel(ctx)
	dc := &deviceCapture{stream: stream, cancel: cancel, done: make(chan struct{})}
	c.dev = dc
	c.rate = int(params.SampleRate)

	deviceID := dev.Name
	go func() {
		defer close(dc.done)
		for {
			select {
			case <-devCtx.Done():
				return
			default:
			}

			if err := stream.Read(); err != nil {
				if devCtx.Err() == nil {
					slog.Debug("audio read error", "device", deviceID, "error", err)
				}
				return
			}

			chunk := Chunk{
				Data:      append([]float32(nil), buf...),
				DeviceID:  deviceID,
				Timestamp: time.Now().UnixNano(),
			}

			select {
			case c.outCh <- chunk:
			default:
				slog.Debug("audio buffer full, dropping chunk", "device", deviceID)
			}
		}
	}()

	return nil
}

func (d *deviceCapture) stop() {
	d.stopOnce.Do(func() {
		d.cancel()
		_ = d.stream.Stop()
		select {
		case <-d.done:
		case <-time.After(stopReadTimeout):
			slog.Warn("audio read loop did not exit before close")
		}
		_ = d.stream.Close()
	})
}

// Stop releases the microphone. Safe to call repeatedly.
func (c *Capturer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	if c.dev != nil {
		c.dev.stop()
		c.dev = nil
	}
	c.running = false
	_ = portaudio.Terminate()
}

// Source is the role a device name suggests.
type Source string

const (
	SourceMicrophone Source = "microphone"
	SourceLoopback   Source = "loopback"
	SourceUnknown    Source = ""
)

// ClassifyDevice guesses a device's role from its name. Loopback devices
// are never used as the customer's microphone.
func ClassifyDevice(name string) Source {
	for _, kw := range loopbackKeywords {
		if containsIgnoreCase(name, kw) {
			return SourceLoopback
		}
	}
	for _, kw := range micKeywords {
		if containsIgnoreCase(name, kw) {
			return SourceMicrophone
		}
	}
	return SourceUnknown
}

func preferDevice(name, current string) bool {
	for _, p := range preferredMics {
		if containsIgnoreCase(name, p) && !containsIgnoreCase(current, p) {
			return true
		}
	}
	return false
}

// DeviceInfo summarizes a PortAudio device for listings.
type DeviceInfo struct {
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	Source            Source
}

// ListDevices enumerates devices with their classification.
func ListDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	out := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceInfo{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			Source:            ClassifyDevice(d.Name),
		})
	}
	return out, nil
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
