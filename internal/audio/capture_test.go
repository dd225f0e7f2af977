package audio

import (
	"testing"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name     string
		device   string
		expected Source
	}{
		{"blackhole", "BlackHole 2ch", SourceLoopback},
		{"vb-cable", "VB-Cable", SourceLoopback},
		{"monitor", "Monitor of Built-in Audio", SourceLoopback},
		{"soundflower", "Soundflower (2ch)", SourceLoopback},

		{"microphone", "Built-in Microphone", SourceMicrophone},
		{"mic short", "External Mic", SourceMicrophone},
		{"headset", "USB Headset", SourceMicrophone},
		{"line input", "Line Input", SourceMicrophone},

		{"speakers", "External Speakers", SourceUnknown},
		{"hdmi", "HDMI Output", SourceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDevice(tt.device); got != tt.expected {
				t.Errorf("ClassifyDevice(%q) = %q, want %q", tt.device, got, tt.expected)
			}
		})
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s        string
		substr   string
		expected bool
	}{
		{"BlackHole 2ch", "blackhole", true},
		{"blackhole", "BLACKHOLE", true},
		{"Built-in Microphone", "MICROPHONE", true},
		{"External Speakers", "blackhole", false},
		{"", "test", false},
		{"test", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.s+"_"+tt.substr, func(t *testing.T) {
			if got := containsIgnoreCase(tt.s, tt.substr); got != tt.expected {
				t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tt.s, tt.substr, got, tt.expected)
			}
		})
	}
}

func TestPreferDevice(t *testing.T) {
	if !preferDevice("USB Headset", "External Mic") {
		t.Error("headset should be preferred over a generic mic")
	}
	if preferDevice("External Mic", "USB Headset") {
		t.Error("generic mic should not replace a headset")
	}
	if preferDevice("Headset B", "Headset A") {
		t.Error("equal preference keeps the first device")
	}
}

func TestNewCapturerDefaults(t *testing.T) {
	c := NewCapturer(CaptureConfig{})

	if c.cfg.SampleRate != DefaultCaptureRate {
		t.Errorf("SampleRate = %d, want %d", c.cfg.SampleRate, DefaultCaptureRate)
	}
	if c.cfg.FramesPerBuffer != DefaultFramesPerBuffer {
		t.Errorf("FramesPerBuffer = %d, want %d", c.cfg.FramesPerBuffer, DefaultFramesPerBuffer)
	}
	if cap(c.Output()) != DefaultChunkBuffer {
		t.Errorf("buffer = %d, want %d", cap(c.Output()), DefaultChunkBuffer)
	}
	if c.SampleRate() != DefaultCaptureRate {
		t.Errorf("SampleRate() before start = %d", c.SampleRate())
	}
}

func TestIsExcluded(t *testing.T) {
	c := NewCapturer(CaptureConfig{ExcludedDevices: []string{"iphone", "teams"}})
	if !c.isExcluded("Griffin's iPhone Microphone") {
		t.Error("iPhone mic should be excluded")
	}
	if c.isExcluded("MacBook Pro Microphone") {
		t.Error("built-in mic should not be excluded")
	}
}

func TestStopWithoutStart(t *testing.T) {
	c := NewCapturer(CaptureConfig{})
	c.Stop()
	c.Stop()
}
