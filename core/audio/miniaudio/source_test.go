package miniaudio

import (
	"testing"

	"github.com/fokus-assistant/fokus-core/core/audio"
)

func TestFrameSourceOptionsOverrideDefaults(t *testing.T) {
	s := &FrameSource{frameLength: audio.DefaultFrameLength, sampleRate: audio.DefaultSampleRate}

	for _, opt := range []Option{WithSampleRate(48000), WithFrameLength(960)} {
		opt(s)
	}
	if got := s.EncodingInfo().SampleRate; got != 48000 {
		t.Fatalf("expected sample rate 48000, got %d", got)
	}
	if got := s.FrameLength(); got != 960 {
		t.Fatalf("expected frame length 960, got %d", got)
	}

	for _, opt := range []Option{WithSampleRate(0), WithFrameLength(-1)} {
		opt(s)
	}
	if s.EncodingInfo().SampleRate != 48000 || s.FrameLength() != 960 {
		t.Fatal("expected non-positive overrides to be ignored")
	}
}
