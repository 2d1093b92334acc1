package portaudio

import (
	"testing"

	"github.com/fokus-assistant/fokus-core/core/audio"
)

func TestFrameSourceOptionsOverrideDefaults(t *testing.T) {
	s := &FrameSource{frameLength: audio.DefaultFrameLength, sampleRate: audio.DefaultSampleRate}

	for _, opt := range []Option{WithSampleRate(44100), WithFrameLength(441)} {
		opt(s)
	}
	if got := s.EncodingInfo().SampleRate; got != 44100 {
		t.Fatalf("expected sample rate 44100, got %d", got)
	}
	if got := s.FrameLength(); got != 441 {
		t.Fatalf("expected frame length 441, got %d", got)
	}

	for _, opt := range []Option{WithSampleRate(0), WithFrameLength(-1)} {
		opt(s)
	}
	if s.EncodingInfo().SampleRate != 44100 || s.FrameLength() != 441 {
		t.Fatal("expected non-positive overrides to be ignored")
	}
}
