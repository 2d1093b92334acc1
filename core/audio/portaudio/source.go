// Package portaudio provides an alternative microphone frame source for
// hosts where miniaudio misbehaves.
package portaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/fokus-assistant/fokus-core/core/audio"
	"github.com/gordonklaus/portaudio"
)

type FrameSource struct {
	stream      *portaudio.Stream
	buffer      []int16
	frameLength int
	sampleRate  int

	closeOnce sync.Once
	closeErr  error
}

type Option func(*FrameSource)

// WithSampleRate overrides the capture sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(s *FrameSource) {
		if rate > 0 {
			s.sampleRate = rate
		}
	}
}

// WithFrameLength overrides the emitted frame length in samples.
func WithFrameLength(samples int) Option {
	return func(s *FrameSource) {
		if samples > 0 {
			s.frameLength = samples
		}
	}
}

func NewFrameSource(opts ...Option) (*FrameSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	s := &FrameSource{
		frameLength: audio.DefaultFrameLength,
		sampleRate:  audio.DefaultSampleRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.buffer = make([]int16, s.frameLength)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(s.sampleRate), s.frameLength, s.buffer)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open capture stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start capture stream: %w", err)
	}

	s.stream = stream
	return s, nil
}

// Read blocks on the device for the next full frame. portaudio's blocking
// read cannot be interrupted, so cancellation is only observed between
// frames.
func (s *FrameSource) Read(ctx context.Context) ([]int16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.stream.Read(); err != nil {
		return nil, fmt.Errorf("failed to read capture frame: %w", err)
	}

	frame := make([]int16, len(s.buffer))
	copy(frame, s.buffer)
	return frame, nil
}

func (s *FrameSource) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: s.sampleRate, Format: audio.EncodingLinear16}
}

func (s *FrameSource) FrameLength() int { return s.frameLength }

func (s *FrameSource) Close() error {
	s.closeOnce.Do(func() {
		if s.stream != nil {
			if err := s.stream.Close(); err != nil {
				s.closeErr = fmt.Errorf("failed to close capture stream: %w", err)
			}
		}
		if err := portaudio.Terminate(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("failed to terminate portaudio: %w", err)
		}
	})
	return s.closeErr
}
