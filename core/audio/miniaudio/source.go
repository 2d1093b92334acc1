// Package miniaudio provides the default microphone frame source backed by
// malgo (miniaudio).
package miniaudio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/fokus-assistant/fokus-core/core/audio"
	"github.com/gen2brain/malgo"
)

const frameQueueCapacity = 32

// FrameSource captures mono linear16 audio from the default device and
// re-chunks the driver callbacks into fixed-length frames.
type FrameSource struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device

	frameLength int
	sampleRate  int

	frames  chan []int16
	pending []int16

	closeCh   chan struct{}
	closeOnce sync.Once

	mu sync.Mutex
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
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	s := &FrameSource{
		audioContext: audioCtx,
		frameLength:  audio.DefaultFrameLength,
		sampleRate:   audio.DefaultSampleRate,
		frames:       make(chan []int16, frameQueueCapacity),
		closeCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(s.sampleRate)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = 1
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	device, err := malgo.InitDevice(audioCtx.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * 2
			if len(pInput) < n || n == 0 {
				return
			}
			s.onAudio(pInput[:n])
		},
	})
	if err != nil {
		_ = audioCtx.Uninit()
		audioCtx.Free()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}
	s.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = audioCtx.Uninit()
		audioCtx.Free()
		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}

	return s, nil
}

// onAudio runs on the driver callback: it must never block, so full queues
// drop the frame rather than stall the device.
func (s *FrameSource) onAudio(chunk []byte) {
	s.mu.Lock()
	for i := 0; i+1 < len(chunk); i += 2 {
		s.pending = append(s.pending, int16(binary.LittleEndian.Uint16(chunk[i:])))
	}

	var ready [][]int16
	for len(s.pending) >= s.frameLength {
		frame := make([]int16, s.frameLength)
		copy(frame, s.pending[:s.frameLength])
		s.pending = s.pending[s.frameLength:]
		ready = append(ready, frame)
	}
	s.mu.Unlock()

	for _, frame := range ready {
		select {
		case s.frames <- frame:
		default:
		}
	}
}

func (s *FrameSource) Read(ctx context.Context) ([]int16, error) {
	select {
	case frame := <-s.frames:
		return frame, nil
	case <-s.closeCh:
		return nil, fmt.Errorf("frame source closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *FrameSource) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: s.sampleRate, Format: audio.EncodingLinear16}
}

func (s *FrameSource) FrameLength() int { return s.frameLength }

func (s *FrameSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		if s.device != nil {
			_ = s.device.Stop()
			s.device.Uninit()
		}
		if s.audioContext != nil {
			_ = s.audioContext.Uninit()
			s.audioContext.Free()
		}
	})
	return nil
}
