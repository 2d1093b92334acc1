package capture

import (
	"context"

	"github.com/fokus-assistant/fokus-core/core/audio"
)

// FrameSource delivers fixed-length PCM frames from a capture device. Read
// blocks until the next frame is available; implementations live in
// core/audio/miniaudio and core/audio/portaudio.
type FrameSource interface {
	Read(ctx context.Context) ([]int16, error)
	EncodingInfo() audio.EncodingInfo
	FrameLength() int
	Close() error
}

// WakeWordDetector matches the trigger phrase on a rolling frame stream.
// Engines are external; the frame cadence is whatever the FrameSource
// produces.
type WakeWordDetector interface {
	Detect(frame []int16) (bool, error)
}
