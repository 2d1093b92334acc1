package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

const playbackSampleRate = 48000

// Playback renders mono linear16 audio on the default output device. It
// buffers whatever is handed to Play and feeds silence once drained.
type Playback struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device

	mu     sync.Mutex
	buffer []byte

	closeOnce sync.Once
}

func NewPlayback() (*Playback, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	p := &Playback{audioContext: audioCtx}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = playbackSampleRate
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(audioCtx.Context, config, malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			p.fill(pOutput)
		},
	})
	if err != nil {
		_ = audioCtx.Uninit()
		audioCtx.Free()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	p.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = audioCtx.Uninit()
		audioCtx.Free()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	return p, nil
}

func (p *Playback) fill(out []byte) {
	p.mu.Lock()
	n := copy(out, p.buffer)
	p.buffer = p.buffer[n:]
	p.mu.Unlock()

	for i := n; i < len(out); i++ {
		out[i] = 0
	}
}

// Play queues audio for the output callback and returns immediately.
func (p *Playback) Play(audio []byte) error {
	if p.device == nil {
		return fmt.Errorf("playback device not initialized")
	}

	p.mu.Lock()
	p.buffer = append(p.buffer, audio...)
	p.mu.Unlock()
	return nil
}

func (p *Playback) Close() error {
	p.closeOnce.Do(func() {
		if p.device != nil {
			_ = p.device.Stop()
			p.device.Uninit()
		}
		if p.audioContext != nil {
			_ = p.audioContext.Uninit()
			p.audioContext.Free()
		}
	})
	return nil
}
