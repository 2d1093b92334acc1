package audio

import (
	"encoding/binary"
	"time"
)

// Utterance is one bounded span of captured speech audio. It is created by
// the capture state machine, handed to speech-to-text exactly once, and
// discarded afterwards.
type Utterance struct {
	PCM        []int16
	SampleRate int
	CreatedAt  time.Time
}

func (u Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(u.PCM)) / float64(u.SampleRate) * float64(time.Second))
}

// Bytes encodes the samples as little-endian linear16, the layout every
// speech-to-text backend here consumes.
func (u Utterance) Bytes() []byte {
	out := make([]byte, len(u.PCM)*2)
	for i, sample := range u.PCM {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}
