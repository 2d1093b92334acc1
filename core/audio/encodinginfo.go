package audio

import "time"

const (
	DefaultSampleRate  = 16000
	DefaultFrameLength = 512
	DefaultFormat      = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// SamplesDuration converts a sample count into wall-clock playback time.
func (e EncodingInfo) SamplesDuration(samples int) time.Duration {
	if e.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(samples) / float64(e.SampleRate) * float64(time.Second))
}

// DurationSamples converts wall-clock time into a sample count.
func (e EncodingInfo) DurationSamples(duration time.Duration) int {
	return int(float64(duration) / float64(time.Second) * float64(e.SampleRate))
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
