package texttospeech

type SpeakOptions struct {
	Voice      string
	SampleRate int
}

type SpeakOption func(*SpeakOptions)

func WithVoice(voice string) SpeakOption {
	return func(o *SpeakOptions) {
		o.Voice = voice
	}
}

func WithSampleRate(sampleRate int) SpeakOption {
	return func(o *SpeakOptions) {
		o.SampleRate = sampleRate
	}
}
