package speechtotext

// Result is one finished transcription of a captured utterance.
type Result struct {
	Text       string
	Language   string
	Confidence float64
}

type TranscriptionOptions struct {
	Model    string
	Language string
}

type TranscriptionOption func(*TranscriptionOptions)

func WithModel(model string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Model = model
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}
