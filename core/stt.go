package orchestration

import (
	"context"

	"github.com/fokus-assistant/fokus-core/core/audio"
	"github.com/fokus-assistant/fokus-core/core/speechtotext"
)

// speechToText is the STT facade used to handle optional client wiring.
type speechToText struct {
	client SpeechToText
}

func (s *speechToText) set(client SpeechToText) {
	if s != nil {
		s.client = client
	}
}

func (s *speechToText) isConfigured() bool {
	return s != nil && s.client != nil
}

func (s *speechToText) Transcribe(ctx context.Context, utterance audio.Utterance, opts ...speechtotext.TranscriptionOption) (*speechtotext.Result, error) {
	if !s.isConfigured() {
		return nil, nil
	}
	return s.client.Transcribe(ctx, utterance, opts...)
}
