package orchestration

import (
	"context"

	"github.com/fokus-assistant/fokus-core/core/texttospeech"
)

// textToSpeech is the TTS facade used to handle optional client wiring.
type textToSpeech struct {
	client TextToSpeech
}

func (t *textToSpeech) set(client TextToSpeech) {
	if t != nil {
		t.client = client
	}
}

func (t *textToSpeech) isConfigured() bool {
	return t != nil && t.client != nil
}

func (t *textToSpeech) Speak(ctx context.Context, text string, opts ...texttospeech.SpeakOption) error {
	if !t.isConfigured() || text == "" {
		return nil
	}
	return t.client.Speak(ctx, text, opts...)
}
