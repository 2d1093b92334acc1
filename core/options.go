package orchestration

import (
	"context"
	"time"

	"github.com/fokus-assistant/fokus-core/core/audio"
	"github.com/fokus-assistant/fokus-core/core/countdown"
	"github.com/fokus-assistant/fokus-core/core/events"
	"github.com/fokus-assistant/fokus-core/core/llms"
	"github.com/fokus-assistant/fokus-core/core/protocol"
	"github.com/fokus-assistant/fokus-core/core/speechtotext"
	"github.com/fokus-assistant/fokus-core/core/texttospeech"
)

type EngineOption func(*Engine)

// CaptureSource feeds the engine with wake word and utterance events. The
// capture service implements it; tests substitute their own.
type CaptureSource interface {
	Start(ctx context.Context) error
	Events() <-chan events.Event
	Close()
}

func WithCaptureSource(source CaptureSource) EngineOption {
	return func(e *Engine) {
		e.capture.set(source)
	}
}

type SpeechToText interface {
	Transcribe(ctx context.Context, utterance audio.Utterance, opts ...speechtotext.TranscriptionOption) (*speechtotext.Result, error)
}

func WithSpeechToTextClient(client SpeechToText) EngineOption {
	return func(e *Engine) {
		e.speechToText.set(client)
	}
}

type Assistant interface {
	Infer(ctx context.Context, transcript string, opts ...llms.PromptOption) (*llms.Response, error)
}

func WithAssistantClient(client Assistant) EngineOption {
	return func(e *Engine) {
		e.assistant.set(client)
	}
}

type TextToSpeech interface {
	Speak(ctx context.Context, text string, opts ...texttospeech.SpeakOption) error
}

func WithTextToSpeechClient(client TextToSpeech) EngineOption {
	return func(e *Engine) {
		e.textToSpeech.set(client)
	}
}

// Oracle supplies ambient context and calendar access. All methods are best
// effort; the engine degrades gracefully when the oracle is absent or failing.
type Oracle interface {
	Environment(ctx context.Context) (*llms.EnvironmentContext, error)
	UpcomingEvents(ctx context.Context) ([]string, error)
	AddEvent(ctx context.Context, description string) error
}

func WithOracle(client Oracle) EngineOption {
	return func(e *Engine) {
		e.oracle.set(client)
	}
}

type EventPublisher interface {
	Publish(event protocol.Event)
}

func WithEventPublisher(publisher EventPublisher) EngineOption {
	return func(e *Engine) {
		e.publisher.set(publisher)
	}
}

// WithInstructions replaces the default system prompt handed to the
// assistant on every inference.
func WithInstructions(instructions string) EngineOption {
	return func(e *Engine) {
		e.instructions = instructions
	}
}

func WithPomodoroOptions(opts ...countdown.Option) EngineOption {
	return func(e *Engine) {
		e.pomodoroOptions = append(e.pomodoroOptions, opts...)
	}
}

func WithTimerOptions(opts ...countdown.Option) EngineOption {
	return func(e *Engine) {
		e.timerOptions = append(e.timerOptions, opts...)
	}
}

// WithTickInterval overrides the timer poll cadence. Used by tests with a
// simulated clock.
func WithTickInterval(interval time.Duration) EngineOption {
	return func(e *Engine) {
		if interval > 0 {
			e.tickInterval = interval
		}
	}
}
