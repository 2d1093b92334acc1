package orchestration

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fokus-assistant/fokus-core/core/audio"
	"github.com/fokus-assistant/fokus-core/core/llms"
	"github.com/fokus-assistant/fokus-core/core/protocol"
)

// Collaborator calls are opaque and synchronous, so each leg gets its own
// deadline to keep a hung backend from wedging the single worker.
const (
	transcribeTimeout = 30 * time.Second
	inferenceTimeout  = 60 * time.Second
)

// runWorker serializes utterance processing: at most one transcription,
// inference and dispatch run is in flight at a time.
func (e *Engine) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case utterance := <-e.queue:
			e.process(ctx, utterance)
		}
	}
}

func (e *Engine) process(ctx context.Context, utterance audio.Utterance) {
	ctx, span := tracer.Start(ctx, "process utterance")
	defer span.End()
	span.SetAttributes(attribute.String("utterance.duration", utterance.Duration().String()))

	e.publisher.publishState(protocol.StateTranscribing, "")

	transcribeCtx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	result, err := e.speechToText.Transcribe(transcribeCtx, utterance)
	cancel()
	if err != nil {
		err = errors.Join(errors.New("transcription failed"), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("transcription failed", "error", err)
		e.publisher.publishError("I could not make out what you said.")
		e.publisher.publishState(protocol.StateIdle, e.idleStatus())
		return
	}
	if result == nil || strings.TrimSpace(result.Text) == "" {
		e.publisher.publishState(protocol.StateIdle, e.idleStatus())
		return
	}
	transcript := strings.TrimSpace(result.Text)
	e.publisher.publishTranscript(transcript)

	if !e.assistant.isConfigured() {
		e.publisher.publishState(protocol.StateIdle, e.idleStatus())
		return
	}

	e.publisher.publishState(protocol.StateThinking, "")
	promptOptions := []llms.PromptOption{
		llms.WithInstructions(e.instructions),
		llms.WithTools(toolCatalog()...),
	}
	if environment := e.oracle.Environment(ctx); environment != nil {
		promptOptions = append(promptOptions, llms.WithEnvironment(environment))
	}

	inferCtx, cancel := context.WithTimeout(ctx, inferenceTimeout)
	response, err := e.assistant.Infer(inferCtx, transcript, promptOptions...)
	cancel()
	switch {
	case errors.Is(err, llms.ErrMalformedReply):
		logger.Warn("assistant reply was malformed, using fallback", "error", err)
		response = &llms.Response{AssistantText: malformedReplyFallback}
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("inference failed", "error", err)
		e.publisher.publishError("I could not come up with a reply.")
		e.publisher.publishState(protocol.StateIdle, e.idleStatus())
		return
	case response == nil:
		e.publisher.publishState(protocol.StateIdle, e.idleStatus())
		return
	}

	text := strings.TrimSpace(response.AssistantText)
	if response.ToolCall != nil {
		outcome := e.dispatcher.Dispatch(ctx, *response.ToolCall)
		// Calendar lookups carry facts the model cannot know; for those the
		// dispatch outcome wins over whatever the model phrased.
		if outcome != "" && (text == "" || response.ToolCall.Name == ToolShowUpcomingEvents) {
			text = outcome
		}
	}

	if text == "" {
		e.publisher.publishState(protocol.StateIdle, e.idleStatus())
		return
	}

	e.publisher.publishReply(text)
	e.publisher.publishState(protocol.StateReplying, "")
	e.speak(ctx, text)
	e.publisher.publishState(protocol.StateIdle, e.idleStatus())
}

// speak synthesizes the reply without blocking the worker. Shutdown does not
// cut a reply short; the client enforces its own request timeout.
func (e *Engine) speak(ctx context.Context, text string) {
	if !e.textToSpeech.isConfigured() {
		return
	}
	speakCtx := context.WithoutCancel(ctx)
	go func() {
		if err := e.textToSpeech.Speak(speakCtx, text); err != nil {
			logger.Warn("failed to speak reply", "error", err)
		}
	}()
}
