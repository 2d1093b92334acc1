package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fokus-assistant/fokus-core/core/audio"
	"github.com/fokus-assistant/fokus-core/core/countdown"
	"github.com/fokus-assistant/fokus-core/core/events"
	"github.com/fokus-assistant/fokus-core/core/llms"
	"github.com/fokus-assistant/fokus-core/core/protocol"
	"github.com/fokus-assistant/fokus-core/core/speechtotext"
	"github.com/fokus-assistant/fokus-core/core/texttospeech"
)

type fakeCapture struct {
	events    chan events.Event
	closeOnce sync.Once
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{events: make(chan events.Event, 8)}
}

func (c *fakeCapture) Start(context.Context) error { return nil }
func (c *fakeCapture) Events() <-chan events.Event { return c.events }
func (c *fakeCapture) Close()                      { c.closeOnce.Do(func() { close(c.events) }) }
func (c *fakeCapture) emit(event events.Event)     { c.events <- event }

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, audio.Utterance, ...speechtotext.TranscriptionOption) (*speechtotext.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &speechtotext.Result{Text: f.text, Confidence: 0.98}, nil
}

type fakeAssistant struct {
	response *llms.Response
	err      error
}

func (f *fakeAssistant) Infer(context.Context, string, ...llms.PromptOption) (*llms.Response, error) {
	return f.response, f.err
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (f *fakeSpeaker) Speak(_ context.Context, text string, _ ...texttospeech.SpeakOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeSpeaker) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (b *recordingBus) waitFor(t *testing.T, what string, ready func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if ready() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testUtterance() audio.Utterance {
	return audio.Utterance{PCM: make([]int16, 1600), SampleRate: 16000, CreatedAt: time.Now()}
}

func TestEngineRunsFullUtterancePipeline(t *testing.T) {
	capture := newFakeCapture()
	bus := &recordingBus{}
	speaker := &fakeSpeaker{}

	engine := New(
		WithCaptureSource(capture),
		WithEventPublisher(bus),
		WithSpeechToTextClient(&fakeTranscriber{text: "start a focus session for writing"}),
		WithAssistantClient(&fakeAssistant{response: &llms.Response{
			AssistantText: "Starting your writing session.",
			ToolCall: &llms.ToolCall{
				ID:   "call-1",
				Name: ToolPomodoroStart,
				Arguments: map[string]any{
					"session_name": "Writing",
					"duration":     "25",
				},
			},
		}}),
		WithTextToSpeechClient(speaker),
	)

	runDone := make(chan error, 1)
	go func() { runDone <- engine.Run(context.Background()) }()
	defer engine.Close()

	capture.emit(events.NewWakeWordDetected())
	capture.emit(events.NewUtteranceCaptured(testUtterance()))

	bus.waitFor(t, "assistant reply", func() bool {
		return len(bus.byType(protocol.EventAssistantReply)) > 0
	})

	transcripts := bus.byType(protocol.EventTranscript)
	if len(transcripts) != 1 {
		t.Fatalf("expected one transcript event, got %d", len(transcripts))
	}
	if got := transcripts[0].(protocol.Transcript).Text; got != "start a focus session for writing" {
		t.Fatalf("unexpected transcript %q", got)
	}

	reply := bus.byType(protocol.EventAssistantReply)[0].(protocol.AssistantReply)
	if reply.Text != "Starting your writing session." {
		t.Fatalf("unexpected reply %q", reply.Text)
	}

	var sawAcceptedStart bool
	for _, event := range bus.byType(protocol.EventPomodoro) {
		update := event.(protocol.PomodoroUpdate)
		if update.Action == "start" && update.Accepted != nil && *update.Accepted {
			sawAcceptedStart = true
			if update.Session != "Writing" || update.DurationSeconds != 1500 {
				t.Fatalf("unexpected pomodoro start update %+v", update)
			}
		}
	}
	if !sawAcceptedStart {
		t.Fatal("expected an accepted pomodoro start update")
	}

	bus.waitFor(t, "spoken reply", func() bool { return len(speaker.texts()) > 0 })
	if spoken := speaker.texts(); spoken[0] != "Starting your writing session." {
		t.Fatalf("unexpected spoken text %q", spoken[0])
	}

	var states []protocol.State
	for _, event := range bus.byType(protocol.EventStateUpdate) {
		states = append(states, event.(protocol.StateUpdate).State)
	}
	for _, want := range []protocol.State{
		protocol.StateListening, protocol.StateTranscribing,
		protocol.StateThinking, protocol.StateReplying,
	} {
		found := false
		for _, state := range states {
			if state == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected state %q in the published sequence %v", want, states)
		}
	}

	engine.Close()
	if err := <-runDone; err != nil {
		t.Fatalf("expected a clean shutdown, got %v", err)
	}
}

func TestEnginePublishesStartupSnapshots(t *testing.T) {
	capture := newFakeCapture()
	bus := &recordingBus{}

	engine := New(WithCaptureSource(capture), WithEventPublisher(bus))
	runDone := make(chan error, 1)
	go func() { runDone <- engine.Run(context.Background()) }()

	bus.waitFor(t, "startup snapshots", func() bool {
		return len(bus.byType(protocol.EventPomodoro)) > 0 &&
			len(bus.byType(protocol.EventTimer)) > 0 &&
			len(bus.byType(protocol.EventStateUpdate)) > 0
	})

	pomodoro := bus.byType(protocol.EventPomodoro)[0].(protocol.PomodoroUpdate)
	if pomodoro.Phase != "idle" || pomodoro.RemainingSeconds != 1500 {
		t.Fatalf("unexpected startup pomodoro snapshot %+v", pomodoro)
	}
	if pomodoro.Action != countdown.ActionSync || pomodoro.Reason != reasonStartup {
		t.Fatalf("expected a sync update with reason %q, got %+v", reasonStartup, pomodoro)
	}
	timer := bus.byType(protocol.EventTimer)[0].(protocol.TimerUpdate)
	if timer.Phase != "idle" || timer.RemainingSeconds != 600 {
		t.Fatalf("unexpected startup timer snapshot %+v", timer)
	}
	if timer.Action != countdown.ActionSync || timer.Reason != reasonStartup {
		t.Fatalf("expected a sync update with reason %q, got %+v", reasonStartup, timer)
	}

	engine.Close()
	if err := <-runDone; err != nil {
		t.Fatalf("expected a clean shutdown, got %v", err)
	}
}

func TestEngineIdleStatusCarriesActiveCountdown(t *testing.T) {
	capture := newFakeCapture()
	bus := &recordingBus{}

	engine := New(
		WithCaptureSource(capture),
		WithEventPublisher(bus),
		WithSpeechToTextClient(&fakeTranscriber{text: "start a focus session for writing"}),
		WithAssistantClient(&fakeAssistant{response: &llms.Response{
			AssistantText: "Starting.",
			ToolCall: &llms.ToolCall{
				ID:        "call-1",
				Name:      ToolPomodoroStart,
				Arguments: map[string]any{"session_name": "Writing"},
			},
		}}),
	)
	runDone := make(chan error, 1)
	go func() { runDone <- engine.Run(context.Background()) }()
	defer engine.Close()

	capture.emit(events.NewUtteranceCaptured(testUtterance()))

	bus.waitFor(t, "idle status line", func() bool {
		for _, event := range bus.byType(protocol.EventStateUpdate) {
			update := event.(protocol.StateUpdate)
			if update.State == protocol.StateIdle && strings.Contains(update.Message, `"Writing"`) {
				return true
			}
		}
		return false
	})

	engine.Close()
	<-runDone
}

func TestEngineRecoversFromTranscriptionFailure(t *testing.T) {
	capture := newFakeCapture()
	bus := &recordingBus{}

	engine := New(
		WithCaptureSource(capture),
		WithEventPublisher(bus),
		WithSpeechToTextClient(&fakeTranscriber{err: errors.New("backend gone")}),
	)
	runDone := make(chan error, 1)
	go func() { runDone <- engine.Run(context.Background()) }()
	defer engine.Close()

	capture.emit(events.NewUtteranceCaptured(testUtterance()))

	bus.waitFor(t, "error event", func() bool {
		return len(bus.byType(protocol.EventError)) > 0
	})

	// The loop keeps going: a second utterance is still processed.
	capture.emit(events.NewUtteranceCaptured(testUtterance()))
	bus.waitFor(t, "second error event", func() bool {
		return len(bus.byType(protocol.EventError)) > 1
	})

	engine.Close()
	if err := <-runDone; err != nil {
		t.Fatalf("expected per-utterance failures to stay non-fatal, got %v", err)
	}
}

func TestEngineFallsBackOnMalformedReply(t *testing.T) {
	capture := newFakeCapture()
	bus := &recordingBus{}

	engine := New(
		WithCaptureSource(capture),
		WithEventPublisher(bus),
		WithSpeechToTextClient(&fakeTranscriber{text: "gibberish"}),
		WithAssistantClient(&fakeAssistant{err: fmt.Errorf("%w: bad json", llms.ErrMalformedReply)}),
	)
	runDone := make(chan error, 1)
	go func() { runDone <- engine.Run(context.Background()) }()
	defer engine.Close()

	capture.emit(events.NewUtteranceCaptured(testUtterance()))

	bus.waitFor(t, "fallback reply", func() bool {
		return len(bus.byType(protocol.EventAssistantReply)) > 0
	})
	reply := bus.byType(protocol.EventAssistantReply)[0].(protocol.AssistantReply)
	if !strings.Contains(reply.Text, "did not catch") {
		t.Fatalf("expected the fallback reply, got %q", reply.Text)
	}

	engine.Close()
	<-runDone
}

func TestEngineStopsOnFatalCaptureError(t *testing.T) {
	capture := newFakeCapture()
	bus := &recordingBus{}

	engine := New(WithCaptureSource(capture), WithEventPublisher(bus))
	runDone := make(chan error, 1)
	go func() { runDone <- engine.Run(context.Background()) }()

	capture.emit(events.NewCaptureError("microphone unplugged", true))

	select {
	case err := <-runDone:
		if err == nil || !strings.Contains(err.Error(), "microphone unplugged") {
			t.Fatalf("expected a fatal capture error from Run, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for Run to fail")
	}

	if len(bus.byType(protocol.EventError)) == 0 {
		t.Fatal("expected the capture failure published as an error event")
	}
}

func TestEngineCompletionSpeaksAndPublishes(t *testing.T) {
	capture := newFakeCapture()
	bus := &recordingBus{}
	speaker := &fakeSpeaker{}

	engine := New(
		WithCaptureSource(capture),
		WithEventPublisher(bus),
		WithTextToSpeechClient(speaker),
		WithTickInterval(10*time.Millisecond),
	)
	runDone := make(chan error, 1)
	go func() { runDone <- engine.Run(context.Background()) }()
	defer engine.Close()

	result := engine.timer.start("", 1)
	if !result.Accepted {
		t.Fatalf("expected the timer start to be accepted, got %+v", result)
	}

	bus.waitFor(t, "completion update", func() bool {
		for _, event := range bus.byType(protocol.EventTimer) {
			if event.(protocol.TimerUpdate).Action == "completed" {
				return true
			}
		}
		return false
	})

	bus.waitFor(t, "completion announcement", func() bool { return len(speaker.texts()) > 0 })
	if spoken := speaker.texts(); spoken[0] != "Your timer is up." {
		t.Fatalf("unexpected completion announcement %q", spoken[0])
	}

	engine.Close()
	<-runDone
}
