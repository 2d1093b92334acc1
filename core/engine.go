package orchestration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fokus-assistant/fokus-core/core/audio"
	"github.com/fokus-assistant/fokus-core/core/countdown"
	"github.com/fokus-assistant/fokus-core/core/events"
	"github.com/fokus-assistant/fokus-core/core/protocol"
)

const (
	// utteranceQueueCapacity bounds the backlog behind the single pipeline
	// worker. On overflow the oldest utterance is dropped; a stale request
	// is worth less than the one the user just spoke.
	utteranceQueueCapacity = 4

	defaultTickInterval = 250 * time.Millisecond
)

// Engine is the runtime loop. It owns the two countdown channels, consumes
// capture events, runs the single-flight utterance pipeline and publishes
// every state change to the UI bus.
type Engine struct {
	pomodoro   *timerChannel
	timer      *timerChannel
	dispatcher *Dispatcher

	capture      captureSource
	speechToText speechToText
	assistant    assistant
	textToSpeech textToSpeech
	oracle       oracle
	publisher    uiPublisher

	instructions    string
	pomodoroOptions []countdown.Option
	timerOptions    []countdown.Option
	tickInterval    time.Duration

	queue     chan audio.Utterance
	closeCh   chan struct{}
	closeOnce sync.Once
}

func New(opts ...EngineOption) *Engine {
	e := &Engine{
		instructions: defaultInstructions,
		tickInterval: defaultTickInterval,
		queue:        make(chan audio.Utterance, utteranceQueueCapacity),
		closeCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.pomodoro = newTimerChannel(channelPomodoro, countdown.NewTimer(channelPomodoro, append(
		[]countdown.Option{countdown.WithDefaultDuration(countdown.DefaultPomodoroSeconds)},
		e.pomodoroOptions...)...), &e.publisher)
	e.timer = newTimerChannel(channelTimer, countdown.NewTimer(channelTimer, append(
		[]countdown.Option{countdown.WithDefaultDuration(countdown.DefaultTimerSeconds)},
		e.timerOptions...)...), &e.publisher)
	e.dispatcher = newDispatcher(e.pomodoro, e.timer, &e.oracle)

	return e
}

// Run drives the engine until ctx is cancelled, Close is called, or the
// capture source fails fatally. Call Run at most once per engine instance.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	e.pomodoro.syncState()
	e.timer.syncState()

	if err := e.capture.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to start audio capture: %w", err)
	}
	e.publisher.publishState(protocol.StateIdle, e.idleStatus())
	logger.Info("engine running")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.runWorker(ctx)
	}()
	go func() {
		defer wg.Done()
		e.runTicker(ctx)
	}()

	err := e.loop(ctx)

	cancel()
	e.capture.Close()
	wg.Wait()
	return err
}

func (e *Engine) loop(ctx context.Context) error {
	captureEvents := e.capture.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.closeCh:
			return nil
		case event, ok := <-captureEvents:
			if !ok {
				captureEvents = nil
				continue
			}
			switch event := event.(type) {
			case events.WakeWordDetected:
				e.publisher.publishState(protocol.StateListening, "")
			case events.UtteranceCaptured:
				e.enqueue(event.Utterance)
			case events.CaptureError:
				e.publisher.publishError(event.Message)
				if event.Fatal {
					e.publisher.publishState(protocol.StateError, event.Message)
					return fmt.Errorf("audio capture failed: %s", event.Message)
				}
				e.publisher.publishState(protocol.StateIdle, e.idleStatus())
			}
		}
	}
}

// idleStatus is the status line carried on idle state updates: what the
// runtime is watching while it listens for the wake word.
func (e *Engine) idleStatus() string {
	return activeStatusMessage(e.pomodoro.snapshot(), e.timer.snapshot())
}

func (e *Engine) enqueue(utterance audio.Utterance) {
	for {
		select {
		case e.queue <- utterance:
			return
		default:
		}
		select {
		case dropped := <-e.queue:
			logger.Warn("utterance queue full, dropping oldest",
				"age", time.Since(dropped.CreatedAt).String())
		default:
		}
	}
}

// Close stops Run. Safe to call more than once and from any goroutine.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.closeCh)
	})
}
