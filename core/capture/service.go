package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fokus-assistant/fokus-core/core/events"
	"go.opentelemetry.io/otel/codes"
)

const (
	serviceEventQueueCapacity = 16
	captureRestartLimit       = 3
	captureRestartDelay       = time.Second

	DefaultWakeThresholdMultiplier = 1.5
)

type ServiceOption func(*Service)

func WithVADMultiplier(multiplier float64) ServiceOption {
	return func(s *Service) {
		s.vadMultiplier = multiplier
	}
}

func WithCalibrationWindow(window time.Duration) ServiceOption {
	return func(s *Service) {
		s.calibrationWindow = window
	}
}

func WithUtteranceConfig(config UtteranceConfig) ServiceOption {
	return func(s *Service) {
		s.utteranceConfig = config
	}
}

// WithWakeThresholdMultiplier scales the calibrated voice threshold before
// it is handed to a retunable wake word detector.
func WithWakeThresholdMultiplier(multiplier float64) ServiceOption {
	return func(s *Service) {
		s.wakeMultiplier = multiplier
	}
}

// Service owns the capture loop: it matches the wake word on the live frame
// stream, runs one utterance capture per detection, and emits capture events
// onto a bounded channel consumed by the runtime engine. The loop never
// blocks on downstream processing beyond that channel.
type Service struct {
	source   FrameSource
	detector WakeWordDetector

	vadMultiplier     float64
	calibrationWindow time.Duration
	utteranceConfig   UtteranceConfig
	wakeMultiplier    float64

	vad       *VoiceActivityDetector
	utterance *UtteranceCapture

	eventsCh chan events.Event
	closeCh  chan struct{}
	done     chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	running   atomic.Bool
}

func NewService(source FrameSource, detector WakeWordDetector, opts ...ServiceOption) *Service {
	s := &Service{
		source:            source,
		detector:          detector,
		vadMultiplier:     DefaultVADMultiplier,
		calibrationWindow: DefaultCalibrationWindow,
		utteranceConfig:   DefaultUtteranceConfig(),
		wakeMultiplier:    DefaultWakeThresholdMultiplier,
		eventsCh:          make(chan events.Event, serviceEventQueueCapacity),
		closeCh:           make(chan struct{}),
		done:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events is the ordered capture event stream: per capture session, detection
// strictly precedes the captured utterance or the error.
func (s *Service) Events() <-chan events.Event {
	return s.eventsCh
}

func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Start calibrates the detector and launches the capture loop. Calibration
// failure is fatal: without a noise floor every later classification would
// be meaningless.
func (s *Service) Start(ctx context.Context) error {
	var startErr error
	s.startOnce.Do(func() {
		ctx, span := tracer.Start(ctx, "start capture service")
		defer span.End()

		s.vad = NewVoiceActivityDetector(s.vadMultiplier)
		if err := s.vad.Calibrate(ctx, s.source, s.calibrationWindow); err != nil {
			startErr = fmt.Errorf("failed to calibrate voice activity detection: %w", err)
			span.RecordError(startErr)
			span.SetStatus(codes.Error, startErr.Error())
			return
		}
		s.utterance = NewUtteranceCapture(s.vad, s.utteranceConfig)

		if tunable, ok := s.detector.(interface{ SetThreshold(float64) }); ok && s.wakeMultiplier > 0 {
			tunable.SetThreshold(s.vad.Threshold() * s.wakeMultiplier)
		}

		s.running.Store(true)
		go s.run(ctx)
	})
	return startErr
}

func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
	})
	if s.running.Load() {
		<-s.done
	}
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)
	defer s.running.Store(false)
	defer s.source.Close()

	restarts := 0
	for {
		err := s.listen(ctx)
		if err == nil || s.isClosed() || ctx.Err() != nil {
			return
		}

		restarts++
		if restarts > captureRestartLimit {
			s.emit(events.NewCaptureError(
				fmt.Sprintf("capture loop failed permanently: %v", err), true))
			return
		}

		logger.Warn("capture loop failed, restarting",
			"error", err, "attempt", restarts)
		s.emit(events.NewCaptureError(fmt.Sprintf("capture loop failed: %v", err), false))

		select {
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(captureRestartDelay):
		}
	}
}

// listen is one pass of the wake-word/capture cycle. It returns nil on
// shutdown and an error on device failure.
func (s *Service) listen(ctx context.Context) error {
	for {
		if s.isClosed() || ctx.Err() != nil {
			return nil
		}

		frame, err := s.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read audio frame: %w", err)
		}

		matched, err := s.detector.Detect(frame)
		if err != nil {
			return fmt.Errorf("wake word detection failed: %w", err)
		}
		if !matched {
			continue
		}

		s.emit(events.NewWakeWordDetected())

		utterance, outcome, err := s.utterance.Capture(ctx, s.source)
		if err != nil {
			return fmt.Errorf("utterance capture failed: %w", err)
		}
		if outcome == OutcomeDone && utterance != nil {
			s.emit(events.NewUtteranceCaptured(*utterance))
		}
		// TOO_SHORT and silent TIMED_OUT runs are dropped on purpose so
		// ambient noise never reaches speech-to-text.
	}
}

func (s *Service) emit(event events.Event) {
	select {
	case s.eventsCh <- event:
	case <-s.closeCh:
	}
}

func (s *Service) isClosed() bool {
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}
