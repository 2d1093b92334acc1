package capture

import (
	"context"
	"testing"
	"time"

	"github.com/fokus-assistant/fokus-core/core/events"
)

func TestServiceEmitsDetectionThenUtterance(t *testing.T) {
	script := repeatFrames(quietFrame, 5) // calibration
	script = append(script, loudFrame())  // wake word
	script = append(script, repeatFrames(loudFrame, 5)...)
	script = append(script, repeatFrames(quietFrame, 4)...)

	service := NewService(&scriptedSource{frames: script}, NewEnergyRunDetector(100, 1, 0),
		WithCalibrationWindow(50*time.Millisecond),
		WithUtteranceConfig(testConfig()),
		WithWakeThresholdMultiplier(1.5),
	)
	if err := service.Start(context.Background()); err != nil {
		t.Fatalf("service start failed: %v", err)
	}
	defer service.Close()

	first := nextEvent(t, service)
	if _, ok := first.(events.WakeWordDetected); !ok {
		t.Fatalf("expected the first event to be a wake word detection, got %T", first)
	}

	second := nextEvent(t, service)
	captured, ok := second.(events.UtteranceCaptured)
	if !ok {
		t.Fatalf("expected the second event to be a captured utterance, got %T", second)
	}
	if len(captured.Utterance.PCM) != 5*testFrameLength {
		t.Fatalf("expected 5 speech frames in the utterance, got %d samples", len(captured.Utterance.PCM))
	}
}

func TestServiceStartFailsWithoutCalibration(t *testing.T) {
	service := NewService(&scriptedSource{}, NewEnergyRunDetector(100, 1, 0),
		WithCalibrationWindow(50*time.Millisecond))

	if err := service.Start(context.Background()); err == nil {
		t.Fatal("expected start against a dead source to fail")
	}
}

func nextEvent(t *testing.T, service *Service) events.Event {
	t.Helper()
	select {
	case event := <-service.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a capture event")
		return nil
	}
}
