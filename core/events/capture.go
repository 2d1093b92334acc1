package events

import (
	"github.com/fokus-assistant/fokus-core/core/audio"
)

const (
	// KindWakeWordDetected identifies the start of a capture session.
	KindWakeWordDetected Kind = "capture.wake_word_detected"
	// KindUtteranceCaptured identifies a completed utterance capture.
	KindUtteranceCaptured Kind = "capture.utterance_captured"
	// KindCaptureError identifies a capture failure. Fatal reports take the
	// capture service down with them.
	KindCaptureError Kind = "capture.error"
)

// WakeWordDetected marks that the wake word was matched and utterance capture
// is about to begin.
type WakeWordDetected struct {
	Base
}

func NewWakeWordDetected() WakeWordDetected {
	return WakeWordDetected{Base: NewBase(KindWakeWordDetected)}
}

// UtteranceCaptured carries one completed utterance. Events within a capture
// session are strictly ordered: detection first, then capture or error.
type UtteranceCaptured struct {
	Base
	Utterance audio.Utterance
}

func NewUtteranceCaptured(utterance audio.Utterance) UtteranceCaptured {
	return UtteranceCaptured{Base: NewBase(KindUtteranceCaptured), Utterance: utterance}
}

// CaptureError reports a device or detector failure.
type CaptureError struct {
	Base
	Message string
	Fatal   bool
}

func NewCaptureError(message string, fatal bool) CaptureError {
	return CaptureError{Base: NewBase(KindCaptureError), Message: message, Fatal: fatal}
}
