package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/fokus-assistant/fokus-core/core/audio"
)

type captureState int

const (
	stateWaitingForSpeech captureState = iota
	stateCapturing
	stateTrailingSilence
	stateDone
	stateTimedOut
)

// Outcome classifies how one utterance capture ended.
type Outcome string

const (
	// OutcomeDone means a complete utterance was captured.
	OutcomeDone Outcome = "done"
	// OutcomeTimedOut means no speech arrived in time, or nothing but noise
	// did; nothing is emitted.
	OutcomeTimedOut Outcome = "timed_out"
	// OutcomeTooShort means speech ended before the minimum speech duration;
	// the audio is discarded to avoid spurious transcription calls.
	OutcomeTooShort Outcome = "too_short"
)

// UtteranceConfig bounds one capture run. All durations are converted to
// frame counts against the source's frame cadence.
type UtteranceConfig struct {
	SilenceTimeout  time.Duration
	MaxUtterance    time.Duration
	NoSpeechTimeout time.Duration
	MinSpeech       time.Duration
}

func DefaultUtteranceConfig() UtteranceConfig {
	return UtteranceConfig{
		SilenceTimeout:  1200 * time.Millisecond,
		MaxUtterance:    12 * time.Second,
		NoSpeechTimeout: 5 * time.Second,
		MinSpeech:       400 * time.Millisecond,
	}
}

// UtteranceCapture runs the post-wake-word capture state machine:
// WAITING_FOR_SPEECH -> CAPTURING -> {DONE, TIMED_OUT, TOO_SHORT}, with a
// trailing-silence stage that lets speech resume before the silence timeout
// elapses.
type UtteranceCapture struct {
	vad    *VoiceActivityDetector
	config UtteranceConfig
}

func NewUtteranceCapture(vad *VoiceActivityDetector, config UtteranceConfig) *UtteranceCapture {
	return &UtteranceCapture{vad: vad, config: config}
}

type captureRun struct {
	state             captureState
	frames            []int16
	frameCount        int
	speechFrameCount  int
	silenceFrameCount int
}

// Capture reads frames until the state machine terminates and returns the
// captured utterance for OutcomeDone. TOO_SHORT and zero-speech TIMED_OUT
// runs return a nil utterance.
func (c *UtteranceCapture) Capture(ctx context.Context, source FrameSource) (*audio.Utterance, Outcome, error) {
	ctx, span := tracer.Start(ctx, "capture utterance")
	defer span.End()

	encoding := source.EncodingInfo()
	frameDuration := encoding.SamplesDuration(source.FrameLength())
	if frameDuration <= 0 {
		return nil, OutcomeTimedOut, fmt.Errorf("frame source reports unusable encoding")
	}

	maxFrames := framesFor(c.config.MaxUtterance, frameDuration)
	silenceLimit := framesFor(c.config.SilenceTimeout, frameDuration)
	noSpeechLimit := framesFor(c.config.NoSpeechTimeout, frameDuration)
	minSpeechFrames := framesFor(c.config.MinSpeech, frameDuration)

	run := captureRun{
		state:  stateWaitingForSpeech,
		frames: make([]int16, 0, maxFrames*source.FrameLength()),
	}

	for run.frameCount < maxFrames {
		frame, err := source.Read(ctx)
		if err != nil {
			return nil, OutcomeTimedOut, fmt.Errorf("failed to read capture frame: %w", err)
		}

		run.frames = append(run.frames, frame...)
		run.frameCount++

		run.state = c.transition(&run, c.vad.Classify(frame), minSpeechFrames, silenceLimit, noSpeechLimit)
		if run.state == stateDone || run.state == stateTimedOut {
			break
		}
	}

	if run.speechFrameCount == 0 {
		logger.Debug("capture discarded, no speech",
			"frames", run.frameCount, "threshold", c.vad.Threshold())
		return nil, OutcomeTimedOut, nil
	}
	if run.speechFrameCount < minSpeechFrames {
		logger.Debug("capture discarded, too short",
			"speech_frames", run.speechFrameCount, "min_speech_frames", minSpeechFrames)
		return nil, OutcomeTooShort, nil
	}

	samples := run.frames
	if run.state == stateDone && run.silenceFrameCount > 0 {
		// The trailing silence run carries no speech; trim it so downstream
		// transcription sees only the spoken span.
		trim := run.silenceFrameCount * source.FrameLength()
		if trim < len(samples) {
			samples = samples[:len(samples)-trim]
		}
	}

	utterance := &audio.Utterance{
		PCM:        samples,
		SampleRate: encoding.SampleRate,
		CreatedAt:  time.Now(),
	}
	logger.Debug("utterance captured",
		"speech_frames", run.speechFrameCount,
		"duration", utterance.Duration(),
		"samples", len(utterance.PCM))
	return utterance, OutcomeDone, nil
}

func (c *UtteranceCapture) transition(
	run *captureRun,
	speech bool,
	minSpeechFrames, silenceLimit, noSpeechLimit int,
) captureState {
	switch run.state {
	case stateWaitingForSpeech:
		if speech {
			run.speechFrameCount = 1
			run.silenceFrameCount = 0
			return stateCapturing
		}
		if run.frameCount >= noSpeechLimit {
			return stateTimedOut
		}
		return stateWaitingForSpeech

	case stateCapturing:
		if speech {
			run.speechFrameCount++
			run.silenceFrameCount = 0
			return stateCapturing
		}
		run.silenceFrameCount++
		if run.silenceFrameCount >= silenceLimit && run.speechFrameCount < minSpeechFrames {
			// Silence ran out before enough speech accumulated; give up
			// early instead of waiting for the hard cap.
			return stateTimedOut
		}
		if run.speechFrameCount >= minSpeechFrames {
			return stateTrailingSilence
		}
		return stateCapturing

	case stateTrailingSilence:
		if speech {
			run.speechFrameCount++
			run.silenceFrameCount = 0
			return stateCapturing
		}
		run.silenceFrameCount++
		if run.silenceFrameCount >= silenceLimit {
			return stateDone
		}
		return stateTrailingSilence
	}

	return run.state
}

func framesFor(duration, frameDuration time.Duration) int {
	frames := int(duration / frameDuration)
	if frames < 1 {
		return 1
	}
	return frames
}
