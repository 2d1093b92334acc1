package capture

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	DefaultVADMultiplier     = 2.5
	DefaultCalibrationWindow = 2 * time.Second
	minimumCalibrationFloor  = 1.0
)

// VoiceActivityDetector classifies frames as speech or silence against a
// noise floor measured once per service start.
type VoiceActivityDetector struct {
	multiplier float64
	noiseFloor float64
	calibrated bool
}

func NewVoiceActivityDetector(multiplier float64) *VoiceActivityDetector {
	if multiplier <= 0 {
		multiplier = DefaultVADMultiplier
	}
	return &VoiceActivityDetector{multiplier: multiplier}
}

// Calibrate estimates the ambient noise floor by averaging frame energy over
// the configured window. It must succeed before Classify is meaningful; a
// device that yields no frames is a fatal capture error.
func (v *VoiceActivityDetector) Calibrate(ctx context.Context, source FrameSource, window time.Duration) error {
	ctx, span := tracer.Start(ctx, "calibrate noise floor")
	defer span.End()

	if window <= 0 {
		window = DefaultCalibrationWindow
	}

	frameDuration := source.EncodingInfo().SamplesDuration(source.FrameLength())
	if frameDuration <= 0 {
		return fmt.Errorf("frame source reports unusable encoding")
	}
	frameBudget := int(window / frameDuration)
	if frameBudget < 1 {
		frameBudget = 1
	}

	total := 0.0
	read := 0
	for read < frameBudget {
		frame, err := source.Read(ctx)
		if err != nil {
			return fmt.Errorf("failed to read calibration frame %d: %w", read, err)
		}
		total += FrameEnergy(frame)
		read++
	}

	v.noiseFloor = total / float64(read)
	if v.noiseFloor < minimumCalibrationFloor {
		v.noiseFloor = minimumCalibrationFloor
	}
	v.calibrated = true

	logger.Info("noise floor calibrated",
		"frames", read, "noise_floor", v.noiseFloor, "threshold", v.Threshold())
	return nil
}

func (v *VoiceActivityDetector) IsCalibrated() bool { return v.calibrated }

// Threshold is the energy level above which a frame counts as speech.
func (v *VoiceActivityDetector) Threshold() float64 {
	return v.noiseFloor * v.multiplier
}

// Classify reports whether the frame contains speech.
func (v *VoiceActivityDetector) Classify(frame []int16) bool {
	return FrameEnergy(frame) > v.Threshold()
}

// FrameEnergy computes the RMS energy of one PCM frame.
func FrameEnergy(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}

	meanSquare := 0.0
	for _, sample := range frame {
		meanSquare += float64(sample) * float64(sample)
	}
	return math.Sqrt(meanSquare / float64(len(frame)))
}
