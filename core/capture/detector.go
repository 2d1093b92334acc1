package capture

// EnergyRunDetector is a minimal built-in wake trigger: a run of consecutive
// high-energy frames counts as a match, followed by a refractory gap so one
// loud phrase cannot fire twice. It exists so the daemon runs without a
// dedicated wake-word engine; real engines plug in through WakeWordDetector.
type EnergyRunDetector struct {
	threshold      float64
	requiredRun    int
	cooldownFrames int

	run      int
	cooldown int
}

func NewEnergyRunDetector(threshold float64, requiredRun, cooldownFrames int) *EnergyRunDetector {
	if requiredRun < 1 {
		requiredRun = 1
	}
	if cooldownFrames < 0 {
		cooldownFrames = 0
	}
	return &EnergyRunDetector{
		threshold:      threshold,
		requiredRun:    requiredRun,
		cooldownFrames: cooldownFrames,
	}
}

// SetThreshold retunes the energy gate, typically right after the capture
// service calibrates the ambient noise floor.
func (d *EnergyRunDetector) SetThreshold(threshold float64) {
	d.threshold = threshold
}

func (d *EnergyRunDetector) Detect(frame []int16) (bool, error) {
	if d.cooldown > 0 {
		d.cooldown--
		return false, nil
	}

	if FrameEnergy(frame) > d.threshold {
		d.run++
	} else {
		d.run = 0
	}

	if d.run >= d.requiredRun {
		d.run = 0
		d.cooldown = d.cooldownFrames
		return true, nil
	}
	return false, nil
}
