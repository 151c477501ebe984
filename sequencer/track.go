package sequencer

import "go-golomb/dsp"

// EndOfCycleWidth is the width of the end-of-cycle pulse in seconds.
const EndOfCycleWidth = 1e-3

// Track is the runtime state of one rhythm track: its current geometry and
// layout, where it is in the cycle and whether it is allowed to run.
type Track struct {
	Config TrackConfig
	Layout Layout

	BeatIndex    int
	LastStepTime float64 // seconds since the last advance
	StepDuration float64 // seconds per step, derived from the clock
	Running      bool

	built      bool
	endOfCycle dsp.PulseGenerator
	start      dsp.SchmittTrigger
}

// configure applies a freshly derived config. The layout is rebuilt only when
// the quantized geometry changed. Returns true on rebuild.
func (t *Track) configure(cfg TrackConfig) bool {
	rebuilt := false
	if !t.built || cfg != t.Config {
		t.Config = cfg
		t.Layout = BuildPatterns(cfg)
		t.built = true
		rebuilt = true
	}
	// A shrinking cycle must not leave the playhead past its end.
	if t.BeatIndex >= cfg.Steps {
		t.BeatIndex = max(cfg.Steps-1, 0)
	}
	return rebuilt
}

// advance moves to the next step and reports whether the cycle wrapped.
func (t *Track) advance() bool {
	t.BeatIndex++
	t.LastStepTime = 0
	if t.BeatIndex >= t.Config.Steps {
		t.BeatIndex = 0
		t.endOfCycle.Trigger(EndOfCycleWidth)
		return true
	}
	return false
}

// gateHigh reports whether the step gate is in its high half.
func (t *Track) gateHigh() bool {
	return t.LastStepTime < t.StepDuration/2
}

// rewind puts the track back at the start of its cycle.
func (t *Track) rewind() {
	t.BeatIndex = 0
	t.LastStepTime = 0
}
