// Package dsp holds the small per-sample building blocks the engine is made
// of: edge detection on trigger inputs and fixed-width one-shot pulses.
package dsp

// Trigger thresholds in volts. A trigger arms above High and re-arms only
// after the input falls back to Low, so noisy edges fire once.
const (
	TriggerLow  = 0.0
	TriggerHigh = 1.0
)

// SchmittTrigger detects rising edges on a voltage input.
type SchmittTrigger struct {
	high bool
}

// Process feeds one sample and reports whether it completed a rising edge.
func (t *SchmittTrigger) Process(in float64) bool {
	if t.high {
		if in <= TriggerLow {
			t.high = false
		}
		return false
	}
	if in >= TriggerHigh {
		t.high = true
		return true
	}
	return false
}

// IsHigh reports whether the trigger is currently latched high.
func (t *SchmittTrigger) IsHigh() bool {
	return t.high
}

// Reset forgets the previous input.
func (t *SchmittTrigger) Reset() {
	t.high = false
}
