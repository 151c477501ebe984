package dsp

// PulseGenerator is a one-shot that stays active for a fixed duration after
// being triggered, counted down by the sample time passed to Process.
type PulseGenerator struct {
	remaining float64
}

// Trigger arms the pulse for duration seconds. A longer pulse already in
// flight is not shortened.
func (p *PulseGenerator) Trigger(duration float64) {
	if duration > p.remaining {
		p.remaining = duration
	}
}

// Process advances the pulse by dt seconds and reports whether it was active
// for this sample.
func (p *PulseGenerator) Process(dt float64) bool {
	if p.remaining > 0 {
		p.remaining -= dt
		return true
	}
	return false
}

// Active reports whether the pulse has time left.
func (p *PulseGenerator) Active() bool {
	return p.remaining > 0
}

// Reset disarms the pulse.
func (p *PulseGenerator) Reset() {
	p.remaining = 0
}
