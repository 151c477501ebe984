package sequencer

// Tempo limits for the internal clock.
const (
	MinBPM = 20
	MaxBPM = 300
)

// InternalClock is a square wave clock source running at bpm*stepsPerBeat
// pulses per minute.
type InternalClock struct {
	bpm          float64
	stepsPerBeat int
	phase        float64
}

// NewInternalClock creates a clock. stepsPerBeat below 1 is treated as 1.
func NewInternalClock(bpm float64, stepsPerBeat int) InternalClock {
	c := InternalClock{stepsPerBeat: max(stepsPerBeat, 1)}
	c.SetBPM(bpm)
	return c
}

// SetBPM changes the tempo, clamped to MinBPM..MaxBPM.
func (c *InternalClock) SetBPM(bpm float64) {
	c.bpm = clamp(bpm, MinBPM, MaxBPM)
}

// BPM returns the tempo.
func (c *InternalClock) BPM() float64 {
	return c.bpm
}

// StepsPerBeat returns the number of clock pulses per quarter note.
func (c *InternalClock) StepsPerBeat() int {
	return c.stepsPerBeat
}

// Period returns the time between pulses in seconds.
func (c *InternalClock) Period() float64 {
	return 60 / (c.bpm * float64(c.stepsPerBeat))
}

// Process advances the clock by dt seconds and returns its output voltage.
// The first sample of a period is high.
func (c *InternalClock) Process(dt float64) float64 {
	v := 0.0
	if c.phase < 0.5 {
		v = GateHigh
	}
	c.phase += dt / c.Period()
	for c.phase >= 1 {
		c.phase--
	}
	return v
}

// Reset restarts the current period.
func (c *InternalClock) Reset() {
	c.phase = 0
}
