package sequencer

import "testing"

func TestInternalClockRate(t *testing.T) {
	c := NewInternalClock(120, 4)
	if p := c.Period(); p != 0.125 {
		t.Fatalf("period %v, want 0.125", p)
	}

	edges := 0
	high := false
	for i := 0; i < 1000; i++ {
		v := c.Process(1 / testRate)
		if v > 0 && !high {
			edges++
		}
		high = v > 0
	}
	if edges != 8 {
		t.Errorf("%d pulses in one second at 480 steps per minute, want 8", edges)
	}
}

func TestInternalClockLimits(t *testing.T) {
	c := NewInternalClock(1000, 0)
	if c.BPM() != MaxBPM || c.StepsPerBeat() != 1 {
		t.Errorf("bpm %v steps per beat %d", c.BPM(), c.StepsPerBeat())
	}
	c.SetBPM(1)
	if c.BPM() != MinBPM {
		t.Errorf("bpm %v, want %d", c.BPM(), MinBPM)
	}
}
