package dsp

import "testing"

func TestSchmittTriggerFiresOncePerEdge(t *testing.T) {
	var trig SchmittTrigger
	input := []float64{0, 0.5, 1.0, 10, 10, 0.5, 2, 0, 0, 5, 0}
	want := []bool{false, false, true, false, false, false, false, false, false, true, false}

	for i, v := range input {
		if got := trig.Process(v); got != want[i] {
			t.Errorf("sample %d (%.1fV): got %v, want %v", i, v, got, want[i])
		}
	}
}

func TestSchmittTriggerReset(t *testing.T) {
	var trig SchmittTrigger
	if !trig.Process(10) {
		t.Fatal("expected first edge")
	}
	trig.Reset()
	if trig.IsHigh() {
		t.Fatal("expected low after reset")
	}
	if !trig.Process(10) {
		t.Fatal("expected edge after reset while input held high")
	}
}

func TestPulseGeneratorWidth(t *testing.T) {
	const dt = 1.0 / 48000
	var p PulseGenerator
	p.Trigger(1e-3)

	active := 0
	for i := 0; i < 200; i++ {
		if p.Process(dt) {
			active++
		}
	}
	// 1ms at 48kHz is 48 samples; float accumulation may add one.
	if active < 48 || active > 49 {
		t.Fatalf("pulse active for %d samples, want 48 or 49", active)
	}
	if p.Active() {
		t.Fatal("pulse should have expired")
	}
}

func TestPulseGeneratorRetriggerKeepsLonger(t *testing.T) {
	var p PulseGenerator
	p.Trigger(0.01)
	p.Trigger(0.001)
	if p.remaining != 0.01 {
		t.Fatalf("remaining = %v, want 0.01", p.remaining)
	}
	p.Reset()
	if p.Process(0.001) {
		t.Fatal("reset pulse should be inactive")
	}
}
