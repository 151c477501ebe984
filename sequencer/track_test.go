package sequencer

import "testing"

func TestTrackAdvanceWraps(t *testing.T) {
	var tr Track
	tr.configure(TrackConfig{Steps: 5, Division: 2})

	for k := 1; k < 5; k++ {
		if tr.advance() {
			t.Fatalf("wrapped early at step %d", k)
		}
	}
	if !tr.advance() {
		t.Fatal("did not wrap after 5 steps")
	}
	if tr.BeatIndex != 0 || !tr.endOfCycle.Active() {
		t.Errorf("index %d eoc active %v", tr.BeatIndex, tr.endOfCycle.Active())
	}
}

func TestTrackConfigureOnlyOnChange(t *testing.T) {
	var tr Track
	cfg := TrackConfig{Steps: 8, Division: 3}
	if !tr.configure(cfg) {
		t.Fatal("first configure should build")
	}
	if tr.configure(cfg) {
		t.Error("unchanged config rebuilt")
	}
	cfg.AccentDivision = 1
	if !tr.configure(cfg) {
		t.Error("accent change did not rebuild")
	}
}

func TestTrackZeroSteps(t *testing.T) {
	var tr Track
	tr.BeatIndex = 4
	tr.configure(TrackConfig{})
	if tr.BeatIndex != 0 {
		t.Errorf("index %d with zero steps", tr.BeatIndex)
	}
}
