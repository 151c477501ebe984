package sequencer

import "testing"

func knobsFor(levels [NumParams]float64) [NumParams]Knob {
	var k [NumParams]Knob
	for p := range levels {
		k[p].Level = levels[p]
	}
	return k
}

func TestDeriveTrackConfig(t *testing.T) {
	tests := []struct {
		name   string
		levels [NumParams]float64
		want   TrackConfig
	}{
		{"defaults", [NumParams]float64{18, 2, 0, 0, 0, 0}, TrackConfig{Steps: 18, Division: 2}},
		{"truncates", [NumParams]float64{8.9, 3.99, 1.5, 0, 0, 0}, TrackConfig{Steps: 8, Division: 3, Offset: 1}},
		{"division capped", [NumParams]float64{18, 10.2, 0, 0, 0, 0}, TrackConfig{Steps: 18, Division: 9}},
		{"pad limited by steps minus division", [NumParams]float64{8, 3, 0, 17, 0, 0}, TrackConfig{Steps: 8, Division: 3, Pad: 5}},
		{"accents scaled by division over steps", [NumParams]float64{16, 4, 0, 0, 8, 4}, TrackConfig{Steps: 16, Division: 4, AccentDivision: 2, AccentRotation: 1}},
		{"accents limited by division", [NumParams]float64{4, 4, 0, 0, 17, 17}, TrackConfig{Steps: 4, Division: 4, AccentDivision: 4, AccentRotation: 3}},
		{"no rotation without division", [NumParams]float64{8, 0, 0, 0, 5, 5}, TrackConfig{Steps: 8}},
		{"zero steps", [NumParams]float64{0, 3, 0, 0, 2, 0}, TrackConfig{Steps: 0, Division: 3, AccentDivision: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			knobs := knobsFor(tt.levels)
			if got := DeriveTrackConfig(&knobs); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeriveTrackConfigModulation(t *testing.T) {
	knobs := knobsFor([NumParams]float64{10, 2, 0, 0, 0, 0})
	knobs[ParamSteps].Mod = 2
	if got := DeriveTrackConfig(&knobs).Steps; got != 10 {
		t.Errorf("unpatched modulation changed steps to %d", got)
	}

	knobs[ParamSteps].ModConnected = true
	if got := DeriveTrackConfig(&knobs).Steps; got != 13 {
		t.Errorf("steps %d, want 13 (10 + 2V * 1.8)", got)
	}

	knobs[ParamSteps].Mod = -10
	if got := DeriveTrackConfig(&knobs).Steps; got != 0 {
		t.Errorf("steps %d, want clamp to 0", got)
	}

	knobs = knobsFor([NumParams]float64{18, 2, 0, 0, 0, 0})
	knobs[ParamDivision].Mod = 5
	knobs[ParamDivision].ModConnected = true
	if got := DeriveTrackConfig(&knobs).Division; got != 9 {
		t.Errorf("division %d, want 9", got)
	}
}

func TestParamClamp(t *testing.T) {
	if got := ParamSteps.Clamp(25); got != 18.2 {
		t.Errorf("steps clamp %v", got)
	}
	if got := ParamOffset.Clamp(-1); got != 0 {
		t.Errorf("offset clamp %v", got)
	}
	if ParamAccentRotation.String() != "Accent Rotate" {
		t.Errorf("unexpected name %q", ParamAccentRotation.String())
	}
	if Param(99).String() != "Param(99)" {
		t.Errorf("unexpected name %q", Param(99).String())
	}
}

func TestClampLowerBoundWins(t *testing.T) {
	if got := clamp(3, 2, -1); got != 2 {
		t.Errorf("clamp with inverted range = %v, want 2", got)
	}
}

func TestTrackConfigClamp(t *testing.T) {
	tests := []struct {
		in, want TrackConfig
	}{
		{
			TrackConfig{Steps: 30, Division: 20, Offset: 40, Pad: 30, AccentDivision: 20, AccentRotation: 20},
			TrackConfig{Steps: 18, Division: 9, Offset: 17, Pad: 9, AccentDivision: 9, AccentRotation: 8},
		},
		{
			TrackConfig{Steps: 3, Division: 5, Pad: 2, AccentDivision: -1, AccentRotation: 3},
			TrackConfig{Steps: 3, Division: 5, Pad: 0, AccentDivision: 0, AccentRotation: 3},
		},
		{
			TrackConfig{Steps: -1, Division: 0, AccentRotation: 2},
			TrackConfig{},
		},
	}
	for _, tt := range tests {
		if got := tt.in.Clamp(); got != tt.want {
			t.Errorf("%+v.Clamp() = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
