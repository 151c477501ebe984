package sequencer

import "fmt"

// TrackCount is the number of independent tracks.
const TrackCount = 4

// Param identifies one of the six per-track knobs.
type Param int

const (
	ParamSteps Param = iota
	ParamDivision
	ParamOffset
	ParamPad
	ParamAccents
	ParamAccentRotation
	NumParams
)

// ParamSpec describes a knob's range and how its modulation input is scaled.
type ParamSpec struct {
	Name     string
	Short    string
	Min, Max float64
	Default  float64
	ModScale float64 // volts to knob units; 0 means scaled by division/steps
}

var paramSpecs = [NumParams]ParamSpec{
	ParamSteps:          {Name: "Steps", Short: "STP", Min: 0, Max: 18.2, Default: 18, ModScale: 1.8},
	ParamDivision:       {Name: "Division", Short: "DIV", Min: 0, Max: 10.2, Default: 2, ModScale: 1.7},
	ParamOffset:         {Name: "Offset", Short: "OFS", Min: 0, Max: 17.2, Default: 0, ModScale: 1.7},
	ParamPad:            {Name: "Pad", Short: "PAD", Min: 0, Max: 17.2, Default: 0, ModScale: 1.7},
	ParamAccents:        {Name: "Accents", Short: "ACC", Min: 0, Max: 17.2, Default: 0},
	ParamAccentRotation: {Name: "Accent Rotate", Short: "ROT", Min: 0, Max: 17.2, Default: 0},
}

// Spec returns the range description for p.
func (p Param) Spec() ParamSpec {
	return paramSpecs[p]
}

func (p Param) String() string {
	if p < 0 || p >= NumParams {
		return fmt.Sprintf("Param(%d)", int(p))
	}
	return paramSpecs[p].Name
}

// Clamp limits a knob level to the parameter's range.
func (p Param) Clamp(level float64) float64 {
	s := paramSpecs[p]
	return clamp(level, s.Min, s.Max)
}

// Knob is a parameter level plus an optional modulation voltage.
type Knob struct {
	Level        float64
	Mod          float64
	ModConnected bool
}

// Jack is a voltage input that may or may not be patched.
type Jack struct {
	Voltage   float64
	Connected bool
}

// TrackConfig is the integer layout geometry of one track.
type TrackConfig struct {
	Steps          int
	Division       int
	Offset         int
	Pad            int
	AccentDivision int
	AccentRotation int
}

// DefaultKnobs returns knob levels at their defaults.
func DefaultKnobs() [NumParams]Knob {
	var k [NumParams]Knob
	for p := Param(0); p < NumParams; p++ {
		k[p].Level = paramSpecs[p].Default
	}
	return k
}

// clamp matches the host convention max(min(x, hi), lo): when hi < lo the
// lower bound wins.
func clamp(x, lo, hi float64) float64 {
	if x > hi {
		x = hi
	}
	if x < lo {
		x = lo
	}
	return x
}

func (k Knob) sum(scale float64) float64 {
	v := k.Level * scale
	if k.ModConnected {
		v += k.Mod * scale
	}
	return v
}

func (k Knob) withMod(modScale float64) float64 {
	v := k.Level
	if k.ModConnected {
		v += k.Mod * modScale
	}
	return v
}

// DeriveTrackConfig sums knob levels with their modulation, clamps each value
// into its valid range and truncates to a TrackConfig.
func DeriveTrackConfig(knobs *[NumParams]Knob) TrackConfig {
	steps := clamp(knobs[ParamSteps].withMod(paramSpecs[ParamSteps].ModScale), 0, MaxSteps)
	division := clamp(knobs[ParamDivision].withMod(paramSpecs[ParamDivision].ModScale), 0, NumRulers-1)
	offset := clamp(knobs[ParamOffset].withMod(paramSpecs[ParamOffset].ModScale), 0, MaxSteps-1)
	pad := clamp(knobs[ParamPad].withMod(paramSpecs[ParamPad].ModScale), 0, steps-division)

	// Accent knobs sweep the same travel whatever the division, so their
	// range is scaled down to division/steps.
	scale := 1.0
	if steps > 0 {
		scale = division / steps
	}
	accents := clamp(knobs[ParamAccents].sum(scale), 0, division)
	rotation := 0.0
	if division > 0 {
		rotation = clamp(knobs[ParamAccentRotation].sum(scale), 0, division-1)
	}

	return TrackConfig{
		Steps:          int(steps),
		Division:       int(division),
		Offset:         int(offset),
		Pad:            int(pad),
		AccentDivision: int(accents),
		AccentRotation: int(rotation),
	}
}

// Clamp limits an integer config to the ranges DeriveTrackConfig produces.
func (c TrackConfig) Clamp() TrackConfig {
	c.Steps = min(max(c.Steps, 0), MaxSteps)
	c.Division = min(max(c.Division, 0), NumRulers-1)
	c.Offset = min(max(c.Offset, 0), MaxSteps-1)
	c.Pad = min(max(c.Pad, 0), max(c.Steps-c.Division, 0))
	c.AccentDivision = min(max(c.AccentDivision, 0), c.Division)
	c.AccentRotation = min(max(c.AccentRotation, 0), max(c.Division-1, 0))
	return c
}
