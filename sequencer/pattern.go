package sequencer

// MaxSteps is the longest cycle a track can have.
const MaxSteps = 18

// Layout is the beat and accent pattern for one cycle of a track. Only the
// first Steps entries are meaningful.
type Layout struct {
	Steps   int
	Beats   [MaxSteps]bool
	Accents [MaxSteps]bool
}

// IsBeat reports whether step i is a beat.
func (l *Layout) IsBeat(i int) bool {
	return i >= 0 && i < l.Steps && l.Beats[i]
}

// IsAccent reports whether step i is an accented beat.
func (l *Layout) IsAccent(i int) bool {
	return i >= 0 && i < l.Steps && l.Accents[i]
}

// BeatCount returns the number of beats in the cycle.
func (l *Layout) BeatCount() int {
	n := 0
	for i := 0; i < l.Steps; i++ {
		if l.Beats[i] {
			n++
		}
	}
	return n
}

// selectRuler picks the densest catalogue ruler at or below division-1 that
// fits in steps. Ruler 0 has length 0 and always fits a single step.
func selectRuler(division, steps int) int {
	r := division - 1
	if r >= NumRulers {
		r = NumRulers - 1
	}
	for r > 0 && rulers[r].Length()+1 > steps {
		r--
	}
	return r
}

// spaceMultiplier stretches a ruler so low orders still spread across the
// whole span. An exact fit does not get the extra unit.
func spaceMultiplier(steps, length int) int {
	unit := length + 1
	m := steps/unit + 1
	if steps%unit == 0 {
		m--
	}
	return m
}

// BuildPatterns computes the beat and accent layout for cfg. All inputs are
// clamped to the ranges DeriveTrackConfig produces; the function never fails
// and never allocates.
func BuildPatterns(cfg TrackConfig) Layout {
	cfg = cfg.Clamp()
	l := Layout{Steps: cfg.Steps}
	if cfg.Steps <= 0 || cfg.Division <= 0 {
		return l
	}
	actual := cfg.Steps - cfg.Pad
	if actual < 1 {
		return l
	}

	r := rulers[selectRuler(cfg.Division, actual)]
	order := r.Order()
	mult := spaceMultiplier(actual, r.Length())

	var beatLocation [MaxRulerOrder]int
	for j := 0; j < order; j++ {
		loc := r.Mark(j)*mult + cfg.Pad
		if j > 0 {
			loc--
		}
		step := (loc + cfg.Offset) % cfg.Steps
		l.Beats[step] = true
		beatLocation[j] = step
	}

	if cfg.AccentDivision <= 0 {
		return l
	}

	// Bucket the non-accented marks into levels; every level larger than
	// the current accent number pushes the next accent one mark further.
	var levels [MaxSteps]int
	rests := order - cfg.AccentDivision
	if rests < 0 {
		rests = 0
	}
	for level := 0; ; {
		levels[level] = min(rests, cfg.AccentDivision)
		rests -= cfg.AccentDivision
		level++
		if rests <= 0 || level >= MaxSteps {
			break
		}
	}

	idx := 0
	for j := 0; j < cfg.AccentDivision; j++ {
		l.Accents[beatLocation[(idx+cfg.AccentRotation)%order]] = true
		idx++
		for _, size := range levels {
			if size > j {
				idx++
			}
		}
	}
	return l
}
