package widgets

import (
	"strings"
	"testing"

	"go-golomb/sequencer"
	"go-golomb/theme"
)

func snapshot(steps int, beats, accents []int) *sequencer.TrackSnapshot {
	ts := &sequencer.TrackSnapshot{Running: true}
	ts.Layout.Steps = steps
	for _, b := range beats {
		ts.Layout.Beats[b] = true
	}
	for _, a := range accents {
		ts.Layout.Accents[a] = true
	}
	return ts
}

func TestStepCells(t *testing.T) {
	ts := snapshot(4, []int{0, 2}, []int{2})
	got := StepCells(ts, 6)
	want := []StepCell{CellBeat, CellRest, CellAccent, CellRest, CellBeyond, CellBeyond}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStepRunes(t *testing.T) {
	sym := theme.Default().Symbols
	cells := []StepCell{CellBeat, CellRest, CellAccent, CellBeyond}

	tests := []struct {
		playhead int
		want     string
	}{
		{-1, "○·●-"},
		{0, "◎·●-"},
		{1, "○▶●-"},
		{2, "○·◉-"},
	}
	for _, tt := range tests {
		if got := string(StepRunes(sym, cells, tt.playhead)); got != tt.want {
			t.Errorf("playhead %d: got %q, want %q", tt.playhead, got, tt.want)
		}
	}
}

func TestKnobBar(t *testing.T) {
	sym := theme.Default().Symbols
	if got := KnobBar(sym, sequencer.ParamSteps, 0, 4); got != "□□□□" {
		t.Errorf("empty bar = %q", got)
	}
	if got := KnobBar(sym, sequencer.ParamSteps, 100, 4); got != "■■■■" {
		t.Errorf("full bar = %q", got)
	}
	if got := KnobBar(sym, sequencer.ParamSteps, 9.1, 4); got != "■■□□" {
		t.Errorf("half bar = %q", got)
	}
}

func TestRenderStepRowContainsSymbols(t *testing.T) {
	th := theme.Default()
	ts := snapshot(3, []int{0}, nil)
	ts.BeatIndex = 1
	row := RenderStepRow(th, ts, 5)
	for _, s := range []string{"○", "▶", "-"} {
		if !strings.Contains(row, s) {
			t.Errorf("row %q missing %s", row, s)
		}
	}

	ts.Running = false
	if row := RenderStepRow(th, ts, 5); strings.Contains(row, "▶") {
		t.Errorf("stopped row shows playhead: %q", row)
	}
}
