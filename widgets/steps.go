package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-golomb/sequencer"
	"go-golomb/theme"
)

// StepCell classifies one cell of a track row.
type StepCell int

const (
	CellRest StepCell = iota
	CellBeat
	CellAccent
	CellBeyond
)

// StepCells classifies the first width cells of a track's cycle. Cells past
// the track's length are CellBeyond.
func StepCells(ts *sequencer.TrackSnapshot, width int) []StepCell {
	cells := make([]StepCell, width)
	for i := range cells {
		switch {
		case i >= ts.Layout.Steps:
			cells[i] = CellBeyond
		case ts.Layout.IsAccent(i):
			cells[i] = CellAccent
		case ts.Layout.IsBeat(i):
			cells[i] = CellBeat
		}
	}
	return cells
}

// StepRunes maps cells to symbols, marking the playhead.
func StepRunes(sym theme.Symbols, cells []StepCell, playhead int) []rune {
	out := make([]rune, len(cells))
	for i, c := range cells {
		head := i == playhead
		switch c {
		case CellBeyond:
			out[i] = sym.StepBeyond
		case CellAccent:
			out[i] = pick(head, sym.PlayAccent, sym.StepAccent)
		case CellBeat:
			out[i] = pick(head, sym.PlayBeat, sym.StepBeat)
		default:
			out[i] = pick(head, sym.StepPlayhead, sym.StepEmpty)
		}
	}
	return out
}

func pick(cond bool, a, b rune) rune {
	if cond {
		return a
	}
	return b
}

// RenderStepRow renders a track's cycle as a row of colored symbols, padded
// to width cells. A stopped track shows no playhead.
func RenderStepRow(th *theme.Theme, ts *sequencer.TrackSnapshot, width int) string {
	cells := StepCells(ts, width)
	playhead := -1
	if ts.Running && ts.Layout.Steps > 0 {
		playhead = ts.BeatIndex
	}
	runes := StepRunes(th.Symbols, cells, playhead)

	var out strings.Builder
	for i, r := range runes {
		if i > 0 {
			out.WriteString(" ")
		}
		color := th.Muted()
		switch {
		case i == playhead:
			color = th.Playhead()
		case cells[i] == CellAccent:
			color = th.Accent()
		case cells[i] == CellBeat:
			color = th.Beat()
		}
		out.WriteString(lipgloss.NewStyle().Foreground(color).Render(string(r)))
	}
	return out.String()
}

// RenderLamp renders an output indicator.
func RenderLamp(th *theme.Theme, on bool, color lipgloss.Color) string {
	if on {
		return lipgloss.NewStyle().Foreground(color).Render(string(th.Symbols.Gate))
	}
	return lipgloss.NewStyle().Foreground(th.Muted()).Render(string(th.Symbols.Off))
}

// KnobBar returns a bar of width cells filled in proportion to level within
// the parameter's range.
func KnobBar(sym theme.Symbols, p sequencer.Param, level float64, width int) string {
	spec := p.Spec()
	filled := 0
	if span := spec.Max - spec.Min; span > 0 {
		filled = int((p.Clamp(level)-spec.Min)/span*float64(width) + 0.5)
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat(string(sym.Solid), filled) + strings.Repeat(string(sym.Empty), width-filled)
}

// RenderKnob renders "NAME ■■■□□ 12.0", highlighted when selected.
func RenderKnob(th *theme.Theme, p sequencer.Param, k sequencer.Knob, selected bool) string {
	label := fmt.Sprintf("%s %s %5.1f", p.Spec().Short, KnobBar(th.Symbols, p, k.Level, 6), k.Level)
	if k.ModConnected {
		label += fmt.Sprintf(" %+.1fV", k.Mod)
	}
	style := lipgloss.NewStyle().Foreground(th.FG())
	if selected {
		style = style.Foreground(th.Cursor()).Bold(true)
	}
	return style.Render(label)
}

// RenderLegendItem renders a single legend item: "● Name - description"
func RenderLegendItem(color lipgloss.Color, symbol rune, name, desc string) string {
	mark := lipgloss.NewStyle().Foreground(color).Render(string(symbol))
	return fmt.Sprintf("  %s %s - %s", mark, name, desc)
}
