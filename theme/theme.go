package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Knob table
	Solid rune // ■ filled knob travel
	Empty rune // □ remaining travel

	// Step grid
	StepEmpty    rune // · rest
	StepBeat     rune // ○ beat
	StepAccent   rune // ● accented beat
	StepPlayhead rune // ▶ current step on a rest
	StepBeyond   rune // - past the track's cycle

	// Playhead on a beat
	PlayBeat   rune // ◎
	PlayAccent rune // ◉

	Gate rune // ▮ gate or end-of-cycle lamp lit
	Off  rune // ▯ lamp dark
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Solid: '■',
			Empty: '□',

			StepEmpty:    '·',
			StepBeat:     '○',
			StepAccent:   '●',
			StepPlayhead: '▶',
			StepBeyond:   '-',

			PlayBeat:   '◎',
			PlayAccent: '◉',

			Gate: '▮',
			Off:  '▯',
		},
	}
}

// Default returns a theme on the built-in palette.
func Default() *Theme {
	return New(DefaultPalette())
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG       = 0.0
	RoleMuted    = 0.2
	RoleFG       = 0.4
	RoleBeat     = 0.5
	RoleCursor   = 0.6
	RoleAccent   = 0.7
	RoleWarning  = 0.8
	RolePlayhead = 0.9
	RoleSuccess  = 1.0
)

// trackHues spreads the four tracks over the palette's bright half.
var trackHues = [...]float64{0.45, 0.6, 0.75, 0.9}

func (t *Theme) BG() lipgloss.Color {
	return t.Color(RoleBG)
}

func (t *Theme) FG() lipgloss.Color {
	return t.Color(RoleFG)
}

func (t *Theme) Beat() lipgloss.Color {
	return t.Color(RoleBeat)
}

func (t *Theme) Accent() lipgloss.Color {
	return t.Color(RoleAccent)
}

func (t *Theme) Muted() lipgloss.Color {
	return t.Color(RoleMuted)
}

func (t *Theme) Playhead() lipgloss.Color {
	return t.Color(RolePlayhead)
}

func (t *Theme) Cursor() lipgloss.Color {
	return t.Color(RoleCursor)
}

func (t *Theme) Warning() lipgloss.Color {
	return t.Color(RoleWarning)
}

func (t *Theme) Success() lipgloss.Color {
	return t.Color(RoleSuccess)
}

// Track returns the label color of track i.
func (t *Theme) Track(i int) lipgloss.Color {
	return t.Color(trackHues[min(max(i, 0), len(trackHues)-1)])
}

// Color returns the palette color at norm (0-1) as a lipgloss color.
func (t *Theme) Color(norm float64) lipgloss.Color {
	c := t.Palette.Lookup(norm)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
