package tui

import "github.com/charmbracelet/bubbles/key"

func Key(help string, keyboardKey ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keyboardKey...), key.WithHelp(keyboardKey[0], help))
}

type keyMap struct {
	TrackUp    key.Binding
	TrackDown  key.Binding
	ParamLeft  key.Binding
	ParamRight key.Binding
	Inc        key.Binding
	Dec        key.Binding
	FineInc    key.Binding
	FineDec    key.Binding

	Chain        key.Binding
	ConstantTime key.Binding
	Reset        key.Binding
	Mute         key.Binding
	Start        key.Binding
	Patch        key.Binding
	Route        key.Binding

	Faster    key.Binding
	Slower    key.Binding
	Transport key.Binding
	Clock     key.Binding

	VolumeUp   key.Binding
	VolumeDown key.Binding
	Clicks     key.Binding

	Save key.Binding
	Load key.Binding
	Help key.Binding
	Quit key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		TrackUp:    Key("track up", "k", "up"),
		TrackDown:  Key("track down", "j", "down"),
		ParamLeft:  Key("prev knob", "h", "left"),
		ParamRight: Key("next knob", "l", "right"),
		Inc:        Key("knob +1", "=", "+"),
		Dec:        Key("knob -1", "-", "_"),
		FineInc:    Key("knob +0.1", "]"),
		FineDec:    Key("knob -0.1", "["),

		Chain:        Key("chain mode", "c"),
		ConstantTime: Key("constant time", "t"),
		Reset:        Key("reset", "r"),
		Mute:         Key("mute", "m"),
		Start:        Key("start track", "1", "2", "3", "4"),
		Patch:        Key("patch start", "p"),
		Route:        Key("start from track", "f"),

		Faster:    Key("tempo +1", "."),
		Slower:    Key("tempo -1", ","),
		Transport: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "run/stop")),
		Clock:     Key("clock source", "x"),

		VolumeUp:   Key("volume +", "V"),
		VolumeDown: Key("volume -", "v"),
		Clicks:     Key("track clicks", "a"),

		Save: Key("save", "s"),
		Load: Key("load latest", "o"),
		Help: Key("help", "?"),
		Quit: Key("quit", "q", "ctrl+c"),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Inc, k.Dec, k.Chain, k.ConstantTime, k.Reset, k.Mute, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.TrackUp, k.TrackDown, k.ParamLeft, k.ParamRight, k.Inc, k.Dec, k.FineInc, k.FineDec},
		{k.Chain, k.ConstantTime, k.Reset, k.Mute, k.Start, k.Patch, k.Route},
		{k.Faster, k.Slower, k.Transport, k.Clock, k.VolumeUp, k.VolumeDown, k.Clicks},
		{k.Save, k.Load, k.Help, k.Quit},
	}
}
