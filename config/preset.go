package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"gopkg.in/yaml.v3"

	"go-golomb/sequencer"
)

// PresetTrack is the knob and patch state of one track in a preset file.
// Missing keys take the knob defaults.
type PresetTrack struct {
	Steps          float64 `yaml:"steps"`
	Division       float64 `yaml:"division"`
	Offset         float64 `yaml:"offset"`
	Pad            float64 `yaml:"pad"`
	Accents        float64 `yaml:"accents"`
	AccentRotation float64 `yaml:"rotation"`
	Start          bool    `yaml:"start,omitempty"`
	StartFrom      int     `yaml:"startFrom,omitempty"` // track whose end of cycle starts this one
}

// UnmarshalYAML fills defaults before decoding.
func (t *PresetTrack) UnmarshalYAML(value *yaml.Node) error {
	type plain PresetTrack
	p := plain(DefaultPresetTrack())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*t = PresetTrack(p)
	return nil
}

// DefaultPresetTrack has every knob at its default.
func DefaultPresetTrack() PresetTrack {
	var t PresetTrack
	t.SetLevels(levelsOf(sequencer.DefaultKnobs()))
	return t
}

func levelsOf(k [sequencer.NumParams]sequencer.Knob) [sequencer.NumParams]float64 {
	var l [sequencer.NumParams]float64
	for p := range k {
		l[p] = k[p].Level
	}
	return l
}

// Levels returns the knob levels in parameter order.
func (t PresetTrack) Levels() [sequencer.NumParams]float64 {
	return [sequencer.NumParams]float64{
		sequencer.ParamSteps:          t.Steps,
		sequencer.ParamDivision:       t.Division,
		sequencer.ParamOffset:         t.Offset,
		sequencer.ParamPad:            t.Pad,
		sequencer.ParamAccents:        t.Accents,
		sequencer.ParamAccentRotation: t.AccentRotation,
	}
}

// SetLevels stores knob levels given in parameter order.
func (t *PresetTrack) SetLevels(l [sequencer.NumParams]float64) {
	t.Steps = l[sequencer.ParamSteps]
	t.Division = l[sequencer.ParamDivision]
	t.Offset = l[sequencer.ParamOffset]
	t.Pad = l[sequencer.ParamPad]
	t.Accents = l[sequencer.ParamAccents]
	t.AccentRotation = l[sequencer.ParamAccentRotation]
}

// PresetSettings are the optional mode settings of a preset.
type PresetSettings struct {
	ConstantTime bool   `yaml:"constantTime"`
	MasterTrack  int    `yaml:"masterTrack"`
	ChainMode    string `yaml:"chainMode"`
	Muted        bool   `yaml:"muted,omitempty"`
}

// Preset is a named set of knob positions, start patching and optionally
// mode settings.
type Preset struct {
	Name     string          `yaml:"name"`
	Tracks   []PresetTrack   `yaml:"tracks"`
	Settings *PresetSettings `yaml:"settings,omitempty"`
}

// EngineSettings converts the preset's settings, if any.
func (p *Preset) EngineSettings() (sequencer.Settings, bool, error) {
	if p.Settings == nil {
		return sequencer.Settings{}, false, nil
	}
	s := sequencer.Settings{
		ConstantTime: p.Settings.ConstantTime,
		MasterTrack:  p.Settings.MasterTrack,
		Muted:        p.Settings.Muted,
	}
	if p.Settings.ChainMode != "" {
		mode, err := sequencer.ParseChainMode(p.Settings.ChainMode)
		if err != nil {
			return sequencer.Settings{}, false, fault.Wrap(err, fmsg.WithDesc("parse preset", "Preset "+p.Name+" has an unknown chain mode"))
		}
		s.ChainMode = mode
	}
	s.Normalize()
	return s, true, nil
}

// Apply sets the preset's knobs, patching and settings on m. Tracks beyond
// those listed in the preset are left alone.
func (p *Preset) Apply(m *sequencer.Manager) error {
	s, ok, err := p.EngineSettings()
	if err != nil {
		return err
	}
	for i, t := range p.Tracks {
		if i >= sequencer.TrackCount {
			break
		}
		m.SetKnobs(i, t.Levels())
		m.PatchStart(i, t.Start)
		m.RouteStart(i, t.StartFrom)
	}
	if ok {
		m.LoadSettings(s)
	}
	return nil
}

// CapturePreset records the current panel as a preset.
func CapturePreset(name string, c sequencer.Controls, s sequencer.Settings) *Preset {
	p := &Preset{
		Name: name,
		Settings: &PresetSettings{
			ConstantTime: s.ConstantTime,
			MasterTrack:  s.MasterTrack,
			ChainMode:    strings.ToLower(s.ChainMode.String()),
			Muted:        s.Muted,
		},
	}
	for i := range c.Knobs {
		var t PresetTrack
		t.SetLevels(levelsOf(c.Knobs[i]))
		t.Start = c.StartPatched[i]
		t.StartFrom = c.StartFrom[i]
		p.Tracks = append(p.Tracks, t)
	}
	return p
}

// ResolvePreset turns a preset argument into a path: names without a
// directory or extension are looked up in PresetsDir.
func ResolvePreset(name string) (string, error) {
	if strings.ContainsRune(name, os.PathSeparator) || filepath.Ext(name) != "" {
		return name, nil
	}
	dir, err := PresetsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".yaml"), nil
}

// LoadPreset reads a YAML preset file.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("read preset", "Could not read preset "+path))
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("decode preset", path+" is not a valid preset"))
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if _, _, err := p.EngineSettings(); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePreset writes p as YAML to path.
func SavePreset(path string, p *Preset) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fault.Wrap(err, fmsg.With("encode preset"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("create preset dir", "Could not create "+filepath.Dir(path)))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("write preset", "Could not write "+path))
	}
	return nil
}
