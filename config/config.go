package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"

	"go-golomb/midi"
	"go-golomb/sequencer"
)

// Clock sources
const (
	ClockInternal = "internal"
	ClockMIDI     = "midi"
)

// AudioConfig controls the click monitor and audio-driven engine clock.
type AudioConfig struct {
	Enabled    bool    `json:"enabled"`
	SampleRate int     `json:"sampleRate"`
	BufferMs   int     `json:"bufferMs"`
	Volume     float64 `json:"volume"` // 0..1
}

// ClockConfig selects what drives the engine clock.
type ClockConfig struct {
	Source       string  `json:"source"` // "internal" or "midi"
	BPM          float64 `json:"bpm"`
	StepsPerBeat int     `json:"stepsPerBeat"`
}

// MIDIOutConfig defines where gate notes are sent.
type MIDIOutConfig struct {
	PortName string       `json:"portName,omitempty"`
	Channel  int          `json:"channel"`
	Notes    midi.NoteMap `json:"notes"`
}

// MIDIInConfig defines the clock and trigger input.
type MIDIInConfig struct {
	PortName string        `json:"portName,omitempty"`
	Map      midi.InputMap `json:"map"`
}

// SerialConfig defines the gate interface board.
type SerialConfig struct {
	Device string `json:"device,omitempty"`
	Baud   int    `json:"baud"`
}

// TrackConfig is the power-on state of one track.
type TrackConfig struct {
	Knobs        [sequencer.NumParams]float64 `json:"knobs"`
	StartPatched bool                         `json:"startPatched,omitempty"`
	StartFrom    int                          `json:"startFrom,omitempty"` // 1-based source track, 0 = none
}

// UIConfig stores UI preferences
type UIConfig struct {
	LastTrack int    `json:"lastTrack,omitempty"`
	Theme     string `json:"theme,omitempty"` // path to a .gpl palette
}

// Config is the main configuration structure
type Config struct {
	Audio   AudioConfig                       `json:"audio"`
	Clock   ClockConfig                       `json:"clock"`
	MIDIOut MIDIOutConfig                     `json:"midiOut"`
	MIDIIn  MIDIInConfig                      `json:"midiIn"`
	Serial  SerialConfig                      `json:"serial"`
	Tracks  [sequencer.TrackCount]TrackConfig `json:"tracks"`
	Project string                            `json:"project,omitempty"`
	UI      UIConfig                          `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	c := &Config{
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 48000,
			BufferMs:   10,
			Volume:     0.5,
		},
		Clock: ClockConfig{
			Source:       ClockInternal,
			BPM:          120,
			StepsPerBeat: 4,
		},
		MIDIOut: MIDIOutConfig{
			Channel: 10,
			Notes:   midi.DefaultNoteMap(),
		},
		MIDIIn: MIDIInConfig{
			Map: midi.DefaultInputMap(),
		},
		Serial: SerialConfig{
			Baud: 115200,
		},
		Project: sequencer.DefaultProject,
	}
	defaults := sequencer.DefaultKnobs()
	for i := range c.Tracks {
		for p := range defaults {
			c.Tracks[i].Knobs[p] = defaults[p].Level
		}
	}
	return c
}

// Normalize replaces out-of-range values with defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		c.Audio.SampleRate = d.Audio.SampleRate
	}
	if c.Audio.BufferMs < 1 {
		c.Audio.BufferMs = d.Audio.BufferMs
	}
	c.Audio.Volume = min(max(c.Audio.Volume, 0), 1)
	if c.Clock.Source != ClockMIDI {
		c.Clock.Source = ClockInternal
	}
	c.Clock.BPM = min(max(c.Clock.BPM, sequencer.MinBPM), sequencer.MaxBPM)
	if c.Clock.StepsPerBeat < 1 {
		c.Clock.StepsPerBeat = d.Clock.StepsPerBeat
	}
	if c.MIDIOut.Channel < 1 || c.MIDIOut.Channel > 16 {
		c.MIDIOut.Channel = d.MIDIOut.Channel
	}
	if c.MIDIIn.Map.ClocksPerStep < 1 {
		c.MIDIIn.Map.ClocksPerStep = d.MIDIIn.Map.ClocksPerStep
	}
	if c.Serial.Baud <= 0 {
		c.Serial.Baud = d.Serial.Baud
	}
	for i := range c.Tracks {
		for p := sequencer.Param(0); p < sequencer.NumParams; p++ {
			c.Tracks[i].Knobs[p] = p.Clamp(c.Tracks[i].Knobs[p])
		}
		if c.Tracks[i].StartFrom < 0 || c.Tracks[i].StartFrom > sequencer.TrackCount {
			c.Tracks[i].StartFrom = 0
		}
	}
	if c.UI.LastTrack < 0 || c.UI.LastTrack >= sequencer.TrackCount {
		c.UI.LastTrack = 0
	}
}

// ClockSource maps the configured source to the manager's.
func (c *Config) ClockSource() sequencer.ClockSource {
	if c.Clock.Source == ClockMIDI {
		return sequencer.ClockExternal
	}
	return sequencer.ClockInternal
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fault.Wrap(err, fmsg.With("find home directory"))
	}
	return filepath.Join(home, ".config", "go-golomb"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ProjectsDir returns the folder the project store lives in.
func ProjectsDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "projects"), nil
}

// PresetsDir returns the folder preset files are looked up in.
func PresetsDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "presets"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a config file. Fields missing from the file keep their
// defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fault.Wrap(err, fmsg.WithDesc("read config", "Could not read "+path))
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("decode config", path+" is not valid JSON"))
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("create config dir", "Could not create "+filepath.Dir(path)))
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fault.Wrap(err, fmsg.With("encode config"))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("write config", "Could not write "+path))
	}
	return nil
}

// Apply sets the configured power-on knobs and patching on m.
func (c *Config) Apply(m *sequencer.Manager) {
	for i, t := range c.Tracks {
		m.SetKnobs(i, t.Knobs)
		m.PatchStart(i, t.StartPatched)
		m.RouteStart(i, t.StartFrom)
	}
}

// DeviceConfig returns the MIDI port settings.
func (c *Config) DeviceConfig() midi.DeviceConfig {
	return midi.DeviceConfig{
		InputPort:  c.MIDIIn.PortName,
		OutputPort: c.MIDIOut.PortName,
		Channel:    c.MIDIOut.Channel,
		Notes:      c.MIDIOut.Notes,
		InputMap:   c.MIDIIn.Map,
	}
}
