package config

import (
	"os"
	"path/filepath"
	"testing"

	"go-golomb/sequencer"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Clock.BPM != 120 || cfg.MIDIOut.Channel != 10 || cfg.Tracks[0].Knobs[sequencer.ParamSteps] != 18 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.Clock.Source = ClockMIDI
	cfg.Clock.BPM = 96
	cfg.MIDIOut.PortName = "IAC Driver Bus 1"
	cfg.Tracks[2].Knobs[sequencer.ParamDivision] = 5
	cfg.Tracks[2].StartPatched = true
	cfg.Tracks[3].StartFrom = 3
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Clock.Source != ClockMIDI || got.Clock.BPM != 96 || got.MIDIOut.PortName != "IAC Driver Bus 1" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.Tracks[2].Knobs[sequencer.ParamDivision] != 5 || !got.Tracks[2].StartPatched || got.Tracks[3].StartFrom != 3 {
		t.Errorf("track config %+v", got.Tracks[2])
	}
	if got.ClockSource() != sequencer.ClockExternal {
		t.Errorf("clock source %v", got.ClockSource())
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"clock":{"bpm":999,"source":"tape"},"midiOut":{"channel":0}}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Clock.BPM != sequencer.MaxBPM {
		t.Errorf("bpm %v not clamped", cfg.Clock.BPM)
	}
	if cfg.Clock.Source != ClockInternal {
		t.Errorf("unknown source kept: %q", cfg.Clock.Source)
	}
	if cfg.MIDIOut.Channel != 10 {
		t.Errorf("channel %d", cfg.MIDIOut.Channel)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("sample rate %d", cfg.Audio.SampleRate)
	}
}

func TestLoadBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{"), 0644)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected an error")
	}
}

func TestApplyRoutesStarts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracks[1].StartFrom = 1
	cfg.Tracks[2].StartFrom = 7
	cfg.Normalize()
	if cfg.Tracks[2].StartFrom != 0 {
		t.Errorf("out of range route kept: %d", cfg.Tracks[2].StartFrom)
	}

	m := sequencer.NewManager(sequencer.Settings{}, sequencer.ManagerConfig{SampleRate: 1000})
	cfg.Apply(m)
	if got := m.Controls().StartFrom; got != [sequencer.TrackCount]int{0, 1, 0, 0} {
		t.Errorf("StartFrom = %v", got)
	}
}
