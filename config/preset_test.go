package config

import (
	"os"
	"path/filepath"
	"testing"

	"go-golomb/sequencer"
)

const samplePreset = `
name: tresillo
tracks:
  - steps: 8
    division: 3
  - steps: 16
    division: 4
    accents: 8
    rotation: 4
    start: true
  - startFrom: 1
settings:
  constantTime: true
  masterTrack: 1
  chainMode: boss
`

func writePreset(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "p.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPreset(t *testing.T) {
	p, err := LoadPreset(writePreset(t, samplePreset))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "tresillo" || len(p.Tracks) != 3 {
		t.Fatalf("preset %+v", p)
	}

	first := p.Tracks[0].Levels()
	if first[sequencer.ParamSteps] != 8 || first[sequencer.ParamDivision] != 3 {
		t.Errorf("track 1 levels %v", first)
	}
	if p.Tracks[1].Accents != 8 || p.Tracks[1].AccentRotation != 4 || !p.Tracks[1].Start {
		t.Errorf("track 2 %+v", p.Tracks[1])
	}

	s, ok, err := p.EngineSettings()
	if err != nil || !ok {
		t.Fatalf("settings %v %v", ok, err)
	}
	want := sequencer.Settings{ConstantTime: true, MasterTrack: 1, ChainMode: sequencer.ChainBoss}
	if s != want {
		t.Errorf("settings %+v, want %+v", s, want)
	}
}

func TestPresetTrackDefaults(t *testing.T) {
	p, err := LoadPreset(writePreset(t, "tracks:\n  - offset: 3\n"))
	if err != nil {
		t.Fatal(err)
	}
	l := p.Tracks[0].Levels()
	if l[sequencer.ParamSteps] != 18 || l[sequencer.ParamDivision] != 2 || l[sequencer.ParamOffset] != 3 {
		t.Errorf("levels %v", l)
	}
	if p.Name != "p" {
		t.Errorf("name %q, want the file name", p.Name)
	}
	if _, ok, _ := p.EngineSettings(); ok {
		t.Error("preset without settings reported settings")
	}
}

func TestLoadPresetBadChainMode(t *testing.T) {
	_, err := LoadPreset(writePreset(t, "settings:\n  chainMode: intern\n"))
	if err == nil {
		t.Error("expected an error for an unknown chain mode")
	}
}

func TestPresetApply(t *testing.T) {
	p, err := LoadPreset(writePreset(t, samplePreset))
	if err != nil {
		t.Fatal(err)
	}
	m := sequencer.NewManager(sequencer.Settings{}, sequencer.ManagerConfig{SampleRate: 1000})
	if err := p.Apply(m); err != nil {
		t.Fatal(err)
	}
	m.Render(1, nil)

	snap := m.Snapshot()
	if cfg := snap.Tracks[0].Config; cfg.Steps != 8 || cfg.Division != 3 {
		t.Errorf("track 1 config %+v", cfg)
	}
	if cfg := snap.Tracks[1].Config; cfg.AccentDivision != 2 || cfg.AccentRotation != 1 {
		t.Errorf("track 2 config %+v", cfg)
	}
	if !m.Controls().StartPatched[1] {
		t.Error("start patching not applied")
	}
	if got := m.Controls().StartFrom; got != [sequencer.TrackCount]int{0, 0, 1, 0} {
		t.Errorf("start routing %v", got)
	}
	if snap.Settings.ChainMode != sequencer.ChainBoss {
		t.Errorf("settings %+v", snap.Settings)
	}
}

func TestCaptureAndSavePreset(t *testing.T) {
	m := sequencer.NewManager(sequencer.Settings{ChainMode: sequencer.ChainEmployee}, sequencer.ManagerConfig{SampleRate: 1000})
	m.SetKnob(3, sequencer.ParamPad, 2)
	m.RouteStart(1, 4)
	p := CapturePreset("captured", m.Controls(), m.Settings())

	path := filepath.Join(t.TempDir(), "sub", "captured.yaml")
	if err := SavePreset(path, p); err != nil {
		t.Fatal(err)
	}
	got, err := LoadPreset(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tracks) != sequencer.TrackCount || got.Tracks[3].Pad != 2 || got.Tracks[1].StartFrom != 4 {
		t.Errorf("tracks %+v", got.Tracks)
	}
	if got.Settings == nil || got.Settings.ChainMode != "employee" {
		t.Errorf("settings %+v", got.Settings)
	}
}

func TestResolvePreset(t *testing.T) {
	t.Setenv("HOME", "/home/test")
	got, err := ResolvePreset("groove")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/home/test", ".config", "go-golomb", "presets", "groove.yaml") {
		t.Errorf("resolved to %q", got)
	}
	if got, _ := ResolvePreset("./my.yaml"); got != "./my.yaml" {
		t.Errorf("explicit path rewritten to %q", got)
	}
}
