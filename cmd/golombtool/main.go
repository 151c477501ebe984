package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"

	"go-golomb/config"
	"go-golomb/cvout"
	"go-golomb/midi"
	"go-golomb/sequencer"
	"go-golomb/theme"
	"go-golomb/widgets"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "ports":
		err = listPorts()
	case "pattern":
		err = printPattern(os.Args[2:])
	case "export":
		err = export(os.Args[2:])
	case "projects":
		err = listProjects(os.Args[2:])
	case "rm":
		err = removeSave(os.Args[2:])
	case "preset":
		err = capturePreset(os.Args[2:])
	default:
		usage()
	}

	if err != nil {
		msg := fmsg.GetIssue(err)
		if msg == "" {
			msg = err.Error()
		}
		fmt.Fprintln(os.Stderr, "Error:", msg)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("go-golomb tool")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  ports                                  - List MIDI and serial ports")
	fmt.Println("  pattern <steps> <div> [ofs pad acc rot] - Print a track layout")
	fmt.Println("  export [-o file.mid] [-bars N]          - Render the saved project to a MIDI file")
	fmt.Println("  projects [name]                        - List saved projects, or the saves of one")
	fmt.Println("  rm <project> <save>                    - Delete one save")
	fmt.Println("  preset <name>                          - Write the config and latest save as a preset")
}

func listPorts() error {
	fmt.Println("=== MIDI Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")
	ins, outs, err := midi.Ports()
	if err != nil {
		fmt.Println("  unavailable:", fmsg.GetIssue(err))
	} else {
		fmt.Println("Inputs:")
		for i, p := range ins {
			fmt.Printf("  %d: %s\n", i, p)
		}
		fmt.Println("Outputs:")
		for i, p := range outs {
			fmt.Printf("  %d: %s\n", i, p)
		}
	}

	fmt.Println("\n=== Serial Ports ===")
	ports, err := cvout.Ports()
	if err != nil {
		return err
	}
	for i, p := range ports {
		fmt.Printf("  %d: %s\n", i, p)
	}
	return nil
}

// parseConfig reads "steps div [offset pad accents rotation]".
func parseConfig(args []string) (sequencer.TrackConfig, error) {
	if len(args) < 2 || len(args) > 6 {
		return sequencer.TrackConfig{}, fault.New("wrong argument count",
			fmsg.WithDesc("parse pattern", "usage: pattern <steps> <div> [offset pad accents rotation]"))
	}
	var v [6]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return sequencer.TrackConfig{}, fault.Wrap(err, fmsg.WithDesc("parse pattern", fmt.Sprintf("%q is not a number", a)))
		}
		v[i] = n
	}
	cfg := sequencer.TrackConfig{
		Steps:          v[0],
		Division:       v[1],
		Offset:         v[2],
		Pad:            v[3],
		AccentDivision: v[4],
		AccentRotation: v[5],
	}
	return cfg.Clamp(), nil
}

// formatPattern renders a layout as one line of step symbols followed by
// the beat and accent indexes.
func formatPattern(cfg sequencer.TrackConfig) string {
	ts := sequencer.TrackSnapshot{Config: cfg, Layout: sequencer.BuildPatterns(cfg)}
	cells := widgets.StepCells(&ts, cfg.Steps)
	row := widgets.StepRunes(theme.Default().Symbols, cells, -1)

	var beats, accents []string
	for i := 0; i < cfg.Steps; i++ {
		if ts.Layout.IsBeat(i) {
			beats = append(beats, strconv.Itoa(i))
		}
		if ts.Layout.IsAccent(i) {
			accents = append(accents, strconv.Itoa(i))
		}
	}

	var out strings.Builder
	fmt.Fprintf(&out, "steps %d division %d offset %d pad %d accents %d rotation %d\n",
		cfg.Steps, cfg.Division, cfg.Offset, cfg.Pad, cfg.AccentDivision, cfg.AccentRotation)
	for i, r := range row {
		if i > 0 {
			out.WriteByte(' ')
		}
		out.WriteRune(r)
	}
	fmt.Fprintf(&out, "\nbeats:   %s\naccents: %s\n", strings.Join(beats, " "), strings.Join(accents, " "))
	return out.String()
}

func printPattern(args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}
	fmt.Print(formatPattern(cfg))
	return nil
}

func openStore() (*sequencer.Store, error) {
	dir, err := config.ProjectsDir()
	if err != nil {
		return nil, err
	}
	return sequencer.NewStore(dir), nil
}

func listProjects(args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		saves, err := store.ListSaves(args[0])
		if err != nil {
			return err
		}
		for _, s := range saves {
			fmt.Printf("  %s  %s\n", s.Filename, s.Label)
		}
		return nil
	}

	projects, err := store.ListProjects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("no projects in", store.Root)
		return nil
	}
	for _, p := range projects {
		saves, err := store.ListSaves(p)
		if err != nil {
			return err
		}
		latest := "-"
		if len(saves) > 0 {
			latest = saves[0].Timestamp.Format("2006-01-02 15:04:05")
			if saves[0].Label != "" {
				latest += " (" + saves[0].Label + ")"
			}
		}
		fmt.Printf("  %-20s %3d saves  latest %s\n", p, len(saves), latest)
	}
	return nil
}

func removeSave(args []string) error {
	if len(args) != 2 {
		return fault.New("wrong argument count", fmsg.WithDesc("parse rm", "usage: rm <project> <save>"))
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.Delete(args[0], args[1]); err != nil {
		return err
	}
	fmt.Println("deleted", args[0]+"/"+args[1])
	return nil
}

// loadManager builds an offline manager from the config and the latest save
// of project.
func loadManager(cfg *config.Config, project string, sampleRate float64) (*sequencer.Manager, error) {
	if project == "" {
		project = cfg.Project
	}
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	settings, err := store.Load(project, "")
	if err != nil && !errors.Is(err, sequencer.ErrNoSaves) {
		return nil, err
	}

	m := sequencer.NewManager(settings, sequencer.ManagerConfig{
		SampleRate:   sampleRate,
		BPM:          cfg.Clock.BPM,
		StepsPerBeat: cfg.Clock.StepsPerBeat,
		Clock:        sequencer.ClockInternal,
	})
	cfg.Apply(m)
	return m, nil
}

func capturePreset(args []string) error {
	if len(args) != 1 {
		return fault.New("wrong argument count", fmsg.WithDesc("parse preset", "usage: preset <name>"))
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	m, err := loadManager(cfg, "", exportRate)
	if err != nil {
		return err
	}
	path, err := config.ResolvePreset(args[0])
	if err != nil {
		return err
	}
	p := config.CapturePreset(args[0], m.Controls(), m.Settings())
	if err := config.SavePreset(path, p); err != nil {
		return err
	}
	fmt.Println("wrote", path)
	return nil
}

// exportRate is the offline sample rate. Gate pulses are 1 ms, so it must
// resolve at least that.
const exportRate = 4000

func export(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("o", "golomb.mid", "output file")
	bars := fs.Int("bars", 4, "bars of 4 beats to render")
	project := fs.String("project", "", "project to render (default from config)")
	preset := fs.String("preset", "", "preset to apply on top of the project")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bars < 1 {
		return fault.New("bars < 1", fmsg.WithDesc("parse export", "-bars must be at least 1"))
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	m, err := loadManager(cfg, *project, exportRate)
	if err != nil {
		return err
	}
	if *preset != "" {
		path, err := config.ResolvePreset(*preset)
		if err != nil {
			return err
		}
		p, err := config.LoadPreset(path)
		if err != nil {
			return err
		}
		if err := p.Apply(m); err != nil {
			return err
		}
	}

	seconds := float64(*bars) * 4 * 60 / cfg.Clock.BPM
	events := renderEvents(m, seconds)

	opts := midi.ExportOptions{BPM: cfg.Clock.BPM, Channel: cfg.MIDIOut.Channel, Notes: cfg.MIDIOut.Notes}
	if err := midi.WriteSMFFile(*out, events, opts); err != nil {
		return err
	}
	fmt.Printf("wrote %d gate events (%d bars at %.0f bpm) to %s\n", len(events), *bars, cfg.Clock.BPM, *out)
	return nil
}

// renderEvents runs m offline for seconds and returns every gate change.
func renderEvents(m *sequencer.Manager, seconds float64) []midi.GateEvent {
	rec := &sequencer.Recorder{}
	m.AddSink(rec)

	total := int(seconds * m.SampleRate())
	block := int(m.SampleRate() / 100)
	for done := 0; done < total; done += block {
		m.Render(min(block, total-done), nil)
	}
	return rec.Events()
}
