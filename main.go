package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	tea "github.com/charmbracelet/bubbletea"

	"go-golomb/audio"
	"go-golomb/config"
	"go-golomb/cvout"
	"go-golomb/debug"
	"go-golomb/midi"
	"go-golomb/sequencer"
	"go-golomb/theme"
	"go-golomb/tui"
)

func main() {
	project := flag.String("project", "", "project to load and save (default from config)")
	preset := flag.String("preset", "", "preset name or YAML file to apply at startup")
	debugLog := flag.Bool("debug", false, "write debug.log to the config directory")
	headless := flag.Bool("headless", false, "run without the terminal UI until interrupted")
	flag.Parse()

	if err := run(*project, *preset, *debugLog, *headless); err != nil {
		msg := fmsg.GetIssue(err)
		if msg == "" {
			msg = err.Error()
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		debug.Log("main", "%v", err)
		os.Exit(1)
	}
}

func run(project, preset string, debugLog, headless bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if debugLog {
		dir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		if err := debug.Enable(dir); err != nil {
			return err
		}
		defer debug.Disable()
	}

	if project == "" {
		project = cfg.Project
	}
	projectsDir, err := config.ProjectsDir()
	if err != nil {
		return err
	}
	store := sequencer.NewStore(projectsDir)

	settings, err := store.Load(project, "")
	if err != nil && !errors.Is(err, sequencer.ErrNoSaves) {
		return err
	}

	manager := sequencer.NewManager(settings, sequencer.ManagerConfig{
		SampleRate:   float64(cfg.Audio.SampleRate),
		BPM:          cfg.Clock.BPM,
		StepsPerBeat: cfg.Clock.StepsPerBeat,
		Clock:        cfg.ClockSource(),
	})
	cfg.Apply(manager)

	if preset != "" {
		path, err := config.ResolvePreset(preset)
		if err != nil {
			return err
		}
		p, err := config.LoadPreset(path)
		if err != nil {
			return err
		}
		if err := p.Apply(manager); err != nil {
			return err
		}
		debug.Log("main", "preset %s applied", p.Name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MIDI device manager (handles hot-plug)
	deviceMgr := midi.NewDeviceManager(cfg.DeviceConfig())
	manager.AddSink(deviceMgr)
	go deviceMgr.Run(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-deviceMgr.Controls():
				manager.HandleControl(ev)
			}
		}
	}()

	if cfg.Serial.Device != "" {
		board, err := cvout.Open(cfg.Serial.Device, cfg.Serial.Baud)
		if err != nil {
			return err
		}
		defer board.Close()
		manager.AddSink(board)
	}

	manager.Start()
	defer manager.Stop()

	monitor, stopDriver := startDriver(ctx, manager, cfg)
	defer stopDriver()

	if headless {
		fmt.Printf("go-golomb running headless (project %s), Ctrl+C to stop\n", project)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return nil
	}

	palette, err := theme.LoadOrDefault(cfg.UI.Theme)
	if err != nil {
		return err
	}

	m := tui.NewModel(manager, deviceMgr, store, project, theme.New(palette))
	m.Monitor = monitor
	m.SelectTrack(cfg.UI.LastTrack)
	p := tea.NewProgram(m, tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return fault.Wrap(err, fmsg.With("run tui"))
	}

	if fm, ok := final.(tui.Model); ok {
		cfg.UI.LastTrack = fm.Track()
		cfg.Project = project
		if fm.Monitor != nil {
			cfg.Audio.Volume = fm.Monitor.Volume()
		}
		if err := cfg.Save(); err != nil {
			debug.Log("main", "save config: %v", err)
		}
	}
	return nil
}

// startDriver runs the engine from the audio callback when audio is enabled,
// otherwise from a wall-clock ticker. The monitor is nil for the ticker.
func startDriver(ctx context.Context, manager *sequencer.Manager, cfg *config.Config) (*audio.Monitor, func()) {
	if cfg.Audio.Enabled {
		mon := audio.NewMonitor(manager, cfg.Audio.Volume)
		err := audio.Start(mon, cfg.Audio.BufferMs)
		if err == nil {
			return mon, audio.Stop
		}
		debug.Log("main", "audio unavailable, using ticker driver: %v", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		manager.Run(ctx)
		close(done)
	}()
	return nil, func() {
		cancel()
		<-done
	}
}
