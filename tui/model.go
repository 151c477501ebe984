package tui

import (
	"fmt"
	"strings"

	"github.com/Southclaws/fault/fmsg"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-golomb/audio"
	"go-golomb/debug"
	"go-golomb/midi"
	"go-golomb/sequencer"
	"go-golomb/theme"
	"go-golomb/widgets"
)

type Model struct {
	Manager   *sequencer.Manager
	DeviceMgr *midi.DeviceManager // nil when MIDI is disabled
	Store     *sequencer.Store
	Project   string
	Theme     *theme.Theme
	Monitor   *audio.Monitor // nil when the ticker drives the engine

	keys     keyMap
	help     help.Model
	track    int
	param    sequencer.Param
	status   string
	failed   bool
	midiIn   string
	midiOut  string
	quitting bool
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

func NewModel(manager *sequencer.Manager, deviceMgr *midi.DeviceManager, store *sequencer.Store, project string, th *theme.Theme) Model {
	m := Model{
		Manager:   manager,
		DeviceMgr: deviceMgr,
		Store:     store,
		Project:   project,
		Theme:     th,
		keys:      defaultKeys(),
		help:      help.New(),
	}
	if deviceMgr != nil {
		m.midiIn, m.midiOut = deviceMgr.Connected()
	}
	return m
}

// SelectTrack sets the initially selected track.
func (m *Model) SelectTrack(track int) {
	m.track = min(max(track, 0), sequencer.TrackCount-1)
}

// Track returns the selected track.
func (m Model) Track() int {
	return m.track
}

func ListenForUpdates(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event := <-deviceMgr.Events()
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Manager),
		ListenForDevices(m.DeviceMgr),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case DeviceEventMsg:
		m.deviceEvent(midi.DeviceEvent(msg))
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, k.TrackUp):
		m.track = (m.track + sequencer.TrackCount - 1) % sequencer.TrackCount
	case key.Matches(msg, k.TrackDown):
		m.track = (m.track + 1) % sequencer.TrackCount
	case key.Matches(msg, k.ParamLeft):
		m.param = (m.param + sequencer.NumParams - 1) % sequencer.NumParams
	case key.Matches(msg, k.ParamRight):
		m.param = (m.param + 1) % sequencer.NumParams

	case key.Matches(msg, k.Inc):
		m.Manager.AdjustKnob(m.track, m.param, 1)
	case key.Matches(msg, k.Dec):
		m.Manager.AdjustKnob(m.track, m.param, -1)
	case key.Matches(msg, k.FineInc):
		m.Manager.AdjustKnob(m.track, m.param, 0.1)
	case key.Matches(msg, k.FineDec):
		m.Manager.AdjustKnob(m.track, m.param, -0.1)

	case key.Matches(msg, k.Chain):
		m.Manager.Trigger(sequencer.InputChain)
	case key.Matches(msg, k.ConstantTime):
		m.Manager.Trigger(sequencer.InputConstantTime)
	case key.Matches(msg, k.Reset):
		m.Manager.Trigger(sequencer.InputReset)
	case key.Matches(msg, k.Mute):
		m.Manager.Trigger(sequencer.InputMute)
	case key.Matches(msg, k.Start):
		m.Manager.Trigger(sequencer.InputStart(int(msg.String()[0] - '1')))
	case key.Matches(msg, k.Patch):
		patched := m.Manager.Controls().StartPatched[m.track]
		m.Manager.PatchStart(m.track, !patched)

	case key.Matches(msg, k.Route):
		src := (m.Manager.Controls().StartFrom[m.track] + 1) % (sequencer.TrackCount + 1)
		m.Manager.RouteStart(m.track, src)
		if src == 0 {
			m.setStatus(fmt.Sprintf("track %d start: external", m.track+1))
		} else {
			m.setStatus(fmt.Sprintf("track %d start: end of track %d", m.track+1, src))
		}

	case key.Matches(msg, k.Faster):
		m.Manager.SetBPM(m.Manager.Controls().BPM + 1)
	case key.Matches(msg, k.Slower):
		m.Manager.SetBPM(m.Manager.Controls().BPM - 1)
	case key.Matches(msg, k.Transport):
		m.Manager.SetTransport(!m.Manager.Controls().Transport)
	case key.Matches(msg, k.Clock):
		c := sequencer.ClockExternal
		if m.Manager.Controls().Clock == sequencer.ClockExternal {
			c = sequencer.ClockInternal
		}
		m.Manager.SetClockSource(c)
		m.setStatus("clock: " + c.String())

	case key.Matches(msg, k.VolumeUp, k.VolumeDown, k.Clicks):
		m.audioKey(msg)

	case key.Matches(msg, k.Save):
		m.save()
	case key.Matches(msg, k.Load):
		m.load()

	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) audioKey(msg tea.KeyMsg) {
	if m.Monitor == nil {
		m.setStatus("audio off")
		return
	}
	switch {
	case key.Matches(msg, m.keys.VolumeUp):
		m.Monitor.SetVolume(m.Monitor.Volume() + 0.1)
	case key.Matches(msg, m.keys.VolumeDown):
		m.Monitor.SetVolume(m.Monitor.Volume() - 0.1)
	case key.Matches(msg, m.keys.Clicks):
		muted := !m.Monitor.TrackMuted(m.track)
		m.Monitor.SetTrackMuted(m.track, muted)
		m.setStatus(fmt.Sprintf("track %d clicks %s", m.track+1, onOff(!muted)))
		return
	}
	m.setStatus(fmt.Sprintf("volume %.0f%%", m.Monitor.Volume()*100))
}

func (m *Model) save() {
	name, err := m.Store.Save(m.Project, "", m.Manager.Settings())
	if err != nil {
		m.setError(err)
		return
	}
	m.setStatus("saved " + m.Project + "/" + name)
}

func (m *Model) load() {
	s, err := m.Store.Load(m.Project, "")
	if err != nil {
		m.setError(err)
		return
	}
	m.Manager.LoadSettings(s)
	m.setStatus("loaded " + m.Project)
}

func (m *Model) deviceEvent(ev midi.DeviceEvent) {
	switch ev.Type {
	case midi.InputConnected:
		m.midiIn = ev.Name
		m.setStatus("midi in: " + ev.Name)
	case midi.InputDisconnected:
		m.midiIn = ""
		m.setStatus("midi in gone: " + ev.Name)
	case midi.OutputConnected:
		m.midiOut = ev.Name
		m.setStatus("midi out: " + ev.Name)
	case midi.OutputDisconnected:
		m.midiOut = ""
		m.setStatus("midi out gone: " + ev.Name)
	case midi.ConnectFailed:
		m.setError(ev.Err)
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.failed = false
}

func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	debug.Log("tui", "%v", err)
	msg := fmsg.GetIssue(err)
	if msg == "" {
		msg = err.Error()
	}
	m.status = msg
	m.failed = true
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	snap := m.Manager.Snapshot()
	controls := m.Manager.Controls()
	gates := m.Manager.Gates()
	th := m.Theme

	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(th.Warning())

	runState := "STOP"
	if controls.Transport {
		runState = "RUN"
	}
	header := headerStyle.Render(fmt.Sprintf("go-golomb  %s  %3.0fbpm  clock:%s  project:%s",
		runState, controls.BPM, controls.Clock, m.Project))

	master := "-"
	if snap.Settings.MasterTrack > 0 {
		master = fmt.Sprint(snap.Settings.MasterTrack)
	}
	mode := fmt.Sprintf("chain:%-8s  constant time:%-3s  master:%s",
		snap.Settings.ChainMode, onOff(snap.Settings.ConstantTime), master)
	if snap.Settings.Muted {
		mode += "  " + warnStyle.Render("MUTED")
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(mode))
	out.WriteString("\n\n")

	for i := range snap.Tracks {
		out.WriteString(m.renderTrack(i, &snap.Tracks[i], &controls, gates[i]))
		out.WriteString("\n")
	}

	devices := "midi: off"
	if m.DeviceMgr != nil {
		devices = fmt.Sprintf("midi in: %s  out: %s", orNone(m.midiIn), orNone(m.midiOut))
	}
	out.WriteString(dimStyle.Render(devices))
	out.WriteString("\n")

	if m.status != "" {
		style := dimStyle
		if m.failed {
			style = warnStyle
		}
		out.WriteString(style.Render(m.status))
	}
	out.WriteString("\n\n")
	out.WriteString(m.help.View(m.keys))

	return out.String()
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (m Model) renderTrack(i int, ts *sequencer.TrackSnapshot, controls *sequencer.Controls, gates [midi.NumGateKinds]bool) string {
	th := m.Theme
	labelStyle := lipgloss.NewStyle().Foreground(th.Track(i)).Bold(i == m.track)

	cursor := " "
	if i == m.track {
		cursor = lipgloss.NewStyle().Foreground(th.Cursor()).Render(">")
	}
	patch := "  "
	switch {
	case controls.StartFrom[i] > 0:
		patch = fmt.Sprintf("<%d", controls.StartFrom[i])
	case controls.StartPatched[i]:
		patch = "S "
	}

	lamps := widgets.RenderLamp(th, gates[midi.GateBeat], th.Beat()) +
		widgets.RenderLamp(th, gates[midi.GateAccent], th.Accent()) +
		widgets.RenderLamp(th, gates[midi.GateEndOfCycle], th.Success())

	cfg := ts.Config
	geometry := lipgloss.NewStyle().Foreground(th.Muted()).Render(fmt.Sprintf("%2d/%-2d", ts.Layout.BeatCount(), cfg.Steps))

	line := fmt.Sprintf("%s%s%s %s %s  %s", cursor, labelStyle.Render(fmt.Sprint(i+1)), patch, lamps, geometry,
		widgets.RenderStepRow(th, ts, sequencer.MaxSteps))

	var knobs []string
	for p := sequencer.Param(0); p < sequencer.NumParams; p++ {
		knobs = append(knobs, widgets.RenderKnob(th, p, controls.Knobs[i][p], i == m.track && p == m.param))
	}
	return line + "\n      " + strings.Join(knobs, "  ")
}
