package sequencer

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"go-golomb/debug"
	"go-golomb/midi"
)

// Input is a momentary control the host can trigger.
type Input int

const (
	InputClock Input = iota
	InputReset
	InputMute
	InputStart1
	InputStart2
	InputStart3
	InputStart4
	InputConstantTime
	InputChain
	numInputs
)

// InputStart returns the start input of track (0-based).
func InputStart(track int) Input {
	return InputStart1 + Input(track)
}

// ClockSource selects what drives the clock jack.
type ClockSource int

const (
	ClockInternal ClockSource = iota // the manager's own square wave
	ClockExternal                    // pulses delivered through Trigger(InputClock)
)

func (c ClockSource) String() string {
	if c == ClockExternal {
		return "midi"
	}
	return "internal"
}

// TriggerWidth is how long a triggered input is held high.
const TriggerWidth = 1e-3

// UI refresh rate
const uiFPS = 30

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	SampleRate   float64
	BPM          float64
	StepsPerBeat int
	Clock        ClockSource
}

// Controls is the host-side view of the panel: knobs, patching and tempo.
type Controls struct {
	Knobs        [TrackCount][NumParams]Knob
	StartPatched [TrackCount]bool
	StartFrom    [TrackCount]int // 1-based track whose end of cycle feeds start, 0 = none
	BPM          float64
	Clock        ClockSource
	Transport    bool
}

// Manager owns an Engine and runs it for the host. Controls may be changed
// from any goroutine; Render must only be called from one driver goroutine
// at a time (the audio callback or Run).
type Manager struct {
	engine     *Engine
	sampleRate float64
	dt         float64
	hold       int // samples a trigger stays high

	// mu guards the fields up to sinksMu.
	mu         sync.Mutex
	controls   Controls
	pending    [numInputs]int
	restore    *Settings
	bpmChanged bool
	snapshot   Snapshot
	gates      [TrackCount][midi.NumGateKinds]bool
	dirty      bool
	rendered   int64

	sinksMu sync.RWMutex
	sinks   []GateSink

	// Driver goroutine only.
	clock     InternalClock
	ownClock  bool
	startFrom [TrackCount]int
	in        Inputs
	out       Outputs
	holding   [numInputs]int
	prev      [TrackCount][midi.NumGateKinds]bool
	sample    int64

	async    bool
	gateChan chan midi.GateEvent
	stopChan chan struct{}

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// NewManager creates a manager restored from saved settings.
func NewManager(s Settings, cfg ManagerConfig) *Manager {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.BPM <= 0 {
		cfg.BPM = 120
	}
	m := &Manager{
		engine:     NewEngine(s),
		sampleRate: cfg.SampleRate,
		dt:         1 / cfg.SampleRate,
		hold:       max(int(math.Round(TriggerWidth*cfg.SampleRate)), 1),
		clock:      NewInternalClock(cfg.BPM, cfg.StepsPerBeat),
		in:         NewInputs(),
		UpdateChan: make(chan struct{}, 1),
	}
	m.controls.Clock = cfg.Clock
	m.controls.BPM = m.clock.BPM()
	m.controls.Transport = true
	for i := range m.controls.Knobs {
		m.controls.Knobs[i] = DefaultKnobs()
	}
	m.snapshot = m.engine.Snapshot()
	return m
}

// SampleRate returns the rate Render assumes.
func (m *Manager) SampleRate() float64 {
	return m.sampleRate
}

// AddSink registers a receiver for gate changes.
func (m *Manager) AddSink(s GateSink) {
	m.sinksMu.Lock()
	m.sinks = append(m.sinks, s)
	m.sinksMu.Unlock()
}

// Start launches the dispatcher and UI goroutines. Without Start, gate
// events are delivered to sinks synchronously from Render.
func (m *Manager) Start() {
	m.gateChan = make(chan midi.GateEvent, 256)
	m.stopChan = make(chan struct{})
	m.async = true
	go m.outputLoop()
	go m.uiLoop()
}

// Stop ends the goroutines started by Start.
func (m *Manager) Stop() {
	if m.stopChan != nil {
		close(m.stopChan)
		m.stopChan = nil
	}
}

// Panel controls

func validTrack(track int) bool {
	return track >= 0 && track < TrackCount
}

// SetKnob sets a knob level, clamped to the parameter's range.
func (m *Manager) SetKnob(track int, p Param, level float64) {
	if !validTrack(track) || p < 0 || p >= NumParams {
		return
	}
	m.mu.Lock()
	m.controls.Knobs[track][p].Level = p.Clamp(level)
	m.dirty = true
	m.mu.Unlock()
}

// AdjustKnob turns a knob by delta.
func (m *Manager) AdjustKnob(track int, p Param, delta float64) {
	if !validTrack(track) || p < 0 || p >= NumParams {
		return
	}
	m.mu.Lock()
	k := &m.controls.Knobs[track][p]
	k.Level = p.Clamp(k.Level + delta)
	m.dirty = true
	m.mu.Unlock()
}

// SetKnobs replaces every knob level of a track.
func (m *Manager) SetKnobs(track int, levels [NumParams]float64) {
	for p := Param(0); p < NumParams; p++ {
		m.SetKnob(track, p, levels[p])
	}
}

// SetModulation patches a modulation voltage into a knob.
func (m *Manager) SetModulation(track int, p Param, volts float64) {
	if !validTrack(track) || p < 0 || p >= NumParams {
		return
	}
	m.mu.Lock()
	k := &m.controls.Knobs[track][p]
	k.Mod = volts
	k.ModConnected = true
	m.mu.Unlock()
}

// ClearModulation unpatches a knob's modulation input.
func (m *Manager) ClearModulation(track int, p Param) {
	if !validTrack(track) || p < 0 || p >= NumParams {
		return
	}
	m.mu.Lock()
	m.controls.Knobs[track][p] = Knob{Level: m.controls.Knobs[track][p].Level}
	m.mu.Unlock()
}

// PatchStart connects or disconnects a track's start jack.
func (m *Manager) PatchStart(track int, patched bool) {
	if !validTrack(track) {
		return
	}
	m.mu.Lock()
	m.controls.StartPatched[track] = patched
	m.dirty = true
	m.mu.Unlock()
}

// RouteStart feeds the end-of-cycle output of track src (1-based) into the
// start input of track. src 0 removes the route. A routed start counts as
// patched.
func (m *Manager) RouteStart(track, src int) {
	if !validTrack(track) || src < 0 || src > TrackCount {
		return
	}
	m.mu.Lock()
	m.controls.StartFrom[track] = src
	m.dirty = true
	m.mu.Unlock()
}

// Trigger pulses an input high for TriggerWidth. Triggers arriving faster
// than the pulse width are queued.
func (m *Manager) Trigger(in Input) {
	if in < 0 || in >= numInputs {
		return
	}
	m.mu.Lock()
	m.pending[in]++
	m.mu.Unlock()
}

// SetBPM changes the internal clock tempo.
func (m *Manager) SetBPM(bpm float64) {
	m.mu.Lock()
	m.controls.BPM = clamp(bpm, MinBPM, MaxBPM)
	m.bpmChanged = true
	m.dirty = true
	m.mu.Unlock()
}

// SetClockSource selects the clock driver.
func (m *Manager) SetClockSource(c ClockSource) {
	m.mu.Lock()
	m.controls.Clock = c
	m.dirty = true
	m.mu.Unlock()
}

// SetTransport pauses (false) or resumes (true) the clock.
func (m *Manager) SetTransport(running bool) {
	m.mu.Lock()
	m.controls.Transport = running
	m.dirty = true
	m.mu.Unlock()
}

// LoadSettings restores persisted settings, as when a project is loaded.
func (m *Manager) LoadSettings(s Settings) {
	s.Normalize()
	m.mu.Lock()
	m.restore = &s
	m.snapshot.Settings = s
	m.dirty = true
	m.mu.Unlock()
}

// HandleControl applies a decoded MIDI input control.
func (m *Manager) HandleControl(ev midi.ControlEvent) {
	switch ev.Kind {
	case midi.ControlClock:
		m.Trigger(InputClock)
	case midi.ControlReset:
		m.Trigger(InputReset)
	case midi.ControlMute:
		m.Trigger(InputMute)
	case midi.ControlStart:
		if validTrack(ev.Track) {
			m.Trigger(InputStart(ev.Track))
		}
	case midi.ControlModulation:
		m.SetModulation(ev.Track, Param(ev.Param), ev.Value)
	case midi.ControlTransport:
		m.SetTransport(ev.Value != 0)
	}
}

// State

// Snapshot returns the engine state as of the last rendered block.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Settings returns the persistent engine settings.
func (m *Manager) Settings() Settings {
	return m.Snapshot().Settings
}

// Controls returns a copy of the panel controls.
func (m *Manager) Controls() Controls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controls
}

// Gates returns which gate outputs were high at the end of the last block.
func (m *Manager) Gates() [TrackCount][midi.NumGateKinds]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gates
}

// Elapsed returns the number of samples rendered so far.
func (m *Manager) Elapsed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rendered
}

// Rendering

// beginBlock copies the controls into the engine inputs and starts the
// pulses for queued triggers.
func (m *Manager) beginBlock() {
	m.mu.Lock()
	c := m.controls
	restore := m.restore
	m.restore = nil
	if m.bpmChanged {
		m.clock.SetBPM(c.BPM)
		m.bpmChanged = false
	}
	for k := range m.pending {
		if m.pending[k] > 0 && m.holding[k] == 0 {
			m.pending[k]--
			// One extra sample low so back to back triggers make an edge.
			m.holding[k] = m.hold + 1
		}
	}
	m.mu.Unlock()

	if restore != nil {
		m.engine.Restore(*restore)
		debug.Log("manager", "settings restored %+v", *restore)
	}

	for i := range m.in.Tracks {
		m.in.Tracks[i].Knobs = c.Knobs[i]
		m.in.Tracks[i].Start.Connected = c.StartPatched[i] || c.StartFrom[i] > 0
	}
	m.startFrom = c.StartFrom
	m.in.Clock.Connected = c.Transport
	m.in.Reset.Connected = true
	m.in.Mute.Connected = true
	m.ownClock = c.Clock == ClockInternal
}

func (m *Manager) pulse(k Input) float64 {
	v := 0.0
	if m.holding[k] > 1 {
		v = GateHigh
	}
	if m.holding[k] > 0 {
		m.holding[k]--
	}
	return v
}

// Render processes n samples. frame, if not nil, is called after each
// sample with the engine outputs; the audio driver mixes from it.
func (m *Manager) Render(n int, frame func(i int, out *Outputs)) {
	m.beginBlock()

	for i := 0; i < n; i++ {
		clockPulse := m.pulse(InputClock)
		if m.ownClock {
			if m.in.Clock.Connected {
				m.in.Clock.Voltage = m.clock.Process(m.dt)
			} else {
				m.in.Clock.Voltage = 0
			}
		} else {
			m.in.Clock.Voltage = clockPulse
		}
		m.in.Reset.Voltage = m.pulse(InputReset)
		m.in.Mute.Voltage = m.pulse(InputMute)
		for t := range m.in.Tracks {
			v := m.pulse(InputStart(t))
			// Outputs are from the previous sample, like a patch cable.
			if src := m.startFrom[t]; src > 0 && m.out.Tracks[src-1].EndOfCycle > 0 {
				v = GateHigh
			}
			m.in.Tracks[t].Start.Voltage = v
		}
		m.in.ConstantTimeButton = m.pulse(InputConstantTime)
		m.in.ChainButton = m.pulse(InputChain)

		m.engine.Process(m.dt, &m.in, &m.out)
		m.detectGates()
		m.sample++

		if frame != nil {
			frame(i, &m.out)
		}
	}

	snap := m.engine.Snapshot()
	m.mu.Lock()
	m.snapshot = snap
	m.gates = m.prev
	m.rendered = m.sample
	m.dirty = true
	m.mu.Unlock()
}

// detectGates turns output transitions into gate events.
func (m *Manager) detectGates() {
	for t := range m.out.Tracks {
		o := &m.out.Tracks[t]
		levels := [midi.NumGateKinds]bool{o.Beat > 0, o.Accent > 0, o.EndOfCycle > 0}
		for k, high := range levels {
			if high == m.prev[t][k] {
				continue
			}
			m.prev[t][k] = high
			m.emit(midi.GateEvent{
				Track:  t,
				Kind:   midi.GateKind(k),
				On:     high,
				Sample: m.sample,
				Time:   float64(m.sample) * m.dt,
			})
		}
	}
}

func (m *Manager) emit(ev midi.GateEvent) {
	if !m.async {
		m.dispatch(ev)
		return
	}
	select {
	case m.gateChan <- ev:
	default:
		debug.LogEvery(16, "manager", "gate queue full, dropped track=%d kind=%s", ev.Track+1, ev.Kind)
	}
}

func (m *Manager) dispatch(ev midi.GateEvent) {
	m.sinksMu.RLock()
	defer m.sinksMu.RUnlock()
	for _, s := range m.sinks {
		if err := s.SendGate(ev); err != nil {
			debug.LogEvery(16, "manager", "sink error: %v", err)
		}
	}
}

// outputLoop delivers gate events to the sinks.
func (m *Manager) outputLoop() {
	stop := m.stopChan
	for {
		select {
		case <-stop:
			return
		case ev := <-m.gateChan:
			m.dispatch(ev)
		}
	}
}

// uiLoop notifies the TUI at a fixed rate when something changed.
func (m *Manager) uiLoop() {
	stop := m.stopChan
	ticker := time.NewTicker(time.Second / uiFPS)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			dirty := m.dirty
			m.dirty = false
			m.mu.Unlock()

			if dirty {
				select {
				case m.UpdateChan <- struct{}{}:
				default:
				}
			}
		}
	}
}

// driverTick is the Run loop period.
const driverTick = 2 * time.Millisecond

// Run renders samples in step with the wall clock until ctx is done. It is
// the driver when no audio device is in use.
func (m *Manager) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(driverTick)
	defer ticker.Stop()

	start := time.Now()
	var done int64
	maxBlock := int64(m.sampleRate / 10)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			owed := int64(now.Sub(start).Seconds()*m.sampleRate) - done
			if owed <= 0 {
				continue
			}
			if owed > maxBlock {
				// Fell behind (suspend, debugger); skip rather than burst.
				debug.Log("manager", "driver skipped %d samples", owed-maxBlock)
				done += owed - maxBlock
				owed = maxBlock
			}
			m.Render(int(owed), nil)
			done += owed
		}
	}
}
