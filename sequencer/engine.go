package sequencer

import (
	"go-golomb/debug"
	"go-golomb/dsp"
)

// GateHigh is the voltage of an active gate output.
const GateHigh = 10.0

// TrackInputs are the knobs and start jack of one track.
type TrackInputs struct {
	Knobs [NumParams]Knob
	Start Jack
}

// Inputs is everything the engine reads in one sample.
type Inputs struct {
	Tracks [TrackCount]TrackInputs

	Clock Jack
	Reset Jack
	Mute  Jack

	// Panel buttons, as voltages: pressed is >= 1.
	ConstantTimeButton float64
	ChainButton        float64
}

// NewInputs returns inputs with every knob at its default and nothing patched.
func NewInputs() Inputs {
	var in Inputs
	for i := range in.Tracks {
		in.Tracks[i].Knobs = DefaultKnobs()
	}
	return in
}

// TrackOutputs are the three gate outputs of one track.
type TrackOutputs struct {
	Beat       float64
	Accent     float64
	EndOfCycle float64
}

// Outputs is everything the engine writes in one sample.
type Outputs struct {
	Tracks [TrackCount]TrackOutputs
}

// Engine is the four track rhythm generator. It must be driven from a single
// goroutine, one Process call per sample.
type Engine struct {
	tracks   [TrackCount]Track
	settings Settings

	initialized    bool
	startConnected [TrackCount]bool

	// clock timing
	sinceClock  float64
	duration    float64
	secondClock bool

	maxSteps    int
	masterSteps int

	clock        dsp.SchmittTrigger
	reset        dsp.SchmittTrigger
	mute         dsp.SchmittTrigger
	constantTime dsp.SchmittTrigger
	chain        dsp.SchmittTrigger
}

// NewEngine creates an engine restored from saved settings.
func NewEngine(s Settings) *Engine {
	s.Normalize()
	e := &Engine{settings: s}
	for i := range e.tracks {
		e.tracks[i].Running = true
		e.tracks[i].Config.Steps = MaxSteps
	}
	return e
}

// Settings returns the persistent part of the engine state.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Restore replaces the persistent settings, as when a project is loaded.
// Tracks rewind and running state is recomputed on the next sample.
func (e *Engine) Restore(s Settings) {
	s.Normalize()
	e.settings = s
	e.rewindIndexes()
	e.initialized = false
}

// Process runs one sample. dt is the sample period in seconds.
func (e *Engine) Process(dt float64, in *Inputs, out *Outputs) {
	if !e.initialized {
		e.setRunningState(in)
		for i := range in.Tracks {
			e.startConnected[i] = in.Tracks[i].Start.Connected
		}
		e.initialized = true
	}
	e.checkConnections(in)
	e.processButtons(in)
	e.configureTracks(in)
	e.processResetAndMute(in)
	e.processStarts(in)
	e.processClock(dt, in)
	e.writeOutputs(dt, out)
}

// chainControlled reports whether track i stops at the end of its cycle.
func (e *Engine) chainControlled(i int, in *Inputs) bool {
	return e.settings.ChainMode != ChainNone && in.Tracks[i].Start.Connected
}

func (e *Engine) setRunningState(in *Inputs) {
	for i := range e.tracks {
		e.setTrackRunningState(i, in)
	}
}

func (e *Engine) setTrackRunningState(i int, in *Inputs) {
	e.tracks[i].Running = !(e.settings.ChainMode == ChainEmployee && in.Tracks[i].Start.Connected)
}

func (e *Engine) checkConnections(in *Inputs) {
	for i := range in.Tracks {
		connected := in.Tracks[i].Start.Connected
		if connected != e.startConnected[i] {
			e.startConnected[i] = connected
			e.setTrackRunningState(i, in)
			debug.Log("engine", "track %d start patched=%v running=%v", i+1, connected, e.tracks[i].Running)
		}
	}
}

func (e *Engine) rewindIndexes() {
	for i := range e.tracks {
		e.tracks[i].BeatIndex = 0
	}
}

func (e *Engine) processButtons(in *Inputs) {
	if e.constantTime.Process(in.ConstantTimeButton) {
		e.settings.MasterTrack = (e.settings.MasterTrack + 1) % (MaxMasterTrack + 1)
		e.settings.ConstantTime = e.settings.MasterTrack > 0
		e.rewindIndexes()
		e.setRunningState(in)
		debug.Log("engine", "constant time=%v master=%d", e.settings.ConstantTime, e.settings.MasterTrack)
	}
	if e.chain.Process(in.ChainButton) {
		e.settings.ChainMode = e.settings.ChainMode.Next()
		e.rewindIndexes()
		e.setRunningState(in)
		debug.Log("engine", "chain mode=%s", e.settings.ChainMode)
	}
}

func (e *Engine) configureTracks(in *Inputs) {
	e.maxSteps = 0
	for i := range e.tracks {
		t := &e.tracks[i]
		if t.configure(DeriveTrackConfig(&in.Tracks[i].Knobs)) {
			debug.Log("pattern", "track %d rebuilt %+v", i+1, t.Config)
		}
		e.maxSteps = max(e.maxSteps, t.Config.Steps)
	}
	e.masterSteps = e.maxSteps
	if m := e.settings.MasterTrack; m > 0 {
		e.masterSteps = e.tracks[m-1].Config.Steps
	}
}

func (e *Engine) processResetAndMute(in *Inputs) {
	if in.Reset.Connected && e.reset.Process(in.Reset.Voltage) {
		e.rewindIndexes()
		e.setRunningState(in)
	}
	if in.Mute.Connected && e.mute.Process(in.Mute.Voltage) {
		e.settings.Muted = !e.settings.Muted
	}
}

func (e *Engine) processStarts(in *Inputs) {
	for i := range e.tracks {
		t := &e.tracks[i]
		if !e.chainControlled(i, in) || t.Running {
			continue
		}
		if t.start.Process(in.Tracks[i].Start.Voltage) {
			t.Running = true
		}
	}
}

// advance steps track i and applies the chain stop rule on wrap.
func (e *Engine) advance(i int, in *Inputs) bool {
	wrapped := e.tracks[i].advance()
	if wrapped && e.chainControlled(i, in) {
		e.tracks[i].Running = false
	}
	return wrapped
}

func (e *Engine) processClock(dt float64, in *Inputs) {
	e.sinceClock += dt
	if !in.Clock.Connected {
		return
	}

	if e.clock.Process(in.Clock.Voltage) {
		if e.secondClock {
			e.duration = e.sinceClock
		}
		e.sinceClock = 0
		e.secondClock = true

		if !e.settings.ConstantTime {
			for i := range e.tracks {
				if e.tracks[i].Running {
					e.advance(i, in)
				}
			}
		}
	}

	resync := false
	for i := range e.tracks {
		t := &e.tracks[i]
		if t.Config.Steps > 0 {
			t.StepDuration = e.duration * float64(e.masterSteps) / float64(t.Config.Steps)
		}
		if !t.Running {
			continue
		}
		t.LastStepTime += dt
		if e.settings.ConstantTime && t.StepDuration > 0 && t.LastStepTime >= t.StepDuration {
			wrapped := e.advance(i, in)
			if wrapped && t.Config.Steps >= e.maxSteps {
				resync = true
			}
		}
	}
	// The longest track wrapping pulls every track back in phase.
	if resync {
		for i := range e.tracks {
			e.tracks[i].rewind()
		}
	}
}

func (e *Engine) writeOutputs(dt float64, out *Outputs) {
	for i := range e.tracks {
		t := &e.tracks[i]
		o := &out.Tracks[i]

		gate := 0.0
		if t.gateHigh() && t.Running && !e.settings.Muted {
			gate = GateHigh
		}
		o.Beat, o.Accent = 0, 0
		if t.Layout.IsBeat(t.BeatIndex) {
			o.Beat = gate
		}
		if t.Layout.IsAccent(t.BeatIndex) {
			o.Accent = gate
		}

		o.EndOfCycle = 0
		if t.endOfCycle.Process(dt) {
			o.EndOfCycle = GateHigh
		}
	}
}

// TrackSnapshot is a copy of one track's display state.
type TrackSnapshot struct {
	Config       TrackConfig
	Layout       Layout
	BeatIndex    int
	Running      bool
	StepDuration float64
	LastStepTime float64
}

// Snapshot is a copy of the engine state for display.
type Snapshot struct {
	Tracks        [TrackCount]TrackSnapshot
	Settings      Settings
	ClockDuration float64
	MaxSteps      int
	MasterSteps   int
}

// Snapshot copies the current state. It does not allocate.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Settings:      e.settings,
		ClockDuration: e.duration,
		MaxSteps:      e.maxSteps,
		MasterSteps:   e.masterSteps,
	}
	for i := range e.tracks {
		t := &e.tracks[i]
		s.Tracks[i] = TrackSnapshot{
			Config:       t.Config,
			Layout:       t.Layout,
			BeatIndex:    t.BeatIndex,
			Running:      t.Running,
			StepDuration: t.StepDuration,
			LastStepTime: t.LastStepTime,
		}
	}
	return s
}
