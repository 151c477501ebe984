package midi

// GateKind identifies one of a track's three gate outputs.
type GateKind uint8

const (
	GateBeat GateKind = iota
	GateAccent
	GateEndOfCycle
	NumGateKinds
)

func (k GateKind) String() string {
	switch k {
	case GateBeat:
		return "beat"
	case GateAccent:
		return "accent"
	case GateEndOfCycle:
		return "eoc"
	}
	return "unknown"
}

// GateEvent is a gate output changing state.
type GateEvent struct {
	Track  int
	Kind   GateKind
	On     bool
	Sample int64   // engine sample counter at the change
	Time   float64 // seconds since the engine started
}

// ControlKind identifies an incoming control from a MIDI input.
type ControlKind uint8

const (
	ControlClock      ControlKind = iota // one step worth of clock pulses
	ControlReset                         // reset trigger (note or transport start)
	ControlMute                          // mute toggle trigger
	ControlStart                         // start trigger for Track
	ControlModulation                    // modulation voltage for Track/Param
	ControlTransport                     // transport running state in Value (1 or 0)
)

// ControlEvent is a decoded MIDI input message.
type ControlEvent struct {
	Kind  ControlKind
	Track int
	Param int
	Value float64
}
