package midi

import (
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-golomb/debug"
)

// System real-time status bytes.
const (
	statusTimingClock = 0xF8
	statusStart       = 0xFA
	statusContinue    = 0xFB
	statusStop        = 0xFC
)

// InputMap says which incoming messages drive which controls. Negative note
// or CC numbers disable a mapping.
type InputMap struct {
	ClocksPerStep int       `json:"clocksPerStep"` // 24 PPQN clocks per step; 6 = sixteenths
	ResetNote     int       `json:"resetNote"`
	MuteNote      int       `json:"muteNote"`
	StartNotes    [4]int    `json:"startNotes"`
	ModCCs        [4][6]int `json:"modCCs"`
}

// DefaultInputMap listens for sixteenth-note clock, C3 reset, C#3 mute,
// C4..D#4 start triggers and CC 20-43 for modulation.
func DefaultInputMap() InputMap {
	m := InputMap{
		ClocksPerStep: 6,
		ResetNote:     48,
		MuteNote:      49,
		StartNotes:    [4]int{60, 61, 62, 63},
	}
	for t := range m.ModCCs {
		for p := range m.ModCCs[t] {
			m.ModCCs[t][p] = 20 + t*6 + p
		}
	}
	return m
}

// Decoder turns MIDI messages into control events. It keeps the clock
// divider state, so one Decoder serves one input port.
type Decoder struct {
	m      InputMap
	clocks int
}

// NewDecoder creates a decoder for m.
func NewDecoder(m InputMap) *Decoder {
	if m.ClocksPerStep < 1 {
		m.ClocksPerStep = 1
	}
	return &Decoder{m: m}
}

// Decode calls emit for every control event msg produces.
func (d *Decoder) Decode(msg gomidi.Message, emit func(ControlEvent)) {
	if len(msg) == 1 {
		switch msg[0] {
		case statusTimingClock:
			// Emit on the first clock of each step so the downbeat lands
			// on the clock that follows a transport start.
			if d.clocks == 0 {
				emit(ControlEvent{Kind: ControlClock})
			}
			d.clocks = (d.clocks + 1) % d.m.ClocksPerStep
		case statusStart:
			d.clocks = 0
			emit(ControlEvent{Kind: ControlReset})
			emit(ControlEvent{Kind: ControlTransport, Value: 1})
		case statusContinue:
			emit(ControlEvent{Kind: ControlTransport, Value: 1})
		case statusStop:
			emit(ControlEvent{Kind: ControlTransport, Value: 0})
		}
		return
	}

	var channel, key, velocity, cc, value uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		note := int(key)
		switch note {
		case d.m.ResetNote:
			emit(ControlEvent{Kind: ControlReset})
		case d.m.MuteNote:
			emit(ControlEvent{Kind: ControlMute})
		}
		for t, n := range d.m.StartNotes {
			if n == note {
				emit(ControlEvent{Kind: ControlStart, Track: t})
			}
		}
	case msg.GetControlChange(&channel, &cc, &value):
		for t := range d.m.ModCCs {
			for p, n := range d.m.ModCCs[t] {
				if n == int(cc) {
					// CC 0..127 becomes a bipolar -5..+5 V modulation.
					emit(ControlEvent{Kind: ControlModulation, Track: t, Param: p, Value: float64(value)/127*10 - 5})
				}
			}
		}
	}
}

// InputListener reads a MIDI input port and publishes decoded controls.
type InputListener struct {
	name     string
	stopFunc func()
	events   chan ControlEvent

	mu     sync.Mutex
	closed bool
}

// ListenInput starts listening on port. Timing clock messages are only
// delivered by the driver when time code is enabled, so it always is.
func ListenInput(port drivers.In, m InputMap) (*InputListener, error) {
	l := &InputListener{
		name:   port.String(),
		events: make(chan ControlEvent, 64),
	}
	dec := NewDecoder(m)

	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.closed {
			return
		}
		dec.Decode(msg, func(ev ControlEvent) {
			select {
			case l.events <- ev:
			default:
				debug.LogEvery(32, "midi-in", "control queue full, dropped kind=%d", ev.Kind)
			}
		})
	}, gomidi.UseTimeCode(), gomidi.HandleError(func(err error) {
		debug.Log("midi-in", "listener error on %s: %v", l.name, err)
	}))
	if err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("listen midi input", "Could not listen to MIDI input "+l.name))
	}
	l.stopFunc = stop
	return l, nil
}

// Name returns the port name.
func (l *InputListener) Name() string {
	return l.name
}

// Events returns the decoded control stream.
func (l *InputListener) Events() <-chan ControlEvent {
	return l.events
}

// Close stops listening and closes the event stream.
func (l *InputListener) Close() error {
	if l.stopFunc != nil {
		l.stopFunc()
		l.stopFunc = nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.events)
	}
	return nil
}
