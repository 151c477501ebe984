package midi

import (
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// NoteMap assigns a MIDI note to every gate output of every track.
type NoteMap [4][NumGateKinds]uint8

// DefaultNoteMap uses GM drum notes: beats on kick, snare, closed hat and
// clap, accents on cymbals, end of cycle on toms.
func DefaultNoteMap() NoteMap {
	return NoteMap{
		{36, 49, 41},
		{38, 57, 43},
		{42, 46, 45},
		{39, 51, 47},
	}
}

// GateOutput turns gate changes into NoteOn/NoteOff messages.
type GateOutput struct {
	name    string
	send    func(gomidi.Message) error
	channel uint8
	notes   NoteMap

	mu       sync.Mutex
	sounding map[uint8]int // note -> number of gates holding it
}

// OpenGateOutput opens port for sending. channel is 1-16.
func OpenGateOutput(port drivers.Out, channel int, notes NoteMap) (*GateOutput, error) {
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("open midi output", "Could not open MIDI output "+port.String()))
	}
	return newGateOutput(port.String(), send, channel, notes), nil
}

func newGateOutput(name string, send func(gomidi.Message) error, channel int, notes NoteMap) *GateOutput {
	if channel < 1 || channel > 16 {
		channel = 1
	}
	return &GateOutput{
		name:     name,
		send:     send,
		channel:  uint8(channel - 1),
		notes:    notes,
		sounding: make(map[uint8]int),
	}
}

// Name returns the port name.
func (o *GateOutput) Name() string {
	return o.name
}

// SendGate sends the note for ev. Notes shared by several gates only turn
// off when the last of them does.
func (o *GateOutput) SendGate(ev GateEvent) error {
	if ev.Track < 0 || ev.Track >= len(o.notes) || ev.Kind >= NumGateKinds {
		return nil
	}
	note := o.notes[ev.Track][ev.Kind]

	o.mu.Lock()
	defer o.mu.Unlock()

	if ev.On {
		o.sounding[note]++
		velocity := uint8(100)
		if ev.Kind == GateAccent {
			velocity = 127
		}
		return o.send(gomidi.NoteOn(o.channel, note, velocity))
	}

	if o.sounding[note] == 0 {
		return nil
	}
	o.sounding[note]--
	if o.sounding[note] > 0 {
		return nil
	}
	delete(o.sounding, note)
	return o.send(gomidi.NoteOff(o.channel, note))
}

// Silence turns off every sounding note.
func (o *GateOutput) Silence() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var firstErr error
	for note := range o.sounding {
		if err := o.send(gomidi.NoteOff(o.channel, note)); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(o.sounding, note)
	}
	return firstErr
}
