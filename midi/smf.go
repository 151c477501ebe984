package midi

import (
	"io"
	"math"
	"os"
	"sort"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TicksPerQuarter is the resolution of exported files.
const TicksPerQuarter = 960

// ExportOptions controls how recorded gates become a Standard MIDI File.
type ExportOptions struct {
	BPM     float64
	Channel int // 1-16
	Notes   NoteMap
}

// WriteSMF writes events as a format 1 MIDI file: a tempo track followed by
// one track per rhythm track. Event times are seconds from the start.
func WriteSMF(w io.Writer, events []GateEvent, opts ExportOptions) error {
	sm, err := buildSMF(events, opts)
	if err != nil {
		return err
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fault.Wrap(err, fmsg.With("write midi file"))
	}
	return nil
}

// WriteSMFFile is WriteSMF into a new file at path.
func WriteSMFFile(path string, events []GateEvent, opts ExportOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fault.Wrap(err, fmsg.WithDesc("create midi file", "Could not create "+path))
	}
	if err := WriteSMF(f, events, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type timedMessage struct {
	tick uint32
	on   bool
	msg  gomidi.Message
}

func buildSMF(events []GateEvent, opts ExportOptions) (*smf.SMF, error) {
	if opts.BPM <= 0 {
		opts.BPM = 120
	}
	channel := opts.Channel
	if channel < 1 || channel > 16 {
		channel = 1
	}
	ch := uint8(channel - 1)
	ticksPerSecond := TicksPerQuarter * opts.BPM / 60

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(opts.BPM))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return nil, fault.Wrap(err, fmsg.With("add tempo track"))
	}

	perTrack := make([][]timedMessage, len(opts.Notes))
	sounding := make([]map[uint8]int, len(opts.Notes))
	for i := range sounding {
		sounding[i] = make(map[uint8]int)
	}

	ordered := make([]GateEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Time < ordered[j].Time })

	var last uint32
	for _, ev := range ordered {
		if ev.Track < 0 || ev.Track >= len(opts.Notes) || ev.Kind >= NumGateKinds {
			continue
		}
		note := opts.Notes[ev.Track][ev.Kind]
		tick := uint32(math.Round(math.Max(ev.Time, 0) * ticksPerSecond))
		if tick > last {
			last = tick
		}
		held := sounding[ev.Track]

		if ev.On {
			held[note]++
			velocity := uint8(100)
			if ev.Kind == GateAccent {
				velocity = 127
			}
			perTrack[ev.Track] = append(perTrack[ev.Track], timedMessage{tick, true, gomidi.NoteOn(ch, note, velocity)})
			continue
		}
		if held[note] == 0 {
			continue
		}
		held[note]--
		if held[note] == 0 {
			delete(held, note)
			perTrack[ev.Track] = append(perTrack[ev.Track], timedMessage{tick, false, gomidi.NoteOff(ch, note)})
		}
	}

	for t, msgs := range perTrack {
		// Close notes still held at the end of the recording, lowest first.
		held := make([]uint8, 0, len(sounding[t]))
		for note := range sounding[t] {
			held = append(held, note)
		}
		sort.Slice(held, func(i, j int) bool { return held[i] < held[j] })
		for _, note := range held {
			msgs = append(msgs, timedMessage{last, false, gomidi.NoteOff(ch, note)})
		}
		// Note offs go first within a tick so a retrigger is not cut short.
		sort.SliceStable(msgs, func(i, j int) bool {
			if msgs[i].tick != msgs[j].tick {
				return msgs[i].tick < msgs[j].tick
			}
			return !msgs[i].on && msgs[j].on
		})

		var track smf.Track
		var pos uint32
		for _, m := range msgs {
			track.Add(m.tick-pos, m.msg)
			pos = m.tick
		}
		track.Close(0)
		if err := sm.Add(track); err != nil {
			return nil, fault.Wrap(err, fmsg.With("add rhythm track"))
		}
	}
	return sm, nil
}
