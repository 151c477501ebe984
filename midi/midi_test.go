package midi

import (
	"bytes"
	"strings"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-golomb/debug"
)

func decodeAll(d *Decoder, msgs ...gomidi.Message) []ControlEvent {
	var got []ControlEvent
	for _, m := range msgs {
		d.Decode(m, func(ev ControlEvent) { got = append(got, ev) })
	}
	return got
}

func TestDecoderClockDivider(t *testing.T) {
	d := NewDecoder(DefaultInputMap())
	var msgs []gomidi.Message
	for i := 0; i < 13; i++ {
		msgs = append(msgs, gomidi.Message{statusTimingClock})
	}
	got := decodeAll(d, msgs...)
	if len(got) != 3 {
		t.Fatalf("got %d clock events from 13 pulses, want 3", len(got))
	}
	for _, ev := range got {
		if ev.Kind != ControlClock {
			t.Fatalf("unexpected kind %d", ev.Kind)
		}
	}
}

func TestDecoderTransportStartResetsDivider(t *testing.T) {
	d := NewDecoder(DefaultInputMap())
	decodeAll(d, gomidi.Message{statusTimingClock}, gomidi.Message{statusTimingClock})

	got := decodeAll(d, gomidi.Message{statusStart}, gomidi.Message{statusTimingClock})
	want := []ControlKind{ControlReset, ControlTransport, ControlClock}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Errorf("event %d: kind %d, want %d", i, got[i].Kind, k)
		}
	}
	if got[1].Value != 1 {
		t.Errorf("transport value %v, want 1", got[1].Value)
	}

	got = decodeAll(d, gomidi.Message{statusStop})
	if len(got) != 1 || got[0].Kind != ControlTransport || got[0].Value != 0 {
		t.Errorf("stop decoded as %+v", got)
	}
}

func TestDecoderNotes(t *testing.T) {
	d := NewDecoder(DefaultInputMap())

	tests := []struct {
		key   uint8
		kind  ControlKind
		track int
	}{
		{48, ControlReset, 0},
		{49, ControlMute, 0},
		{60, ControlStart, 0},
		{63, ControlStart, 3},
	}
	for _, tt := range tests {
		got := decodeAll(d, gomidi.NoteOn(0, tt.key, 100))
		if len(got) != 1 {
			t.Fatalf("note %d: got %d events", tt.key, len(got))
		}
		if got[0].Kind != tt.kind || got[0].Track != tt.track {
			t.Errorf("note %d: got %+v", tt.key, got[0])
		}
	}

	if got := decodeAll(d, gomidi.NoteOn(0, 70, 100)); len(got) != 0 {
		t.Errorf("unmapped note produced %+v", got)
	}
	if got := decodeAll(d, gomidi.NoteOff(0, 48)); len(got) != 0 {
		t.Errorf("note off produced %+v", got)
	}
}

func TestDecoderModulationCC(t *testing.T) {
	d := NewDecoder(DefaultInputMap())

	got := decodeAll(d, gomidi.ControlChange(0, 20, 127))
	if len(got) != 1 || got[0].Kind != ControlModulation || got[0].Track != 0 || got[0].Param != 0 {
		t.Fatalf("cc 20 decoded as %+v", got)
	}
	if got[0].Value != 5 {
		t.Errorf("cc 127 value %v, want 5", got[0].Value)
	}

	got = decodeAll(d, gomidi.ControlChange(0, 26, 0))
	if len(got) != 1 || got[0].Track != 1 || got[0].Param != 0 || got[0].Value != -5 {
		t.Errorf("cc 26 decoded as %+v", got)
	}
}

type sentLog struct {
	msgs []gomidi.Message
}

func (s *sentLog) send(m gomidi.Message) error {
	s.msgs = append(s.msgs, m)
	return nil
}

func TestGateOutputNotes(t *testing.T) {
	var log sentLog
	out := newGateOutput("test", log.send, 10, DefaultNoteMap())

	out.SendGate(GateEvent{Track: 1, Kind: GateAccent, On: true})
	out.SendGate(GateEvent{Track: 1, Kind: GateAccent, On: false})

	if len(log.msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(log.msgs))
	}
	var ch, key, vel uint8
	if !log.msgs[0].GetNoteOn(&ch, &key, &vel) {
		t.Fatalf("first message %v is not a note on", log.msgs[0])
	}
	if ch != 9 || key != 57 || vel != 127 {
		t.Errorf("note on ch=%d key=%d vel=%d", ch, key, vel)
	}
	if !log.msgs[1].GetNoteOff(&ch, &key, &vel) || key != 57 {
		t.Errorf("second message %v is not note off 57", log.msgs[1])
	}
}

func TestGateOutputSharedNote(t *testing.T) {
	var log sentLog
	notes := DefaultNoteMap()
	notes[0][GateAccent] = notes[0][GateBeat]
	out := newGateOutput("test", log.send, 1, notes)

	out.SendGate(GateEvent{Track: 0, Kind: GateBeat, On: true})
	out.SendGate(GateEvent{Track: 0, Kind: GateAccent, On: true})
	out.SendGate(GateEvent{Track: 0, Kind: GateBeat, On: false})
	if len(log.msgs) != 2 {
		t.Fatalf("note released while still held: %d messages", len(log.msgs))
	}
	out.SendGate(GateEvent{Track: 0, Kind: GateAccent, On: false})
	if len(log.msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(log.msgs))
	}

	// A stray off is ignored.
	out.SendGate(GateEvent{Track: 0, Kind: GateBeat, On: false})
	if len(log.msgs) != 3 {
		t.Errorf("stray note off was sent")
	}
}

func TestGateOutputSilence(t *testing.T) {
	var log sentLog
	out := newGateOutput("test", log.send, 1, DefaultNoteMap())
	out.SendGate(GateEvent{Track: 2, Kind: GateBeat, On: true})
	out.SendGate(GateEvent{Track: 3, Kind: GateBeat, On: true})
	log.msgs = nil

	if err := out.Silence(); err != nil {
		t.Fatal(err)
	}
	if len(log.msgs) != 2 {
		t.Fatalf("silence sent %d messages, want 2", len(log.msgs))
	}
	out.Silence()
	if len(log.msgs) != 2 {
		t.Errorf("second silence sent more notes")
	}
}

func TestWriteSMF(t *testing.T) {
	events := []GateEvent{
		{Track: 0, Kind: GateBeat, On: true, Time: 0},
		{Track: 0, Kind: GateAccent, On: true, Time: 0},
		{Track: 0, Kind: GateBeat, On: false, Time: 0.05},
		{Track: 0, Kind: GateAccent, On: false, Time: 0.05},
		{Track: 2, Kind: GateBeat, On: true, Time: 0.5},
		// left hanging; closed at the end
	}

	var buf bytes.Buffer
	if err := WriteSMF(&buf, events, ExportOptions{BPM: 120, Channel: 1, Notes: DefaultNoteMap()}); err != nil {
		t.Fatal(err)
	}

	sm, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(sm.Tracks) != 5 {
		t.Fatalf("got %d tracks, want 5", len(sm.Tracks))
	}

	var ons, offs int
	var lastOnTick uint32
	for _, tr := range sm.Tracks {
		var abs uint32
		for _, ev := range tr {
			abs += ev.Delta
			var ch, key, vel uint8
			msg := gomidi.Message(ev.Message)
			switch {
			case msg.GetNoteOn(&ch, &key, &vel):
				ons++
				if abs > lastOnTick {
					lastOnTick = abs
				}
			case msg.GetNoteOff(&ch, &key, &vel):
				offs++
			}
		}
	}
	if ons != 3 || offs != 3 {
		t.Errorf("got %d note ons and %d note offs, want 3 each", ons, offs)
	}
	// Half a second at 120 BPM is one quarter note.
	if lastOnTick != TicksPerQuarter {
		t.Errorf("last note on at tick %d, want %d", lastOnTick, TicksPerQuarter)
	}
}

func TestWriteSMFClosesHeldNotesInOrder(t *testing.T) {
	events := []GateEvent{
		{Track: 1, Kind: GateEndOfCycle, On: true, Time: 0},
		{Track: 1, Kind: GateAccent, On: true, Time: 0.1},
		{Track: 1, Kind: GateBeat, On: true, Time: 0.2},
	}
	opts := ExportOptions{BPM: 120, Channel: 1, Notes: DefaultNoteMap()}

	var first bytes.Buffer
	if err := WriteSMF(&first, events, opts); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		var again bytes.Buffer
		if err := WriteSMF(&again, events, opts); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first.Bytes(), again.Bytes()) {
			t.Fatalf("export %d differs from the first", i)
		}
	}

	sm, err := smf.ReadFrom(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	var offs []uint8
	for _, ev := range sm.Tracks[2] {
		var ch, key, vel uint8
		if gomidi.Message(ev.Message).GetNoteOff(&ch, &key, &vel) {
			offs = append(offs, key)
		}
	}
	want := []uint8{38, 43, 57}
	if len(offs) != len(want) {
		t.Fatalf("got note offs %v, want %v", offs, want)
	}
	for i := range want {
		if offs[i] != want[i] {
			t.Fatalf("got note offs %v, want %v", offs, want)
		}
	}
}

func TestMatchPort(t *testing.T) {
	if !matchPort("IAC Driver Bus 1", "iac driver") {
		t.Error("expected substring match")
	}
	if matchPort("IAC Driver Bus 1", "") {
		t.Error("empty name matched")
	}
	if matchPort("Launchpad", "Keystep") {
		t.Error("unrelated port matched")
	}
}

func TestDeliverLogsDroppedControls(t *testing.T) {
	var buf bytes.Buffer
	debug.EnableWriter(&buf)
	defer debug.Disable()

	dm := &DeviceManager{controls: make(chan ControlEvent, 1)}
	if !dm.deliver(ControlEvent{Track: 1}) {
		t.Fatal("first event should be queued")
	}
	for i := 0; i < 16; i++ {
		if dm.deliver(ControlEvent{Track: 2}) {
			t.Fatalf("event %d queued past capacity", i)
		}
	}
	if got := <-dm.controls; got.Track != 1 {
		t.Fatalf("queued event track %d, want 1", got.Track)
	}
	line := buf.String()
	if !strings.Contains(line, "control queue full") || !strings.Contains(line, "count=16") {
		t.Fatalf("unexpected log %q", line)
	}
	if strings.Count(line, "\n") != 1 {
		t.Fatalf("expected one rate-limited line, got %q", line)
	}
}
