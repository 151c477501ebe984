package cvout

import (
	"bytes"
	"testing"

	"go-golomb/midi"
)

type fakePort struct {
	bytes.Buffer
	closed bool
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func frames(t *testing.T, data []byte) []Frame {
	t.Helper()
	if len(data)%8 != 0 {
		t.Fatalf("%d bytes is not a whole number of frames", len(data))
	}
	var out []Frame
	for i := 0; i < len(data); i += 8 {
		f, ok := Decode(data[i : i+8])
		if !ok {
			t.Fatalf("bad frame % x", data[i:i+8])
		}
		out = append(out, f)
	}
	return out
}

func TestFrameEncode(t *testing.T) {
	got := Frame{Mask: 0x0102, Seq: 7}.Encode()
	want := []byte{0xAA, 0x55, 0x04, 0x20, 0x02, 0x01, 0x07, 0x04 ^ 0x20 ^ 0x02 ^ 0x01 ^ 0x07}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	b := Frame{Mask: 5}.Encode()
	b[7] ^= 0xFF
	if _, ok := Decode(b); ok {
		t.Error("accepted a corrupted frame")
	}
}

func TestBoardSendGate(t *testing.T) {
	port := &fakePort{}
	b := New("test", port)

	b.SendGate(midi.GateEvent{Track: 0, Kind: midi.GateBeat, On: true})
	b.SendGate(midi.GateEvent{Track: 3, Kind: midi.GateEndOfCycle, On: true})
	b.SendGate(midi.GateEvent{Track: 3, Kind: midi.GateEndOfCycle, On: true}) // no change
	b.SendGate(midi.GateEvent{Track: 0, Kind: midi.GateBeat, On: false})

	got := frames(t, port.Bytes())
	wantMasks := []uint16{0x0001, 0x0801, 0x0800}
	if len(got) != len(wantMasks) {
		t.Fatalf("%d frames, want %d", len(got), len(wantMasks))
	}
	for i, f := range got {
		if f.Mask != wantMasks[i] || f.Seq != byte(i) {
			t.Errorf("frame %d: %+v", i, f)
		}
	}
}

func TestBoardIgnoresUnknownGates(t *testing.T) {
	port := &fakePort{}
	b := New("test", port)
	b.SendGate(midi.GateEvent{Track: 4, Kind: midi.GateBeat, On: true})
	b.SendGate(midi.GateEvent{Track: -1, Kind: midi.GateBeat, On: true})
	if port.Len() != 0 {
		t.Errorf("wrote %d bytes for out of range gates", port.Len())
	}
}

func TestBoardCloseClearsGates(t *testing.T) {
	port := &fakePort{}
	b := New("test", port)
	b.SendGate(midi.GateEvent{Track: 1, Kind: midi.GateAccent, On: true})
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	got := frames(t, port.Bytes())
	if last := got[len(got)-1]; last.Mask != 0 {
		t.Errorf("last frame mask %#x, want 0", last.Mask)
	}
	if !port.closed {
		t.Error("port not closed")
	}
}
