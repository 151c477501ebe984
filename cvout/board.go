package cvout

import (
	"io"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"go.bug.st/serial"

	"go-golomb/debug"
	"go-golomb/midi"
)

// Board mirrors gate events onto the interface board.
type Board struct {
	name string
	port io.WriteCloser

	mu   sync.Mutex
	mask uint16
	seq  byte
}

// Open opens the named serial device at the given baud rate.
func Open(device string, baud int) (*Board, error) {
	p, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("open serial", "Could not open gate board on "+device))
	}
	debug.Log("cvout", "opened %s at %d baud", device, baud)
	return New(device, p), nil
}

// New wraps an already open port.
func New(name string, port io.WriteCloser) *Board {
	return &Board{name: name, port: port}
}

// Ports lists serial devices the board may be attached to.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("list serial ports"))
	}
	return ports, nil
}

// Name returns the device name.
func (b *Board) Name() string {
	return b.name
}

// GateBit returns the mask bit of a track's gate output.
func GateBit(track int, kind midi.GateKind) (uint, bool) {
	if track < 0 || kind >= midi.NumGateKinds {
		return 0, false
	}
	bit := uint(track)*uint(midi.NumGateKinds) + uint(kind)
	return bit, bit < NumGates
}

// SendGate updates one gate and writes a frame if the board state changed.
func (b *Board) SendGate(ev midi.GateEvent) error {
	bit, ok := GateBit(ev.Track, ev.Kind)
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	mask := b.mask &^ (1 << bit)
	if ev.On {
		mask |= 1 << bit
	}
	if mask == b.mask {
		return nil
	}
	b.mask = mask
	return b.write()
}

// write must be called with mu held.
func (b *Board) write() error {
	f := Frame{Mask: b.mask, Seq: b.seq}
	b.seq++
	if _, err := b.port.Write(f.Encode()); err != nil {
		debug.LogEvery(32, "cvout", "write error: %v", err)
		return fault.Wrap(err, fmsg.With("write gate frame"))
	}
	return nil
}

// Close turns every gate off and closes the port.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mask = 0
	werr := b.write()
	if err := b.port.Close(); err != nil {
		return fault.Wrap(err, fmsg.With("close serial"))
	}
	return werr
}
