package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"go-golomb/debug"
)

// DeviceEvent is emitted when a wanted port appears or disappears.
type DeviceEvent struct {
	Type DeviceEventType
	Name string
	Err  error
}

type DeviceEventType int

const (
	InputConnected DeviceEventType = iota
	InputDisconnected
	OutputConnected
	OutputDisconnected
	ConnectFailed
)

// scanTimeout bounds a port scan; CoreMIDI can hang.
const scanTimeout = 3 * time.Second

// Ports lists input and output port names.
func Ports() (ins, outs []string, err error) {
	inPorts, outPorts, err := scanPorts()
	if err != nil {
		return nil, nil, err
	}
	for _, p := range inPorts {
		ins = append(ins, p.String())
	}
	for _, p := range outPorts {
		outs = append(outs, p.String())
	}
	return ins, outs, nil
}

func scanPorts() ([]drivers.In, []drivers.Out, error) {
	type portsResult struct {
		inPorts  []drivers.In
		outPorts []drivers.Out
	}

	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{inPorts: gomidi.GetInPorts(), outPorts: gomidi.GetOutPorts()}
	}()

	select {
	case result := <-ch:
		return result.inPorts, result.outPorts, nil
	case <-time.After(scanTimeout):
		return nil, nil, fault.New("midi port scan timed out", fmsg.WithDesc("port scan timeout", "The MIDI driver did not answer; try restarting the MIDI service"))
	}
}

// matchPort reports whether a port name matches the configured one, either
// exactly or as a case-insensitive substring.
func matchPort(portName, want string) bool {
	if want == "" {
		return false
	}
	if portName == want {
		return true
	}
	return strings.Contains(strings.ToLower(portName), strings.ToLower(want))
}

// DeviceConfig names the ports a DeviceManager keeps connected.
type DeviceConfig struct {
	InputPort  string
	OutputPort string
	Channel    int
	Notes      NoteMap
	InputMap   InputMap
}

// DeviceManager keeps the configured clock input and gate output ports
// connected across unplug and replug. It is the gate sink for MIDI output.
type DeviceManager struct {
	cfg DeviceConfig

	mu     sync.RWMutex
	input  *InputListener
	output *GateOutput

	controls chan ControlEvent
	events   chan DeviceEvent
	pollRate time.Duration
}

// NewDeviceManager creates a manager for cfg.
func NewDeviceManager(cfg DeviceConfig) *DeviceManager {
	return &DeviceManager{
		cfg:      cfg,
		controls: make(chan ControlEvent, 64),
		events:   make(chan DeviceEvent, 16),
		pollRate: time.Second,
	}
}

// Events returns connect/disconnect notifications.
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controls returns decoded input controls from whichever input is connected.
func (dm *DeviceManager) Controls() <-chan ControlEvent {
	return dm.controls
}

// Connected reports the names of the connected input and output ports.
func (dm *DeviceManager) Connected() (in, out string) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if dm.input != nil {
		in = dm.input.Name()
	}
	if dm.output != nil {
		out = dm.output.Name()
	}
	return in, out
}

// SendGate forwards ev to the output port, if one is connected.
func (dm *DeviceManager) SendGate(ev GateEvent) error {
	dm.mu.RLock()
	out := dm.output
	dm.mu.RUnlock()
	if out == nil {
		return nil
	}
	return out.SendGate(ev)
}

// Run polls for the configured ports until ctx is done.
func (dm *DeviceManager) Run(ctx context.Context) {
	if dm.cfg.InputPort == "" && dm.cfg.OutputPort == "" {
		return
	}
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan()
	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) notify(ev DeviceEvent) {
	select {
	case dm.events <- ev:
	default:
	}
}

func (dm *DeviceManager) scan() {
	inPorts, outPorts, err := scanPorts()
	if err != nil {
		debug.Log("ports", "scan: %v", err)
		return
	}
	dm.scanInputs(inPorts)
	dm.scanOutputs(outPorts)
}

func (dm *DeviceManager) scanInputs(ports []drivers.In) {
	want := dm.cfg.InputPort
	if want == "" {
		return
	}

	var found drivers.In
	for _, p := range ports {
		if matchPort(p.String(), want) {
			found = p
			break
		}
	}

	dm.mu.Lock()
	current := dm.input
	if current != nil && (found == nil || found.String() != current.Name()) {
		current.Close()
		dm.input = nil
		dm.mu.Unlock()
		debug.Log("ports", "input %s gone", current.Name())
		dm.notify(DeviceEvent{Type: InputDisconnected, Name: current.Name()})
		dm.mu.Lock()
	}
	if dm.input != nil || found == nil {
		dm.mu.Unlock()
		return
	}
	dm.mu.Unlock()

	l, err := ListenInput(found, dm.cfg.InputMap)
	if err != nil {
		debug.Log("ports", "input %s: %v", found.String(), err)
		dm.notify(DeviceEvent{Type: ConnectFailed, Name: found.String(), Err: err})
		return
	}

	dm.mu.Lock()
	dm.input = l
	dm.mu.Unlock()

	go dm.forward(l)
	debug.Log("ports", "input %s connected", l.Name())
	dm.notify(DeviceEvent{Type: InputConnected, Name: l.Name()})
}

// forward copies controls from one listener until it is closed.
func (dm *DeviceManager) forward(l *InputListener) {
	for ev := range l.Events() {
		dm.deliver(ev)
	}
}

// deliver queues ev without blocking the input callback. A full queue drops
// the event.
func (dm *DeviceManager) deliver(ev ControlEvent) bool {
	select {
	case dm.controls <- ev:
		return true
	default:
		debug.LogEvery(16, "ports", "control queue full, dropped kind %d track %d", ev.Kind, ev.Track)
		return false
	}
}

func (dm *DeviceManager) scanOutputs(ports []drivers.Out) {
	want := dm.cfg.OutputPort
	if want == "" {
		return
	}

	var found drivers.Out
	for _, p := range ports {
		if matchPort(p.String(), want) {
			found = p
			break
		}
	}

	dm.mu.Lock()
	current := dm.output
	if current != nil && (found == nil || found.String() != current.Name()) {
		dm.output = nil
		dm.mu.Unlock()
		debug.Log("ports", "output %s gone", current.Name())
		dm.notify(DeviceEvent{Type: OutputDisconnected, Name: current.Name()})
		dm.mu.Lock()
	}
	if dm.output != nil || found == nil {
		dm.mu.Unlock()
		return
	}
	dm.mu.Unlock()

	out, err := OpenGateOutput(found, dm.cfg.Channel, dm.cfg.Notes)
	if err != nil {
		debug.Log("ports", "output %s: %v", found.String(), err)
		dm.notify(DeviceEvent{Type: ConnectFailed, Name: found.String(), Err: err})
		return
	}

	dm.mu.Lock()
	dm.output = out
	dm.mu.Unlock()

	debug.Log("ports", "output %s connected", out.Name())
	dm.notify(DeviceEvent{Type: OutputConnected, Name: out.Name()})
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.input != nil {
		dm.input.Close()
		dm.input = nil
	}
	if dm.output != nil {
		dm.output.Silence()
		dm.output = nil
	}
}
