package sequencer

import (
	"sync"

	"go-golomb/midi"
)

// GateSink receives gate changes from the manager's dispatcher. Sinks are
// called from a single goroutine and should not block for long.
type GateSink interface {
	SendGate(ev midi.GateEvent) error
}

// GateSinkFunc adapts a function to a GateSink.
type GateSinkFunc func(ev midi.GateEvent) error

func (f GateSinkFunc) SendGate(ev midi.GateEvent) error {
	return f(ev)
}

// Recorder is a GateSink that keeps every event, for export and tests.
type Recorder struct {
	mu     sync.Mutex
	events []midi.GateEvent
}

func (r *Recorder) SendGate(ev midi.GateEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []midi.GateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]midi.GateEvent, len(r.events))
	copy(out, r.events)
	return out
}
